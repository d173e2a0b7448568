// Package client wraps the authenticated REST calls made by a workflow run.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/deploymenttheory/go-api-runner/internal/errors"
	"github.com/deploymenttheory/go-api-runner/internal/logger"
)

// maxErrorBody caps how much of a failed response body is echoed into the log
const maxErrorBody = 512

// Client performs register/login/get/put against a base URL. After a successful
// login every request carries the bearer token.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Its Timeout is left untouched.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New creates a Client for baseURL whose requests time out after timeout
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Authenticated reports whether a login has succeeded
func (c *Client) Authenticated() bool {
	return c.token != ""
}

// Register creates the account. 200 and 201 count as success.
func (c *Client) Register(ctx context.Context, endpoint, username, password string) error {
	body, err := json.Marshal(map[string]string{"username": username, "password": password})
	if err != nil {
		return fmt.Errorf("%w: %s", apperrors.ErrRegistrationFailed, err.Error())
	}

	req, err := c.newRequest(ctx, http.MethodPost, endpoint, nil, bytes.NewReader(body))
	if err != nil {
		logger.LogError("Registration error", err, nil)
		return fmt.Errorf("%w: %s", apperrors.ErrRegistrationFailed, err.Error())
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.LogError("Registration error", err, nil)
		return fmt.Errorf("%w: %s", apperrors.ErrRegistrationFailed, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		text := readSnippet(resp.Body)
		logger.LogWarn("Registration failed", map[string]interface{}{
			"status": resp.StatusCode,
			"body":   text,
		})
		return fmt.Errorf("%w: %w %d", apperrors.ErrRegistrationFailed, apperrors.ErrHTTPStatus, resp.StatusCode)
	}

	logger.LogInfo(fmt.Sprintf("Registration successful for user: %s", username), nil)
	return nil
}

// Login authenticates with HTTP basic auth and keeps the returned bearer token
func (c *Client) Login(ctx context.Context, endpoint, username, password string) error {
	req, err := c.newRequest(ctx, http.MethodPost, endpoint, nil, nil)
	if err != nil {
		logger.LogError("Login error", err, map[string]interface{}{"url": c.url(endpoint)})
		return fmt.Errorf("%w: %s", apperrors.ErrLoginFailed, err.Error())
	}
	req.SetBasicAuth(username, password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.LogError("Login error", err, map[string]interface{}{"url": req.URL.String()})
		return fmt.Errorf("%w: %s", apperrors.ErrLoginFailed, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.LogError("Login failed", nil, map[string]interface{}{
			"url":    req.URL.String(),
			"status": resp.StatusCode,
			"body":   readSnippet(resp.Body),
		})
		return fmt.Errorf("%w: %w %d", apperrors.ErrLoginFailed, apperrors.ErrHTTPStatus, resp.StatusCode)
	}

	var payload struct {
		Token any `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		logger.LogError("Login failed", err, map[string]interface{}{"url": req.URL.String()})
		return fmt.Errorf("%w: %w", apperrors.ErrLoginFailed, apperrors.ErrInvalidResponse)
	}

	token, _ := payload.Token.(string)
	if token == "" {
		logger.LogError("Login failed", apperrors.ErrTokenMissing, map[string]interface{}{"url": req.URL.String()})
		return fmt.Errorf("%w: %w", apperrors.ErrLoginFailed, apperrors.ErrTokenMissing)
	}

	c.token = token
	logger.LogInfo("Login successful. Token received.", nil)
	return nil
}

// Get fetches endpoint and returns the decoded JSON body. Failures are logged here;
// callers treat a non-nil error as "no value".
func (c *Client) Get(ctx context.Context, endpoint string, params url.Values) (any, error) {
	return c.do(ctx, http.MethodGet, endpoint, params, nil)
}

// Put sends payload as JSON to endpoint and returns the decoded JSON body
func (c *Client) Put(ctx context.Context, endpoint string, payload map[string]any) (any, error) {
	return c.do(ctx, http.MethodPut, endpoint, nil, payload)
}

func (c *Client) do(ctx context.Context, method, endpoint string, params url.Values, payload map[string]any) (any, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			logger.LogError(fmt.Sprintf("%s request failed", method), err, map[string]interface{}{"endpoint": endpoint})
			return nil, fmt.Errorf("%w: %s", apperrors.ErrRequestFailed, err.Error())
		}
		body = bytes.NewReader(data)
	}

	req, err := c.newRequest(ctx, method, endpoint, params, body)
	if err != nil {
		logger.LogError(fmt.Sprintf("%s request failed", method), err, map[string]interface{}{"endpoint": endpoint})
		return nil, fmt.Errorf("%w: %s", apperrors.ErrRequestFailed, err.Error())
	}

	logger.LogDebug(fmt.Sprintf("%s %s", method, req.URL.String()), nil)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.LogError(fmt.Sprintf("%s request failed", method), err, map[string]interface{}{"url": req.URL.String()})
		return nil, fmt.Errorf("%w: %s", apperrors.ErrRequestFailed, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.LogError(fmt.Sprintf("%s request failed", method), nil, map[string]interface{}{
			"url":    req.URL.String(),
			"status": resp.StatusCode,
			"body":   readSnippet(resp.Body),
		})
		return nil, fmt.Errorf("%w: %w %d", apperrors.ErrRequestFailed, apperrors.ErrHTTPStatus, resp.StatusCode)
	}

	var result any
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&result); err != nil {
		logger.LogError(fmt.Sprintf("%s request failed", method), err, map[string]interface{}{"url": req.URL.String()})
		return nil, fmt.Errorf("%w: %w", apperrors.ErrRequestFailed, apperrors.ErrInvalidResponse)
	}

	return result, nil
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, params url.Values, body io.Reader) (*http.Request, error) {
	target := c.url(endpoint)
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	return req, nil
}

func (c *Client) url(endpoint string) string {
	return c.baseURL + endpoint
}

func readSnippet(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	return strings.TrimSpace(string(data))
}
