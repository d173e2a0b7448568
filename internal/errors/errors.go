package errors

import (
	"errors"
)

var (
	// Configuration Errors
	ErrConfigFileNotFound    = errors.New("configuration file not found")
	ErrConfigParseError      = errors.New("error parsing configuration")
	ErrConfigInvalid         = errors.New("invalid configuration")
	ErrEndpointNotConfigured = errors.New("no endpoint configured for resource")

	// Workflow Errors
	ErrUnknownAction    = errors.New("unknown step action")
	ErrInvalidStep      = errors.New("invalid step definition")
	ErrSetupRequired    = errors.New("setup phase has not completed")
	ErrSetupAlreadyDone = errors.New("setup phase already ran")

	// Authentication Errors
	ErrRegistrationFailed = errors.New("registration failed")
	ErrLoginFailed        = errors.New("login failed")
	ErrTokenMissing       = errors.New("login response did not contain a token")

	// Request Errors
	ErrRequestFailed   = errors.New("request failed")
	ErrHTTPStatus      = errors.New("unexpected HTTP status code")
	ErrInvalidResponse = errors.New("response body is not valid JSON")

	// Resource Errors
	ErrResourceNotFound  = errors.New("resource not found")
	ErrIdentifierMissing = errors.New("resource has no uuid or id")

	// File Errors
	ErrFileWriteError = errors.New("error writing file")

	// Device Errors
	ErrNotConnected = errors.New("device is not connected")
)
