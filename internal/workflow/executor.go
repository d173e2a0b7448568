package workflow

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	apperrors "github.com/deploymenttheory/go-api-runner/internal/errors"
	"github.com/deploymenttheory/go-api-runner/internal/logger"
	"github.com/deploymenttheory/go-api-runner/internal/record"
	"github.com/spf13/cast"
)

// maxDisplayNames caps how many record names a fetch logs
const maxDisplayNames = 5

// ResourceClient performs the resource calls a step needs. A non-nil error means
// "no value"; the client has already logged why.
type ResourceClient interface {
	Get(ctx context.Context, endpoint string, params url.Values) (interface{}, error)
	Put(ctx context.Context, endpoint string, payload map[string]interface{}) (interface{}, error)
}

// Executor runs single steps against the API, reading and updating an ExecutionContext.
// Step failures never escape Execute; they become outcomes.
type Executor struct {
	client    ResourceClient
	endpoints Endpoints
	state     *ExecutionContext
}

// NewExecutor creates an Executor sharing state with the caller
func NewExecutor(client ResourceClient, endpoints Endpoints, state *ExecutionContext) *Executor {
	if state == nil {
		state = NewExecutionContext()
	}
	return &Executor{client: client, endpoints: endpoints, state: state}
}

// State returns the execution context the executor reads and writes
func (e *Executor) State() *ExecutionContext {
	return e.state
}

// Execute runs one step
func (e *Executor) Execute(ctx context.Context, step Step) Outcome {
	switch s := step.(type) {
	case FetchAll:
		return e.fetchAll(ctx, s)
	case ValidateAttribute:
		return e.validateAttribute(ctx, s)
	case UpdateResource:
		return e.updateResource(ctx, s)
	default:
		action := "unknown"
		if step != nil {
			action = step.Action()
		}
		logger.LogWarn(fmt.Sprintf("Unknown action: %s", action), nil)
		return Outcome{Action: action, Status: StatusSkipped, Detail: "unknown action"}
	}
}

func (e *Executor) fetchAll(ctx context.Context, step FetchAll) Outcome {
	outcome := Outcome{Action: ActionFetchAll, Resource: step.Resource}

	logger.LogInfo(fmt.Sprintf("Fetching all %s...", step.Resource), nil)

	items, err := e.retrieve(ctx, step.Resource, queryValues(step.Params))
	if err != nil {
		return failed(outcome, err)
	}

	outcome.Status = StatusOK
	outcome.Fetched = len(items)
	outcome.Detail = fmt.Sprintf("fetched %d items", len(items))

	logger.LogInfo(fmt.Sprintf("Fetched %d items.", len(items)), nil)
	if len(items) > 0 {
		logger.LogInfo(fmt.Sprintf("Names: %s", displayNames(items)), nil)
	}

	return outcome
}

func (e *Executor) validateAttribute(ctx context.Context, step ValidateAttribute) Outcome {
	outcome := Outcome{Action: ActionValidateAttribute, Resource: step.Resource}

	target, err := e.resolve(ctx, step.Resource, step.IdentifierKey, step.IdentifierValue)
	if err != nil {
		return failed(outcome, err)
	}

	data, err := e.client.Get(ctx, target, nil)
	if err != nil {
		// No verdict when the fresh fetch fails; the client has already logged the cause.
		outcome.Status = StatusNoVerdict
		outcome.Detail = "fetch failed"
		outcome.Err = err
		return outcome
	}

	current, ok := record.AsRecord(data)
	if !ok {
		logger.LogError(fmt.Sprintf("Error: Response for %s is not an object", target), nil, nil)
		outcome.Status = StatusNoVerdict
		outcome.Detail = "response is not an object"
		outcome.Err = apperrors.ErrInvalidResponse
		return outcome
	}

	actual := current[step.Attribute]
	if record.Equal(actual, step.ExpectedValue) {
		logger.LogInfo(fmt.Sprintf("Validation SUCCESS: %s is %v", step.Attribute, actual), nil)
		outcome.Status = StatusPassed
		outcome.Detail = fmt.Sprintf("%s is %v", step.Attribute, actual)
		return outcome
	}

	logger.LogWarn(fmt.Sprintf("Validation FAILED: Expected %s to be %v, got %v", step.Attribute, step.ExpectedValue, actual), nil)
	outcome.Status = StatusFailed
	outcome.Detail = fmt.Sprintf("expected %s to be %v, got %v", step.Attribute, step.ExpectedValue, actual)
	return outcome
}

func (e *Executor) updateResource(ctx context.Context, step UpdateResource) Outcome {
	outcome := Outcome{Action: ActionUpdateResource, Resource: step.Resource}

	target, err := e.resolve(ctx, step.Resource, step.IdentifierKey, step.IdentifierValue)
	if err != nil {
		return failed(outcome, err)
	}

	logger.LogInfo(fmt.Sprintf("Updating %s with payload: %v", target, step.Payload), nil)

	data, err := e.client.Put(ctx, target, step.Payload)
	if err != nil {
		return failed(outcome, err)
	}

	logger.LogInfo("Update request successful.", nil)
	outcome.Status = StatusOK
	outcome.Detail = "update accepted"

	if current, ok := record.AsRecord(data); ok && current.Contains(step.Payload) {
		logger.LogInfo("Update verified in response.", nil)
		outcome.Status = StatusVerified
		outcome.Detail = "update verified in response"
	}

	return outcome
}

// resolve finds the record identified by key == value and returns the path of its
// single-record endpoint
func (e *Executor) resolve(ctx context.Context, resource, key string, value interface{}) (string, error) {
	item, err := e.lookup(ctx, resource, key, value)
	if err != nil {
		logger.LogError(fmt.Sprintf("Error: Could not find %s with %s=%v", resource, key, value), err, nil)
		return "", err
	}

	id, ok := item.ID()
	if !ok {
		logger.LogError("Error: Item found but has no uuid/id", nil, map[string]interface{}{
			"resource": resource,
			key:        value,
		})
		return "", fmt.Errorf("%w: %s with %s=%v", apperrors.ErrIdentifierMissing, resource, key, value)
	}

	return e.endpoints.Endpoint(resource) + "/" + record.FormatID(id), nil
}

// lookup scans the remembered list for resource, fetching it once first when the
// context holds nothing for that type
func (e *Executor) lookup(ctx context.Context, resource, key string, value interface{}) (record.Record, error) {
	items, ok := e.state.Recall(resource)
	if !ok {
		logger.LogDebug(fmt.Sprintf("No %s in context, fetching", resource), map[string]interface{}{
			"held": e.state.ResourceTypes(),
		})

		var err error
		items, err = e.retrieve(ctx, resource, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %s with %s=%v: %w", apperrors.ErrResourceNotFound, resource, key, value, err)
		}
	}

	item, found := record.Find(items, key, value)
	if !found {
		return nil, fmt.Errorf("%w: %s with %s=%v", apperrors.ErrResourceNotFound, resource, key, value)
	}
	return item, nil
}

// retrieve fetches the full collection of resource and remembers it
func (e *Executor) retrieve(ctx context.Context, resource string, params url.Values) ([]interface{}, error) {
	endpoint := e.endpoints.Endpoint(resource)
	if endpoint == "" {
		logger.LogError(fmt.Sprintf("Error: No endpoint configured for %s", resource), nil, nil)
		return nil, fmt.Errorf("%w: %s", apperrors.ErrEndpointNotConfigured, resource)
	}

	data, err := e.client.Get(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}

	items := record.Items(data)
	e.state.Remember(resource, items)
	return items, nil
}

func failed(outcome Outcome, err error) Outcome {
	outcome.Status = StatusError
	outcome.Detail = err.Error()
	outcome.Err = err
	return outcome
}

// displayNames joins the first few record names, marking truncation with "..."
func displayNames(items []interface{}) string {
	shown := items
	if len(shown) > maxDisplayNames {
		shown = shown[:maxDisplayNames]
	}

	names := make([]string, 0, len(shown))
	for _, item := range shown {
		names = append(names, record.Name(item))
	}

	joined := strings.Join(names, ", ")
	if len(items) > maxDisplayNames {
		joined += "..."
	}
	return joined
}

// queryValues converts step params to query values. List values repeat the key.
func queryValues(params map[string]interface{}) url.Values {
	if len(params) == 0 {
		return nil
	}

	values := url.Values{}
	for key, raw := range params {
		if list, ok := raw.([]interface{}); ok {
			for _, item := range list {
				values.Add(key, cast.ToString(item))
			}
			continue
		}
		values.Set(key, cast.ToString(raw))
	}
	return values
}
