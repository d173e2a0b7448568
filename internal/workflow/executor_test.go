package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"testing"

	apperrors "github.com/deploymenttheory/go-api-runner/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	alice = map[string]interface{}{"id": json.Number("1"), "name": "Alice", "status": "active"}
	bob   = map[string]interface{}{"id": json.Number("2"), "name": "Bob", "status": "inactive"}
)

func newTestExecutor(session *MockSession) *Executor {
	return NewExecutor(session, testEndpoints, NewExecutionContext())
}

func TestFetchAllRemembersCollection(t *testing.T) {
	tests := []struct {
		name     string
		response interface{}
		expected int
	}{
		{name: "raw list", response: users(alice, bob), expected: 2},
		{name: "results envelope", response: map[string]interface{}{"results": users(alice)}, expected: 1},
		{name: "items envelope", response: map[string]interface{}{"items": users(alice, bob)}, expected: 2},
		{name: "data envelope", response: map[string]interface{}{"data": users(bob)}, expected: 1},
		{name: "object without collection", response: map[string]interface{}{"count": json.Number("2")}, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := &MockSession{}
			session.On("Get", mock.Anything, "/users", mock.Anything).Return(tt.response, nil).Once()

			executor := newTestExecutor(session)
			outcome := executor.Execute(context.Background(), FetchAll{Resource: "users"})

			assert.Equal(t, StatusOK, outcome.Status)
			assert.Equal(t, tt.expected, outcome.Fetched)

			held, ok := executor.State().Recall("users")
			require.True(t, ok)
			assert.Len(t, held, tt.expected)
			session.AssertExpectations(t)
		})
	}
}

func TestFetchAllFailureLeavesContextUntouched(t *testing.T) {
	session := &MockSession{}
	session.On("Get", mock.Anything, "/users", mock.Anything).Return(nil, apperrors.ErrRequestFailed)

	executor := newTestExecutor(session)
	outcome := executor.Execute(context.Background(), FetchAll{Resource: "users"})

	assert.Equal(t, StatusError, outcome.Status)
	assert.ErrorIs(t, outcome.Err, apperrors.ErrRequestFailed)

	_, ok := executor.State().Recall("users")
	assert.False(t, ok)
}

func TestFetchAllSendsParams(t *testing.T) {
	session := &MockSession{}
	expected := url.Values{"status": {"active"}, "tag": {"a", "b"}, "limit": {"10"}}
	session.On("Get", mock.Anything, "/users", expected).Return(users(alice), nil).Once()

	outcome := newTestExecutor(session).Execute(context.Background(), FetchAll{
		Resource: "users",
		Params: map[string]interface{}{
			"status": "active",
			"tag":    []interface{}{"a", "b"},
			"limit":  10,
		},
	})

	assert.Equal(t, StatusOK, outcome.Status)
	session.AssertExpectations(t)
}

func TestFetchAllMissingEndpoint(t *testing.T) {
	session := &MockSession{}

	outcome := newTestExecutor(session).Execute(context.Background(), FetchAll{Resource: "orders"})

	assert.Equal(t, StatusError, outcome.Status)
	assert.ErrorIs(t, outcome.Err, apperrors.ErrEndpointNotConfigured)
	session.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
}

func TestFetchAllLogsTruncatedNames(t *testing.T) {
	var list []interface{}
	for i := 1; i <= 6; i++ {
		item := map[string]interface{}{"id": i, "name": fmt.Sprintf("user%d", i)}
		if i == 3 {
			delete(item, "name")
		}
		list = append(list, item)
	}

	session := &MockSession{}
	session.On("Get", mock.Anything, "/users", mock.Anything).Return(list, nil)

	logs := observe(t)
	newTestExecutor(session).Execute(context.Background(), FetchAll{Resource: "users"})

	assert.Equal(t, 1, logs.FilterMessage("Fetched 6 items.").Len())
	assert.Equal(t, 1, logs.FilterMessage("Names: user1, user2, Unknown, user4, user5...").Len())
}

func TestFetchAllLogsAllNamesWhenFiveOrFewer(t *testing.T) {
	session := &MockSession{}
	session.On("Get", mock.Anything, "/users", mock.Anything).Return(users(alice, bob), nil)

	logs := observe(t)
	newTestExecutor(session).Execute(context.Background(), FetchAll{Resource: "users"})

	assert.Equal(t, 1, logs.FilterMessage("Names: Alice, Bob").Len())
}

func TestLookupFetchesOnceWhenContextEmpty(t *testing.T) {
	session := &MockSession{}
	session.On("Get", mock.Anything, "/users", mock.Anything).Return(users(alice, bob), nil).Once()
	session.On("Get", mock.Anything, "/users/2", mock.Anything).Return(bob, nil)

	executor := newTestExecutor(session)
	step := ValidateAttribute{Resource: "users", IdentifierKey: "name", IdentifierValue: "Bob", Attribute: "status", ExpectedValue: "inactive"}

	assert.Equal(t, StatusPassed, executor.Execute(context.Background(), step).Status)
	assert.Equal(t, StatusPassed, executor.Execute(context.Background(), step).Status)

	session.AssertNumberOfCalls(t, "Get", 3)
	session.AssertExpectations(t)
}

func TestLookupNotFoundDoesNotRefetch(t *testing.T) {
	session := &MockSession{}
	session.On("Get", mock.Anything, "/users", mock.Anything).Return(users(alice), nil).Once()

	executor := newTestExecutor(session)
	step := ValidateAttribute{Resource: "users", IdentifierKey: "name", IdentifierValue: "Carol", Attribute: "status", ExpectedValue: "active"}

	outcome := executor.Execute(context.Background(), step)
	assert.Equal(t, StatusError, outcome.Status)
	assert.ErrorIs(t, outcome.Err, apperrors.ErrResourceNotFound)

	outcome = executor.Execute(context.Background(), step)
	assert.ErrorIs(t, outcome.Err, apperrors.ErrResourceNotFound)

	session.AssertNumberOfCalls(t, "Get", 1)
}

func TestLookupTreatsRememberedEmptyListAsPresent(t *testing.T) {
	session := &MockSession{}
	executor := newTestExecutor(session)
	executor.State().Remember("users", []interface{}{})

	outcome := executor.Execute(context.Background(), UpdateResource{
		Resource: "users", IdentifierKey: "id", IdentifierValue: 1, Payload: map[string]interface{}{"status": "active"},
	})

	assert.Equal(t, StatusError, outcome.Status)
	assert.ErrorIs(t, outcome.Err, apperrors.ErrResourceNotFound)
	session.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
}

func TestLookupFetchFailureIsNotFound(t *testing.T) {
	session := &MockSession{}
	session.On("Get", mock.Anything, "/users", mock.Anything).Return(nil, apperrors.ErrRequestFailed).Once()

	outcome := newTestExecutor(session).Execute(context.Background(), ValidateAttribute{
		Resource: "users", IdentifierKey: "id", IdentifierValue: 1, Attribute: "name", ExpectedValue: "Alice",
	})

	assert.Equal(t, StatusError, outcome.Status)
	assert.ErrorIs(t, outcome.Err, apperrors.ErrResourceNotFound)
	assert.ErrorIs(t, outcome.Err, apperrors.ErrRequestFailed)
	session.AssertExpectations(t)
}

func TestLookupUsesLatestFetch(t *testing.T) {
	session := &MockSession{}
	session.On("Get", mock.Anything, "/users", mock.Anything).Return(users(alice), nil).Once()
	session.On("Get", mock.Anything, "/users", mock.Anything).Return(users(bob), nil).Once()
	session.On("Get", mock.Anything, "/users/2", mock.Anything).Return(bob, nil).Once()

	executor := newTestExecutor(session)
	ctx := context.Background()
	executor.Execute(ctx, FetchAll{Resource: "users"})
	executor.Execute(ctx, FetchAll{Resource: "users"})

	found := executor.Execute(ctx, ValidateAttribute{Resource: "users", IdentifierKey: "name", IdentifierValue: "Bob", Attribute: "name", ExpectedValue: "Bob"})
	assert.Equal(t, StatusPassed, found.Status)

	gone := executor.Execute(ctx, ValidateAttribute{Resource: "users", IdentifierKey: "name", IdentifierValue: "Alice", Attribute: "name", ExpectedValue: "Alice"})
	assert.ErrorIs(t, gone.Err, apperrors.ErrResourceNotFound)

	session.AssertExpectations(t)
}

func TestValidateAttributePrefersUUID(t *testing.T) {
	withUUID := map[string]interface{}{"id": json.Number("7"), "uuid": "abc-123", "name": "Alice"}

	session := &MockSession{}
	session.On("Get", mock.Anything, "/users/abc-123", mock.Anything).Return(withUUID, nil).Once()

	executor := newTestExecutor(session)
	executor.State().Remember("users", []interface{}{withUUID})

	outcome := executor.Execute(context.Background(), ValidateAttribute{
		Resource: "users", IdentifierKey: "id", IdentifierValue: 7, Attribute: "name", ExpectedValue: "Alice",
	})

	assert.Equal(t, StatusPassed, outcome.Status)
	session.AssertExpectations(t)
}

func TestValidateAttributeVerdicts(t *testing.T) {
	tests := []struct {
		name     string
		fresh    interface{}
		freshErr error
		expected interface{}
		status   Status
		message  string
	}{
		{name: "success", fresh: alice, expected: "Alice", status: StatusPassed, message: "Validation SUCCESS: name is Alice"},
		{name: "failure", fresh: alice, expected: "Alicia", status: StatusFailed, message: "Validation FAILED: Expected name to be Alicia, got Alice"},
		{name: "number never equals string", fresh: map[string]interface{}{"id": json.Number("1"), "name": json.Number("5")}, expected: "5", status: StatusFailed},
		{name: "fetch failure gives no verdict", freshErr: apperrors.ErrRequestFailed, expected: "Alice", status: StatusNoVerdict},
		{name: "non-object gives no verdict", fresh: []interface{}{alice}, expected: "Alice", status: StatusNoVerdict, message: "Error: Response for /users/1 is not an object"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := &MockSession{}
			session.On("Get", mock.Anything, "/users/1", mock.Anything).Return(tt.fresh, tt.freshErr).Once()

			executor := newTestExecutor(session)
			executor.State().Remember("users", users(alice, bob))

			logs := observe(t)
			outcome := executor.Execute(context.Background(), ValidateAttribute{
				Resource: "users", IdentifierKey: "id", IdentifierValue: 1, Attribute: "name", ExpectedValue: tt.expected,
			})

			assert.Equal(t, tt.status, outcome.Status)
			if tt.message != "" {
				assert.Equal(t, 1, logs.FilterMessage(tt.message).Len())
			}
			session.AssertExpectations(t)
		})
	}
}

func TestValidateAttributeRecordWithoutIdentifier(t *testing.T) {
	session := &MockSession{}
	executor := newTestExecutor(session)
	executor.State().Remember("users", []interface{}{map[string]interface{}{"name": "Ghost", "uuid": ""}})

	outcome := executor.Execute(context.Background(), ValidateAttribute{
		Resource: "users", IdentifierKey: "name", IdentifierValue: "Ghost", Attribute: "name", ExpectedValue: "Ghost",
	})

	assert.Equal(t, StatusError, outcome.Status)
	assert.ErrorIs(t, outcome.Err, apperrors.ErrIdentifierMissing)
	session.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateResource(t *testing.T) {
	payload := map[string]interface{}{"status": "active", "level": 3}

	tests := []struct {
		name     string
		response interface{}
		err      error
		status   Status
	}{
		{name: "verified", response: map[string]interface{}{"id": json.Number("2"), "status": "active", "level": json.Number("3")}, status: StatusVerified},
		{name: "partial round trip", response: map[string]interface{}{"id": json.Number("2"), "status": "active", "level": json.Number("2")}, status: StatusOK},
		{name: "missing field", response: map[string]interface{}{"id": json.Number("2"), "status": "active"}, status: StatusOK},
		{name: "non-object response", response: []interface{}{}, status: StatusOK},
		{name: "request failure", err: apperrors.ErrRequestFailed, status: StatusError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := &MockSession{}
			session.On("Put", mock.Anything, "/users/2", payload).Return(tt.response, tt.err).Once()

			executor := newTestExecutor(session)
			executor.State().Remember("users", users(alice, bob))

			logs := observe(t)
			outcome := executor.Execute(context.Background(), UpdateResource{
				Resource: "users", IdentifierKey: "name", IdentifierValue: "Bob", Payload: payload,
			})

			assert.Equal(t, tt.status, outcome.Status)
			verifiedLogs := logs.FilterMessage("Update verified in response.").Len()
			if tt.status == StatusVerified {
				assert.Equal(t, 1, verifiedLogs)
			} else {
				assert.Zero(t, verifiedLogs)
			}
			session.AssertExpectations(t)
		})
	}
}

func TestLookupMatchesLargeIntegerIDsExactly(t *testing.T) {
	lower := map[string]interface{}{"id": json.Number("9007199254740992"), "name": "Lower"}
	upper := map[string]interface{}{"id": json.Number("9007199254740993"), "name": "Upper"}
	payload := map[string]interface{}{"status": "active"}

	session := &MockSession{}
	session.On("Put", mock.Anything, "/users/9007199254740993", payload).Return(upper, nil).Once()
	session.On("Get", mock.Anything, "/users/9007199254740993", mock.Anything).Return(upper, nil).Once()

	executor := newTestExecutor(session)
	executor.State().Remember("users", users(lower, upper))

	updated := executor.Execute(context.Background(), UpdateResource{
		Resource: "users", IdentifierKey: "id", IdentifierValue: 9007199254740993, Payload: payload,
	})
	assert.Equal(t, StatusOK, updated.Status)

	validated := executor.Execute(context.Background(), ValidateAttribute{
		Resource: "users", IdentifierKey: "id", IdentifierValue: 9007199254740993, Attribute: "name", ExpectedValue: "Upper",
	})
	assert.Equal(t, StatusPassed, validated.Status)

	session.AssertExpectations(t)
	session.AssertNotCalled(t, "Put", mock.Anything, "/users/9007199254740992", mock.Anything)
}

type pingStep struct{}

func (pingStep) Action() string       { return "ping" }
func (pingStep) ResourceType() string { return "users" }

func TestUnknownStepIsSkipped(t *testing.T) {
	session := &MockSession{}

	logs := observe(t)
	outcome := newTestExecutor(session).Execute(context.Background(), pingStep{})

	assert.Equal(t, StatusSkipped, outcome.Status)
	assert.Equal(t, "ping", outcome.Action)
	assert.Equal(t, 1, logs.FilterMessage("Unknown action: ping").Len())
	session.AssertExpectations(t)
}
