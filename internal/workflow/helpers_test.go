package workflow

import (
	"context"
	"net/url"
	"testing"

	"github.com/deploymenttheory/go-api-runner/internal/logger"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type endpointMap map[string]string

func (m endpointMap) Endpoint(resource string) string {
	return m[resource]
}

var testEndpoints = endpointMap{
	"register": "/auth/register",
	"login":    "/auth/login",
	"users":    "/users",
	"groups":   "/groups",
}

// MockSession is a Session whose calls are scripted per test
type MockSession struct {
	mock.Mock
}

func (m *MockSession) Get(ctx context.Context, endpoint string, params url.Values) (interface{}, error) {
	args := m.Called(ctx, endpoint, params)

	return args.Get(0), args.Error(1)
}

func (m *MockSession) Put(ctx context.Context, endpoint string, payload map[string]interface{}) (interface{}, error) {
	args := m.Called(ctx, endpoint, payload)

	return args.Get(0), args.Error(1)
}

func (m *MockSession) Register(ctx context.Context, endpoint, username, password string) error {
	args := m.Called(ctx, endpoint, username, password)

	return args.Error(0)
}

func (m *MockSession) Login(ctx context.Context, endpoint, username, password string) error {
	args := m.Called(ctx, endpoint, username, password)

	return args.Error(0)
}

func observe(t *testing.T) *observer.ObservedLogs {
	t.Helper()

	core, logs := observer.New(zapcore.DebugLevel)
	logger.SetLogger(zap.New(core))
	t.Cleanup(func() { logger.SetLogger(nil) })

	return logs
}

func users(records ...map[string]interface{}) []interface{} {
	list := make([]interface{}, 0, len(records))
	for _, r := range records {
		list = append(list, r)
	}
	return list
}
