package workflow

import (
	"context"
	"fmt"

	"github.com/deploymenttheory/go-api-runner/internal/device"
	apperrors "github.com/deploymenttheory/go-api-runner/internal/errors"
	"github.com/deploymenttheory/go-api-runner/internal/logger"
)

// Session is the authenticated API client owned by a Runner
type Session interface {
	ResourceClient
	Register(ctx context.Context, endpoint, username, password string) error
	Login(ctx context.Context, endpoint, username, password string) error
}

// Credentials are used for registration and login
type Credentials struct {
	Username string
	Password string
}

// CommandExecutor is a connected device that accepts commands
type CommandExecutor interface {
	Execute(ctx context.Context, command string) (string, error)
}

// Runner performs the one-time setup phase and then executes stages and steps in order
type Runner struct {
	session     Session
	endpoints   Endpoints
	credentials Credentials
	devices     []device.Connector
	commands    []string
	executor    *Executor

	setupStarted bool
	ready        bool
}

// RunnerOption configures a Runner
type RunnerOption func(*Runner)

// WithDevices sets the device handshakes performed during setup
func WithDevices(devices ...device.Connector) RunnerOption {
	return func(r *Runner) {
		r.devices = append(r.devices, devices...)
	}
}

// WithDeviceCommands sets commands sent to every connected device that accepts them
func WithDeviceCommands(commands ...string) RunnerOption {
	return func(r *Runner) {
		r.commands = append(r.commands, commands...)
	}
}

// NewRunner creates a Runner with an empty execution context
func NewRunner(session Session, endpoints Endpoints, credentials Credentials, opts ...RunnerOption) *Runner {
	r := &Runner{
		session:     session,
		endpoints:   endpoints,
		credentials: credentials,
		executor:    NewExecutor(session, endpoints, NewExecutionContext()),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// State returns the run's execution context
func (r *Runner) State() *ExecutionContext {
	return r.executor.State()
}

// Setup registers (best effort), logs in and performs the device handshakes. It runs at
// most once per Runner; a login failure is fatal.
func (r *Runner) Setup(ctx context.Context) error {
	if r.setupStarted {
		return apperrors.ErrSetupAlreadyDone
	}
	r.setupStarted = true

	logger.LogInfo("--- Setup Phase ---", nil)

	if endpoint := r.endpoints.Endpoint("register"); endpoint != "" {
		// Registration may fail because the account already exists.
		_ = r.session.Register(ctx, endpoint, r.credentials.Username, r.credentials.Password)
	} else {
		logger.LogDebug("No register endpoint configured, skipping registration", nil)
	}

	if err := r.session.Login(ctx, r.endpoints.Endpoint("login"), r.credentials.Username, r.credentials.Password); err != nil {
		logger.LogError("Critical: Failed to login. Aborting tests.", err, nil)
		return err
	}

	for _, d := range r.devices {
		if err := d.Connect(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			logger.LogWarn(fmt.Sprintf("Device handshake failed: %s", d.Name()), map[string]interface{}{
				"error": err.Error(),
			})
			continue
		}

		exec, ok := d.(CommandExecutor)
		if !ok {
			continue
		}
		for _, command := range r.commands {
			if _, err := exec.Execute(ctx, command); err != nil {
				logger.LogWarn(fmt.Sprintf("Device command failed: %s", command), map[string]interface{}{
					"device": d.Name(),
					"error":  err.Error(),
				})
			}
		}
	}

	r.ready = true
	logger.LogInfo("Setup complete.", nil)
	return nil
}

// Run executes the workflow. Cancelling ctx stops the run between steps; the partial
// report is returned together with the context error.
func (r *Runner) Run(ctx context.Context, workflow *Workflow) (*Report, error) {
	if !r.ready {
		return nil, apperrors.ErrSetupRequired
	}

	report := &Report{}
	if workflow == nil {
		return report, fmt.Errorf("%w: no workflow to run", apperrors.ErrConfigInvalid)
	}

	for _, stage := range workflow.Stages {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		logger.LogInfo(fmt.Sprintf("=== Executing Stage: %s ===", stage.Name), nil)
		logger.LogInfo(fmt.Sprintf("Description: %s", stage.Description), nil)

		stageReport := report.startStage(stage.Name)
		for i, step := range stage.Steps {
			if err := ctx.Err(); err != nil {
				return report, err
			}

			logger.LogDebug(fmt.Sprintf("Executing step %d/%d", i+1, len(stage.Steps)), map[string]interface{}{
				"action":   step.Action(),
				"resource": step.ResourceType(),
			})
			stageReport.add(r.executor.Execute(ctx, step))
		}

		logger.LogInfo("Stage complete.", nil)
	}

	report.Log()
	return report, nil
}

// Execute runs Setup followed by Run
func (r *Runner) Execute(ctx context.Context, workflow *Workflow) (*Report, error) {
	if err := r.Setup(ctx); err != nil {
		return nil, err
	}
	return r.Run(ctx, workflow)
}
