// Package harness runs a settings-driven API workflow end to end: it loads and
// validates the settings, sets up logging, logs in and executes every stage.
package harness

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/deploymenttheory/go-api-runner/internal/client"
	"github.com/deploymenttheory/go-api-runner/internal/config"
	"github.com/deploymenttheory/go-api-runner/internal/device"
	"github.com/deploymenttheory/go-api-runner/internal/jsonutil"
	"github.com/deploymenttheory/go-api-runner/internal/logger"
	"github.com/deploymenttheory/go-api-runner/internal/workflow"
	"github.com/google/uuid"
)

// Version of the runner
const Version = "0.1.0"

// Options contains options for a run
type Options struct {
	ConfigFile  string       // Path to settings file; empty searches the standard locations
	Debug       bool         // Enable debug logging
	LogFormat   string       // Log format: "human" or "json"
	LogFile     string       // Path to log file
	ReportFile  string       // Path of a JSON file receiving the run report
	SuppressLog bool         // Suppress all logging
	HTTPClient  *http.Client // Optional HTTP client for API calls
}

// Result contains the results of a run
type Result struct {
	RunID  string           // Attached to every log line of the run
	Report *workflow.Report // Outcomes per stage; partial when the run was interrupted
}

// DefaultOptions returns the default run options
func DefaultOptions() Options {
	return Options{
		LogFormat: "human",
	}
}

// Run loads the settings file and executes its workflow
func Run(ctx context.Context, opts Options) (*Result, error) {
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return nil, err
	}
	return execute(ctx, cfg, opts)
}

// RunFromYAML executes the workflow of an in-memory YAML settings document
func RunFromYAML(ctx context.Context, settingsYAML string, opts Options) (*Result, error) {
	cfg, err := config.Parse(strings.NewReader(settingsYAML), "yaml")
	if err != nil {
		return nil, err
	}
	return execute(ctx, cfg, opts)
}

// Prepare applies opts to cfg, then loads and validates its workflow without making
// any network call
func Prepare(cfg *config.Config, opts Options) (*workflow.Workflow, error) {
	applyOverrides(cfg, opts)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	wf, err := workflow.Load(cfg)
	if err != nil {
		return nil, err
	}

	if err := workflow.Validate(wf, cfg); err != nil {
		return nil, err
	}

	return wf, nil
}

func execute(ctx context.Context, cfg *config.Config, opts Options) (*Result, error) {
	applyOverrides(cfg, opts)

	if err := initLogging(cfg, opts); err != nil {
		return nil, err
	}
	defer func() { _ = logger.Sync() }()

	runID := uuid.NewString()
	logger.Logger = logger.WithField("run_id", runID)

	logger.LogInfo("Starting API workflow runner", map[string]interface{}{
		"version":     Version,
		"config_file": cfg.File(),
	})

	wf, err := Prepare(cfg, opts)
	if err != nil {
		logger.LogError("Failed to load configuration", err, nil)
		return nil, err
	}

	settings := cfg.Settings
	api := client.New(settings.API.BaseURL, cfg.RequestTimeout(), client.WithHTTPClient(opts.HTTPClient))

	runner := workflow.NewRunner(api, cfg,
		workflow.Credentials{Username: settings.Auth.Username, Password: settings.Auth.Password},
		workflow.WithDevices(Devices(cfg)...),
		workflow.WithDeviceCommands(settings.Devices.SSH.Commands...),
	)

	logger.LogDebug("Workflow loaded", map[string]interface{}{
		"stages":   len(wf.Stages),
		"base_url": settings.API.BaseURL,
		"timeout":  cfg.RequestTimeout().String(),
	})

	report, err := runner.Execute(ctx, wf)
	result := &Result{RunID: runID, Report: report}

	if report != nil && settings.ReportFile != "" {
		if writeErr := writeReport(settings.ReportFile, result); writeErr != nil {
			logger.LogError("Failed to write report", writeErr, map[string]interface{}{"file": settings.ReportFile})
			if err == nil {
				err = writeErr
			}
		}
	}

	return result, err
}

// reportFile is the JSON document written to the report file
type reportFile struct {
	RunID   string                  `json:"run_id"`
	Summary workflow.Summary        `json:"summary"`
	Stages  []*workflow.StageReport `json:"stages"`
}

func writeReport(path string, result *Result) error {
	return jsonutil.WriteJSON(path, reportFile{
		RunID:   result.RunID,
		Summary: result.Report.Summary(),
		Stages:  result.Report.Stages,
	})
}

// Devices builds the SSH and RDP handshakes performed during setup
func Devices(cfg *config.Config) []device.Connector {
	settings := cfg.Settings.Devices

	user := settings.SSH.User
	if user == "" {
		user = cfg.Settings.Auth.Username
	}

	return []device.Connector{
		device.NewSSH(device.SSHOptions{
			Host:     settings.SSH.Host,
			User:     user,
			Password: settings.SSH.Password,
			Delay:    settings.HandshakeDelay,
		}),
		device.NewRDP(settings.RDP.Host, settings.HandshakeDelay),
	}
}

func applyOverrides(cfg *config.Config, opts Options) {
	if opts.Debug {
		cfg.Settings.Debug = true
	}
	if opts.LogFormat != "" {
		cfg.Settings.LogFormat = opts.LogFormat
	}
	if opts.LogFile != "" {
		cfg.Settings.LogFile = opts.LogFile
	}
	if opts.ReportFile != "" {
		cfg.Settings.ReportFile = opts.ReportFile
	}
}

func initLogging(cfg *config.Config, opts Options) error {
	if opts.SuppressLog {
		logger.SetLogger(nil)
		return nil
	}

	logConfig := logger.DefaultConfig()
	logConfig.Debug = cfg.Settings.Debug
	logConfig.LogFile = cfg.Settings.LogFile
	if cfg.Settings.LogFormat != "" {
		logConfig.LogFormat = cfg.Settings.LogFormat
	}

	if err := logger.InitLogger(logConfig); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}
