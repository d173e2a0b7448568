package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/deploymenttheory/go-api-runner/internal/config"
	apperrors "github.com/deploymenttheory/go-api-runner/internal/errors"
	"github.com/deploymenttheory/go-api-runner/internal/workflow"
	"github.com/deploymenttheory/go-api-runner/pkg/harness"
	"github.com/spf13/cobra"
)

var cfgFile string

// rootCmd represents the base CLI command
var rootCmd = &cobra.Command{
	Use:   "go-api-runner",
	Short: "Run a settings-driven workflow against a REST API",
	Long: `go-api-runner authenticates against a REST API and then executes the
stages and steps described in its settings file: fetching collections,
validating attributes of single records and updating them.

Settings are read from --config, the API_RUNNER_CONFIG environment variable,
or settings.yaml in the current directory, ./config or the user and system
configuration directories.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := options(cmd)
		opts.ConfigFile = cfgFile

		_, err := harness.Run(cmd.Context(), opts)
		return err
	},
}

// Execute runs the root command and returns the process exit code
func Execute(ctx context.Context) int {
	err := rootCmd.ExecuteContext(ctx)
	return exitCode(ctx, err, os.Stdout, os.Stderr)
}

func init() {
	// Config file flag
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "settings file (default is search in standard locations)")

	// Debug flag
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	// Log format flag
	rootCmd.PersistentFlags().String("log-format", "", "Log format: json or human")

	// Log file flag
	rootCmd.PersistentFlags().String("log-file", "", "Also write logs to this file")

	// Report file flag
	rootCmd.Flags().String("report-file", "", "Write the run report as JSON to this file")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(planCmd)
}

// options collects the flags that were explicitly provided. Unset flags leave the
// settings file in charge.
func options(cmd *cobra.Command) harness.Options {
	var opts harness.Options

	if cmd.Flags().Changed("debug") {
		opts.Debug, _ = cmd.Flags().GetBool("debug")
	}
	if cmd.Flags().Changed("log-format") {
		opts.LogFormat, _ = cmd.Flags().GetString("log-format")
	}
	if cmd.Flags().Changed("log-file") {
		opts.LogFile, _ = cmd.Flags().GetString("log-file")
	}
	if cmd.Flags().Changed("report-file") {
		opts.ReportFile, _ = cmd.Flags().GetString("report-file")
	}

	return opts
}

// prepare loads the settings file named by --config (or found by search) and its
// validated workflow
func prepare(cmd *cobra.Command) (*config.Config, *workflow.Workflow, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}

	wf, err := harness.Prepare(cfg, options(cmd))
	if err != nil {
		return nil, nil, err
	}
	return cfg, wf, nil
}

// exitCode maps the outcome of a command to a process exit code. An interrupt is a
// clean exit.
func exitCode(ctx context.Context, err error, stdout, stderr io.Writer) int {
	if ctx.Err() != nil {
		fmt.Fprintln(stdout, "\nTest execution interrupted.")
		return 0
	}

	if err == nil {
		return 0
	}

	switch {
	case isConfigError(err):
		fmt.Fprintf(stderr, "Failed to load configuration: %v\n", err)
	case errors.Is(err, apperrors.ErrLoginFailed):
		fmt.Fprintln(stderr, "Critical: Failed to login. Aborting tests.")
	default:
		fmt.Fprintf(stderr, "\nAn unexpected error occurred: %v\n", err)
	}
	return 1
}

func isConfigError(err error) bool {
	for _, target := range []error{
		apperrors.ErrConfigFileNotFound,
		apperrors.ErrConfigParseError,
		apperrors.ErrConfigInvalid,
		apperrors.ErrEndpointNotConfigured,
		apperrors.ErrUnknownAction,
		apperrors.ErrInvalidStep,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// versionCmd shows the application version
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "go-api-runner v%s\n", harness.Version)
	},
}
