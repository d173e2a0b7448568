package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// validateCmd checks the settings and workflow without contacting the API
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the settings file and its workflow",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, wf, err := prepare(cmd)
		if err != nil {
			return err
		}

		steps := 0
		for _, stage := range wf.Stages {
			steps += len(stage.Steps)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s is valid: %d stages, %d steps\n", cfg.File(), len(wf.Stages), steps)
		return nil
	},
}
