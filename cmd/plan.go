package cmd

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// planCmd prints the validated workflow in the order it would run
var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print the workflow that would be executed",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, wf, err := prepare(cmd)
		if err != nil {
			return err
		}

		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(wf); err != nil {
			return err
		}
		return enc.Close()
	},
}
