package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// errConfigProblems makes `config check` exit non-zero after printing.
var errConfigProblems = errors.New("configuration has problems")

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect service configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Validate configuration and list problems",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _ := loadConfig(cmd)
			out := cmd.OutOrStdout()

			problems := cfg.Validate()
			if len(problems) == 0 {
				_, err := fmt.Fprintln(out, "Configuration OK")
				return err
			}
			for _, p := range problems {
				fmt.Fprintf(out, "- %v\n", p)
			}
			return errConfigProblems
		},
	})
	return cmd
}
