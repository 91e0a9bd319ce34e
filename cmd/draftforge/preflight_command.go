package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"draftforge/internal/preflight"
)

func newPreflightCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "preflight",
		Short: "Check directories, disk space, and storage reachability",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}

			results := preflight.RunAll(cmd.Context(), cfg)
			rows := make([][]string, 0, len(results))
			for _, result := range results {
				mark := "FAIL"
				if result.Passed {
					mark = "ok"
				}
				rows = append(rows, []string{result.Name, mark, result.Detail})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"Check", "Result", "Detail"}, rows, nil))
			if !preflight.AllPassed(results) {
				return fmt.Errorf("preflight checks failed")
			}
			return nil
		},
	}
}
