package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"draftforge/internal/template"
)

func newTemplatesCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List installed draft templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}

			provisioner := template.NewProvisioner(cfg.Paths.TemplatesDir, cmdCtx.logger())
			names, err := provisioner.List()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(names) == 0 {
				fmt.Fprintf(out, "No templates installed in %s\n", cfg.Paths.TemplatesDir)
				return nil
			}
			for _, name := range names {
				fmt.Fprintln(out, name)
			}
			return nil
		},
	}
}
