package main

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"draftforge/internal/draft"
	"draftforge/internal/lifecycle"
	"draftforge/internal/runs"
	"draftforge/internal/workspace"
)

// newRunCommand executes a manifest synchronously in this process.
func newRunCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run <manifest>",
		Short: "Assemble, archive, and upload a draft from a manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}

			job, err := draft.ParseFile(args[0])
			if err != nil {
				return err
			}

			store, err := cmdCtx.openStore()
			if err != nil {
				return fmt.Errorf("open run store: %w", err)
			}
			defer store.Close()

			payload, err := job.EncodeJSON()
			if err != nil {
				return err
			}
			if _, err := store.NewRun(cmd.Context(), job.DraftID, job.Template, string(payload)); err != nil {
				if errors.Is(err, runs.ErrDuplicateDraft) {
					return fmt.Errorf("draft %s was already submitted; draft IDs are single-use", job.DraftID)
				}
				return err
			}

			runner, err := lifecycle.NewRunner(cfg, workspace.NewRegistry(), store, cmdCtx.logger())
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			receipt, err := runner.Run(ctx, job)
			if err != nil {
				return fmt.Errorf("draft %s: %w", job.DraftID, err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Draft %s archived\n", job.DraftID)
			fmt.Fprintf(out, "  key:  %s\n", receipt.Key)
			fmt.Fprintf(out, "  url:  %s\n", receipt.URL)
			fmt.Fprintf(out, "  size: %d bytes\n", receipt.Size)
			return nil
		},
	}
}

// newSubmitCommand enqueues a manifest for the daemon.
func newSubmitCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "submit <manifest>",
		Short: "Queue a draft manifest for the daemon to process",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := draft.ParseFile(args[0])
			if err != nil {
				return err
			}

			store, err := cmdCtx.openStore()
			if err != nil {
				return fmt.Errorf("open run store: %w", err)
			}
			defer store.Close()

			payload, err := job.EncodeJSON()
			if err != nil {
				return err
			}
			run, err := store.NewRun(cmd.Context(), job.DraftID, job.Template, string(payload))
			if err != nil {
				if errors.Is(err, runs.ErrDuplicateDraft) {
					return fmt.Errorf("draft %s was already submitted; draft IDs are single-use", job.DraftID)
				}
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Queued draft %s (run %d)\n", run.DraftID, run.ID)
			return nil
		},
	}
}
