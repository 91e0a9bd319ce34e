package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"draftforge/internal/daemon"
	"draftforge/internal/runs"
)

// newDaemonCommand runs the archiver daemon in the foreground until
// interrupted, mirroring what the draftforged binary does.
func newDaemonCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the draft archiver daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}

			store, err := runs.Open(cfg)
			if err != nil {
				return fmt.Errorf("open run store: %w", err)
			}

			d, err := daemon.New(cfg, store, cmdCtx.logger())
			if err != nil {
				store.Close()
				return fmt.Errorf("create daemon: %w", err)
			}
			defer d.Close()

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			if err := d.Start(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Daemon running; press Ctrl-C to stop")
			<-ctx.Done()
			return nil
		},
	}
}
