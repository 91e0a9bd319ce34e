package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"draftforge/internal/runs"
)

func newRunsCommand(cmdCtx *commandContext) *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect and maintain recorded draft runs",
	}

	runsCmd.AddCommand(newRunsListCommand(cmdCtx))
	runsCmd.AddCommand(newRunsShowCommand(cmdCtx))
	runsCmd.AddCommand(newRunsClearCommand(cmdCtx))
	runsCmd.AddCommand(newRunsHealthCommand(cmdCtx))

	return runsCmd
}

func newRunsListCommand(cmdCtx *commandContext) *cobra.Command {
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := cmdCtx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			var statuses []runs.Status
			for _, raw := range strings.Split(statusFilter, ",") {
				raw = strings.TrimSpace(raw)
				if raw == "" {
					continue
				}
				status, ok := runs.ParseStatus(raw)
				if !ok {
					return fmt.Errorf("unknown status %q (known: %v)", raw, runs.AllStatuses())
				}
				statuses = append(statuses, status)
			}

			items, err := store.List(cmd.Context(), statuses...)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}

			headers := []string{"ID", "Draft", "Template", "Status", "Created", "Error"}
			rows := make([][]string, 0, len(items))
			for _, run := range items {
				rows = append(rows, []string{
					strconv.FormatInt(run.ID, 10),
					run.DraftID,
					run.Template,
					string(run.Status),
					run.CreatedAt.Local().Format(time.DateTime),
					truncate(run.ErrorMessage, 60),
				})
			}

			if isatty.IsTerminal(os.Stdout.Fd()) {
				fmt.Fprintln(out, renderTable(headers, rows, []columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft}))
				return nil
			}
			for _, row := range rows {
				fmt.Fprintln(out, strings.Join(row, "\t"))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&statusFilter, "status", "", "Comma-separated status filter (e.g. pending,failed)")
	return cmd
}

func newRunsShowCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <draft-id>",
		Short: "Show the full record of one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := cmdCtx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.GetByDraftID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if run == nil {
				return fmt.Errorf("no run recorded for draft %s", args[0])
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Draft:    %s\n", run.DraftID)
			fmt.Fprintf(out, "Template: %s\n", run.Template)
			fmt.Fprintf(out, "Status:   %s\n", run.Status)
			fmt.Fprintf(out, "Created:  %s\n", run.CreatedAt.Local().Format(time.DateTime))
			if run.FinishedAt != nil {
				fmt.Fprintf(out, "Finished: %s\n", run.FinishedAt.Local().Format(time.DateTime))
			}
			if run.ErrorMessage != "" {
				fmt.Fprintf(out, "Error:    %s\n", run.ErrorMessage)
			}
			if run.ReceiptJSON != "" {
				fmt.Fprintf(out, "Receipt:  %s\n", run.ReceiptJSON)
			}
			return nil
		},
	}
}

func newRunsClearCommand(cmdCtx *commandContext) *cobra.Command {
	var completedOnly, failedOnly bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove recorded runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			if completedOnly && failedOnly {
				return fmt.Errorf("--completed and --failed are mutually exclusive")
			}

			store, err := cmdCtx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			var count int64
			switch {
			case completedOnly:
				count, err = store.ClearCompleted(cmd.Context())
			case failedOnly:
				count, err = store.ClearFailed(cmd.Context())
			default:
				count, err = store.Clear(cmd.Context())
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d run(s)\n", count)
			return nil
		},
	}

	cmd.Flags().BoolVar(&completedOnly, "completed", false, "Only remove completed runs")
	cmd.Flags().BoolVar(&failedOnly, "failed", false, "Only remove failed runs")
	return cmd
}

func newRunsHealthCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Summarize run counts by state",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := cmdCtx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			health, err := store.Health(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Total:      %d\n", health.Total)
			fmt.Fprintf(out, "Pending:    %d\n", health.Pending)
			fmt.Fprintf(out, "Processing: %d\n", health.Processing)
			fmt.Fprintf(out, "Completed:  %d\n", health.Completed)
			fmt.Fprintf(out, "Failed:     %d\n", health.Failed)
			return nil
		},
	}
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max-1] + "…"
}
