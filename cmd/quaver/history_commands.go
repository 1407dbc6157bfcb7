package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"quaver/internal/deletion"
	"quaver/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect past deletion runs",
	}

	historyCmd.AddCommand(newHistoryListCommand(ctx))
	historyCmd.AddCommand(newHistoryShowCommand(ctx))

	return historyCmd
}

func withHistoryStore(ctx *commandContext, fn func(*history.Store) error) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	store, err := history.Open(cfg.Paths.HistoryDB)
	if err != nil {
		return fmt.Errorf("open history ledger: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistoryStore(ctx, func(store *history.Store) error {
				runs, err := store.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if len(runs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded yet")
					return nil
				}

				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					mode := "real"
					if run.DryRun {
						mode = "dry run"
					}
					rows = append(rows, []string{
						shortID(run.ID),
						humanize.Time(run.ExecutedAt),
						mode,
						fmt.Sprintf("%d/%d", run.SuccessfulGroups, run.TotalGroups),
						strconv.Itoa(run.FilesDeleted),
						deletion.FormatBytes(run.BytesFreed),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"RUN", "EXECUTED", "MODE", "GROUPS", "DELETED", "FREED"},
					rows,
					[]text.Align{text.AlignLeft, text.AlignLeft, text.AlignLeft, text.AlignRight, text.AlignRight, text.AlignRight},
				))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show (0 for all)")
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run with its per-group outcomes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistoryStore(ctx, func(store *history.Store) error {
				run, err := store.GetRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Run %s\n", run.ID)
				fmt.Fprintf(out, "Executed: %s (%s)\n", run.ExecutedAt.Local().Format("2006-01-02 15:04:05"), humanize.Time(run.ExecutedAt))
				if run.DryRun {
					fmt.Fprintln(out, "Mode: dry run")
				}
				if run.BackupCreated {
					fmt.Fprintf(out, "Backups: %s\n", run.BackupDir)
				}
				fmt.Fprintf(out, "Groups: %d total, %d succeeded, %d failed\n",
					run.TotalGroups, run.SuccessfulGroups, run.FailedGroups)
				fmt.Fprintf(out, "Files: %d deleted", run.FilesDeleted)
				if run.FilesFailed > 0 {
					fmt.Fprintf(out, ", %d failed", run.FilesFailed)
				}
				fmt.Fprintf(out, "\nSpace freed: %s\n", deletion.FormatBytes(run.BytesFreed))

				if len(run.Groups) == 0 {
					return nil
				}
				titler := cases.Title(language.English)
				rows := make([][]string, 0, len(run.Groups))
				for _, group := range run.Groups {
					rows = append(rows, []string{
						shortID(group.GroupID),
						group.KeepFile,
						strconv.Itoa(group.DeleteCount),
						titler.String(group.Outcome),
						group.Reason,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"GROUP", "KEEP", "DELETE", "OUTCOME", "REASON"},
					rows,
					[]text.Align{text.AlignLeft, text.AlignLeft, text.AlignRight, text.AlignLeft, text.AlignLeft},
				))
				return nil
			})
		},
	}
	return cmd
}
