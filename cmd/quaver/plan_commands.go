package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"quaver/internal/deletion"
	"quaver/internal/duplicate"
	"quaver/internal/history"
)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	planCmd := &cobra.Command{
		Use:   "plan",
		Short: "Stage, validate, and execute deletion plans",
	}

	planCmd.AddCommand(newPlanStageCommand(ctx))
	planCmd.AddCommand(newPlanValidateCommand(ctx))
	planCmd.AddCommand(newPlanExecuteCommand(ctx))

	return planCmd
}

func newPlanStageCommand(ctx *commandContext) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "stage <groups.json>",
		Short: "Build a deletion plan from analyzed duplicate groups",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.ensureLogger()

			payload, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read duplicate groups: %w", err)
			}
			var flatGroups []map[string]string
			if err := json.Unmarshal(payload, &flatGroups); err != nil {
				return fmt.Errorf("decode duplicate groups %s: %w", args[0], err)
			}

			plan := deletion.NewPlan(cfg.Paths.BackupDir, logger)
			var rows [][]string
			skipped := 0
			for _, flat := range flatGroups {
				group, err := duplicate.GroupFromFlat(flat, logger)
				if err != nil {
					return fmt.Errorf("parse duplicate group: %w", err)
				}
				if group.Keep == nil || len(group.Delete) == 0 {
					logger.Warn("skipping group without a keep/delete split",
						"group_id", group.ID)
					skipped++
					continue
				}

				deletePaths := make([]string, 0, len(group.Delete))
				for _, file := range group.Delete {
					deletePaths = append(deletePaths, file.Path)
				}
				reason := group.Reason
				if reason == "" {
					reason = fmt.Sprintf("duplicate of %s", group.Keep.Path)
				}
				plan.AddGroup(group.Keep.Path, deletePaths, reason)

				rows = append(rows, []string{
					group.TrackHash,
					group.Keep.Path,
					strconv.Itoa(len(deletePaths)),
					humanize.IBytes(uint64(group.SpaceSavings)),
					fmt.Sprintf("%.0f%%", group.Confidence*100),
				})
			}

			if len(plan.Groups()) == 0 {
				return fmt.Errorf("no executable groups in %s", args[0])
			}
			if err := plan.SaveManifest(outPath); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"TRACK", "KEEP", "DELETE", "SAVINGS", "CONFIDENCE"},
				rows,
				[]text.Align{text.AlignLeft, text.AlignLeft, text.AlignRight, text.AlignRight, text.AlignRight},
			))
			fmt.Fprintf(cmd.OutOrStdout(), "Staged %d groups to %s", len(plan.Groups()), outPath)
			if skipped > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), " (%d skipped)", skipped)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "plan.json", "Path for the staged plan manifest")
	return cmd
}

func newPlanValidateCommand(ctx *commandContext) *cobra.Command {
	var withBackupSpace bool

	cmd := &cobra.Command{
		Use:   "validate <plan.json>",
		Short: "Run the safety checklist against a staged plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := loadPlan(ctx, args[0])
			if err != nil {
				return err
			}

			valid, _ := plan.Validate(withBackupSpace)
			printFindings(cmd, plan)
			if !valid {
				return fmt.Errorf("plan is not executable; fix the errors above")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "All groups passed validation")
			return nil
		},
	}

	cmd.Flags().BoolVar(&withBackupSpace, "backup", false, "Also verify free space on the backup volume")
	return cmd
}

func newPlanExecuteCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool
	var createBackup bool
	var reportPath string

	cmd := &cobra.Command{
		Use:   "execute <plan.json>",
		Short: "Execute a staged plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			plan, err := loadPlan(ctx, args[0])
			if err != nil {
				return err
			}

			backup := createBackup
			if cfg.Safety.RequireBackup && !dryRun && !backup {
				fmt.Fprintln(cmd.OutOrStdout(), "Backups are required by configuration; enabling them for this run")
				backup = true
			}

			stats, err := plan.Execute(cmd.Context(), deletion.Options{
				DryRun:       dryRun,
				CreateBackup: backup,
			})
			if err != nil {
				return err
			}

			if reportPath != "" {
				if err := plan.ExportJSON(reportPath); err != nil {
					return err
				}
			}
			if err := recordRun(cmd, cfg.Paths.HistoryDB, stats, plan); err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), stats.Summary())
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Simulate the run without touching any files")
	cmd.Flags().BoolVar(&createBackup, "backup", false, "Copy files into the backup directory before deleting")
	cmd.Flags().StringVar(&reportPath, "json-report", "", "Write an audit report to this path")
	return cmd
}

func loadPlan(ctx *commandContext, manifestPath string) (*deletion.Plan, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	plan := deletion.NewPlan(cfg.Paths.BackupDir, ctx.ensureLogger())
	plan.SetBackupMargin(cfg.Safety.BackupMarginPercent)
	if err := plan.LoadManifest(manifestPath); err != nil {
		return nil, err
	}
	return plan, nil
}

func recordRun(cmd *cobra.Command, dbPath string, stats *deletion.Stats, plan *deletion.Plan) error {
	store, err := history.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open history ledger: %w", err)
	}
	defer store.Close()

	run := history.RunFromExecution(stats, plan.Groups())
	if err := store.RecordRun(cmd.Context(), run); err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

func printFindings(cmd *cobra.Command, plan *deletion.Plan) {
	var rows [][]string
	for _, group := range plan.Groups() {
		for _, finding := range group.Findings {
			if finding.Level == deletion.LevelInfo {
				continue
			}
			detail := finding.Message
			if finding.Detail != "" {
				detail = fmt.Sprintf("%s (%s)", finding.Message, finding.Detail)
			}
			rows = append(rows, []string{
				shortID(group.ID),
				strings.ToUpper(string(finding.Level)),
				finding.Checkpoint,
				detail,
			})
		}
	}
	if len(rows) == 0 {
		return
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"GROUP", "LEVEL", "CHECKPOINT", "DETAIL"},
		rows,
		nil,
	))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
