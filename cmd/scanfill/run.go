package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/Veraticus/scanfill/internal/cli"
	"github.com/Veraticus/scanfill/internal/common"
	"github.com/Veraticus/scanfill/internal/engine"
	"github.com/Veraticus/scanfill/internal/model"
	"github.com/Veraticus/scanfill/internal/tui"
	"github.com/spf13/cobra"
)

// conflictResolver asks the operator to settle one conflict.
type conflictResolver interface {
	Resolve(ctx context.Context, conflict model.Conflict, position, total int) (model.Resolution, error)
}

func runCmd() *cobra.Command {
	var (
		useTUI        bool
		forceRescan   bool
		month         string
		acceptPartial bool
		dryRun        bool
	)

	cmd := &cobra.Command{
		Use:   "run <project>",
		Short: "Extract totals for a project and write them to its spreadsheet",
		Long: `Scan the project's folder tree, extract one amount per PDF, review the
documents that could not be settled automatically, then write the month and
category totals to the configured spreadsheet.

Successful extractions are cached per file; later runs only read files that
changed unless --force-rescan is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, !dryRun)
			if err != nil {
				return err
			}
			defer a.Close()

			project, err := loadProject(ctx, a.store, args[0])
			if err != nil {
				return err
			}
			if forceRescan {
				project.ForceRescan = true
			}
			if month != "" {
				project.MonthFilter = month
			}

			interrupts := cli.NewInterruptHandler(os.Stderr)
			ctx, stop := interrupts.HandleInterrupts(ctx)
			defer stop()

			progress := cli.NewProgressRenderer(os.Stderr)
			summary, err := a.engine.Run(ctx, project, progress.Handle)
			progress.Close()
			if err != nil {
				if engine.IsInterrupted(err) {
					return common.NewUserError("run interrupted; extracted amounts are cached", err)
				}
				return err
			}

			var resolver conflictResolver = cli.NewResolver(os.Stdin, os.Stdout)
			if useTUI {
				resolver = tui.NewResolver(nil, nil)
			}
			if err := resolveConflicts(ctx, a.engine, resolver, summary); err != nil {
				return err
			}

			finalizeErr := a.engine.Finalize(ctx, project, summary, acceptPartial, progress.Handle)
			progress.Close()

			if err := cli.RenderSummary(os.Stdout, summary); err != nil {
				return fmt.Errorf("failed to print summary: %w", err)
			}

			if errors.Is(finalizeErr, common.ErrUnresolvedConflicts) {
				return common.NewUserError("nothing written; resolve every document or pass --accept-partial", finalizeErr)
			}
			return finalizeErr
		},
	}

	cmd.Flags().BoolVar(&useTUI, "tui", false, "review conflicts in a full-screen interface")
	cmd.Flags().BoolVar(&forceRescan, "force-rescan", false, "ignore cached extractions")
	cmd.Flags().StringVar(&month, "month", "", "only process this month")
	cmd.Flags().BoolVar(&acceptPartial, "accept-partial", false, "write totals even when documents remain unresolved")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print totals without writing the spreadsheet")

	return cmd
}

// resolveConflicts walks the unresolved conflicts in order. Quitting the
// review leaves the rest unresolved.
func resolveConflicts(ctx context.Context, eng *engine.Engine, resolver conflictResolver, summary *model.RunSummary) error {
	pending := make([]int, 0, len(summary.Conflicts))
	for _, c := range summary.Conflicts {
		if !c.Resolved() {
			pending = append(pending, c.ID)
		}
	}

	for i, id := range pending {
		c := summary.Conflict(id)
		res, err := resolver.Resolve(ctx, *c, i+1, len(pending))
		if errors.Is(err, cli.ErrResolutionAborted) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", c.FileName, err)
		}
		if res.Skipped {
			continue
		}
		if err := eng.Resolve(ctx, summary, id, res.Amount, res.Manual); err != nil {
			return err
		}
	}
	return nil
}
