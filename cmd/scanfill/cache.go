package main

import (
	"fmt"
	"os"

	"github.com/Veraticus/scanfill/internal/cli"
	"github.com/Veraticus/scanfill/internal/storage"
	"github.com/spf13/cobra"
)

func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and clear the caches",
	}

	cmd.AddCommand(cacheStatsCmd())
	cmd.AddCommand(cacheClearCmd())
	cmd.AddCommand(backupCmd())

	return cmd
}

func cacheStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache sizes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			stats, err := store.CacheStats(cmd.Context())
			if err != nil {
				return err
			}

			content := fmt.Sprintf("OCR texts:          %d\nManual entries:     %d\nCached extractions: %d\n\n%s",
				stats.OCREntries, stats.ManualEntries, stats.ExtractionEntries, cli.SubtleStyle.Render(stats.Path))
			_, err = fmt.Fprintln(os.Stdout, cli.RenderBox("Cache", content))
			return err
		},
	}
}

func cacheClearCmd() *cobra.Command {
	var (
		clearOCR    bool
		clearManual bool
		projectID   string
		noBackup    bool
	)

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear cached OCR text, manual entries or a project's extractions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !clearOCR && !clearManual && projectID == "" {
				return fmt.Errorf("nothing to clear: pass --ocr, --manual or --project")
			}

			ctx := cmd.Context()
			store, err := openSQLite(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if !noBackup {
				manager, err := storage.NewBackupManager(store)
				if err != nil {
					return err
				}
				info, err := manager.AutoBackup(ctx, "clear")
				if err != nil {
					return err
				}
				fmt.Fprintln(os.Stdout, cli.FormatInfo("Saved backup "+info.ID))
			}

			if clearOCR {
				n, err := store.ClearOCRCache(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(os.Stdout, cli.FormatSuccess(fmt.Sprintf("Removed %d OCR texts", n)))
			}
			if clearManual {
				n, err := store.ClearManualEntries(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(os.Stdout, cli.FormatSuccess(fmt.Sprintf("Removed %d manual entries", n)))
			}
			if projectID != "" {
				n, err := store.ClearProjectCache(ctx, projectID)
				if err != nil {
					return err
				}
				fmt.Fprintln(os.Stdout, cli.FormatSuccess(fmt.Sprintf("Removed %d cached extractions of %s", n, projectID)))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&clearOCR, "ocr", false, "clear recognized text")
	cmd.Flags().BoolVar(&clearManual, "manual", false, "clear manually entered amounts")
	cmd.Flags().StringVar(&projectID, "project", "", "clear cached extractions of a project")
	cmd.Flags().BoolVar(&noBackup, "no-backup", false, "skip the automatic backup")

	return cmd
}
