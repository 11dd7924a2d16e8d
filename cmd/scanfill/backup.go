package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Veraticus/scanfill/internal/cli"
	"github.com/Veraticus/scanfill/internal/storage"
	"github.com/spf13/cobra"
)

func backupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Manage backups of the cache database",
		Long: `Create, list, restore, and delete snapshots of the cache database.

An automatic backup is taken before every "cache clear".`,
		Example: `  # Snapshot before re-keying a year of invoices
  scanfill cache backup create --tag before-2026

  # Put the snapshot back
  scanfill cache backup restore before-2026`,
	}

	cmd.AddCommand(backupCreateCmd())
	cmd.AddCommand(backupListCmd())
	cmd.AddCommand(backupRestoreCmd())
	cmd.AddCommand(backupDeleteCmd())

	return cmd
}

func withBackupManager(ctx context.Context, fn func(*storage.BackupManager) error) error {
	store, err := openSQLite(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	manager, err := storage.NewBackupManager(store)
	if err != nil {
		return fmt.Errorf("failed to create backup manager: %w", err)
	}
	return fn(manager)
}

func backupCreateCmd() *cobra.Command {
	var tag, description string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Snapshot the cache database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBackupManager(cmd.Context(), func(manager *storage.BackupManager) error {
				info, err := manager.Create(cmd.Context(), tag, description)
				if err != nil {
					return fmt.Errorf("failed to create backup: %w", err)
				}
				fmt.Fprintf(os.Stdout, "%s Created backup %s (%s)\n",
					cli.SuccessStyle.Render(cli.SuccessIcon),
					cli.InfoStyle.Render(info.ID),
					formatFileSize(info.FileSize))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&tag, "tag", "t", "", "backup name (generated when empty)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "free-form note")

	return cmd
}

func backupListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List backups",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBackupManager(cmd.Context(), func(manager *storage.BackupManager) error {
				backups, err := manager.List(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to list backups: %w", err)
				}
				if len(backups) == 0 {
					fmt.Fprintln(os.Stdout, cli.SubtleStyle.Render("No backups found."))
					return nil
				}

				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "NAME\tCREATED\tSIZE\tOCR\tMANUAL\tEXTRACTIONS\tTYPE")
				for _, b := range backups {
					kind := "manual"
					if b.IsAuto {
						kind = "auto"
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
						b.ID, formatRelativeTime(b.CreatedAt), formatFileSize(b.FileSize),
						b.OCRTexts, b.ManualEntries, b.Extractions, kind)
				}
				return w.Flush()
			})
		},
	}
}

func backupRestoreCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "restore <backup-id>",
		Short: "Replace the cache database with a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if !force && !confirm(ctx, fmt.Sprintf("This replaces every cache with backup %s.", args[0])) {
				fmt.Fprintln(os.Stdout, cli.SubtleStyle.Render("Restore cancelled."))
				return nil
			}

			return withBackupManager(ctx, func(manager *storage.BackupManager) error {
				if err := manager.Restore(ctx, args[0]); err != nil {
					return fmt.Errorf("failed to restore backup: %w", err)
				}
				fmt.Fprintln(os.Stdout, cli.FormatSuccess("Restored backup "+args[0]))
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation")

	return cmd
}

func backupDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <backup-id>",
		Short: "Delete a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackupManager(cmd.Context(), func(manager *storage.BackupManager) error {
				if err := manager.Delete(cmd.Context(), args[0]); err != nil {
					return fmt.Errorf("failed to delete backup: %w", err)
				}
				fmt.Fprintln(os.Stdout, cli.FormatSuccess("Deleted backup "+args[0]))
				return nil
			})
		},
	}
}

func confirm(ctx context.Context, message string) bool {
	fmt.Fprintln(os.Stdout, cli.FormatWarning(message))
	fmt.Fprint(os.Stdout, "Continue? (y/N) ")

	line, err := cli.NewNonBlockingReader(os.Stdin).ReadLine(ctx)
	if err != nil {
		return false
	}
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), "y")
}

func formatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

func formatRelativeTime(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Format("2006-01-02 15:04")
	}
}
