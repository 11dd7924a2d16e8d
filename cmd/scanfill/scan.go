package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Veraticus/scanfill/internal/cli"
	"github.com/Veraticus/scanfill/internal/config"
	"github.com/Veraticus/scanfill/internal/scanner"
	"github.com/spf13/cobra"
)

func scanCmd() *cobra.Command {
	var (
		aliases map[string]string
		month   string
		files   bool
	)

	cmd := &cobra.Command{
		Use:   "scan <root>",
		Short: "Show the month and category folders found under a root",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := config.ExpandPath(args[0])
			result, err := scanner.New(slog.Default()).Scan(cmd.Context(), root, aliases, month)
			if err != nil {
				return err
			}

			out := os.Stdout
			if _, err := fmt.Fprintln(out, cli.FormatTitle(result.Root)); err != nil {
				return err
			}
			for _, name := range result.MonthNames() {
				entry := result.Months[name]
				fmt.Fprintf(out, "%s %s\n", cli.BoldStyle.Render(name), cli.SubtleStyle.Render("("+entry.OriginalName+")"))
				for _, category := range entry.CategoryNames() {
					docs := entry.Categories[category]
					fmt.Fprintf(out, "  %-30s %d\n", category, len(docs))
					if files {
						for _, f := range docs {
							fmt.Fprintf(out, "    %s %s\n", cli.FileIcon, filepath.Base(f))
						}
					}
				}
			}
			_, err = fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("%d documents", result.FileCount())))
			return err
		},
	}

	cmd.Flags().StringToStringVar(&aliases, "alias", nil, "map a folder name to a category (folder=Category)")
	cmd.Flags().StringVar(&month, "month", "", "only show this month")
	cmd.Flags().BoolVar(&files, "files", false, "list every document")

	return cmd
}
