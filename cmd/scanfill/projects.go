package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/Veraticus/scanfill/internal/cli"
	"github.com/Veraticus/scanfill/internal/config"
	"github.com/Veraticus/scanfill/internal/model"
	"github.com/Veraticus/scanfill/internal/sheets"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func projectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Manage projects",
		Long:  `A project ties a folder of invoices to a spreadsheet layout.`,
	}

	cmd.AddCommand(projectsListCmd())
	cmd.AddCommand(projectsShowCmd())
	cmd.AddCommand(projectsAddCmd())
	cmd.AddCommand(projectsDeleteCmd())

	return cmd
}

func projectsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			projects, err := store.ListProjects(cmd.Context())
			if err != nil {
				return err
			}
			if len(projects) == 0 {
				fmt.Fprintln(os.Stdout, cli.FormatInfo("No projects yet. Create one with: scanfill projects add"))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tROOT\tSHEET")
			for _, p := range projects {
				target := "-"
				switch p.Sheet.Kind {
				case model.SheetKindXLSX:
					target = p.Sheet.Path + " [" + p.Sheet.SheetName + "]"
				case model.SheetKindGoogle:
					target = p.Sheet.SpreadsheetID + " [" + p.Sheet.SheetName + "]"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.ID, p.Name, p.RootPath, target)
			}
			return w.Flush()
		},
	}
}

func projectsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a project as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			project, err := loadProject(cmd.Context(), store, args[0])
			if err != nil {
				return err
			}

			enc := yaml.NewEncoder(os.Stdout)
			enc.SetIndent(2)
			if err := enc.Encode(project); err != nil {
				return fmt.Errorf("failed to encode project: %w", err)
			}
			return enc.Close()
		},
	}
}

func projectsAddCmd() *cobra.Command {
	var (
		file           string
		name           string
		root           string
		sheetPath      string
		spreadsheetID  string
		sheetName      string
		monthStart     string
		categoryColumn string
		pattern        string
		aliases        map[string]string
		rows           map[string]int
	)

	cmd := &cobra.Command{
		Use:   "add <id>",
		Short: "Create or update a project",
		Long: `Create or update a project. Settings can come from a YAML file (--file),
from flags, or both; flags win over the file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			project := &model.Project{}
			if existing, err := store.GetProject(ctx, args[0]); err == nil {
				project = existing
			}
			if file != "" {
				data, err := os.ReadFile(config.ExpandPath(file)) // #nosec G304
				if err != nil {
					return fmt.Errorf("failed to read project file: %w", err)
				}
				if err := yaml.Unmarshal(data, project); err != nil {
					return fmt.Errorf("failed to parse project file: %w", err)
				}
			}
			project.ID = args[0]

			flags := cmd.Flags()
			if flags.Changed("name") {
				project.Name = name
			}
			if flags.Changed("root") {
				abs, err := config.AbsPath(root)
				if err != nil {
					return err
				}
				project.RootPath = abs
			}
			if flags.Changed("pattern") {
				project.CustomPattern = pattern
			}
			if flags.Changed("alias") {
				project.CategoryAliases = aliases
			}
			if flags.Changed("xlsx") {
				kind, err := sheets.KindForPath(sheetPath)
				if err != nil {
					return err
				}
				abs, err := config.AbsPath(sheetPath)
				if err != nil {
					return err
				}
				project.Sheet.Kind = kind
				project.Sheet.Path = abs
			}
			if flags.Changed("spreadsheet-id") {
				project.Sheet.Kind = model.SheetKindGoogle
				project.Sheet.SpreadsheetID = spreadsheetID
			}
			if flags.Changed("sheet") {
				project.Sheet.SheetName = sheetName
			}
			if flags.Changed("month-start") {
				project.Sheet.MonthStartCell = monthStart
			}
			if flags.Changed("category-column") {
				project.Sheet.CategoryColumn = categoryColumn
			}
			if flags.Changed("row") {
				if project.Sheet.CategoryRows == nil {
					project.Sheet.CategoryRows = make(map[string]int, len(rows))
				}
				for category, row := range rows {
					project.Sheet.CategoryRows[category] = row
				}
			}

			if err := store.UpsertProject(ctx, project); err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, cli.FormatSuccess("Saved project "+project.ID))
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "YAML project descriptor")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&root, "root", "", "folder containing the month folders")
	cmd.Flags().StringVar(&sheetPath, "xlsx", "", "local workbook to fill")
	cmd.Flags().StringVar(&spreadsheetID, "spreadsheet-id", "", "Google spreadsheet to fill")
	cmd.Flags().StringVar(&sheetName, "sheet", "", "worksheet tab name")
	cmd.Flags().StringVar(&monthStart, "month-start", "", "cell holding the first month header (e.g. B1)")
	cmd.Flags().StringVar(&categoryColumn, "category-column", "", "column holding category labels (e.g. A)")
	cmd.Flags().StringVar(&pattern, "pattern", "", "custom amount regular expression")
	cmd.Flags().StringToStringVar(&aliases, "alias", nil, "map a folder name to a category (folder=Category)")
	cmd.Flags().StringToIntVar(&rows, "row", nil, "sheet row of a category (Category=row)")
	cmd.MarkFlagsMutuallyExclusive("xlsx", "spreadsheet-id")

	return cmd
}

func projectsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a project and its cached extractions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.DeleteProject(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, cli.FormatSuccess("Deleted project "+args[0]))
			return nil
		},
	}
}
