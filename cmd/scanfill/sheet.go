package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/scanfill/internal/cli"
	"github.com/Veraticus/scanfill/internal/config"
	"github.com/Veraticus/scanfill/internal/model"
	"github.com/Veraticus/scanfill/internal/sheets"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func sheetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sheet",
		Short: "Inspect spreadsheets and set up Google access",
	}

	cmd.AddCommand(sheetInspectCmd())
	cmd.AddCommand(sheetAuthCmd())

	return cmd
}

func sheetInspectCmd() *cobra.Command {
	var (
		sheetName      string
		categoryColumn string
		monthStart     string
		google         bool
	)

	cmd := &cobra.Command{
		Use:   "inspect <file.xlsx | spreadsheet-id>",
		Short: "List tabs, category labels and month headers of a spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := model.SheetConfig{
				SheetName:      sheetName,
				CategoryColumn: categoryColumn,
				MonthStartCell: monthStart,
			}
			if google {
				target.Kind = model.SheetKindGoogle
				target.SpreadsheetID = args[0]
			} else {
				target.Path = config.ExpandPath(args[0])
				kind, err := sheets.KindForPath(target.Path)
				if err != nil {
					return err
				}
				target.Kind = kind
			}

			router := sheets.NewRouter(config.LoadGoogleConfig(), slog.Default())
			meta, err := router.Metadata(cmd.Context(), target)
			if err != nil {
				return err
			}

			var b strings.Builder
			fmt.Fprintf(&b, "Tabs: %s\n", strings.Join(meta.Tabs, ", "))
			fmt.Fprintf(&b, "Reading: %s\n\n", cli.BoldStyle.Render(meta.Sheet))
			b.WriteString(cli.TableHeaderStyle.Render("Categories") + "\n")
			for _, c := range meta.Categories {
				fmt.Fprintf(&b, "  %-6s %s\n", c.Address, c.Label)
			}
			b.WriteString("\n" + cli.TableHeaderStyle.Render("Months") + "\n")
			for _, m := range meta.Months {
				fmt.Fprintf(&b, "  %-6s %-12s %s\n", m.Address, m.Month, cli.SubtleStyle.Render(m.Label))
			}
			if len(meta.Categories) > 0 {
				b.WriteString("\n" + cli.SubtleStyle.Render("Rows for projects add: "+rowFlags(meta)))
			}

			_, err = fmt.Fprintln(os.Stdout, cli.RenderBox(cli.SheetIcon+" "+args[0], strings.TrimRight(b.String(), "\n")))
			return err
		},
	}

	cmd.Flags().StringVar(&sheetName, "sheet", "", "worksheet tab (default: first tab)")
	cmd.Flags().StringVar(&categoryColumn, "category-column", "A", "column holding category labels")
	cmd.Flags().StringVar(&monthStart, "month-start", "B1", "cell holding the first month header")
	cmd.Flags().BoolVar(&google, "google", false, "treat the argument as a Google spreadsheet id")

	return cmd
}

func rowFlags(meta *sheets.Metadata) string {
	parts := make([]string, 0, len(meta.Categories))
	for _, c := range meta.Categories {
		parts = append(parts, "--row "+strconv.Quote(c.Label+"="+strconv.Itoa(c.Row)))
	}
	return strings.Join(parts, " ")
}

func sheetAuthCmd() *cobra.Command {
	var (
		callback string
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize scanfill to edit your Google spreadsheets",
		Long: `Run the OAuth2 consent flow in a browser and store the resulting token.
GOOGLE_SHEETS_CLIENT_ID and GOOGLE_SHEETS_CLIENT_SECRET (or the matching
sheets.google.* settings) must be set.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			gc := config.LoadGoogleConfig()

			tokenFile := gc.TokenFile
			if tokenFile == "" {
				dir, err := config.DataDir(viper.GetViper())
				if err != nil {
					return err
				}
				tokenFile = filepath.Join(dir, config.TokenFileName)
			}

			token, err := sheets.AuthenticateOAuth2Interactive(cmd.Context(), sheets.OAuth2Config{
				ClientID:     gc.ClientID,
				ClientSecret: gc.ClientSecret,
				TokenFile:    tokenFile,
				CallbackAddr: callback,
				Timeout:      timeout,
			}, func(url string) {
				fmt.Fprintln(os.Stdout, cli.FormatInfo("Open this URL to authorize scanfill:"))
				fmt.Fprintln(os.Stdout, url)
			})
			if err != nil {
				return err
			}

			fmt.Fprintln(os.Stdout, cli.FormatSuccess("Authorized. Token saved to "+tokenFile))
			if token.RefreshToken == "" {
				fmt.Fprintln(os.Stdout, cli.FormatWarning("Google returned no refresh token; revoke scanfill's access and authorize again."))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&callback, "callback", "localhost:8080", "address of the local OAuth2 callback server")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "how long to wait for the browser")

	return cmd
}
