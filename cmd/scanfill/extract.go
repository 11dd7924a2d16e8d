package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/Veraticus/scanfill/internal/cli"
	"github.com/Veraticus/scanfill/internal/config"
	"github.com/Veraticus/scanfill/internal/contenthash"
	"github.com/Veraticus/scanfill/internal/model"
	"github.com/spf13/cobra"
)

func extractCmd() *cobra.Command {
	var (
		pattern string
		width   int
	)

	cmd := &cobra.Command{
		Use:   "extract <file.pdf>",
		Short: "Extract the total of a single document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			ex, err := newExtractor(store, contenthash.New(hashMemoTTL), nil)
			if err != nil {
				return err
			}

			path := config.ExpandPath(args[0])
			result := ex.ExtractAmount(ctx, path, pattern)

			out := os.Stdout
			fmt.Fprintln(out, cli.FormatTitle(path))
			switch result.Status {
			case model.StatusSuccess:
				fmt.Fprintln(out, cli.FormatSuccess("Total: "+strconv.FormatFloat(result.Amount, 'f', 2, 64)))
			case model.StatusAmbiguous:
				fmt.Fprintln(out, cli.FormatWarning("Ambiguous"))
			default:
				fmt.Fprintln(out, cli.FormatError(result.Message))
			}
			if result.UsedOCR {
				fmt.Fprintln(out, cli.FormatInfo("Text recognized with OCR"))
			}
			for i, c := range result.Candidates {
				fmt.Fprintf(out, "  [%d] %s (tier %d)  %s\n", i+1,
					strconv.FormatFloat(c.Amount, 'f', 2, 64), c.Tier,
					cli.SubtleStyle.Render(cli.CandidateSnippet(c, width)))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&pattern, "pattern", "", "regular expression whose first group is the amount")
	cmd.Flags().IntVar(&width, "context", model.DefaultSnippetWidth, "characters of context around each candidate")

	return cmd
}
