package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/Veraticus/scanfill/internal/model"
	"github.com/charmbracelet/lipgloss"
)

// RenderSummary writes per-month category totals followed by run statistics.
func RenderSummary(w io.Writer, summary *model.RunSummary) error {
	var b strings.Builder

	for _, name := range summary.MonthNames() {
		m := summary.Months[name]
		categories := make([]string, 0, len(m.Categories))
		width := len("Category")
		for c := range m.Categories {
			categories = append(categories, c)
			width = max(width, lipgloss.Width(c))
		}
		sort.Strings(categories)

		label := m.OriginalName
		if label == "" {
			label = name
		}
		b.WriteString(TitleStyle.UnsetMargins().Render(label) + "\n")
		b.WriteString(TableHeaderStyle.Render(pad("Category", width)+"  "+"Total") + "\n")
		for _, c := range categories {
			b.WriteString(TableCellStyle.Render(pad(c, width)) + m.Categories[c].StringFixed(2) + "\n")
		}
		b.WriteString("\n")
	}

	s := summary.Stats
	stats := fmt.Sprintf("%s Files: %d  extracted: %d  cached: %d  ambiguous: %d  failed: %d",
		SheetIcon, s.Total, s.Done, s.Skipped, s.Ambiguous, s.Failed)
	if n := summary.UnresolvedCount(); n > 0 {
		stats += "\n" + FormatWarning(fmt.Sprintf("%d conflict(s) left unresolved", n))
	}
	b.WriteString(stats + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func pad(s string, width int) string {
	if n := width - lipgloss.Width(s); n > 0 {
		return s + strings.Repeat(" ", n)
	}
	return s
}
