package tui

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Veraticus/scanfill/internal/cli"
	"github.com/Veraticus/scanfill/internal/model"
)

// View renders the conflict, its options and the help line.
func (m Model) View() string {
	if m.decided || m.aborted {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.theme.Title.Render(fmt.Sprintf("Conflict %d/%d  %s", m.position, m.total, m.conflict.FileName)))
	b.WriteString("\n")
	b.WriteString(m.theme.Subtitle.Render(fmt.Sprintf("%s / %s  %s", m.conflict.Month, m.conflict.Category, filepath.Dir(m.conflict.FilePath))))
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n\n")

	for i, opt := range m.options {
		b.WriteString(m.renderOption(i, opt))
		b.WriteString("\n")
	}

	if m.typing {
		b.WriteString("\n" + m.input.View() + "\n")
	}
	if m.err != nil {
		b.WriteString(m.theme.StatusError.Render(m.err.Error()) + "\n")
	}

	b.WriteString("\n" + m.theme.Muted.Render(fmt.Sprintf("context: %d chars", m.width)) + "\n")
	b.WriteString(m.help.View(m.keymap))

	return m.theme.RoundedBox.Render(b.String())
}

func (m Model) statusLine() string {
	style := m.theme.StatusWarning
	if m.conflict.Status == model.StatusFailed {
		style = m.theme.StatusError
	}
	line := style.Render(string(m.conflict.Status))
	if m.conflict.Message != "" {
		line += " " + m.theme.Muted.Render(m.conflict.Message)
	}
	return line
}

func (m Model) renderOption(i int, opt option) string {
	amount := strconv.FormatFloat(opt.amount, 'f', 2, 64)

	var line string
	if opt.index < 0 {
		line = fmt.Sprintf("%s: %s", opt.label, amount)
	} else {
		line = amount
		if snippet := cli.CandidateSnippet(m.conflict.Candidates[opt.index], m.width); snippet != "" {
			line += "  " + m.theme.Muted.Render(snippet)
		}
	}

	if i == m.cursor && !m.typing {
		return m.theme.Selected.Render("> " + line)
	}
	return "  " + line
}
