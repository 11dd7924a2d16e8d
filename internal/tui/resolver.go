package tui

import (
	"context"
	"fmt"
	"io"

	"github.com/Veraticus/scanfill/internal/cli"
	"github.com/Veraticus/scanfill/internal/model"
	tea "github.com/charmbracelet/bubbletea"
)

// Resolver runs one bubbletea program per conflict.
type Resolver struct {
	input  io.Reader
	output io.Writer
	width  int
}

// NewResolver creates a TUI resolver. Nil streams use the terminal.
func NewResolver(input io.Reader, output io.Writer) *Resolver {
	return &Resolver{input: input, output: output, width: model.DefaultSnippetWidth}
}

// Resolve shows the conflict until the operator decides, skips or quits.
// Quitting returns cli.ErrResolutionAborted.
func (r *Resolver) Resolve(ctx context.Context, conflict model.Conflict, position, total int) (model.Resolution, error) {
	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if r.input != nil {
		opts = append(opts, tea.WithInput(r.input))
	}
	if r.output != nil {
		opts = append(opts, tea.WithOutput(r.output))
	}

	final, err := tea.NewProgram(NewModel(conflict, position, total, r.width), opts...).Run()
	if err != nil {
		if ctx.Err() != nil {
			return model.Resolution{}, ctx.Err()
		}
		return model.Resolution{}, fmt.Errorf("failed to run resolver: %w", err)
	}

	m, ok := final.(Model)
	if !ok {
		return model.Resolution{}, fmt.Errorf("unexpected model type %T", final)
	}
	r.width = m.SnippetWidth()

	if res, decided := m.Result(); decided {
		return res, nil
	}
	return model.Resolution{}, cli.ErrResolutionAborted
}
