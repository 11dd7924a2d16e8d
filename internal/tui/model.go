// Package tui provides a bubbletea front end for settling extraction conflicts.
package tui

import (
	"github.com/Veraticus/scanfill/internal/cli"
	"github.com/Veraticus/scanfill/internal/model"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

const widthStep = 25

// option is one selectable line: a candidate or the previously entered amount.
type option struct {
	label  string
	amount float64
	index  int
	manual bool
}

// Model resolves a single conflict.
type Model struct {
	theme    Theme
	input    textinput.Model
	help     help.Model
	err      error
	conflict model.Conflict
	keymap   KeyMap
	options  []option
	result   model.Resolution
	position int
	total    int
	cursor   int
	width    int
	typing   bool
	decided  bool
	aborted  bool
}

// NewModel prepares the resolver view for one conflict.
func NewModel(conflict model.Conflict, position, total, snippetWidth int) Model {
	ti := textinput.New()
	ti.Placeholder = "12,50"
	ti.Prompt = "Amount: "
	ti.CharLimit = 32

	m := Model{
		theme:    DefaultTheme,
		input:    ti,
		help:     help.New(),
		conflict: conflict,
		keymap:   DefaultKeyMap(),
		position: position,
		total:    total,
		width:    snippetWidth,
	}
	if conflict.Suggested != nil {
		m.options = append(m.options, option{label: "Previously entered", amount: *conflict.Suggested, manual: true, index: -1})
	}
	for i, c := range conflict.Candidates {
		m.options = append(m.options, option{amount: c.Amount, index: i})
	}
	if len(m.options) == 0 {
		m.typing = true
		m.input.Focus()
	}
	return m
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	if m.typing {
		return textinput.Blink
	}
	return nil
}

// Result returns the decision and whether one was made.
func (m Model) Result() (model.Resolution, bool) {
	return m.result, m.decided
}

// Aborted reports whether the operator stopped reviewing.
func (m Model) Aborted() bool {
	return m.aborted
}

// SnippetWidth is the context width the operator settled on.
func (m Model) SnippetWidth() int {
	return m.width
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.aborted = true
			return m, tea.Quit
		}
		if m.typing {
			return m.updateTyping(msg)
		}
		return m.updateList(msg)
	}

	if m.typing {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Quit):
		m.aborted = true
		return m, tea.Quit
	case key.Matches(msg, m.keymap.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keymap.Down):
		if m.cursor < len(m.options)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keymap.Select):
		if len(m.options) == 0 {
			return m, nil
		}
		opt := m.options[m.cursor]
		return m.decide(model.Resolution{Amount: opt.amount, Manual: opt.manual})
	case key.Matches(msg, m.keymap.Type):
		m.typing = true
		m.err = nil
		cmd := m.input.Focus()
		return m, cmd
	case key.Matches(msg, m.keymap.Widen):
		m.width = min(m.width+widthStep, cli.MaxSnippetWidth)
	case key.Matches(msg, m.keymap.Narrow):
		m.width = max(m.width-widthStep, cli.MinSnippetWidth)
	case key.Matches(msg, m.keymap.Skip):
		return m.decide(model.Resolution{Skipped: true})
	case key.Matches(msg, m.keymap.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

func (m Model) updateTyping(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		amount, err := cli.ParseTypedAmount(m.input.Value())
		if err != nil {
			m.err = err
			return m, nil
		}
		return m.decide(model.Resolution{Amount: amount, Manual: true})
	case tea.KeyEsc:
		if len(m.options) > 0 {
			m.typing = false
			m.input.Blur()
			m.err = nil
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) decide(r model.Resolution) (tea.Model, tea.Cmd) {
	m.result = r
	m.decided = true
	return m, tea.Quit
}
