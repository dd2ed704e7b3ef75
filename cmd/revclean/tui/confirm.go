// Package tui provides the interactive confirmation shown before revclean
// deletes a batch.
package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jamesainslie/revclean/pkg/revclean/deleter"
	"github.com/jamesainslie/revclean/pkg/revclean/types"
)

// chromeHeight is the number of lines around the path list
// (title, note, borders, help).
const chromeHeight = 6

type keyMap struct {
	Confirm key.Binding
	Cancel  key.Binding
	Scroll  key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Confirm: key.NewBinding(key.WithKeys("y", "Y"), key.WithHelp("y", "delete")),
		Cancel:  key.NewBinding(key.WithKeys("n", "N", "q", "esc", "ctrl+c"), key.WithHelp("n/esc", "cancel")),
		Scroll:  key.NewBinding(key.WithKeys("up", "down", "k", "j"), key.WithHelp("↑/↓", "scroll")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Confirm, k.Cancel, k.Scroll}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

// ConfirmModel asks whether a deletion batch may proceed.
type ConfirmModel struct {
	paths     []string
	opts      types.DeleteOptions
	keys      keyMap
	help      help.Model
	viewport  viewport.Model
	confirmed bool
	done      bool
}

// NewConfirmModel creates a prompt listing paths.
func NewConfirmModel(paths []string, opts types.DeleteOptions) ConfirmModel {
	vp := viewport.New(76, listHeight(len(paths), 24))
	vp.SetContent(strings.Join(paths, "\n"))

	return ConfirmModel{
		paths:    paths,
		opts:     opts,
		keys:     defaultKeyMap(),
		help:     help.New(),
		viewport: vp,
	}
}

// listHeight fits n lines into a terminal of the given height.
func listHeight(n, termHeight int) int {
	h := termHeight - chromeHeight
	if n < h {
		h = n
	}
	if h < 1 {
		h = 1
	}
	return h
}

// Init implements tea.Model.
func (m ConfirmModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m ConfirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width - 4
		m.viewport.Height = listHeight(len(m.paths), msg.Height)
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Confirm):
			m.confirmed, m.done = true, true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Cancel):
			m.done = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m ConfirmModel) View() string {
	if m.done {
		return ""
	}

	title := titleStyle.Render(fmt.Sprintf("Delete %d stale file(s)?", len(m.paths)))

	note := mutedTextStyle.Render("Files are removed permanently.")
	if m.opts.Trash {
		note = mutedTextStyle.Render("Files are moved to the system trash.")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		note,
		listBoxStyle.Render(m.viewport.View()),
		m.help.View(m.keys),
	) + "\n"
}

// Confirmed reports whether the user accepted the batch.
func (m ConfirmModel) Confirmed() bool {
	return m.confirmed
}

// Confirm returns a deleter.ConfirmFunc that runs the prompt on in and out.
func Confirm(in io.Reader, out io.Writer) deleter.ConfirmFunc {
	return func(paths []string, opts types.DeleteOptions) (bool, error) {
		p := tea.NewProgram(NewConfirmModel(paths, opts), tea.WithInput(in), tea.WithOutput(out))
		final, err := p.Run()
		if err != nil {
			return false, err
		}
		m, ok := final.(ConfirmModel)
		return ok && m.Confirmed(), nil
	}
}
