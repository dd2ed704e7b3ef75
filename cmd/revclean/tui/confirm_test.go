package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jamesainslie/revclean/pkg/revclean/types"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestConfirmModel_Accept(t *testing.T) {
	m := NewConfirmModel([]string{"/dist/a-1.js", "/dist/b-2.js"}, types.DeleteOptions{})

	updated, cmd := m.Update(runes("y"))
	got := updated.(ConfirmModel)

	if !got.Confirmed() {
		t.Error("expected batch to be confirmed")
	}
	if cmd == nil {
		t.Error("expected quit command")
	}
	if got.View() != "" {
		t.Error("expected empty view after answering")
	}
}

func TestConfirmModel_Cancel(t *testing.T) {
	tests := []struct {
		name string
		msg  tea.KeyMsg
	}{
		{"n", runes("n")},
		{"q", runes("q")},
		{"esc", tea.KeyMsg{Type: tea.KeyEsc}},
		{"ctrl+c", tea.KeyMsg{Type: tea.KeyCtrlC}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewConfirmModel([]string{"/dist/a-1.js"}, types.DeleteOptions{})
			updated, cmd := m.Update(tt.msg)
			if updated.(ConfirmModel).Confirmed() {
				t.Error("expected batch to be declined")
			}
			if cmd == nil {
				t.Error("expected quit command")
			}
		})
	}
}

func TestConfirmModel_OtherKeysKeepPrompt(t *testing.T) {
	m := NewConfirmModel([]string{"/dist/a-1.js"}, types.DeleteOptions{})

	updated, _ := m.Update(runes("x"))
	got := updated.(ConfirmModel)
	if got.Confirmed() || got.done {
		t.Error("unrelated key must not answer the prompt")
	}
}

func TestConfirmModel_View(t *testing.T) {
	paths := []string{"/dist/a-1.js", "/dist/b-2.js"}

	view := NewConfirmModel(paths, types.DeleteOptions{}).View()
	if !strings.Contains(view, "Delete 2 stale file(s)?") {
		t.Errorf("view missing title:\n%s", view)
	}
	for _, p := range paths {
		if !strings.Contains(view, p) {
			t.Errorf("view missing %s:\n%s", p, view)
		}
	}
	if !strings.Contains(view, "permanently") {
		t.Errorf("view missing permanent-delete note:\n%s", view)
	}

	view = NewConfirmModel(paths, types.DeleteOptions{Trash: true}).View()
	if !strings.Contains(view, "system trash") {
		t.Errorf("view missing trash note:\n%s", view)
	}
}

func TestConfirmModel_WindowSize(t *testing.T) {
	paths := make([]string, 50)
	for i := range paths {
		paths[i] = "/dist/stale.js"
	}
	m := NewConfirmModel(paths, types.DeleteOptions{})

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 20})
	got := updated.(ConfirmModel)
	if got.viewport.Height != 20-chromeHeight {
		t.Errorf("viewport height = %d, want %d", got.viewport.Height, 20-chromeHeight)
	}
	if got.viewport.Width != 96 {
		t.Errorf("viewport width = %d, want 96", got.viewport.Width)
	}
}

func TestListHeight(t *testing.T) {
	tests := []struct {
		n, term, want int
	}{
		{3, 24, 3},
		{100, 24, 24 - chromeHeight},
		{0, 24, 1},
		{10, 2, 1},
	}
	for _, tt := range tests {
		if got := listHeight(tt.n, tt.term); got != tt.want {
			t.Errorf("listHeight(%d, %d) = %d, want %d", tt.n, tt.term, got, tt.want)
		}
	}
}
