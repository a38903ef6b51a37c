package command

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in       string
		wantName string
		wantArgs int
	}{
		{"refresh", "refresh", 0},
		{":Refresh", "refresh", 0},
		{"  project   pay ", "project", 1},
		{"move in progress", "move", 2},
		{"", "", 0},
		{":", "", 0},
	}

	for _, tc := range cases {
		got := Parse(tc.in)
		if got.Name != tc.wantName || len(got.Args) != tc.wantArgs {
			t.Errorf("Parse(%q) = %+v", tc.in, got)
		}
	}
}

func TestEnterEmitsCommand(t *testing.T) {
	m := New(80, 24)
	for _, r := range "project PAY" {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected a command")
	}
	msg, ok := cmd().(CommandMsg)
	if !ok {
		t.Fatalf("expected CommandMsg")
	}
	if msg.Name != "project" || len(msg.Args) != 1 || msg.Args[0] != "PAY" {
		t.Errorf("unexpected command %+v", msg)
	}
	if m.input.Value() != "" {
		t.Error("expected input to be reset")
	}
}

func TestEnterOnEmptyInputDoesNothing(t *testing.T) {
	m := New(80, 24)
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter}); cmd != nil {
		t.Error("expected no command")
	}
}
