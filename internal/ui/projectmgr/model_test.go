package projectmgr_test

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/bugtracker/internal/keys"
	"github.com/nhle/bugtracker/internal/model"
	"github.com/nhle/bugtracker/internal/testutil"
	"github.com/nhle/bugtracker/internal/ui/projectmgr"
)

// run feeds msg to m and then drains the resulting commands, feeding each
// produced message back in, until no command is left. Messages that only
// the parent handles are collected and returned.
func run(m projectmgr.Model, msg tea.Msg) (projectmgr.Model, []tea.Msg) {
	var out []tea.Msg
	queue := []tea.Msg{msg}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		switch next.(type) {
		case projectmgr.ProjectSelectedMsg, projectmgr.ProjectsChangedMsg, projectmgr.ProjectListCloseMsg:
			out = append(out, next)
			continue
		}
		var cmd tea.Cmd
		m, cmd = m.Update(next)
		if cmd != nil {
			if produced := cmd(); produced != nil {
				queue = append(queue, produced)
			}
		}
	}
	return m, out
}

func TestEmptyState(t *testing.T) {
	s := testutil.NewTestStore(t)
	m := projectmgr.New(s, keys.DefaultKeyMap(), 80, 24)

	m, out := run(m, m.Init()())
	if !strings.Contains(m.View(), "No projects yet") {
		t.Error("expected empty state")
	}
	if len(out) != 1 {
		t.Fatalf("expected ProjectsChangedMsg, got %v", out)
	}
}

func TestSelectProject(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	_, _ = s.CreateProject(ctx, model.Project{Name: "Alpha", Key: "alp"})
	_, _ = s.CreateProject(ctx, model.Project{Name: "Beta", Key: "bet"})

	m := projectmgr.New(s, keys.DefaultKeyMap(), 80, 24)
	m, _ = run(m, m.Init()())

	if !strings.Contains(m.View(), "Alpha (ALP)") {
		t.Error("expected project label in view")
	}

	m, _ = run(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	_, out := run(m, tea.KeyMsg{Type: tea.KeyEnter})
	if len(out) != 1 {
		t.Fatalf("expected one message, got %v", out)
	}
	sel, ok := out[0].(projectmgr.ProjectSelectedMsg)
	if !ok || sel.Project.Key != "BET" {
		t.Errorf("unexpected selection %+v", out[0])
	}
}

func TestEscCloses(t *testing.T) {
	m := projectmgr.New(testutil.NewTestStore(t), keys.DefaultKeyMap(), 80, 24)

	_, out := run(m, tea.KeyMsg{Type: tea.KeyEsc})
	if len(out) != 1 {
		t.Fatalf("expected close message, got %v", out)
	}
	if _, ok := out[0].(projectmgr.ProjectListCloseMsg); !ok {
		t.Errorf("unexpected message %T", out[0])
	}
}
