package kanban

import (
	"context"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/bugtracker/internal/board"
	"github.com/nhle/bugtracker/internal/keys"
	"github.com/nhle/bugtracker/internal/model"
)

// IssueSyncedMsg is sent when the remote half of a drag transition has
// finished. Err is nil on success. The board already shows Status either way.
type IssueSyncedMsg struct {
	IssueID string
	Status  model.Status
	Err     error
}

// EditIssueMsg asks the app to open the edit form for an issue.
type EditIssueMsg struct {
	Issue model.Issue
}

// Model is the Kanban board view: one column per status, a focused card,
// and an optional card being carried between columns.
type Model struct {
	board     *board.Board
	keys      *keys.KeyMap
	users     []model.User
	projectID string

	col  int
	rows [4]int

	carrying string
	overCol  int

	width  int
	height int
}

// New creates a board view over b.
func New(b *board.Board, k *keys.KeyMap, width, height int) Model {
	return Model{
		board:  b,
		keys:   k,
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the board view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.carrying != "" {
			return m.handleCarryKeys(msg)
		}
		return m.handleNormalKeys(msg)
	}
	return m, nil
}

func (m Model) handleNormalKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Left):
		m.focusColumn(m.col - 1)

	case key.Matches(msg, m.keys.Right):
		m.focusColumn(m.col + 1)

	case key.Matches(msg, m.keys.Up):
		if m.rows[m.col] > 0 {
			m.rows[m.col]--
		}

	case key.Matches(msg, m.keys.Down):
		if m.rows[m.col] < len(m.columnIssues(m.col))-1 {
			m.rows[m.col]++
		}

	case key.Matches(msg, m.keys.Grab):
		if issue, ok := m.Focused(); ok {
			m.carrying = issue.ID
			m.overCol = m.col
		}

	case key.Matches(msg, m.keys.MoveLeft):
		return m, m.moveFocused(-1)

	case key.Matches(msg, m.keys.MoveRight):
		return m, m.moveFocused(1)

	case key.Matches(msg, m.keys.Open):
		if issue, ok := m.Focused(); ok {
			return m, func() tea.Msg { return EditIssueMsg{Issue: issue} }
		}
	}
	return m, nil
}

func (m Model) handleCarryKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Left):
		if m.overCol > 0 {
			m.overCol--
		}

	case key.Matches(msg, m.keys.Right):
		if m.overCol < len(model.Statuses)-1 {
			m.overCol++
		}

	case key.Matches(msg, m.keys.Drop):
		id := m.carrying
		target := model.Statuses[m.overCol]
		m.carrying = ""
		cmd := m.dragEnd(board.DragEvent{IssueID: id, Over: string(target)})
		m.followIssue(id)
		return m, cmd

	case key.Matches(msg, m.keys.Back):
		// Released outside any column.
		id := m.carrying
		m.carrying = ""
		return m, m.dragEnd(board.DragEvent{IssueID: id})
	}
	return m, nil
}

// MoveFocusedTo drops the focused card on the column for status.
func (m *Model) MoveFocusedTo(status model.Status) tea.Cmd {
	issue, ok := m.Focused()
	if !ok {
		return nil
	}
	cmd := m.dragEnd(board.DragEvent{IssueID: issue.ID, Over: string(status)})
	m.followIssue(issue.ID)
	return cmd
}

func (m *Model) moveFocused(delta int) tea.Cmd {
	issue, ok := m.Focused()
	if !ok {
		return nil
	}
	sync := m.board.Move(issue.ID, delta)
	if sync == nil {
		return nil
	}
	m.followIssue(issue.ID)
	next, _ := m.board.State().Get(issue.ID)
	return syncCmd(sync, issue.ID, next.Status)
}

// dragEnd applies the drop locally and returns the command that performs
// the remote update, or nil when nothing changed.
func (m *Model) dragEnd(ev board.DragEvent) tea.Cmd {
	sync := m.board.DragEnd(ev)
	if sync == nil {
		return nil
	}
	return syncCmd(sync, ev.IssueID, model.Status(ev.Over))
}

func syncCmd(sync board.Sync, id string, status model.Status) tea.Cmd {
	return func() tea.Msg {
		err := sync(context.Background())
		return IssueSyncedMsg{IssueID: id, Status: status, Err: err}
	}
}

// followIssue moves focus to wherever the issue now sits.
func (m *Model) followIssue(id string) {
	issue, ok := m.board.State().Get(id)
	if !ok {
		return
	}
	m.col = board.ColumnIndex(issue.Status)
	for i, it := range m.columnIssues(m.col) {
		if it.ID == id {
			m.rows[m.col] = i
			return
		}
	}
}

func (m *Model) focusColumn(col int) {
	if col < 0 || col >= len(model.Statuses) {
		return
	}
	m.col = col
	m.clampRow(col)
}

func (m *Model) clampRow(col int) {
	n := len(m.columnIssues(col))
	if m.rows[col] >= n {
		m.rows[col] = n - 1
	}
	if m.rows[col] < 0 {
		m.rows[col] = 0
	}
}

func (m Model) columnIssues(col int) []model.Issue {
	return m.board.State().Column(m.projectID, model.Statuses[col])
}

// Focused returns the card under the cursor.
func (m Model) Focused() (model.Issue, bool) {
	issues := m.columnIssues(m.col)
	r := m.rows[m.col]
	if r < 0 || r >= len(issues) {
		return model.Issue{}, false
	}
	return issues[r], true
}

// FocusedColumn returns the status of the column under the cursor.
func (m Model) FocusedColumn() model.Status {
	return model.Statuses[m.col]
}

// Carrying reports whether a card is picked up.
func (m Model) Carrying() bool {
	return m.carrying != ""
}

// SetProject changes the visible project and resets focus.
func (m *Model) SetProject(id string) {
	if id == m.projectID {
		return
	}
	m.projectID = id
	m.col = 0
	m.rows = [4]int{}
	m.carrying = ""
}

// ProjectID returns the visible project.
func (m Model) ProjectID() string {
	return m.projectID
}

// SetUsers sets the directory used to render assignees.
func (m *Model) SetUsers(users []model.User) {
	m.users = users
}

// Refresh clamps focus after the underlying collection changed. A carried
// card that disappeared is dropped silently.
func (m *Model) Refresh() {
	if m.carrying != "" {
		if _, ok := m.board.State().Get(m.carrying); !ok {
			m.carrying = ""
		}
	}
	for col := range model.Statuses {
		m.clampRow(col)
	}
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
