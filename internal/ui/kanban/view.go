package kanban

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/bugtracker/internal/model"
	"github.com/nhle/bugtracker/internal/theme"
)

// cardHeight is the rendered height of one card including its border.
const cardHeight = 4

// View renders the board.
func (m Model) View() string {
	if m.projectID == "" {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("No project selected.\n\nPress p to choose or create one.")
	}

	colWidth := m.width/len(model.Statuses) - 2
	if colWidth < 12 {
		colWidth = 12
	}

	cols := make([]string, len(model.Statuses))
	for i := range model.Statuses {
		cols[i] = m.renderColumn(i, colWidth)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cols...)
}

func (m Model) renderColumn(col, width int) string {
	status := model.Statuses[col]

	issues := m.columnIssues(col)
	var carried *model.Issue
	if m.carrying != "" {
		issues = without(issues, m.carrying)
		if col == m.overCol {
			if issue, ok := m.board.State().Get(m.carrying); ok {
				carried = &issue
			}
		}
	}

	header := theme.StatusStyle(string(status)).Render(
		fmt.Sprintf("%s (%d)", status.Title(), len(issues)),
	)

	inner := width - 4
	var cards []string
	if carried != nil {
		cards = append(cards, m.renderCard(*carried, inner, theme.CarriedCardStyle))
	}

	start, end := m.window(col, len(issues))
	for i := start; i < end; i++ {
		style := theme.CardStyle
		if col == m.col && i == m.rows[col] && m.carrying == "" {
			style = theme.SelectedCardStyle
		}
		cards = append(cards, m.renderCard(issues[i], inner, style))
	}
	if len(issues) == 0 && carried == nil {
		cards = append(cards, theme.HelpStyle.Render("empty"))
	}
	if end < len(issues) {
		cards = append(cards, theme.HelpStyle.Render(fmt.Sprintf("+%d more", len(issues)-end)))
	}

	style := theme.ColumnStyle
	switch {
	case m.carrying != "" && col == m.overCol:
		style = theme.DropTargetColumnStyle
	case m.carrying == "" && col == m.col:
		style = theme.ActiveColumnStyle
	}

	body := lipgloss.JoinVertical(lipgloss.Left, append([]string{header, ""}, cards...)...)
	return style.
		Width(width).
		Height(m.height - 2).
		Render(body)
}

// window returns the range of cards that fit in the column, keeping the
// focused card visible.
func (m Model) window(col, n int) (int, int) {
	fit := (m.height - 6) / cardHeight
	if fit < 1 {
		fit = 1
	}
	if n <= fit {
		return 0, n
	}
	start := 0
	if col == m.col && m.rows[col] >= fit {
		start = m.rows[col] - fit + 1
	}
	end := start + fit
	if end > n {
		end = n
	}
	return start, end
}

func (m Model) renderCard(issue model.Issue, width int, style lipgloss.Style) string {
	title := truncate(issue.Title, width)

	priority := theme.PriorityStyle(issue.Priority).Render(issue.Priority)
	assignee := m.assigneeLabel(issue)
	gap := width - lipgloss.Width(priority) - lipgloss.Width(assignee)
	if gap < 1 {
		gap = 1
	}
	meta := priority + strings.Repeat(" ", gap) + assignee

	return style.Width(width).Render(title + "\n" + meta)
}

func (m Model) assigneeLabel(issue model.Issue) string {
	id := issue.Assignee()
	if id == "" {
		return theme.HelpStyle.Render("Unassigned")
	}
	if u, ok := model.FindUser(m.users, id); ok {
		return theme.AvatarStyle.Render(u.Initials())
	}
	return theme.AvatarStyle.Render(truncate(id, 6))
}

func without(issues []model.Issue, id string) []model.Issue {
	out := make([]model.Issue, 0, len(issues))
	for _, issue := range issues {
		if issue.ID != id {
			out = append(out, issue)
		}
	}
	return out
}

func truncate(s string, width int) string {
	r := []rune(s)
	if width <= 1 || len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}
