package app

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"

	"github.com/nhle/bugtracker/internal/model"
	"github.com/nhle/bugtracker/internal/ui/command"
)

const (
	refreshingMessage     = "Refreshing..."
	sessionExpiredMessage = "Session expired, please log in again"
	offlineMessage        = "Offline: showing cached issues"
	updateFailedMessage   = "Failed to update issue"
)

// issueCreatedMsg is sent after the API answered a create request.
type issueCreatedMsg struct {
	issue *model.Issue
	err   error
}

// issueUpdatedMsg is sent after the API answered an edit request.
type issueUpdatedMsg struct {
	issue *model.Issue
	err   error
}

// projectsLoadedMsg carries the locally managed projects.
type projectsLoadedMsg struct {
	projects []model.Project
	err      error
}

func (m Model) createIssue(in model.CreateIssueInput) tea.Cmd {
	client := m.client
	logger := m.logger
	return func() tea.Msg {
		issue, err := client.CreateIssue(context.Background(), in)
		if err != nil {
			logger.WithError(err).WithField("project_id", in.ProjectID).Error("failed to create issue")
		}
		return issueCreatedMsg{issue: issue, err: err}
	}
}

func (m Model) updateIssue(id string, patch model.IssuePatch) tea.Cmd {
	client := m.client
	logger := m.logger
	return func() tea.Msg {
		issue, err := client.UpdateIssue(context.Background(), id, patch)
		if err != nil {
			logger.WithError(err).WithField("issue_id", id).Error("failed to update issue")
		}
		return issueUpdatedMsg{issue: issue, err: err}
	}
}

// cacheIssue writes one issue into the local snapshot.
func (m Model) cacheIssue(issue model.Issue) tea.Cmd {
	s := m.store
	logger := m.logger
	return func() tea.Msg {
		if err := s.UpsertIssue(context.Background(), issue); err != nil {
			logger.WithFields(log.Fields{"issue_id": issue.ID}).WithError(err).Warn("failed to cache issue")
		}
		return nil
	}
}

func (m Model) loadProjects() tea.Cmd {
	s := m.store
	return func() tea.Msg {
		projects, err := s.GetProjects(context.Background())
		return projectsLoadedMsg{projects: projects, err: err}
	}
}

// setProjects replaces the project list and keeps a valid selection:
// the current project if it still exists, else the one requested at
// startup, else the first.
func (m *Model) setProjects(projects []model.Project) {
	m.projects = projects

	if m.project != nil {
		for _, p := range projects {
			if p.ID == m.project.ID {
				m.selectProject(p)
				return
			}
		}
		m.project = nil
		m.kanban.SetProject("")
	}

	if m.initKey != "" {
		for _, p := range projects {
			if p.Key == m.initKey {
				m.selectProject(p)
				return
			}
		}
	}
	if len(projects) > 0 {
		m.selectProject(projects[0])
	}
}

func (m *Model) selectProject(p model.Project) {
	m.project = &p
	m.kanban.SetProject(p.ID)
	m.projectView.SetCurrent(p.ID)
}

func (m *Model) refresh() tea.Cmd {
	if m.session == nil {
		return nil
	}
	m.statusMsg = refreshingMessage
	return m.poller.Refresh()
}

func (m *Model) openCreate() tea.Cmd {
	if m.project == nil {
		m.statusMsg = "Select a project first"
		return nil
	}
	m.previousView = m.currentView
	m.currentView = ViewIssueCreate
	return m.issueForm.StartCreate(m.project.ID)
}

func (m *Model) openProjects() tea.Cmd {
	m.previousView = m.currentView
	m.currentView = ViewProjectList
	if m.project != nil {
		m.projectView.SetCurrent(m.project.ID)
	}
	return m.projectView.Init()
}

// executeCommand handles a command from the command palette.
func (m *Model) executeCommand(cmd command.CommandMsg) tea.Cmd {
	switch cmd.Name {
	case "refresh", "sync":
		return m.refresh()
	case "new":
		return m.openCreate()
	case "projects":
		return m.openProjects()
	case "project":
		if len(cmd.Args) == 0 {
			m.statusMsg = "usage: project KEY"
			return nil
		}
		key := model.NormalizeKey(cmd.Args[0])
		for _, p := range m.projects {
			if p.Key == key {
				m.selectProject(p)
				return nil
			}
		}
		m.statusMsg = fmt.Sprintf("Unknown project %s", key)
		return nil
	case "move":
		if len(cmd.Args) == 0 {
			m.statusMsg = "usage: move STATUS"
			return nil
		}
		status, err := model.ParseStatus(strings.Join(cmd.Args, " "))
		if err != nil {
			m.statusMsg = err.Error()
			return nil
		}
		return m.kanban.MoveFocusedTo(status)
	case "logout":
		return m.logout()
	case "quit", "q":
		m.poller.Stop()
		return tea.Quit
	default:
		m.statusMsg = fmt.Sprintf("Unknown command: %s", cmd.Name)
		return nil
	}
}
