package app

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/bugtracker/internal/api"
	"github.com/nhle/bugtracker/internal/model"
	"github.com/nhle/bugtracker/internal/session"
	"github.com/nhle/bugtracker/internal/ui/auth"
)

// sessionRestoredMsg carries the session rebuilt from the stored token.
type sessionRestoredMsg struct {
	sess    *session.Session
	err     error
	expired bool
}

// snapshotLoadedMsg carries the issue list cached by the last fetch.
type snapshotLoadedMsg struct {
	issues []model.Issue
	err    error
}

// restoreSession reads the stored token so a returning user skips the
// login screen.
func (m Model) restoreSession() tea.Cmd {
	creds := m.credentials
	now := m.now()
	return func() tea.Msg {
		token, err := creds.Token()
		if err != nil {
			return sessionRestoredMsg{err: err}
		}
		sess, err := session.Restore(token, now)
		if err != nil {
			return sessionRestoredMsg{err: err, expired: errors.Is(err, session.ErrExpired)}
		}
		if sess.User.Email == "" {
			if email, err := creds.Email(); err == nil {
				sess.User = session.UserFromEmail(sess.User.ID, email)
			}
		}
		return sessionRestoredMsg{sess: sess}
	}
}

// startSession switches to the board and starts polling.
func (m *Model) startSession(sess *session.Session) tea.Cmd {
	m.restoring = false
	m.session = sess
	m.client.SetToken(sess.Token)
	m.users = withUser(m.users, sess.User)
	m.kanban.SetUsers(m.users)
	m.issueForm.SetUsers(m.users)
	m.currentView = ViewBoard
	m.previousView = ViewBoard
	m.logger.WithField("user", sess.User.Email).Info("session started")
	return m.poller.Start()
}

// endSession stops polling, clears the board and returns to the login
// screen with reason in the status bar.
func (m *Model) endSession(reason string) tea.Cmd {
	m.poller.Stop()
	m.session = nil
	m.board.Load(nil)
	m.kanban.Refresh()
	m.currentView = ViewLogin
	m.previousView = ViewLogin
	m.statusMsg = reason
	return tea.Batch(m.forgetSession(), m.authView.Start(auth.ModeLogin))
}

func (m *Model) logout() tea.Cmd {
	m.logger.Info("logged out")
	return m.endSession("Logged out")
}

func (m Model) saveSession(sess *session.Session) tea.Cmd {
	creds := m.credentials
	logger := m.logger
	return func() tea.Msg {
		if err := creds.SaveSession(sess.Token, sess.User.Email); err != nil {
			logger.WithError(err).Error("failed to store access token")
		}
		return nil
	}
}

// forgetSession removes the stored token and the cached issues of the
// previous account.
func (m Model) forgetSession() tea.Cmd {
	creds := m.credentials
	s := m.store
	logger := m.logger
	return func() tea.Msg {
		if err := creds.Clear(); err != nil {
			logger.WithError(err).Error("failed to clear stored credentials")
		}
		if err := s.ReplaceIssues(context.Background(), nil); err != nil {
			logger.WithError(err).Warn("failed to clear issue snapshot")
		}
		return nil
	}
}

func (m Model) loadSnapshot() tea.Cmd {
	s := m.store
	return func() tea.Msg {
		issues, err := s.GetIssues(context.Background(), "")
		return snapshotLoadedMsg{issues: issues, err: err}
	}
}

// withUser adds u to the directory unless a user with its id is present.
func withUser(users []model.User, u model.User) []model.User {
	if _, ok := model.FindUser(users, u.ID); ok {
		return users
	}
	out := make([]model.User, 0, len(users)+1)
	out = append(out, users...)
	return append(out, u)
}

func isAuthError(err error) bool {
	return api.IsAuthError(err)
}
