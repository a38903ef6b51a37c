package app

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"

	"github.com/nhle/bugtracker/internal/api"
	"github.com/nhle/bugtracker/internal/board"
	"github.com/nhle/bugtracker/internal/keys"
	"github.com/nhle/bugtracker/internal/model"
	"github.com/nhle/bugtracker/internal/session"
	"github.com/nhle/bugtracker/internal/store"
	appsync "github.com/nhle/bugtracker/internal/sync"
	"github.com/nhle/bugtracker/internal/ui"
	"github.com/nhle/bugtracker/internal/ui/auth"
	"github.com/nhle/bugtracker/internal/ui/command"
	helpview "github.com/nhle/bugtracker/internal/ui/help"
	"github.com/nhle/bugtracker/internal/ui/issueform"
	"github.com/nhle/bugtracker/internal/ui/kanban"
	"github.com/nhle/bugtracker/internal/ui/projectmgr"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewLogin ViewState = iota
	ViewBoard
	ViewHelp
	ViewCommand
	ViewIssueCreate
	ViewIssueEdit
	ViewProjectList
)

// Client is everything the application needs from the issue API.
// *api.Client satisfies it.
type Client interface {
	auth.Authenticator
	appsync.IssueFetcher
	board.StatusUpdater
	CreateIssue(ctx context.Context, in model.CreateIssueInput) (*model.Issue, error)
	UpdateIssue(ctx context.Context, issueID string, patch model.IssuePatch) (*model.Issue, error)
	SetToken(token string)
}

// Credentials persists the signed-in account. *credential.Store satisfies it.
type Credentials interface {
	Token() (string, error)
	Email() (string, error)
	SaveSession(token, email string) error
	Clear() error
}

// Deps are the collaborators the root model is built from.
type Deps struct {
	Client      Client
	Store       store.Store
	Credentials Credentials
	Config      *model.AppConfig
	Logger      log.FieldLogger

	// Project is the key of the project to show first. Empty selects the
	// first project.
	Project string

	// Now is the clock used for token expiry. Defaults to time.Now.
	Now func() time.Time
}

// Model is the root Bubble Tea model that manages view routing,
// layout, and access to the API and the local store.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	keys         *keys.KeyMap

	client      Client
	store       store.Store
	credentials Credentials
	logger      log.FieldLogger
	now         func() time.Time

	board    *board.Board
	poller   *appsync.Poller
	session  *session.Session
	users    []model.User
	projects []model.Project
	project  *model.Project
	initKey  string

	authView    auth.Model
	kanban      kanban.Model
	helpView    helpview.Model
	commandView command.Model
	issueForm   issueform.Model
	projectView projectmgr.Model
	ready       bool
	restoring   bool
	fetched     bool
	statusMsg   string
}

// New creates a new root application model.
func New(d Deps) Model {
	k := keys.DefaultKeyMap()

	logger := d.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	now := d.Now
	if now == nil {
		now = time.Now
	}
	cfg := d.Config
	if cfg == nil {
		cfg = &model.AppConfig{}
	}

	b := board.New(d.Client, logger)
	interval := time.Duration(cfg.Display.PollIntervalSec) * time.Second

	return Model{
		currentView: ViewLogin,
		keys:        k,
		client:      d.Client,
		store:       d.Store,
		credentials: d.Credentials,
		logger:      logger,
		now:         now,
		board:       b,
		poller:      appsync.New(d.Client, d.Store, interval, logger),
		users:       cfg.Users,
		initKey:     model.NormalizeKey(d.Project),
		authView:    auth.New(d.Client, 80, 24),
		kanban:      kanban.New(b, k, 80, 24),
		helpView:    helpview.New(k, 80, 24),
		commandView: command.New(80, 24),
		issueForm:   issueform.New(80, 24),
		projectView: projectmgr.New(d.Store, k, 80, 24),
		restoring:   true,
	}
}

// Init restores the stored session and loads the cached board.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.restoreSession(),
		m.loadSnapshot(),
		m.loadProjects(),
	)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		contentWidth := m.layout.ContentWidth()
		contentHeight := m.layout.ContentHeight()
		m.authView.SetSize(contentWidth, contentHeight)
		m.kanban.SetSize(contentWidth, contentHeight)
		m.helpView.SetSize(contentWidth, contentHeight)
		m.commandView.SetSize(contentWidth, contentHeight)
		m.issueForm.SetSize(contentWidth, contentHeight)
		m.projectView.SetSize(contentWidth, contentHeight)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case sessionRestoredMsg:
		m.restoring = false
		if msg.err != nil {
			m.logger.WithError(msg.err).Info("no usable stored session")
			if msg.expired {
				m.statusMsg = sessionExpiredMessage
			}
			m.currentView = ViewLogin
			return m, tea.Batch(m.forgetSession(), m.authView.Start(auth.ModeLogin))
		}
		return m, m.startSession(msg.sess)

	case auth.LoggedInMsg:
		sess, err := session.New(msg.Token, msg.Email, m.now())
		if err != nil {
			m.logger.WithError(err).Error("rejected access token")
			m.statusMsg = "Login failed: " + err.Error()
			return m, m.authView.Start(auth.ModeLogin)
		}
		return m, tea.Batch(m.saveSession(sess), m.startSession(sess))

	case snapshotLoadedMsg:
		if msg.err != nil {
			m.logger.WithError(msg.err).Warn("failed to load cached issues")
			return m, nil
		}
		// A live fetch that already arrived wins over the cache, even an empty one.
		if !m.fetched {
			m.board.Load(msg.issues)
			m.kanban.Refresh()
		}
		return m, nil

	case projectsLoadedMsg:
		if msg.err != nil {
			m.logger.WithError(msg.err).Error("failed to load projects")
			return m, nil
		}
		m.setProjects(msg.projects)
		return m, nil

	case appsync.IssuesFetchedMsg:
		if m.session == nil {
			// Result of a poll started before logout.
			return m, nil
		}
		if msg.AuthError {
			return m, m.endSession(sessionExpiredMessage)
		}
		wait := m.poller.WaitForNextResult()
		if msg.Error != nil {
			m.statusMsg = offlineMessage
			return m, wait
		}
		if m.statusMsg == offlineMessage || m.statusMsg == refreshingMessage {
			m.statusMsg = ""
		}
		m.fetched = true
		m.board.Load(msg.Issues)
		m.kanban.Refresh()
		return m, wait

	case kanban.IssueSyncedMsg:
		if msg.Err != nil {
			if isAuthError(msg.Err) {
				return m, m.endSession(sessionExpiredMessage)
			}
			m.statusMsg = fmt.Sprintf("Could not save status of issue %s", msg.IssueID)
			return m, nil
		}
		if issue, ok := m.board.State().Get(msg.IssueID); ok {
			return m, m.cacheIssue(issue)
		}
		return m, nil

	case kanban.EditIssueMsg:
		m.previousView = m.currentView
		m.currentView = ViewIssueEdit
		return m, m.issueForm.StartEdit(msg.Issue)

	case issueform.CreateRequestMsg:
		m.currentView = ViewBoard
		return m, m.createIssue(msg.Input)

	case issueform.UpdateRequestMsg:
		m.currentView = ViewBoard
		return m, m.updateIssue(msg.IssueID, msg.Patch)

	case issueform.CancelMsg:
		m.currentView = ViewBoard
		return m, nil

	case issueCreatedMsg:
		if msg.err != nil {
			if isAuthError(msg.err) {
				return m, m.endSession(sessionExpiredMessage)
			}
			m.statusMsg = "Failed to create issue"
			return m, nil
		}
		m.board.Add(*msg.issue)
		m.kanban.Refresh()
		m.statusMsg = "Issue created"
		return m, m.cacheIssue(*msg.issue)

	case issueUpdatedMsg:
		if msg.err != nil {
			if isAuthError(msg.err) {
				return m, m.endSession(sessionExpiredMessage)
			}
			m.statusMsg = api.DetailMessage(msg.err, updateFailedMessage, updateFailedMessage)
			return m, nil
		}
		m.board.Replace(*msg.issue)
		m.kanban.Refresh()
		m.statusMsg = "Issue updated"
		if _, ok := m.board.State().Get(msg.issue.ID); !ok {
			return m, nil
		}
		return m, m.cacheIssue(*msg.issue)

	case projectmgr.ProjectListCloseMsg:
		m.currentView = ViewBoard
		return m, nil

	case projectmgr.ProjectSelectedMsg:
		m.selectProject(msg.Project)
		m.currentView = ViewBoard
		return m, nil

	case projectmgr.ProjectsChangedMsg:
		m.setProjects(msg.Projects)
		return m, nil

	case command.CommandMsg:
		m.currentView = m.previousView
		return m, m.executeCommand(msg)

	case tea.KeyMsg:
		if cmd, handled := m.handleGlobalKey(msg); handled {
			return m, cmd
		}
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

// handleGlobalKey processes keys that work outside the active sub-view.
// Form and login views receive every key except ctrl+c.
func (m *Model) handleGlobalKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	if msg.String() == "ctrl+c" {
		m.poller.Stop()
		return tea.Quit, true
	}

	switch m.currentView {
	case ViewHelp:
		switch msg.String() {
		case "?", "esc", "q":
			m.currentView = m.previousView
			return nil, true
		}
		return nil, false

	case ViewCommand:
		switch msg.String() {
		case ":", "esc":
			m.currentView = m.previousView
			return nil, true
		}
		return nil, false

	case ViewBoard:
	default:
		return nil, false
	}

	// A carried card owns the keyboard until it is dropped.
	if m.kanban.Carrying() {
		return nil, false
	}

	m.statusMsg = ""
	switch msg.String() {
	case "q":
		m.poller.Stop()
		return tea.Quit, true

	case "?":
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return nil, true

	case ":":
		m.previousView = m.currentView
		m.currentView = ViewCommand
		return m.commandView.Focus(), true

	case "r":
		return m.refresh(), true

	case "n":
		return m.openCreate(), true

	case "p":
		return m.openProjects(), true

	case "L":
		return m.logout(), true
	}
	return nil, false
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewLogin:
		m.authView, cmd = m.authView.Update(msg)
	case ViewBoard:
		m.kanban, cmd = m.kanban.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	case ViewIssueCreate, ViewIssueEdit:
		m.issueForm, cmd = m.issueForm.Update(msg)
	case ViewProjectList:
		m.projectView, cmd = m.projectView.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader(m.headerTitle(), m.headerRight())
	content := m.renderContent()
	statusBar := m.layout.RenderStatusBar(m.keyHints(), m.statusMsg)

	return m.layout.RenderWithFrame(header, content, statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	if m.restoring {
		return m.layout.Center("Restoring session...")
	}

	switch m.currentView {
	case ViewLogin:
		return m.layout.Center(m.authView.View())
	case ViewBoard:
		return m.kanban.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	case ViewIssueCreate, ViewIssueEdit:
		return m.issueForm.View()
	case ViewProjectList:
		return m.projectView.View()
	default:
		return ""
	}
}

func (m Model) headerTitle() string {
	if m.project == nil {
		return "Bug Tracker"
	}
	return "Bug Tracker · " + m.project.Label()
}

// headerRight shows the signed-in user and the sync state.
func (m Model) headerRight() string {
	if m.session == nil {
		return ""
	}
	user := m.session.User.Email
	if user == "" {
		user = m.session.User.Name
	}
	return fmt.Sprintf("%s | %s", user, m.poller.Status().State)
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewLogin:
		return "enter submit | tab next field | ctrl+c quit"
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return ": close command | enter execute | esc back"
	case ViewIssueCreate, ViewIssueEdit:
		return "enter submit | esc cancel"
	case ViewProjectList:
		return "enter select | n new | d delete | esc back"
	default:
		if m.kanban.Carrying() {
			return "h/l choose column | space/enter drop | esc cancel"
		}
		return "q quit | ? help | space grab | < > move | enter edit | n new | p projects"
	}
}
