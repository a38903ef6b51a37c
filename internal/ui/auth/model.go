package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/bugtracker/internal/api"
	"github.com/nhle/bugtracker/internal/theme"
)

// Messages shown to the user.
const (
	RegisteredMessage = "Account created successfully! Redirecting…"

	loginListFallback    = "Invalid credentials"
	loginFallback        = "Invalid email or password"
	registerListFallback = "Validation error"
	registerFallback     = "Failed to create account"
)

// redirectDelay is how long the register success message stays up before
// returning to the login form.
var redirectDelay = time.Second

// Authenticator performs the login and register calls. *api.Client
// satisfies it.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*api.TokenResponse, error)
	Register(ctx context.Context, email, password string) error
}

// LoggedInMsg is dispatched after a successful login.
type LoggedInMsg struct {
	Email string
	Token string
}

type loginResultMsg struct {
	email string
	token string
	err   error
}

type registerResultMsg struct {
	err error
}

type redirectMsg struct{}

// Mode selects which screen is shown.
type Mode int

const (
	ModeLogin Mode = iota
	ModeRegister
)

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	email    string
	password string
}

// Model is the login/register screen.
type Model struct {
	client     Authenticator
	mode       Mode
	form       *huh.Form
	fb         *formBindings
	spinner    spinner.Model
	submitting bool
	errMsg     string
	success    string
	width      int
	height     int
}

// New creates the auth screen in login mode.
func New(client Authenticator, width, height int) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	return Model{
		client:  client,
		fb:      &formBindings{},
		spinner: s,
		width:   width,
		height:  height,
	}
}

// Start shows the given mode with an empty form.
func (m *Model) Start(mode Mode) tea.Cmd {
	m.mode = mode
	m.fb.email = ""
	m.fb.password = ""
	m.errMsg = ""
	m.success = ""
	m.submitting = false
	m.form = m.buildForm()
	return m.form.Init()
}

// Mode returns the screen currently shown.
func (m Model) Mode() Mode {
	return m.mode
}

// Error returns the message from the last failed attempt.
func (m Model) Error() string {
	return m.errMsg
}

// Update handles messages for the auth screen.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loginResultMsg:
		m.submitting = false
		if msg.err != nil {
			m.errMsg = api.DetailMessage(msg.err, loginListFallback, loginFallback)
			return m, m.retry()
		}
		return m, func() tea.Msg { return LoggedInMsg{Email: msg.email, Token: msg.token} }

	case registerResultMsg:
		m.submitting = false
		if msg.err != nil {
			m.errMsg = api.DetailMessage(msg.err, registerListFallback, registerFallback)
			return m, m.retry()
		}
		m.success = RegisteredMessage
		return m, tea.Tick(redirectDelay, func(time.Time) tea.Msg { return redirectMsg{} })

	case redirectMsg:
		cmd := m.Start(ModeLogin)
		return m, cmd

	case spinner.TickMsg:
		if !m.submitting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.submitting || m.success != "" {
			return m, nil
		}
		switch msg.String() {
		case "ctrl+r":
			if m.mode == ModeLogin {
				return m, m.Start(ModeRegister)
			}
		case "ctrl+l":
			if m.mode == ModeRegister {
				return m, m.Start(ModeLogin)
			}
		}
	}

	if m.form == nil || m.submitting {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		return m, m.submit()
	}
	if m.form.State == huh.StateAborted {
		// Nothing to go back to; start over.
		return m, m.retry()
	}

	return m, cmd
}

func (m *Model) submit() tea.Cmd {
	m.submitting = true
	m.errMsg = ""

	email := strings.TrimSpace(m.fb.email)
	password := m.fb.password
	client := m.client

	var call tea.Cmd
	if m.mode == ModeRegister {
		call = func() tea.Msg {
			return registerResultMsg{err: client.Register(context.Background(), email, password)}
		}
	} else {
		call = func() tea.Msg {
			tok, err := client.Login(context.Background(), email, password)
			if err != nil {
				return loginResultMsg{email: email, err: err}
			}
			return loginResultMsg{email: email, token: tok.AccessToken}
		}
	}
	return tea.Batch(call, m.spinner.Tick)
}

// retry rebuilds the form keeping the typed email.
func (m *Model) retry() tea.Cmd {
	m.fb.password = ""
	m.form = m.buildForm()
	return m.form.Init()
}

// View renders the auth screen.
func (m Model) View() string {
	title := "Login"
	hint := "ctrl+r: create an account"
	if m.mode == ModeRegister {
		title = "Register"
		hint = "ctrl+l: back to login"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	parts := []string{titleStyle.Render(title)}
	if m.errMsg != "" {
		parts = append(parts, theme.ErrorStyle.Render(m.errMsg))
	}
	if m.success != "" {
		parts = append(parts, theme.SuccessStyle.Render(m.success))
	}

	switch {
	case m.submitting:
		parts = append(parts, fmt.Sprintf("%s %s", m.spinner.View(), submittingLabel(m.mode)))
	case m.success == "" && m.form != nil:
		parts = append(parts, m.form.View(), theme.HelpStyle.Render(hint))
	}

	return theme.PanelStyle.
		Width(m.formWidth() + 4).
		Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Placeholder("you@example.com").
				Value(&m.fb.email).
				Validate(validateEmail),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.password).
				Validate(validateRequired("Password")),
		),
	).WithWidth(m.formWidth()).WithShowHelp(false)
}

func (m Model) formWidth() int {
	w := m.width / 2
	if w < 36 {
		w = 36
	}
	if w > 60 {
		w = 60
	}
	return w
}

func submittingLabel(mode Mode) string {
	if mode == ModeRegister {
		return "Creating account..."
	}
	return "Logging in..."
}

func validateEmail(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("Email is required")
	}
	if !strings.Contains(s, "@") {
		return fmt.Errorf("Enter a valid email address")
	}
	return nil
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}
