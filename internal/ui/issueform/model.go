package issueform

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/bugtracker/internal/model"
	"github.com/nhle/bugtracker/internal/theme"
)

// CreateRequestMsg is dispatched when the create form is submitted.
type CreateRequestMsg struct {
	Input model.CreateIssueInput
}

// UpdateRequestMsg is dispatched when the edit form is submitted. Patch
// carries every editable field.
type UpdateRequestMsg struct {
	IssueID string
	Patch   model.IssuePatch
}

// CancelMsg is dispatched when the user cancels the form.
type CancelMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	title       string
	description string
	status      model.Status
	priority    string
	assigneeID  string
}

// Model is the Bubble Tea model for the issue create/edit form.
type Model struct {
	form      *huh.Form
	fb        *formBindings
	editMode  bool
	editID    string
	projectID string
	users     []model.User
	width     int
	height    int
}

// New creates a new issue form model.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{status: model.StatusBacklog, priority: model.PriorityMedium},
		width:  width,
		height: height,
	}
}

// SetUsers sets the assignee directory for the edit form.
func (m *Model) SetUsers(users []model.User) {
	m.users = users
}

// StartCreate initializes the form for a new issue in projectID.
func (m *Model) StartCreate(projectID string) tea.Cmd {
	m.editMode = false
	m.editID = ""
	m.projectID = projectID
	m.fb.title = ""
	m.fb.description = ""
	m.fb.status = model.StatusBacklog
	m.fb.priority = model.PriorityMedium
	m.fb.assigneeID = ""
	m.form = m.buildCreateForm()
	return m.form.Init()
}

// StartEdit initializes the form for editing issue.
func (m *Model) StartEdit(issue model.Issue) tea.Cmd {
	m.editMode = true
	m.editID = issue.ID
	m.projectID = issue.ProjectID
	m.fb.title = issue.Title
	m.fb.description = issue.DescriptionText()
	m.fb.status = issue.Status
	m.fb.priority = issue.Priority
	m.fb.assigneeID = issue.Assignee()
	m.form = m.buildEditForm()
	return m.form.Init()
}

// Update handles messages for the issue form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		return m, m.handleSubmit()
	}
	if m.form.State == huh.StateAborted {
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

// View renders the issue form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleText := "Create Issue"
	if m.editMode {
		titleText = "Edit Issue"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := titleStyle.Render(titleText) + "\n" + m.form.View()

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildCreateForm() *huh.Form {
	fields := []huh.Field{
		m.titleField(),
		m.descriptionField(),
		m.statusField(),
		m.priorityField(),
	}
	return huh.NewForm(
		huh.NewGroup(fields...),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m *Model) buildEditForm() *huh.Form {
	fields := []huh.Field{
		m.titleField(),
		m.descriptionField(),
		m.priorityField(),
		m.assigneeField(),
	}
	return huh.NewForm(
		huh.NewGroup(fields...),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m *Model) titleField() huh.Field {
	return huh.NewInput().
		Title("Title").
		Placeholder("Short summary of the problem").
		Value(&m.fb.title).
		Validate(validateRequired("Title"))
}

func (m *Model) descriptionField() huh.Field {
	return huh.NewText().
		Title("Description").
		Placeholder("Steps to reproduce, expected behaviour...").
		Value(&m.fb.description)
}

func (m *Model) statusField() huh.Field {
	opts := make([]huh.Option[model.Status], len(model.Statuses))
	for i, s := range model.Statuses {
		opts[i] = huh.NewOption(s.Title(), s)
	}
	return huh.NewSelect[model.Status]().
		Title("Status").
		Options(opts...).
		Value(&m.fb.status)
}

func (m *Model) priorityField() huh.Field {
	opts := []huh.Option[string]{
		huh.NewOption("Low", model.PriorityLow),
		huh.NewOption("Medium", model.PriorityMedium),
		huh.NewOption("High", model.PriorityHigh),
	}
	// Keep a non-standard value from the API selectable.
	switch m.fb.priority {
	case model.PriorityLow, model.PriorityMedium, model.PriorityHigh, "":
	default:
		opts = append(opts, huh.NewOption(m.fb.priority, m.fb.priority))
	}
	return huh.NewSelect[string]().
		Title("Priority").
		Options(opts...).
		Value(&m.fb.priority)
}

func (m *Model) assigneeField() huh.Field {
	opts := []huh.Option[string]{
		huh.NewOption("Unassigned", ""),
	}
	known := false
	for _, u := range m.users {
		opts = append(opts, huh.NewOption(fmt.Sprintf("%s (%s)", u.Name, u.Role), u.ID))
		if u.ID == m.fb.assigneeID {
			known = true
		}
	}
	if m.fb.assigneeID != "" && !known {
		opts = append(opts, huh.NewOption(m.fb.assigneeID, m.fb.assigneeID))
	}
	return huh.NewSelect[string]().
		Title("Assignee").
		Options(opts...).
		Value(&m.fb.assigneeID)
}

func (m Model) handleSubmit() tea.Cmd {
	title := strings.TrimSpace(m.fb.title)
	description := strings.TrimSpace(m.fb.description)

	if m.editMode {
		return func() tea.Msg { return UpdateRequestMsg{IssueID: m.editID, Patch: m.buildPatch(title, description)} }
	}

	in := model.CreateIssueInput{
		Title:       title,
		Description: description,
		Status:      m.fb.status,
		Priority:    m.fb.priority,
		ProjectID:   m.projectID,
	}
	return func() tea.Msg { return CreateRequestMsg{Input: in} }
}

func (m Model) buildPatch(title, description string) model.IssuePatch {
	priority := m.fb.priority
	var assignee *string
	if m.fb.assigneeID != "" {
		id := m.fb.assigneeID
		assignee = &id
	}
	return model.IssuePatch{
		Title:       &title,
		Description: &description,
		Priority:    &priority,
		AssigneeID:  &assignee,
	}
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

func (m Model) formHeight() int {
	h := m.height - 4
	if h < 10 {
		h = 10
	}
	return h
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}
