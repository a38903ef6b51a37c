package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Status is the workflow state of an issue. The board has exactly one
// column per status.
type Status string

// Status values as sent and received by the issue API.
const (
	StatusBacklog    Status = "backlog"
	StatusTodo       Status = "todo"
	StatusInProgress Status = "inprogress"
	StatusDone       Status = "done"
)

// Statuses lists every status in board column order.
var Statuses = []Status{
	StatusBacklog,
	StatusTodo,
	StatusInProgress,
	StatusDone,
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusBacklog, StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Title returns the column heading for the status.
func (s Status) Title() string {
	switch s {
	case StatusBacklog:
		return "Backlog"
	case StatusTodo:
		return "To Do"
	case StatusInProgress:
		return "In Progress"
	case StatusDone:
		return "Done"
	default:
		return string(s)
	}
}

// ParseStatus normalizes user input into a Status. Spellings such as
// "In Progress", "in-progress" and "in_progress" all map to StatusInProgress.
func ParseStatus(s string) (Status, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "", "_", "", " ", "").Replace(norm)
	st := Status(norm)
	if !st.Valid() {
		return "", fmt.Errorf("unknown status %q", s)
	}
	return st, nil
}

// Priority levels offered by the issue forms. The API stores priority as a
// free-form string, so other values are passed through untouched.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Issue is a trackable unit of work owned by exactly one project.
type Issue struct {
	ID          string  `json:"id" yaml:"id" db:"id"`
	Title       string  `json:"title" yaml:"title" db:"title"`
	Status      Status  `json:"status" yaml:"status" db:"status"`
	Priority    string  `json:"priority" yaml:"priority" db:"priority"`
	Description *string `json:"description,omitempty" yaml:"description,omitempty" db:"description"`
	ProjectID   string  `json:"projectId" yaml:"project_id" db:"project_id"`
	AssigneeID  *string `json:"assigneeId,omitempty" yaml:"assignee_id,omitempty" db:"assignee_id"`
}

// UnmarshalJSON accepts both the camelCase and snake_case spellings of the
// project and assignee fields; the API is not consistent between endpoints.
// Known status spellings such as "in-progress" are normalized.
func (i *Issue) UnmarshalJSON(data []byte) error {
	type plain Issue
	aux := struct {
		*plain
		ProjectIDSnake  *string `json:"project_id"`
		AssigneeIDSnake *string `json:"assignee_id"`
	}{plain: (*plain)(i)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if i.ProjectID == "" && aux.ProjectIDSnake != nil {
		i.ProjectID = *aux.ProjectIDSnake
	}
	if i.AssigneeID == nil && aux.AssigneeIDSnake != nil {
		i.AssigneeID = aux.AssigneeIDSnake
	}
	if st, err := ParseStatus(string(i.Status)); err == nil {
		i.Status = st
	}
	return nil
}

// DescriptionText returns the description or "" when unset.
func (i Issue) DescriptionText() string {
	if i.Description == nil {
		return ""
	}
	return *i.Description
}

// Assignee returns the assignee id or "" when unassigned.
func (i Issue) Assignee() string {
	if i.AssigneeID == nil {
		return ""
	}
	return *i.AssigneeID
}

// CreateIssueInput is the payload for creating an issue.
type CreateIssueInput struct {
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Status      Status  `json:"status"`
	Priority    string  `json:"priority"`
	ProjectID   string  `json:"project_id"`
	AssigneeID  *string `json:"assignee_id,omitempty"`
}

// IssuePatch is a partial update. Nil fields are left out of the request.
// AssigneeID is a double pointer so that an explicit unassign (a pointer to
// nil) can be told apart from "leave unchanged".
type IssuePatch struct {
	Title       *string
	Description *string
	Status      *Status
	Priority    *string
	AssigneeID  **string
}

// MarshalJSON emits only the fields that are set.
func (p IssuePatch) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{})
	if p.Title != nil {
		out["title"] = *p.Title
	}
	if p.Description != nil {
		out["description"] = *p.Description
	}
	if p.Status != nil {
		out["status"] = *p.Status
	}
	if p.Priority != nil {
		out["priority"] = *p.Priority
	}
	if p.AssigneeID != nil {
		out["assigneeId"] = *p.AssigneeID
	}
	return json.Marshal(out)
}
