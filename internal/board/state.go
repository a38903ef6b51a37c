// Package board holds the in-memory issue collection shown on the Kanban
// board and applies drag transitions to it.
package board

import "github.com/nhle/bugtracker/internal/model"

// State is an immutable view of the session's issues. Every update returns
// a new State and leaves the receiver untouched, so a State handed to a
// renderer never changes underneath it.
type State struct {
	issues []model.Issue
}

// NewState builds a State from issues. The slice is copied.
func NewState(issues []model.Issue) State {
	return State{issues: cloneIssues(issues)}
}

// Issues returns a copy of every issue in load order.
func (s State) Issues() []model.Issue {
	return cloneIssues(s.issues)
}

// Len returns the number of issues.
func (s State) Len() int {
	return len(s.issues)
}

// Get looks up an issue by id.
func (s State) Get(id string) (model.Issue, bool) {
	if i := s.indexOf(id); i >= 0 {
		return s.issues[i], true
	}
	return model.Issue{}, false
}

// WithStatus returns a State where the issue with the given id has the new
// status. ok is false, and the receiver is returned, when no such issue exists.
func (s State) WithStatus(id string, status model.Status) (next State, ok bool) {
	i := s.indexOf(id)
	if i < 0 {
		return s, false
	}
	next = NewState(s.issues)
	next.issues[i].Status = status
	return next, true
}

// Add returns a State with issue appended.
func (s State) Add(issue model.Issue) State {
	next := make([]model.Issue, len(s.issues), len(s.issues)+1)
	copy(next, s.issues)
	return State{issues: append(next, issue)}
}

// Replace returns a State where the issue sharing issue.ID is swapped for
// issue. An unknown id leaves the collection unchanged.
func (s State) Replace(issue model.Issue) State {
	i := s.indexOf(issue.ID)
	if i < 0 {
		return s
	}
	next := NewState(s.issues)
	next.issues[i] = issue
	return next
}

// Visible returns the issues owned by projectID in collection order.
// An empty projectID means no project is selected and yields nothing.
func (s State) Visible(projectID string) []model.Issue {
	if projectID == "" {
		return nil
	}
	var out []model.Issue
	for _, issue := range s.issues {
		if issue.ProjectID == projectID {
			out = append(out, issue)
		}
	}
	return out
}

// Column returns the visible issues of projectID that have status.
func (s State) Column(projectID string, status model.Status) []model.Issue {
	var out []model.Issue
	for _, issue := range s.Visible(projectID) {
		if issue.Status == status {
			out = append(out, issue)
		}
	}
	return out
}

// Counts returns the number of visible issues per status.
func (s State) Counts(projectID string) map[model.Status]int {
	counts := make(map[model.Status]int, len(model.Statuses))
	for _, issue := range s.Visible(projectID) {
		counts[issue.Status]++
	}
	return counts
}

func (s State) indexOf(id string) int {
	for i := range s.issues {
		if s.issues[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneIssues(issues []model.Issue) []model.Issue {
	if issues == nil {
		return nil
	}
	out := make([]model.Issue, len(issues))
	copy(out, issues)
	return out
}
