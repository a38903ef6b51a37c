package board

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/nhle/bugtracker/internal/model"
)

// StatusUpdater sends a status-only partial update for one issue.
// *api.Client satisfies it.
type StatusUpdater interface {
	UpdateIssueStatus(ctx context.Context, issueID string, status model.Status) (*model.Issue, error)
}

// DragEvent describes the end of a drag: the moved issue and the column it
// was released over. Over is empty when the card was dropped outside any
// column or the drag was cancelled.
type DragEvent struct {
	IssueID string
	Over    string
}

// Sync performs the remote half of a drag transition. Its error has already
// been logged; callers may inspect it but must not undo the local change.
type Sync func(ctx context.Context) error

// Board owns the issue State for one session and the gateway used to
// persist status changes.
type Board struct {
	state   State
	gateway StatusUpdater
	logger  log.FieldLogger
}

// New creates an empty Board.
func New(gateway StatusUpdater, logger log.FieldLogger) *Board {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Board{gateway: gateway, logger: logger}
}

// State returns the current collection.
func (b *Board) State() State {
	return b.state
}

// Load replaces the collection, as after a full fetch.
func (b *Board) Load(issues []model.Issue) {
	b.state = NewState(issues)
}

// Add appends a newly created issue.
func (b *Board) Add(issue model.Issue) {
	b.state = b.state.Add(issue)
}

// Replace swaps in an edited issue.
func (b *Board) Replace(issue model.Issue) {
	b.state = b.state.Replace(issue)
}

// DragEnd applies the drop to the local collection immediately and returns
// the remote update to run afterwards. It returns nil, leaving the
// collection untouched, when there is no valid target column or the issue
// is unknown.
//
// The local change is never reverted: if the remote update fails the error
// is logged and the board keeps showing the new status until the next full
// refresh.
func (b *Board) DragEnd(ev DragEvent) Sync {
	status, err := model.ParseStatus(ev.Over)
	if err != nil {
		return nil
	}

	next, ok := b.state.WithStatus(ev.IssueID, status)
	if !ok {
		return nil
	}
	b.state = next

	id := ev.IssueID
	return func(ctx context.Context) error {
		if _, err := b.gateway.UpdateIssueStatus(ctx, id, status); err != nil {
			b.logger.WithFields(log.Fields{
				"issue_id": id,
				"status":   status,
			}).WithError(err).Error("failed to update issue status")
			return fmt.Errorf("syncing issue %s to %s: %w", id, status, err)
		}
		return nil
	}
}

// Move shifts an issue by delta columns, clamped to the first and last
// column, and returns the resulting drag transition. A move that would not
// change the column returns nil.
func (b *Board) Move(issueID string, delta int) Sync {
	issue, ok := b.state.Get(issueID)
	if !ok {
		return nil
	}
	target := ColumnAt(ColumnIndex(issue.Status) + delta)
	if target == issue.Status {
		return nil
	}
	return b.DragEnd(DragEvent{IssueID: issueID, Over: string(target)})
}

// ColumnIndex returns the board position of status, or 0 if unknown.
func ColumnIndex(status model.Status) int {
	for i, s := range model.Statuses {
		if s == status {
			return i
		}
	}
	return 0
}

// ColumnAt returns the status of column i, clamped to the valid range.
func ColumnAt(i int) model.Status {
	if i < 0 {
		i = 0
	}
	if i >= len(model.Statuses) {
		i = len(model.Statuses) - 1
	}
	return model.Statuses[i]
}
