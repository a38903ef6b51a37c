package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/nhle/bugtracker/internal/model"
)

// statusUpdate is the body of a status-only PATCH.
type statusUpdate struct {
	Status model.Status `json:"status"`
}

// FetchIssues returns every issue visible to the authenticated session.
func (c *Client) FetchIssues(ctx context.Context) ([]model.Issue, error) {
	var issues []model.Issue
	if err := c.get(ctx, "/issues", &issues); err != nil {
		return nil, fmt.Errorf("fetching issues: %w", err)
	}
	if issues == nil {
		issues = []model.Issue{}
	}
	return issues, nil
}

// UpdateIssueStatus sends a partial update carrying only the new status.
// The request is sent exactly once.
func (c *Client) UpdateIssueStatus(
	ctx context.Context,
	issueID string,
	status model.Status,
) (*model.Issue, error) {
	var issue model.Issue
	err := c.send(ctx, http.MethodPatch, issuePath(issueID), statusUpdate{Status: status}, &issue, 0)
	if err != nil {
		return nil, fmt.Errorf("updating status of issue %s: %w", issueID, err)
	}
	return &issue, nil
}

// CreateIssue creates an issue; the API assigns its id.
func (c *Client) CreateIssue(
	ctx context.Context,
	in model.CreateIssueInput,
) (*model.Issue, error) {
	var issue model.Issue
	if err := c.post(ctx, "/issues", in, &issue); err != nil {
		return nil, fmt.Errorf("creating issue: %w", err)
	}
	return &issue, nil
}

// UpdateIssue sends a partial update of arbitrary issue fields.
func (c *Client) UpdateIssue(
	ctx context.Context,
	issueID string,
	patch model.IssuePatch,
) (*model.Issue, error) {
	var issue model.Issue
	if err := c.patch(ctx, issuePath(issueID), patch, &issue); err != nil {
		return nil, fmt.Errorf("updating issue %s: %w", issueID, err)
	}
	return &issue, nil
}

func issuePath(id string) string {
	return "/issues/" + url.PathEscape(id)
}
