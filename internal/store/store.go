package store

import (
	"context"
	"time"

	"github.com/nhle/bugtracker/internal/model"
)

// Store defines the local persistence interface: projects managed on this
// machine and a snapshot of the last issue list fetched from the API.
type Store interface {
	// === Projects ===

	CreateProject(ctx context.Context, project model.Project) (*model.Project, error)
	DeleteProject(ctx context.Context, id string) error
	GetProjectByID(ctx context.Context, id string) (*model.Project, error)
	GetProjectByKey(ctx context.Context, key string) (*model.Project, error)
	GetProjects(ctx context.Context) ([]model.Project, error)

	// === Issue snapshot ===

	ReplaceIssues(ctx context.Context, issues []model.Issue) error
	UpsertIssue(ctx context.Context, issue model.Issue) error
	GetIssues(ctx context.Context, projectID string) ([]model.Issue, error)
	LastFetched(ctx context.Context) (time.Time, error)
}
