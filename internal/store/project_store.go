package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/bugtracker/internal/model"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// CreateProject inserts a new project and returns it with its id, key and
// creation time filled in. The key is stored upper-cased and must be unique.
func (s *SQLiteStore) CreateProject(
	ctx context.Context,
	project model.Project,
) (*model.Project, error) {
	project.Name = strings.TrimSpace(project.Name)
	project.Key = model.NormalizeKey(project.Key)
	if err := project.Validate(); err != nil {
		return nil, err
	}
	if project.ID == "" {
		project.ID = uuid.New().String()
	}
	project.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, key, created_at)
		VALUES (?, ?, ?, ?)`,
		project.ID, project.Name, project.Key, project.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating project %s: %w", project.Key, err)
	}
	return &project, nil
}

// DeleteProject removes a project. Cached issues are left alone; they are
// simply no longer visible.
func (s *SQLiteStore) DeleteProject(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting project %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetProjectByID retrieves a single project by ID.
func (s *SQLiteStore) GetProjectByID(
	ctx context.Context,
	id string,
) (*model.Project, error) {
	return s.getProject(ctx, "id", id)
}

// GetProjectByKey retrieves a single project by its key, case-insensitively.
func (s *SQLiteStore) GetProjectByKey(
	ctx context.Context,
	key string,
) (*model.Project, error) {
	return s.getProject(ctx, "key", model.NormalizeKey(key))
}

func (s *SQLiteStore) getProject(
	ctx context.Context,
	column, value string,
) (*model.Project, error) {
	var project model.Project
	err := s.db.GetContext(ctx, &project,
		"SELECT id, name, key, created_at FROM projects WHERE "+column+" = ?", value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %s: %w", value, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting project %s: %w", value, err)
	}
	return &project, nil
}

// GetProjects retrieves all projects in creation order.
func (s *SQLiteStore) GetProjects(ctx context.Context) ([]model.Project, error) {
	projects := []model.Project{}
	err := s.db.SelectContext(ctx, &projects,
		"SELECT id, name, key, created_at FROM projects ORDER BY created_at, name")
	if err != nil {
		return nil, fmt.Errorf("querying projects: %w", err)
	}
	return projects, nil
}
