package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/bugtracker/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// A single connection keeps ":memory:" databases alive across calls.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

const issueColumns = "id, title, status, priority, description, project_id, assignee_id"

// ReplaceIssues swaps the whole snapshot for issues, keeping their order.
func (s *SQLiteStore) ReplaceIssues(ctx context.Context, issues []model.Issue) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM issues"); err != nil {
		return fmt.Errorf("clearing issue snapshot: %w", err)
	}

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO issues (`+issueColumns+`, position, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for i, issue := range issues {
		_, err := stmt.ExecContext(ctx,
			issue.ID, issue.Title, string(issue.Status), issue.Priority,
			issue.Description, issue.ProjectID, issue.AssigneeID,
			i, now,
		)
		if err != nil {
			return fmt.Errorf("inserting issue %s: %w", issue.ID, err)
		}
	}

	return tx.Commit()
}

// UpsertIssue writes one issue into the snapshot. A new issue goes after
// all existing ones; an existing issue keeps its position.
func (s *SQLiteStore) UpsertIssue(ctx context.Context, issue model.Issue) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO issues (`+issueColumns+`, position, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?,
			(SELECT COALESCE(MAX(position), -1) + 1 FROM issues), ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			status = excluded.status,
			priority = excluded.priority,
			description = excluded.description,
			project_id = excluded.project_id,
			assignee_id = excluded.assignee_id`,
		issue.ID, issue.Title, string(issue.Status), issue.Priority,
		issue.Description, issue.ProjectID, issue.AssigneeID,
		time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("upserting issue %s: %w", issue.ID, err)
	}
	return nil
}

// GetIssues returns the cached issues in fetch order. An empty projectID
// returns every project's issues.
func (s *SQLiteStore) GetIssues(ctx context.Context, projectID string) ([]model.Issue, error) {
	query := "SELECT " + issueColumns + " FROM issues"
	var args []interface{}
	if projectID != "" {
		query += " WHERE project_id = ?"
		args = append(args, projectID)
	}
	query += " ORDER BY position"

	issues := []model.Issue{}
	if err := s.db.SelectContext(ctx, &issues, query, args...); err != nil {
		return nil, fmt.Errorf("querying issues: %w", err)
	}
	return issues, nil
}

// LastFetched returns when the snapshot was last written, or the zero time
// if it is empty.
func (s *SQLiteStore) LastFetched(ctx context.Context) (time.Time, error) {
	var unix int64
	err := s.db.GetContext(ctx, &unix, "SELECT COALESCE(MAX(fetched_at), 0) FROM issues")
	if err != nil {
		return time.Time{}, fmt.Errorf("reading snapshot time: %w", err)
	}
	if unix == 0 {
		return time.Time{}, nil
	}
	return time.Unix(unix, 0), nil
}
