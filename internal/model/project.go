package model

import (
	"fmt"
	"strings"
	"time"
)

// Project scopes which issues are shown on the board.
type Project struct {
	ID        string    `json:"id" yaml:"id" db:"id"`
	Name      string    `json:"name" yaml:"name" db:"name"`
	Key       string    `json:"key" yaml:"key" db:"key"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at" db:"created_at"`
}

// Label renders the project the way the selector shows it, e.g. "Payments (PAY)".
func (p Project) Label() string {
	return fmt.Sprintf("%s (%s)", p.Name, p.Key)
}

// NormalizeKey trims and upper-cases a project key.
func NormalizeKey(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}

// Validate checks that both name and key are present.
func (p Project) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("project name must not be empty")
	}
	if NormalizeKey(p.Key) == "" {
		return fmt.Errorf("project key must not be empty")
	}
	return nil
}
