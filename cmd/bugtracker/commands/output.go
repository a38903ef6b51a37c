package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"

	"github.com/nhle/bugtracker/internal/model"
)

// Output formats accepted by --output.
const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

func validateOutput(format string) error {
	switch format {
	case outputTable, outputJSON, outputYAML:
		return nil
	}
	return fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
}

// encode writes v as JSON or YAML.
func encode(w io.Writer, format string, v interface{}) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(v)
	}
	return fmt.Errorf("unknown output format %q", format)
}

func renderTable(w io.Writer, headers []string, rows [][]string) error {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...)
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// writeIssues prints issues in the given format. Table output resolves
// project keys and assignee names.
func writeIssues(
	w io.Writer,
	format string,
	issues []model.Issue,
	projects []model.Project,
	users []model.User,
) error {
	if format != outputTable {
		if issues == nil {
			issues = []model.Issue{}
		}
		return encode(w, format, issues)
	}

	keys := make(map[string]string, len(projects))
	for _, p := range projects {
		keys[p.ID] = p.Key
	}

	rows := make([][]string, 0, len(issues))
	for _, issue := range issues {
		project := keys[issue.ProjectID]
		if project == "" {
			project = issue.ProjectID
		}
		assignee := "Unassigned"
		if id := issue.Assignee(); id != "" {
			assignee = id
			if u, ok := model.FindUser(users, id); ok {
				assignee = u.Name
			}
		}
		rows = append(rows, []string{
			issue.ID, project, issue.Status.Title(), issue.Priority, assignee, issue.Title,
		})
	}
	return renderTable(w, []string{"ID", "PROJECT", "STATUS", "PRIORITY", "ASSIGNEE", "TITLE"}, rows)
}

// writeProjects prints projects in the given format.
func writeProjects(w io.Writer, format string, projects []model.Project) error {
	if format != outputTable {
		if projects == nil {
			projects = []model.Project{}
		}
		return encode(w, format, projects)
	}

	rows := make([][]string, 0, len(projects))
	for _, p := range projects {
		rows = append(rows, []string{p.Key, p.Name, p.CreatedAt.Local().Format("2006-01-02")})
	}
	return renderTable(w, []string{"KEY", "NAME", "CREATED"}, rows)
}
