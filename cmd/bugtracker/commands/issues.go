package commands

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nhle/bugtracker/internal/board"
	"github.com/nhle/bugtracker/internal/model"
	appsync "github.com/nhle/bugtracker/internal/sync"
)

func init() {
	rootCmd.AddCommand(issuesCmd)
	issuesCmd.AddCommand(issuesListCmd)
	issuesCmd.AddCommand(issuesMoveCmd)

	issuesListCmd.Flags().StringP("project", "p", "", "only show issues of the project with this key")
	issuesListCmd.Flags().StringP("output", "o", outputTable, "output format: table, json or yaml")
	issuesListCmd.Flags().Bool("offline", false, "read the issues cached by the last fetch")
}

var issuesCmd = &cobra.Command{
	Use:   "issues",
	Short: "List and move issues",
}

var issuesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List issues",
	Long: `List issues from the API, or from the local cache with --offline.
A successful fetch also refreshes the cache used by the board at startup.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("output")
		if err := validateOutput(format); err != nil {
			return err
		}
		projectKey, _ := cmd.Flags().GetString("project")
		offline, _ := cmd.Flags().GetBool("offline")

		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		project, err := e.projectByKey(projectKey)
		if err != nil {
			return err
		}

		ctx := context.Background()
		var issues []model.Issue
		if offline {
			projectID := ""
			if project != nil {
				projectID = project.ID
			}
			issues, err = e.store.GetIssues(ctx, projectID)
			if err != nil {
				return err
			}
		} else {
			if _, err := e.authenticate(); err != nil {
				return err
			}
			poller := appsync.New(e.client, e.store, 0, log.StandardLogger())
			fetched, err := poller.Fetch(ctx)
			if err != nil {
				return err
			}
			issues = fetched
			if project != nil {
				issues = board.NewState(fetched).Visible(project.ID)
			}
		}

		projects, err := e.store.GetProjects(ctx)
		if err != nil {
			return err
		}
		return writeIssues(cmd.OutOrStdout(), format, issues, projects, e.cfg.Users)
	},
}

var issuesMoveCmd = &cobra.Command{
	Use:   "move <issue-id> <status>",
	Short: "Move an issue to another column",
	Long: `Move an issue to the column of the given status: backlog, todo,
inprogress (or "in progress") or done. Only the status is sent to the API.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := model.ParseStatus(args[1])
		if err != nil {
			return err
		}

		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		if _, err := e.authenticate(); err != nil {
			return err
		}

		ctx := context.Background()
		issue, err := moveIssue(ctx, e.client, args[0], status, log.StandardLogger())
		if err != nil {
			return err
		}
		if err := e.store.UpsertIssue(ctx, *issue); err != nil {
			log.WithError(err).Warn("failed to cache moved issue")
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Moved %s to %s\n", issue.ID, issue.Status.Title())
		return nil
	},
}

// issueMover loads the board and sends status updates. *api.Client
// satisfies it.
type issueMover interface {
	appsync.IssueFetcher
	board.StatusUpdater
}

// moveIssue performs a board drop of id onto the status column, then waits
// for the remote update so the command can report its outcome.
func moveIssue(
	ctx context.Context,
	client issueMover,
	id string,
	status model.Status,
	logger log.FieldLogger,
) (*model.Issue, error) {
	issues, err := client.FetchIssues(ctx)
	if err != nil {
		return nil, err
	}

	b := board.New(client, logger)
	b.Load(issues)

	push := b.DragEnd(board.DragEvent{IssueID: id, Over: string(status)})
	if push == nil {
		return nil, fmt.Errorf("issue %s not found", id)
	}
	if err := push(ctx); err != nil {
		return nil, err
	}

	moved, _ := b.State().Get(id)
	return &moved, nil
}
