package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/bugtracker/internal/model"
)

func init() {
	rootCmd.AddCommand(projectsCmd)
	projectsCmd.AddCommand(projectsListCmd)
	projectsCmd.AddCommand(projectsAddCmd)
	projectsCmd.AddCommand(projectsRemoveCmd)

	projectsListCmd.Flags().StringP("output", "o", outputTable, "output format: table, json or yaml")
	projectsAddCmd.Flags().StringP("name", "n", "", "project name")
	projectsAddCmd.Flags().StringP("key", "k", "", "short project key, e.g. PAY")
	projectsAddCmd.Flags().String("id", "", "project id used by the API (generated when omitted)")
	projectsAddCmd.MarkFlagRequired("name")
	projectsAddCmd.MarkFlagRequired("key")
}

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "Manage the projects shown on the board",
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("output")
		if err := validateOutput(format); err != nil {
			return err
		}

		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		projects, err := e.store.GetProjects(context.Background())
		if err != nil {
			return err
		}
		if len(projects) == 0 && format == outputTable {
			fmt.Fprintln(cmd.OutOrStdout(), "No projects yet. Add one with 'bugtracker projects add'.")
			return nil
		}
		return writeProjects(cmd.OutOrStdout(), format, projects)
	},
}

var projectsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a project",
	Long: `Add a project. Pass --id to show issues that already exist on the
API under that project id; otherwise a new id is generated.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		key, _ := cmd.Flags().GetString("key")
		id, _ := cmd.Flags().GetString("id")

		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		p, err := e.store.CreateProject(context.Background(), model.Project{ID: id, Name: name, Key: key})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created project %s (id %s)\n", p.Label(), p.ID)
		return nil
	},
}

var projectsRemoveCmd = &cobra.Command{
	Use:   "remove <key>",
	Short: "Remove a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		p, err := e.projectByKey(args[0])
		if err != nil {
			return err
		}
		if err := e.store.DeleteProject(context.Background(), p.ID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed project %s\n", p.Label())
		return nil
	},
}
