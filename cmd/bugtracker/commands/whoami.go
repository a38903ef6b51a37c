package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(whoamiCmd)
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Display the signed-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		sess, err := e.authenticate()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Logged in as: %s\n", sess.User.Email)
		fmt.Fprintf(out, "Name: %s\n", sess.User.Name)
		fmt.Fprintf(out, "User id: %s\n", sess.User.ID)
		if !sess.ExpiresAt.IsZero() {
			fmt.Fprintf(out, "Token expires: %s\n", sess.ExpiresAt.Local().Format("2006-01-02 15:04"))
		}
		fmt.Fprintf(out, "API: %s\n", e.client.BaseURL())
		return nil
	},
}
