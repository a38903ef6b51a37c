package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nhle/bugtracker/internal/api"
	"github.com/nhle/bugtracker/internal/session"
)

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(logoutCmd)

	for _, c := range []*cobra.Command{loginCmd, registerCmd} {
		c.Flags().StringP("email", "e", "", "account email")
		c.Flags().String("password", "", "account password (prompted when omitted)")
	}
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and store the access token in the system keyring",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, password, err := credentialsFromFlags(cmd)
		if err != nil {
			return err
		}

		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		tok, err := e.client.Login(context.Background(), email, password)
		if err != nil {
			log.WithError(err).Warn("login failed")
			return errors.New(api.DetailMessage(err, "Invalid credentials", "Invalid email or password"))
		}

		sess, err := session.New(tok.AccessToken, email, time.Now())
		if err != nil {
			return err
		}
		if err := e.creds.SaveSession(sess.Token, sess.User.Email); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", sess.User.Email)
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, password, err := credentialsFromFlags(cmd)
		if err != nil {
			return err
		}

		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		if err := e.client.Register(context.Background(), email, password); err != nil {
			log.WithError(err).Warn("registration failed")
			return errors.New(api.DetailMessage(err, "Validation error", "Failed to create account"))
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Account created successfully! Run 'bugtracker login' to sign in.")
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored access token and cached issues",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		if err := e.creds.Clear(); err != nil {
			return err
		}
		if err := e.store.ReplaceIssues(context.Background(), nil); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
		return nil
	},
}

// credentialsFromFlags reads --email and --password, prompting for
// whatever is missing.
func credentialsFromFlags(cmd *cobra.Command) (string, string, error) {
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")

	var fields []huh.Field
	if email == "" {
		fields = append(fields, huh.NewInput().
			Title("Email").
			Value(&email).
			Validate(func(s string) error {
				if !strings.Contains(s, "@") {
					return fmt.Errorf("Enter a valid email address")
				}
				return nil
			}))
	}
	if password == "" {
		fields = append(fields, huh.NewInput().
			Title("Password").
			EchoMode(huh.EchoModePassword).
			Value(&password))
	}
	if len(fields) > 0 {
		if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
			return "", "", err
		}
	}

	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return "", "", fmt.Errorf("email and password are required")
	}
	return email, password, nil
}
