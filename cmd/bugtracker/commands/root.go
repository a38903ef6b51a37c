package commands

import (
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nhle/bugtracker/internal/app"
	"github.com/nhle/bugtracker/internal/model"
)

var (
	cfgFile   string
	appConfig *model.AppConfig
	rootCmd   = &cobra.Command{
		Use:   "bugtracker",
		Short: "A terminal Kanban board for the bug tracker API",
		Long: `bugtracker shows the issues of the bug tracker API on a Kanban board
with one column per status. Cards are moved between columns with the
keyboard; the new status is shown at once and sent to the API in the
background.

Run without a subcommand to open the board.`,
		SilenceUsage: true,
		RunE:         runBoard,
	}
)

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.config/bugtracker/config.yaml)")
	rootCmd.PersistentFlags().String("api-url", "", "base URL of the issue API")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn or error")

	rootCmd.Flags().StringP("project", "p", "", "key of the project to open")

	// Bind flags to viper
	viper.BindPFlag("api.base_url", rootCmd.PersistentFlags().Lookup("api-url"))
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// initConfig reads the config file and environment, then points the
// logger at the log file.
func initConfig() {
	path := configPath()

	cfg, err := model.LoadConfig(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Flags win over file and environment.
	if v := viper.GetString("api.base_url"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := viper.GetString("log.level"); v != "" {
		cfg.Log.Level = v
	}

	if err := setupLogging(cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
		os.Exit(1)
	}
	log.WithField("config", path).Debug("configuration loaded")

	appConfig = cfg
}

// setupLogging sends JSON log lines to the configured file. The board owns
// the terminal, so nothing is logged to stderr.
func setupLogging(cfg model.LogConfig) error {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return err
	}

	log.SetOutput(f)
	log.SetFormatter(&log.JSONFormatter{})
	log.SetLevel(level)
	return nil
}

func runBoard(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	project, _ := cmd.Flags().GetString("project")

	m := app.New(app.Deps{
		Client:      e.client,
		Store:       e.store,
		Credentials: e.creds,
		Config:      e.cfg,
		Logger:      log.StandardLogger(),
		Project:     project,
	})

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running board: %w", err)
	}
	return nil
}
