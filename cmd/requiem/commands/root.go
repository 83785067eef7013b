package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Warner231936/Requiem-AIweb/internal/api"
	"github.com/Warner231936/Requiem-AIweb/internal/config"
	"github.com/Warner231936/Requiem-AIweb/internal/credstore"
	"github.com/Warner231936/Requiem-AIweb/internal/dashboard"
	"github.com/Warner231936/Requiem-AIweb/internal/logging"
	"github.com/Warner231936/Requiem-AIweb/internal/session"
	"github.com/Warner231936/Requiem-AIweb/internal/tui"
)

var configPath string

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "requiem",
		Short: "Terminal dashboard for the Requiem assistant",
		Long: `requiem is a terminal client for the Requiem assistant backend:
chat with the assistant while watching task progress, live telemetry,
and derived analytics side by side.`,
		RunE: runTUI,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to settings.json (default: config/settings.json, then ~/.requiem/settings.json)")
	rootCmd.AddCommand(NewStatusCommand())
	rootCmd.AddCommand(NewLogoutCommand())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runTUI(cmd *cobra.Command, args []string) error {
	logFile, _ := logging.InitFile()
	if logFile != nil {
		defer logFile.Close()
	}

	cfg, warn := config.Load(configPath)
	client := api.NewClient(cfg.ResolveBaseURL())
	controller := session.NewController(credstore.New(), client)
	dash := dashboard.New()

	controller.Hydrate()

	if err := tui.Run(cfg, warn, controller, client, dash); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
