package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/Warner231936/Requiem-AIweb/internal/api"
	"github.com/Warner231936/Requiem-AIweb/internal/config"
	"github.com/Warner231936/Requiem-AIweb/internal/credstore"
	"github.com/Warner231936/Requiem-AIweb/internal/dashboard"
	"github.com/Warner231936/Requiem-AIweb/internal/logging"
	"github.com/Warner231936/Requiem-AIweb/internal/session"
)

// NewStatusCommand creates the status command
func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the dashboard without the TUI",
		Long: `Fetches the profile, task progress, telemetry, and analytics for the
stored session and prints them in a non-interactive format.`,
		RunE: runStatus,
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	logging.Init(os.Stderr)

	cfg, warn := config.Load(configPath)
	if warn != "" {
		fmt.Fprintln(os.Stderr, "Warning:", warn)
	}

	client := api.NewClient(cfg.ResolveBaseURL())
	controller := session.NewController(credstore.New(), client)
	if !controller.Hydrate() {
		fmt.Println("Not logged in. Run `requiem` to sign in.")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result := controller.Bootstrap(ctx, controller.Generation(), cfg.Chat.HistoryLimit)
	if result.Err != nil {
		if errors.Is(result.Err, api.ErrSessionExpired) {
			controller.Teardown()
		}
		return fmt.Errorf("failed to fetch dashboard: %w", result.Err)
	}
	controller.ApplyBootstrap(result.Generation, result.Profile)

	dash := dashboard.New()
	dash.ApplyProgressSnapshot(result.Report)
	dash.ApplyHistory(result.History)

	profile, _ := controller.Profile()
	fmt.Printf("%s <%s>\n", profile.Username, profile.Email)
	fmt.Println()

	fmt.Println("Tasks:")
	fmt.Println("======")
	for _, task := range dash.Tasks() {
		fmt.Printf("  %-40s %3d%%\n", task.Name, task.Progress)
	}
	fmt.Printf("  %-40s %3d%%\n", "Overall", dash.Overall())
	fmt.Println()

	analytics := dash.Analytics()
	fmt.Println("Analytics:")
	fmt.Println("==========")
	fmt.Printf("  Complete: %d/%d  In progress: %d  Not started: %d\n",
		analytics.TasksCompleted, analytics.TasksTotal,
		analytics.TasksInProgress, analytics.TasksNotStarted)
	fmt.Printf("  Events: %d", analytics.EventsTotal)
	if analytics.LastEventAt != nil {
		fmt.Printf("  (latest %s)", analytics.LastEventAt.Local().Format("2006-01-02 15:04"))
	}
	fmt.Println()
	fmt.Printf("  Avg completion: %s\n", dashboard.FormatDuration(analytics.AverageCompletionSeconds))

	if len(analytics.EventsBySource) > 0 {
		sources := make([]string, 0, len(analytics.EventsBySource))
		for source := range analytics.EventsBySource {
			sources = append(sources, source)
		}
		sort.Strings(sources)
		fmt.Println("  By source:")
		for _, source := range sources {
			fmt.Printf("    %s: %d\n", source, analytics.EventsBySource[source])
		}
	}
	fmt.Println()

	messages := dash.Messages()
	fmt.Printf("Recent messages (%d):\n", len(messages))
	fmt.Println("====================")
	shown := messages
	if len(shown) > 5 {
		shown = shown[len(shown)-5:]
	}
	for _, msg := range shown {
		fmt.Printf("  [%s] %s: %s\n", msg.CreatedAt.Local().Format("01-02 15:04"), msg.Role, msg.Content)
	}
	return nil
}
