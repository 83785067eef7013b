package session

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Warner231936/Requiem-AIweb/pkg/models"
)

// BootstrapResult carries everything the three concurrent fetches produced,
// stamped with the session generation the bootstrap was issued for.
type BootstrapResult struct {
	Generation uint64
	Profile    models.UserProfile
	Report     models.ProgressReport
	History    []models.ChatMessage
	Err        error
}

// Bootstrap fetches profile, progress, and chat history concurrently. The
// three calls settle together: if any fails the bootstrap as a whole fails
// and the first error is reported (fail-fast, not partial success). Safe to
// run off the program loop; it only reads the gateway.
func (c *Controller) Bootstrap(ctx context.Context, gen uint64, historyLimit int) BootstrapResult {
	requestID := uuid.New().String()
	slog.Info("bootstrap started", "request_id", requestID, "generation", gen)

	result := BootstrapResult{Generation: gen}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		profile, err := c.client.FetchProfile(ctx)
		if err != nil {
			return err
		}
		result.Profile = profile
		return nil
	})
	g.Go(func() error {
		report, err := c.client.FetchProgress(ctx)
		if err != nil {
			return err
		}
		result.Report = report
		return nil
	})
	g.Go(func() error {
		history, err := c.client.FetchChatHistory(ctx, historyLimit)
		if err != nil {
			return err
		}
		result.History = history
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Warn("bootstrap failed", "request_id", requestID, "generation", gen, "error", err)
		result.Err = err
		return result
	}

	slog.Info("bootstrap completed", "request_id", requestID, "generation", gen,
		"tasks", len(result.Report.Tasks), "messages", len(result.History))
	return result
}
