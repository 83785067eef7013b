package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Warner231936/Requiem-AIweb/internal/api"
	"github.com/Warner231936/Requiem-AIweb/internal/session"
	"github.com/Warner231936/Requiem-AIweb/pkg/models"
)

// Message types for async operations
type (
	// LoginResultMsg carries the outcome of a login attempt
	LoginResultMsg struct {
		Token string
		Err   error
	}

	// SignupResultMsg carries the outcome of a signup (plus implicit login)
	SignupResultMsg struct {
		Token string
		Err   error
	}

	// BootstrapMsg carries the combined result of the three bootstrap fetches
	BootstrapMsg struct {
		Result session.BootstrapResult
	}

	// SendResultMsg carries the new messages a chat send produced
	SendResultMsg struct {
		Generation uint64
		Messages   []models.ChatMessage
		Err        error
	}

	// ProgressRefreshedMsg carries a fresh progress snapshot
	ProgressRefreshedMsg struct {
		Generation uint64
		Report     models.ProgressReport
		Err        error
	}

	// TickMsg is sent periodically for spinner animation
	TickMsg time.Time
)

// Commands for async operations

// loginCmd submits credentials asynchronously
func loginCmd(ctx context.Context, client *api.Client, username, password string) tea.Cmd {
	return func() tea.Msg {
		token, err := client.Login(ctx, username, password)
		return LoginResultMsg{Token: token, Err: err}
	}
}

// signupCmd registers an account; success includes the implicit login token
func signupCmd(ctx context.Context, client *api.Client, username, email, password string) tea.Cmd {
	return func() tea.Msg {
		token, err := client.Signup(ctx, username, email, password, "", nil)
		return SignupResultMsg{Token: token, Err: err}
	}
}

// bootstrapCmd runs the three-way fetch for the given session generation
func bootstrapCmd(ctx context.Context, controller *session.Controller, gen uint64, historyLimit int) tea.Cmd {
	return func() tea.Msg {
		return BootstrapMsg{Result: controller.Bootstrap(ctx, gen, historyLimit)}
	}
}

// sendMessageCmd posts a chat message asynchronously
func sendMessageCmd(ctx context.Context, client *api.Client, gen uint64, content string) tea.Cmd {
	return func() tea.Msg {
		messages, err := client.PostMessage(ctx, content)
		return SendResultMsg{Generation: gen, Messages: messages, Err: err}
	}
}

// refreshProgressCmd fetches a fresh progress snapshot, issued after a send
// because a message may change task state server-side
func refreshProgressCmd(ctx context.Context, client *api.Client, gen uint64) tea.Cmd {
	return func() tea.Msg {
		report, err := client.FetchProgress(ctx)
		return ProgressRefreshedMsg{Generation: gen, Report: report, Err: err}
	}
}

// tickCmd creates a ticker for spinner animation
func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
