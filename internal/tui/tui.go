package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Warner231936/Requiem-AIweb/internal/api"
	"github.com/Warner231936/Requiem-AIweb/internal/config"
	"github.com/Warner231936/Requiem-AIweb/internal/dashboard"
	"github.com/Warner231936/Requiem-AIweb/internal/session"
)

type viewMode int

const (
	authView viewMode = iota
	dashboardView
)

type authFormMode int

const (
	loginForm authFormMode = iota
	signupForm
)

// Indexes into model.inputs
const (
	fieldUsername = iota
	fieldEmail
	fieldPassword
	fieldConfirm
	fieldCount
)

type model struct {
	cfg        *config.Config
	configWarn string
	controller *session.Controller
	client     *api.Client
	dash       *dashboard.Dashboard
	ctx        context.Context

	mode viewMode

	// auth form
	formMode   authFormMode
	inputs     []textinput.Model
	focusIndex int
	authBusy   bool
	authErr    string
	notice     string

	// dashboard
	chatViewport     viewport.Model
	progressViewport viewport.Model
	composer         textinput.Model
	sending          bool
	refreshing       bool
	bootstrapErr     string
	actionErr        string

	indicator *LoadingIndicator
	ready     bool
	width     int
	height    int
}

func initialModel(cfg *config.Config, configWarn string, controller *session.Controller, client *api.Client, dash *dashboard.Dashboard) model {
	inputs := make([]textinput.Model, fieldCount)
	for i := range inputs {
		inputs[i] = textinput.New()
		inputs[i].CharLimit = 128
	}
	inputs[fieldUsername].Placeholder = "username"
	inputs[fieldEmail].Placeholder = "email"
	inputs[fieldPassword].Placeholder = "password"
	inputs[fieldPassword].EchoMode = textinput.EchoPassword
	inputs[fieldConfirm].Placeholder = "confirm password"
	inputs[fieldConfirm].EchoMode = textinput.EchoPassword
	inputs[fieldUsername].Focus()

	composer := textinput.New()
	composer.Placeholder = "Speak to the sleepless intelligence..."
	composer.CharLimit = 2000

	m := model{
		cfg:        cfg,
		configWarn: configWarn,
		controller: controller,
		client:     client,
		dash:       dash,
		ctx:        context.Background(),
		mode:       authView,
		inputs:     inputs,
		composer:   composer,
		indicator:  NewLoadingIndicator("Refreshing the astral data..."),
	}
	if controller.State() != session.StateAnonymous {
		m.mode = dashboardView
		m.composer.Focus()
	}
	return m
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink}
	if m.controller.State() == session.StateBootstrapping {
		cmds = append(cmds,
			bootstrapCmd(m.ctx, m.controller, m.controller.Generation(), m.cfg.Chat.HistoryLimit),
			tickCmd(),
		)
	}
	return tea.Batch(cmds...)
}

// visibleFields lists the input indexes the current auth form shows
func (m model) visibleFields() []int {
	if m.formMode == signupForm {
		return []int{fieldUsername, fieldEmail, fieldPassword, fieldConfirm}
	}
	return []int{fieldUsername, fieldPassword}
}

func (m model) busy() bool {
	return m.authBusy || m.sending || m.refreshing ||
		m.controller.State() == session.StateBootstrapping
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layoutViewports()
		m.ready = true
		m.refreshViewports()
		return m, nil

	case TickMsg:
		if m.busy() {
			m.indicator.Tick()
			return m, tickCmd()
		}
		return m, nil

	case LoginResultMsg:
		return m.handleAuthResult(msg.Token, msg.Err)

	case SignupResultMsg:
		return m.handleAuthResult(msg.Token, msg.Err)

	case BootstrapMsg:
		return m.handleBootstrap(msg.Result)

	case SendResultMsg:
		return m.handleSendResult(msg)

	case ProgressRefreshedMsg:
		return m.handleProgressRefreshed(msg)

	case tea.KeyMsg:
		if m.mode == authView {
			return m.updateAuthKeys(msg)
		}
		return m.updateDashboardKeys(msg)
	}

	if m.mode == dashboardView {
		var cmd tea.Cmd
		m.chatViewport, cmd = m.chatViewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *model) layoutViewports() {
	// header takes three rows, composer and footer one each
	bodyHeight := m.height - 5
	if bodyHeight < 3 {
		bodyHeight = 3
	}
	chatWidth := m.width * 2 / 3
	progressWidth := m.width - chatWidth - 1
	if !m.ready {
		m.chatViewport = viewport.New(chatWidth, bodyHeight)
		m.progressViewport = viewport.New(progressWidth, bodyHeight)
		return
	}
	m.chatViewport.Width = chatWidth
	m.chatViewport.Height = bodyHeight
	m.progressViewport.Width = progressWidth
	m.progressViewport.Height = bodyHeight
}

func (m *model) refreshViewports() {
	if !m.ready || m.mode != dashboardView {
		return
	}
	m.chatViewport.SetContent(m.renderChat())
	m.chatViewport.GotoBottom()
	m.progressViewport.SetContent(m.renderProgress())
}

func (m model) updateAuthKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	fields := m.visibleFields()

	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "ctrl+t":
		if m.formMode == loginForm {
			m.formMode = signupForm
		} else {
			m.formMode = loginForm
		}
		m.authErr = ""
		m.focusIndex = 0
		for i := range m.inputs {
			m.inputs[i].SetValue("")
			m.inputs[i].Blur()
		}
		m.inputs[fieldUsername].Focus()
		return m, nil

	case "tab", "down":
		return m.moveFocus(fields, 1)

	case "shift+tab", "up":
		return m.moveFocus(fields, -1)

	case "enter":
		return m.submitAuth()
	}

	var cmd tea.Cmd
	focused := fields[m.focusIndex]
	m.inputs[focused], cmd = m.inputs[focused].Update(msg)
	return m, cmd
}

func (m model) moveFocus(fields []int, delta int) (tea.Model, tea.Cmd) {
	m.inputs[fields[m.focusIndex]].Blur()
	m.focusIndex = (m.focusIndex + delta + len(fields)) % len(fields)
	return m, m.inputs[fields[m.focusIndex]].Focus()
}

func (m model) submitAuth() (tea.Model, tea.Cmd) {
	if m.authBusy {
		return m, nil
	}
	username := strings.TrimSpace(m.inputs[fieldUsername].Value())
	password := m.inputs[fieldPassword].Value()
	if username == "" || password == "" {
		m.authErr = "Username and password are required."
		return m, nil
	}

	if m.formMode == signupForm {
		email := strings.TrimSpace(m.inputs[fieldEmail].Value())
		if email == "" {
			m.authErr = "Email is required."
			return m, nil
		}
		if password != m.inputs[fieldConfirm].Value() {
			m.authErr = "Passwords do not match."
			return m, nil
		}
		m.authBusy = true
		m.authErr = ""
		m.indicator.SetMessage("Creating your account...")
		return m, tea.Batch(signupCmd(m.ctx, m.client, username, email, password), tickCmd())
	}

	m.authBusy = true
	m.authErr = ""
	m.indicator.SetMessage("Signing in...")
	return m, tea.Batch(loginCmd(m.ctx, m.client, username, password), tickCmd())
}

func (m model) handleAuthResult(token string, err error) (tea.Model, tea.Cmd) {
	m.authBusy = false
	if err != nil {
		m.authErr = err.Error()
		return m, nil
	}

	gen := m.controller.Establish(token)
	m.authErr = ""
	m.notice = ""
	m.bootstrapErr = ""
	m.mode = dashboardView
	m.composer.Focus()
	m.indicator.SetMessage("Refreshing the astral data...")
	m.refreshViewports()
	return m, tea.Batch(bootstrapCmd(m.ctx, m.controller, gen, m.cfg.Chat.HistoryLimit), tickCmd())
}

func (m model) handleBootstrap(result session.BootstrapResult) (tea.Model, tea.Cmd) {
	if !m.controller.Accept(result.Generation) {
		// Stale bootstrap: the session changed while it was in flight
		return m, nil
	}

	if result.Err != nil {
		if errors.Is(result.Err, api.ErrSessionExpired) {
			return m.expireSession(result.Err), nil
		}
		// The session survives a failed bootstrap; leaving the busy state
		// stops the spinner so the error stays visible until a retry.
		m.controller.FailBootstrap(result.Generation)
		m.bootstrapErr = result.Err.Error()
		m.refreshViewports()
		return m, nil
	}

	if !m.controller.ApplyBootstrap(result.Generation, result.Profile) {
		return m, nil
	}
	m.dash.ApplyProgressSnapshot(result.Report)
	m.dash.ApplyHistory(result.History)
	m.bootstrapErr = ""
	m.refreshViewports()
	return m, nil
}

func (m model) handleSendResult(msg SendResultMsg) (tea.Model, tea.Cmd) {
	m.sending = false
	if !m.controller.Accept(msg.Generation) {
		return m, nil
	}

	if msg.Err != nil {
		if errors.Is(msg.Err, api.ErrSessionExpired) {
			return m.expireSession(msg.Err), nil
		}
		m.actionErr = msg.Err.Error()
		return m, nil
	}

	m.actionErr = ""
	m.dash.AppendSendResult(msg.Messages)
	m.composer.SetValue("")
	m.refreshViewports()

	// A message may advance task state server-side: re-sync, never infer.
	m.refreshing = true
	return m, tea.Batch(refreshProgressCmd(m.ctx, m.client, msg.Generation), tickCmd())
}

func (m model) handleProgressRefreshed(msg ProgressRefreshedMsg) (tea.Model, tea.Cmd) {
	m.refreshing = false
	if !m.controller.Accept(msg.Generation) {
		return m, nil
	}

	if msg.Err != nil {
		if errors.Is(msg.Err, api.ErrSessionExpired) {
			return m.expireSession(msg.Err), nil
		}
		m.actionErr = msg.Err.Error()
		return m, nil
	}

	m.dash.ApplyProgressSnapshot(msg.Report)
	m.refreshViewports()
	return m, nil
}

// expireSession tears everything down and returns to the auth view with a
// one-time notice.
func (m model) expireSession(err error) model {
	m.controller.Teardown()
	m.dash.Reset()
	m.mode = authView
	m.notice = err.Error()
	m.sending = false
	m.refreshing = false
	m.bootstrapErr = ""
	m.actionErr = ""
	m.focusIndex = 0
	for i := range m.inputs {
		m.inputs[i].SetValue("")
		m.inputs[i].Blur()
	}
	m.inputs[fieldUsername].Focus()
	m.composer.Blur()
	m.composer.SetValue("")
	return m
}

func (m model) updateDashboardKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "ctrl+l":
		m.controller.Teardown()
		m.dash.Reset()
		m = m.expireLocal()
		return m, nil

	case "ctrl+r":
		if m.controller.State() != session.StateActive || m.refreshing {
			return m, nil
		}
		if _, ok := m.controller.Profile(); !ok {
			// No profile means the bootstrap never succeeded: reissue the
			// whole thing rather than refreshing a dashboard that was
			// never populated.
			gen := m.controller.RetryBootstrap()
			m.bootstrapErr = ""
			m.indicator.SetMessage("Refreshing the astral data...")
			return m, tea.Batch(bootstrapCmd(m.ctx, m.controller, gen, m.cfg.Chat.HistoryLimit), tickCmd())
		}
		m.refreshing = true
		return m, tea.Batch(refreshProgressCmd(m.ctx, m.client, m.controller.Generation()), tickCmd())

	case "pgup":
		m.chatViewport.LineUp(3)
		return m, nil

	case "pgdown":
		m.chatViewport.LineDown(3)
		return m, nil

	case "enter":
		content := strings.TrimSpace(m.composer.Value())
		if content == "" || m.sending || m.controller.State() != session.StateActive {
			return m, nil
		}
		m.sending = true
		m.indicator.SetMessage("Sending...")
		return m, tea.Batch(sendMessageCmd(m.ctx, m.client, m.controller.Generation(), content), tickCmd())
	}

	var cmd tea.Cmd
	m.composer, cmd = m.composer.Update(msg)
	return m, cmd
}

// expireLocal resets the UI after an explicit logout (the controller has
// already been torn down).
func (m model) expireLocal() model {
	m.mode = authView
	m.notice = ""
	m.sending = false
	m.refreshing = false
	m.bootstrapErr = ""
	m.actionErr = ""
	m.focusIndex = 0
	for i := range m.inputs {
		m.inputs[i].SetValue("")
		m.inputs[i].Blur()
	}
	m.inputs[fieldUsername].Focus()
	m.composer.Blur()
	m.composer.SetValue("")
	return m
}

// Run starts the TUI program.
func Run(cfg *config.Config, configWarn string, controller *session.Controller, client *api.Client, dash *dashboard.Dashboard) error {
	p := tea.NewProgram(
		initialModel(cfg, configWarn, controller, client, dash),
		tea.WithAltScreen(),
	)
	_, err := p.Run()
	return err
}
