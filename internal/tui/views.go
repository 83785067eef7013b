package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/Warner231936/Requiem-AIweb/internal/dashboard"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("63"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("229"))

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203"))

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("215"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	focusedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Bold(true)

	userBubbleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("183"))

	assistantBubbleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252"))
)

func (m model) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}
	if m.mode == authView {
		return m.renderAuth()
	}
	return m.renderDashboard()
}

func (m model) renderAuth() string {
	var s strings.Builder

	s.WriteString("\n")
	s.WriteString("  " + titleStyle.Render(" "+m.cfg.Frontend.Title+" ") + "\n")
	s.WriteString("  " + subtitleStyle.Render(m.cfg.Frontend.Subtitle) + "\n\n")

	modeLabel := "Login"
	if m.formMode == signupForm {
		modeLabel = "Sign Up"
	}
	s.WriteString("  " + headerStyle.Render(modeLabel) + dimStyle.Render("  (ctrl+t to switch)") + "\n\n")

	fields := m.visibleFields()
	for i, field := range fields {
		cursor := "  "
		style := labelStyle
		if i == m.focusIndex {
			cursor = "> "
			style = focusedStyle
		}
		s.WriteString("  " + style.Render(cursor) + m.inputs[field].View() + "\n")
	}

	s.WriteString("\n")
	if m.authBusy {
		s.WriteString("  " + m.indicator.View() + "\n")
	}
	if m.authErr != "" {
		s.WriteString("  " + errorStyle.Render(m.authErr) + "\n")
	}
	if m.notice != "" {
		s.WriteString("  " + noticeStyle.Render(m.notice) + "\n")
	}
	if m.configWarn != "" {
		s.WriteString("  " + dimStyle.Render(m.configWarn) + "\n")
	}

	s.WriteString("\n  " + dimStyle.Render("enter: submit • tab: next field • ctrl+c: quit"))
	return s.String()
}

func (m model) renderDashboard() string {
	header := m.renderHeader()
	body := m.renderSplitView()
	composer := "  " + m.composer.View()
	footer := dimStyle.Render("  enter: send • ctrl+r: refresh • ctrl+l: log out • pgup/pgdn: scroll • ctrl+c: quit")

	return fmt.Sprintf("%s\n%s\n%s\n%s", header, body, composer, footer)
}

func (m model) renderHeader() string {
	title := titleStyle.Render(" " + m.cfg.Frontend.Title + " ")

	var who string
	if profile, ok := m.controller.Profile(); ok {
		who = subtitleStyle.Render(fmt.Sprintf("%s • %s", profile.Username, profile.Email))
	} else {
		who = subtitleStyle.Render(m.cfg.Frontend.Subtitle)
	}

	status := ""
	switch {
	case m.busy():
		status = m.indicator.View()
	case m.bootstrapErr != "":
		status = errorStyle.Render(m.bootstrapErr)
	case m.actionErr != "":
		status = errorStyle.Render(m.actionErr)
	case m.configWarn != "":
		status = dimStyle.Render(m.configWarn)
	}

	return fmt.Sprintf("%s  %s\n%s", title, who, status)
}

func (m model) renderSplitView() string {
	leftStyle := lipgloss.NewStyle().
		Width(m.chatViewport.Width).
		Height(m.chatViewport.Height)

	rightStyle := lipgloss.NewStyle().
		Width(m.progressViewport.Width).
		Height(m.progressViewport.Height)

	dividerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("238"))

	divider := strings.Builder{}
	for i := 0; i < m.chatViewport.Height; i++ {
		divider.WriteString("│")
		if i < m.chatViewport.Height-1 {
			divider.WriteString("\n")
		}
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		leftStyle.Render(m.chatViewport.View()),
		dividerStyle.Render(divider.String()),
		rightStyle.Render(m.progressViewport.View()),
	)
}

func (m model) renderChat() string {
	var s strings.Builder

	s.WriteString(headerStyle.Render("Conversation") + "\n")
	s.WriteString(strings.Repeat("─", max(10, m.chatViewport.Width-2)) + "\n\n")

	messages := m.dash.Messages()
	if len(messages) == 0 {
		s.WriteString(dimStyle.Render("Awaiting your first whisper to awaken Requiem..."))
		return s.String()
	}

	wrapWidth := m.chatViewport.Width - 6
	if wrapWidth < 20 {
		wrapWidth = 20
	}

	for i, msg := range messages {
		style := assistantBubbleStyle
		label := msg.Role
		if msg.Role == "user" {
			style = userBubbleStyle
		}
		s.WriteString(dimStyle.Render(fmt.Sprintf("%s • %s", label, msg.CreatedAt.Local().Format("01-02 15:04"))) + "\n")
		for _, line := range wrapText(msg.Content, wrapWidth) {
			s.WriteString("  " + style.Render(line) + "\n")
		}
		if i < len(messages)-1 {
			s.WriteString("\n")
		}
	}
	return s.String()
}

func (m model) renderProgress() string {
	var s strings.Builder
	width := m.progressViewport.Width

	barWidth := width - 4
	if barWidth < 10 {
		barWidth = 10
	}

	s.WriteString(headerStyle.Render("Task Progress") + "\n")
	s.WriteString(strings.Repeat("─", max(10, width-2)) + "\n\n")

	for _, task := range m.dash.Tasks() {
		s.WriteString(labelStyle.Render(fmt.Sprintf("%s  %d%%", task.Name, task.Progress)) + "\n")
		s.WriteString(renderProgressBar(float64(task.Progress), barWidth) + "\n\n")
	}

	s.WriteString(labelStyle.Render(fmt.Sprintf("Overall  %d%%", m.dash.Overall())) + "\n")
	s.WriteString(renderProgressBar(float64(m.dash.Overall()), barWidth) + "\n\n")

	s.WriteString(headerStyle.Render("Live Task Telemetry") + "\n")
	recent := m.dash.RecentEvents(5)
	if len(recent) == 0 {
		s.WriteString(dimStyle.Render("Awaiting inbound progress signals...") + "\n")
	}
	for _, event := range recent {
		s.WriteString(labelStyle.Render(fmt.Sprintf("%s  %d%%", event.TaskName, event.Progress)) + "\n")
		if event.Note != nil && *event.Note != "" {
			s.WriteString("  " + dimStyle.Render(*event.Note) + "\n")
		}
		s.WriteString("  " + dimStyle.Render(fmt.Sprintf("%s • %s", event.CreatedAt.Local().Format("01-02 15:04"), event.Source)) + "\n")
	}
	s.WriteString("\n")

	s.WriteString(m.renderAnalytics())
	return s.String()
}

func (m model) renderAnalytics() string {
	var s strings.Builder
	analytics := m.dash.Analytics()

	s.WriteString(headerStyle.Render("Operations Analytics") + "\n")
	s.WriteString(labelStyle.Render(fmt.Sprintf("Tasks complete  %d/%d", analytics.TasksCompleted, analytics.TasksTotal)) + "\n")
	s.WriteString(labelStyle.Render(fmt.Sprintf("In progress  %d  •  Not started  %d", analytics.TasksInProgress, analytics.TasksNotStarted)) + "\n")
	s.WriteString(labelStyle.Render(fmt.Sprintf("Events logged  %d", analytics.EventsTotal)))
	if analytics.LastEventAt != nil {
		s.WriteString(dimStyle.Render("  latest " + analytics.LastEventAt.Local().Format("01-02 15:04")))
	}
	s.WriteString("\n")
	s.WriteString(labelStyle.Render("Avg completion  "+dashboard.FormatDuration(analytics.AverageCompletionSeconds)) + "\n")

	if len(analytics.EventsBySource) > 0 {
		sources := make([]string, 0, len(analytics.EventsBySource))
		for source := range analytics.EventsBySource {
			sources = append(sources, source)
		}
		sort.Strings(sources)
		parts := make([]string, 0, len(sources))
		for _, source := range sources {
			parts = append(parts, fmt.Sprintf("%s: %d", source, analytics.EventsBySource[source]))
		}
		s.WriteString(dimStyle.Render("By source  "+strings.Join(parts, " • ")) + "\n")
	}

	if len(analytics.PerTask) > 0 {
		s.WriteString("\n" + headerStyle.Render("Task Telemetry Summary") + "\n")
		for _, entry := range analytics.PerTask {
			s.WriteString(labelStyle.Render(fmt.Sprintf("%s  %d%%", entry.Name, entry.Progress)) + "\n")
			s.WriteString("  " + dimStyle.Render(fmt.Sprintf("events %d • completed %s • last %s",
				entry.EventsCount, yesNo(entry.Completed), formatTimePtr(entry.LastEventAt))) + "\n")
			s.WriteString("  " + dimStyle.Render(fmt.Sprintf("source %s • completion %s",
				stringPtrOrDash(entry.LastEventSource), dashboard.FormatDuration(entry.SecondsToCompletion))) + "\n")
		}
	}
	return s.String()
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return "—"
	}
	return t.Local().Format("01-02 15:04")
}

func stringPtrOrDash(s *string) string {
	if s == nil || *s == "" {
		return "—"
	}
	return *s
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// wrapText wraps text to fit within the specified width
func wrapText(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}

	var lines []string
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{text}
	}

	currentLine := words[0]
	for _, word := range words[1:] {
		if len(currentLine)+1+len(word) > width {
			lines = append(lines, currentLine)
			currentLine = word
		} else {
			currentLine += " " + word
		}
	}
	if currentLine != "" {
		lines = append(lines, currentLine)
	}

	return lines
}
