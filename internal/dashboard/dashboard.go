package dashboard

import (
	"math"

	"github.com/Warner231936/Requiem-AIweb/pkg/models"
)

// Dashboard merges progress snapshots and chat history into the view model
// the presentation layer renders. Apply operations are wholesale
// replacements; only AppendSendResult appends. Analytics are recomputed
// from scratch after every mutation so they can never drift.
type Dashboard struct {
	tasks     []models.Task
	events    []models.ProgressEvent
	overall   int
	messages  []models.ChatMessage
	seen      map[int64]struct{}
	analytics models.Analytics
}

// New returns an empty dashboard.
func New() *Dashboard {
	d := &Dashboard{seen: make(map[int64]struct{})}
	d.analytics = computeAnalytics(nil, nil)
	return d
}

// ApplyProgressSnapshot replaces the task list, the telemetry event log,
// and the overall percentage with the server's current truth. The overall
// value is taken from the server's aggregate field, rounded to the nearest
// integer, never recomputed from the task list.
func (d *Dashboard) ApplyProgressSnapshot(report models.ProgressReport) {
	d.tasks = report.Tasks
	d.events = report.Events
	d.overall = int(math.Round(report.OverallProgress))
	d.recompute()
}

// ApplyHistory replaces the message list.
func (d *Dashboard) ApplyHistory(messages []models.ChatMessage) {
	d.messages = messages
	d.seen = make(map[int64]struct{}, len(messages))
	for _, msg := range messages {
		d.seen[msg.ID] = struct{}{}
	}
}

// AppendSendResult appends the new messages a send produced, in
// server-returned order, skipping any id already present. Prior messages
// are never removed or reordered.
func (d *Dashboard) AppendSendResult(messages []models.ChatMessage) {
	for _, msg := range messages {
		if _, ok := d.seen[msg.ID]; ok {
			continue
		}
		d.messages = append(d.messages, msg)
		d.seen[msg.ID] = struct{}{}
	}
}

// Reset clears all derived state on session destruction.
func (d *Dashboard) Reset() {
	d.tasks = nil
	d.events = nil
	d.overall = 0
	d.messages = nil
	d.seen = make(map[int64]struct{})
	d.recompute()
}

func (d *Dashboard) recompute() {
	d.analytics = computeAnalytics(d.tasks, d.events)
}

// Tasks returns the current task list in server order.
func (d *Dashboard) Tasks() []models.Task {
	return d.tasks
}

// Events returns the telemetry log, most recent last.
func (d *Dashboard) Events() []models.ProgressEvent {
	return d.events
}

// RecentEvents returns up to n events, most recent first, for the bounded
// live-telemetry window.
func (d *Dashboard) RecentEvents(n int) []models.ProgressEvent {
	if n < 0 {
		n = 0
	}
	if n > len(d.events) {
		n = len(d.events)
	}
	recent := make([]models.ProgressEvent, 0, n)
	for i := len(d.events) - 1; i >= len(d.events)-n; i-- {
		recent = append(recent, d.events[i])
	}
	return recent
}

// Overall returns the rounded overall progress percentage.
func (d *Dashboard) Overall() int {
	return d.overall
}

// Messages returns the chat history in display order.
func (d *Dashboard) Messages() []models.ChatMessage {
	return d.messages
}

// Analytics returns the derived summary for the current tasks and events.
func (d *Dashboard) Analytics() models.Analytics {
	return d.analytics
}
