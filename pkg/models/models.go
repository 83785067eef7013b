package models

import "time"

// UserProfile is the authenticated user as returned by /auth/me
type UserProfile struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	ProfileImage *string    `json:"profile_image"`
	CreatedAt    *time.Time `json:"created_at"`
}

// Task represents a server-tracked unit of background work
type Task struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Progress    int        `json:"progress"`
	Description *string    `json:"description,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at"`
}

// ChatMessage is a single entry in the conversation history
type ChatMessage struct {
	ID        int64     `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ProgressEvent is one telemetry record emitted during a task's execution
type ProgressEvent struct {
	ID        int64     `json:"id"`
	TaskID    int64     `json:"task_id"`
	TaskName  string    `json:"task_name"`
	Progress  int       `json:"progress"`
	Source    string    `json:"source"`
	Note      *string   `json:"note"`
	CreatedAt time.Time `json:"created_at"`
}

// ProgressReport is the /progress/ response: the current task list, the
// telemetry event log, and the server-computed aggregate percentage.
type ProgressReport struct {
	Tasks           []Task          `json:"tasks"`
	Events          []ProgressEvent `json:"events"`
	OverallProgress float64         `json:"overall_progress"`
}

// TaskAnalytics is the derived per-task telemetry summary
type TaskAnalytics struct {
	Name                string
	Progress            int
	Completed           bool
	EventsCount         int
	LastEventAt         *time.Time
	LastEventSource     *string
	LastEventNote       *string
	SecondsToCompletion *float64
}

// Analytics is the full derived summary, recomputed from the current task
// and event collections whenever either changes. Never patched in place.
type Analytics struct {
	TasksTotal               int
	TasksCompleted           int
	TasksInProgress          int
	TasksNotStarted          int
	EventsTotal              int
	EventsBySource           map[string]int
	LastEventAt              *time.Time
	AverageCompletionSeconds *float64
	PerTask                  []TaskAnalytics
}
