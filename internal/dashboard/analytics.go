package dashboard

import (
	"sort"

	"github.com/Warner231936/Requiem-AIweb/pkg/models"
)

// computeAnalytics derives the full summary from the current task and event
// collections. Pure and deterministic: the same inputs always produce the
// same output, so it can be re-run after any mutation.
func computeAnalytics(tasks []models.Task, events []models.ProgressEvent) models.Analytics {
	ordered := make([]models.ProgressEvent, len(events))
	copy(ordered, events)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	eventsBySource := make(map[string]int)
	grouped := make(map[string][]models.ProgressEvent)
	for _, event := range ordered {
		eventsBySource[event.Source]++
		grouped[event.TaskName] = append(grouped[event.TaskName], event)
	}

	perTask := make([]models.TaskAnalytics, 0, len(tasks))
	for _, task := range tasks {
		perTask = append(perTask, buildTaskAnalytics(task, grouped[task.Name]))
	}

	var completed, inProgress int
	for _, task := range tasks {
		switch {
		case task.Progress >= 100:
			completed++
		case task.Progress > 0:
			inProgress++
		}
	}

	var averageCompletion *float64
	var sum float64
	var count int
	for _, entry := range perTask {
		if entry.SecondsToCompletion != nil {
			sum += *entry.SecondsToCompletion
			count++
		}
	}
	if count > 0 {
		avg := sum / float64(count)
		averageCompletion = &avg
	}

	analytics := models.Analytics{
		TasksTotal:               len(tasks),
		TasksCompleted:           completed,
		TasksInProgress:          inProgress,
		TasksNotStarted:          len(tasks) - completed - inProgress,
		EventsTotal:              len(ordered),
		EventsBySource:           eventsBySource,
		AverageCompletionSeconds: averageCompletion,
		PerTask:                  perTask,
	}
	if len(ordered) > 0 {
		last := ordered[len(ordered)-1].CreatedAt
		analytics.LastEventAt = &last
	}
	return analytics
}

// buildTaskAnalytics summarizes one task from its chronologically ordered
// events. Completion time runs from the first recorded event to the first
// event at which progress reached 100. A completed task with no events at
// all reports zero.
func buildTaskAnalytics(task models.Task, events []models.ProgressEvent) models.TaskAnalytics {
	entry := models.TaskAnalytics{
		Name:        task.Name,
		Progress:    task.Progress,
		Completed:   task.Progress >= 100,
		EventsCount: len(events),
	}

	if len(events) == 0 {
		if task.Progress >= 100 {
			zero := 0.0
			entry.SecondsToCompletion = &zero
		}
		return entry
	}

	last := events[len(events)-1]
	entry.LastEventAt = &last.CreatedAt
	source := last.Source
	entry.LastEventSource = &source
	entry.LastEventNote = last.Note

	for _, event := range events {
		if event.Progress >= 100 {
			seconds := event.CreatedAt.Sub(events[0].CreatedAt).Seconds()
			entry.SecondsToCompletion = &seconds
			break
		}
	}
	return entry
}
