package dashboard

import (
	"fmt"
	"math"
)

// FormatDuration renders a completion duration for display. The rounding
// rule is part of the externally observable contract: under a minute shows
// whole seconds, under an hour shows minutes and seconds, anything longer
// shows hours and minutes. An absent duration renders as an em dash.
func FormatDuration(seconds *float64) string {
	if seconds == nil {
		return "—"
	}
	s := *seconds
	if s < 60 {
		return fmt.Sprintf("%ds", int(math.Round(s)))
	}
	minutes := int(math.Floor(s / 60))
	if minutes < 60 {
		remainder := int(math.Round(math.Mod(s, 60)))
		return fmt.Sprintf("%dm %ds", minutes, remainder)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}
