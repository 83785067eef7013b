package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Init configures the global slog logger writing to w. Level defaults to
// info; set REQUIEM_LOG=debug for verbose output.
func Init(w io.Writer) {
	level := slog.LevelInfo
	if strings.EqualFold(os.Getenv("REQUIEM_LOG"), "debug") {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// InitFile redirects logging to ~/.requiem/requiem.log so log lines do not
// bleed into the alternate-screen TUI. The returned file should be closed
// when the program exits. Falls back to discarding logs on failure.
func InitFile() (*os.File, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		Init(io.Discard)
		return nil, err
	}
	dir := filepath.Join(home, ".requiem")
	if err := os.MkdirAll(dir, 0700); err != nil {
		Init(io.Discard)
		return nil, err
	}
	f, err := os.OpenFile(filepath.Join(dir, "requiem.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		Init(io.Discard)
		return nil, err
	}
	Init(f)
	return f, nil
}
