package main

import (
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
)

// setupLog sends log output to a file when TABLEREAD_LOGFILE is set,
// and discards it otherwise so it cannot corrupt the TUI.
func setupLog() (func() error, error) {
	if logFile := os.Getenv("TABLEREAD_LOGFILE"); logFile != "" {
		f, err := tea.LogToFile(logFile, "tableread")
		if err != nil {
			return nil, err //nolint:wrapcheck
		}
		log.SetOutput(f)
		log.SetLevel(log.DebugLevel)
		return f.Close, nil
	}
	log.SetOutput(io.Discard)
	return func() error { return nil }, nil
}
