// Package charmlog provides calygo.Logger implementations backed by charmbracelet/log
package charmlog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/calygofire/calygo"
)

type Options struct {
	Writer io.Writer
	Level  string
	Prefix string
	// ReportCaller adds the file and line of the log call.
	ReportCaller bool
}

// NewLogger builds a logger writing to opts.Writer, stdout by default. An
// unknown level falls back to info.
func NewLogger(opts Options) calygo.Logger {
	var w io.Writer = os.Stdout
	if opts.Writer != nil {
		w = opts.Writer
	}

	lvl, err := log.ParseLevel(opts.Level)
	if err != nil {
		lvl = log.InfoLevel
	}

	return log.NewWithOptions(w, log.Options{
		Level:           lvl,
		Prefix:          opts.Prefix,
		ReportCaller:    opts.ReportCaller,
		ReportTimestamp: true,
	})
}

// OpenFile opens path for appending, creating it and its directory if needed.
// The terminal client logs to a file so output does not fight the TUI.
func OpenFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o744); err != nil {
		return nil, fmt.Errorf("failed to create log dir: %w", err)
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}
