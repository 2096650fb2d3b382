package log

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// Options configures NewLogger.
type Options struct {
	// Console receives human-facing output, typically os.Stderr.
	Console io.Writer

	// Verbose lowers the console level from WARN to DEBUG.
	Verbose bool

	// JSON switches the console handler to JSON output.
	JSON bool

	// FilePath, when set, appends an INFO level text log to that file.
	FilePath string
}

// NewLogger builds the run logger. Every sink is wrapped in SecureHandler.
// The returned close function releases the log file and is safe to call
// when no file was opened.
func NewLogger(opts Options) (*slog.Logger, func() error, error) {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	var consoleHandler slog.Handler
	if opts.JSON {
		consoleHandler = slog.NewJSONHandler(console, handlerOpts)
	} else {
		consoleHandler = slog.NewTextHandler(console, handlerOpts)
	}

	noop := func() error { return nil }
	if opts.FilePath == "" {
		return slog.New(NewSecureHandler(consoleHandler)), noop, nil
	}

	if dir := filepath.Dir(opts.FilePath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, noop, fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	f, err := os.OpenFile(opts.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600) //nolint:gosec // User-provided log path is intentional
	if err != nil {
		return nil, noop, fmt.Errorf("failed to open log file: %w", err)
	}

	fileLevel := slog.LevelInfo
	if opts.Verbose {
		fileLevel = slog.LevelDebug
	}
	fileHandler := slog.NewTextHandler(f, &slog.HandlerOptions{Level: fileLevel})

	handler := NewSecureHandler(NewFanoutHandler(consoleHandler, fileHandler))
	return slog.New(handler), f.Close, nil
}

// FanoutHandler sends each record to every handler that accepts its level.
type FanoutHandler struct {
	handlers []slog.Handler
}

// NewFanoutHandler returns a handler writing to all of handlers.
func NewFanoutHandler(handlers ...slog.Handler) *FanoutHandler {
	return &FanoutHandler{handlers: handlers}
}

// Enabled reports whether any handler accepts level.
func (h *FanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, hh := range h.handlers {
		if hh.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle forwards r to each handler enabled for its level.
// Errors from individual handlers are joined.
func (h *FanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, hh := range h.handlers {
		if !hh.Enabled(ctx, r.Level) {
			continue
		}
		if err := hh.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WithAttrs applies attrs to every handler.
func (h *FanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make([]slog.Handler, len(h.handlers))
	for i, hh := range h.handlers {
		out[i] = hh.WithAttrs(attrs)
	}
	return &FanoutHandler{handlers: out}
}

// WithGroup applies name to every handler.
func (h *FanoutHandler) WithGroup(name string) slog.Handler {
	out := make([]slog.Handler, len(h.handlers))
	for i, hh := range h.handlers {
		out[i] = hh.WithGroup(name)
	}
	return &FanoutHandler{handlers: out}
}

// RunStarted logs the start-of-run marker.
func RunStarted(logger *slog.Logger, attrs ...any) {
	logger.Info("========== run started ==========", attrs...)
}

// RunFinished logs the end-of-run marker.
func RunFinished(logger *slog.Logger, attrs ...any) {
	logger.Info("========== run finished ==========", attrs...)
}
