package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// LogFileName is the log file inside the configured log directory.
const LogFileName = "photocat.log"

// runHandler is a custom slog.Handler that formats log records as:
//
//	<timestamp>\t<level>\t<runID>\t<message>\t<key=value ...>
//
// Each record is written with a single Write under mu, which handlers
// derived through WithAttrs share.
type runHandler struct {
	mu    *sync.Mutex
	w     io.Writer
	runID string
	level slog.Leveler
	attrs []slog.Attr
}

func newRunHandler(w io.Writer, runID string, level slog.Leveler) *runHandler {
	return &runHandler{mu: &sync.Mutex{}, w: w, runID: runID, level: level}
}

func (h *runHandler) Enabled(_ context.Context, level slog.Level) bool {
	if h.level == nil {
		return level >= slog.LevelInfo
	}
	return level >= h.level.Level()
}

func (h *runHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s\t%s\t%s\t%s", r.Time.UTC().Format("2006-01-02T15:04:05Z"), r.Level.String(), h.runID, r.Message)
	for _, a := range h.attrs {
		fmt.Fprintf(&buf, "\t%s=%v", a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&buf, "\t%s=%v", a.Key, a.Value)
		return true
	})
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

func (h *runHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &runHandler{
		mu:    h.mu,
		w:     h.w,
		runID: h.runID,
		level: h.level,
		attrs: append(append([]slog.Attr{}, h.attrs...), attrs...),
	}
}

func (h *runHandler) WithGroup(string) slog.Handler { return h }

// newLogger creates a structured logger that writes to both logDir/photocat.log
// and stderr. It returns the slog.Logger, the open log file (for cleanup), and any error.
func newLogger(logDir, runID string, level slog.Level, stderr io.Writer) (*slog.Logger, *os.File, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(logDir, LogFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	w := io.MultiWriter(f, stderr)
	return slog.New(newRunHandler(w, runID, level)), f, nil
}

// newStderrLogger creates a logger for read-only commands, which leave
// the log directory alone.
func newStderrLogger(runID string, level slog.Level, stderr io.Writer) *slog.Logger {
	return slog.New(newRunHandler(stderr, runID, level))
}

// slogAdapter wraps *slog.Logger to satisfy the catalog.Logger interface.
type slogAdapter struct {
	l *slog.Logger
}

func (a *slogAdapter) Debug(msg string, args ...any) { a.l.Debug(msg, args...) }
func (a *slogAdapter) Info(msg string, args ...any)  { a.l.Info(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.l.Warn(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.l.Error(msg, args...) }
