package debug

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"
)

var (
	mu      sync.Mutex
	logger  *slog.Logger
	file    *os.File
	enabled bool
)

// Enable starts logging to w. Verbose lowers the level to debug and adds
// source locations; otherwise only warnings and above are written.
func Enable(w io.Writer, verbose bool) {
	mu.Lock()
	defer mu.Unlock()

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: verbose,
	}))
	enabled = true
}

// EnableFile logs everything to path, truncating it. The directory is
// created if needed.
func EnableFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	Enable(f, true)

	mu.Lock()
	file = f
	mu.Unlock()

	Log("debug", "=== Debug logging started ===")
	return nil
}

// Disable stops logging and closes the log file, if any.
func Disable() {
	mu.Lock()
	defer mu.Unlock()

	if file != nil {
		file.Close()
		file = nil
	}
	logger = nil
	enabled = false
}

func current() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if !enabled {
		return nil
	}
	return logger
}

// write skips its own frame and the exported wrapper so AddSource reports
// the caller of Log, Info or Warn.
func write(level slog.Level, category, format string, args []any) {
	ctx := context.Background()
	l := current()
	if l == nil || !l.Enabled(ctx, level) {
		return
	}
	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])
	r := slog.NewRecord(time.Now(), level, fmt.Sprintf(format, args...), pcs[0])
	r.AddAttrs(slog.String("category", category))
	_ = l.Handler().Handle(ctx, r)
}

// Log writes a debug-level message.
func Log(category, format string, args ...any) {
	write(slog.LevelDebug, category, format, args)
}

// Info writes an info-level message.
func Info(category, format string, args ...any) {
	write(slog.LevelInfo, category, format, args)
}

// Warn writes a warning.
func Warn(category, format string, args ...any) {
	write(slog.LevelWarn, category, format, args)
}

// LogEvery logs only every N calls (use for high-frequency events)
var counters = make(map[string]int)

func LogEvery(n int, category, format string, args ...any) {
	mu.Lock()
	key := category + format
	counters[key]++
	count := counters[key]
	mu.Unlock()

	if count%n == 0 {
		Log(category, format+" (every %d, count=%d)", append(args, n, count)...)
	}
}
