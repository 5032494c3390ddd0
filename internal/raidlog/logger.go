// Package raidlog is the client's internal structured logger, built the
// way the teacher's internal/logger package is built: a package-level
// *slog.Logger with level filtering and a choice of a colorized text
// handler or a JSON handler, selected at Init time. Trimmed down from the
// teacher (no context-bound trace/span fields, since the CORE has no
// request-scoped context of its own beyond the etag already present in
// every log call site).
package raidlog

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Config selects the logger's level, format ("text" or "json") and
// output writer.
type Config struct {
	Level  string
	Format string
	Output io.Writer
}

var (
	mu           sync.RWMutex
	logger       = slog.New(slog.NewTextHandler(os.Stderr, nil))
	currentLevel atomic.Int32
)

func init() {
	currentLevel.Store(int32(LevelInfo))
}

// Init (re)configures the package logger. A nil/zero Config keeps
// defaults (INFO, text, stderr) — matching the teacher's Init contract of
// only overriding fields that are set.
func Init(cfg Config) {
	mu.Lock()
	defer mu.Unlock()

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	if cfg.Level != "" {
		switch strings.ToUpper(cfg.Level) {
		case "DEBUG":
			currentLevel.Store(int32(LevelDebug))
		case "WARN":
			currentLevel.Store(int32(LevelWarn))
		case "ERROR":
			currentLevel.Store(int32(LevelError))
		default:
			currentLevel.Store(int32(LevelInfo))
		}
	}

	levelVar := new(slog.LevelVar)
	levelVar.Set(Level(currentLevel.Load()).slogLevel())
	opts := &slog.HandlerOptions{Level: levelVar}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = NewColorTextHandler(out, opts, isTerminal(out))
	}
	logger = slog.New(handler)
}

func get() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

func Debug(msg string, args ...any) { get().Debug(msg, args...) }
func Info(msg string, args ...any)  { get().Info(msg, args...) }
func Warn(msg string, args ...any)  { get().Warn(msg, args...) }
func Error(msg string, args ...any) { get().Error(msg, args...) }

// With returns a logger with bound fields, e.g. for tagging every log
// line in a connection's lifetime with its connection id.
func With(args ...any) *slog.Logger { return get().With(args...) }
