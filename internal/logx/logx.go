// Package logx filters the standard logger by level. Levels are guessed
// from the message text so call sites keep using log.Printf.
package logx

import (
	"io"
	"log"
	"strings"
	"sync"
)

type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

// ParseLevel maps a flag value onto a Level; unknown values are Info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return Debug
	case "warn", "warning":
		return Warn
	case "error":
		return Error
	default:
		return Info
	}
}

func (l Level) String() string {
	switch l {
	case Debug:
		return "debug"
	case Warn:
		return "warn"
	case Error:
		return "error"
	default:
		return "info"
	}
}

// Writer drops lines below Min before passing them on.
type Writer struct {
	Min    Level
	Target io.Writer

	mu sync.Mutex
}

func (w *Writer) Write(p []byte) (int, error) {
	if LevelOf(string(p)) < w.Min {
		return len(p), nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.Target.Write(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// LevelOf classifies one log line.
func LevelOf(msg string) Level {
	msg = strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "error"), strings.Contains(msg, "failed"), strings.Contains(msg, "panic"):
		return Error
	case strings.Contains(msg, "warn"), strings.Contains(msg, "skipped"), strings.Contains(msg, "rejected"):
		return Warn
	case strings.Contains(msg, "[debug]"):
		return Debug
	default:
		return Info
	}
}

// Setup points the standard logger at target, filtered to level.
func Setup(level string, target io.Writer) {
	log.SetOutput(&Writer{Min: ParseLevel(level), Target: target})
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
}
