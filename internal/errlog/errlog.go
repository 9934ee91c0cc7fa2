// Package errlog appends pipeline failures to a human-readable, append-only
// markdown log.
//
// Each event is one line:
//
//	[2024-03-01 14:05:09] [load:orders] ERROR: orders.csv: missing expected columns [Status]; found [...]
package errlog

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	Header     = "# Error Log - Digisale Dash\n\n"
	timeLayout = "2006-01-02 15:04:05"
)

type Logger struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

func New(path string) *Logger {
	return &Logger{path: path, now: time.Now}
}

func (l *Logger) Path() string {
	return l.path
}

// Log appends one event, creating the file with a header if it does not
// exist. Newlines in message are flattened so every event stays on one line.
func (l *Logger) Log(context, message string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open error log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat error log: %w", err)
	}
	if info.Size() == 0 {
		if _, err := f.WriteString(Header); err != nil {
			return fmt.Errorf("write error log header: %w", err)
		}
	}

	line := fmt.Sprintf("[%s] [%s] ERROR: %s\n", l.now().Format(timeLayout), context, flatten(message))
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write error log: %w", err)
	}
	return nil
}

// LogError is Log with err's message.
func (l *Logger) LogError(context string, err error) error {
	if err == nil {
		return nil
	}
	return l.Log(context, err.Error())
}

func flatten(s string) string {
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)
}
