package errlog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func newTestLogger(t *testing.T) *Logger {
	t.Helper()
	l := New(filepath.Join(t.TempDir(), "error_log.md"))
	l.now = func() time.Time { return time.Date(2024, 3, 1, 14, 5, 9, 0, time.Local) }
	return l
}

func readLog(t *testing.T, l *Logger) string {
	t.Helper()
	data, err := os.ReadFile(l.Path())
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	return string(data)
}

func TestLogger_CreatesFileWithHeader(t *testing.T) {
	l := newTestLogger(t)

	if err := l.Log("load:orders", "missing expected columns [Status]"); err != nil {
		t.Fatalf("Log() error: %v", err)
	}

	want := Header + "[2024-03-01 14:05:09] [load:orders] ERROR: missing expected columns [Status]\n"
	if got := readLog(t, l); got != want {
		t.Errorf("log content mismatch:\ngot  %q\nwant %q", got, want)
	}
}

func TestLogger_AppendsWithoutRepeatingHeader(t *testing.T) {
	l := newTestLogger(t)

	for _, ctx := range []string{"merge", "upload"} {
		if err := l.Log(ctx, "boom"); err != nil {
			t.Fatalf("Log() error: %v", err)
		}
	}

	content := readLog(t, l)
	if strings.Count(content, "# Error Log") != 1 {
		t.Errorf("header should appear once:\n%s", content)
	}
	lines := strings.Split(strings.TrimPrefix(content, Header), "\n")
	if len(lines) != 3 || lines[2] != "" {
		t.Fatalf("expected two event lines, got %q", lines)
	}
	if !strings.Contains(lines[0], "[merge] ERROR: boom") || !strings.Contains(lines[1], "[upload] ERROR: boom") {
		t.Errorf("unexpected lines: %q", lines)
	}
}

func TestLogger_KeepsExistingContent(t *testing.T) {
	l := newTestLogger(t)
	if err := os.WriteFile(l.Path(), []byte("# Old log\n\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := l.Log("merge", "boom"); err != nil {
		t.Fatal(err)
	}
	if got := readLog(t, l); !strings.HasPrefix(got, "# Old log\n\n[2024-03-01") {
		t.Errorf("existing content should be preserved, got %q", got)
	}
}

func TestLogger_FlattensMultilineMessages(t *testing.T) {
	l := newTestLogger(t)

	if err := l.LogError("load:products", errors.New("line one\nline two")); err != nil {
		t.Fatal(err)
	}
	if got := readLog(t, l); !strings.Contains(got, "ERROR: line one line two\n") {
		t.Errorf("message not flattened: %q", got)
	}
	if err := l.LogError("noop", nil); err != nil {
		t.Errorf("LogError(nil) = %v, want nil", err)
	}
}

func TestLogger_Concurrent(t *testing.T) {
	l := newTestLogger(t)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Log("concurrent", "event"); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	content := readLog(t, l)
	if n := strings.Count(content, "ERROR: event\n"); n != 20 {
		t.Errorf("expected 20 events, got %d", n)
	}
	if strings.Count(content, Header) != 1 {
		t.Error("header written more than once")
	}
}

func TestLogger_UnwritablePath(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "missing-dir", "log.md"))
	if err := l.Log("x", "y"); err == nil {
		t.Error("expected error for unwritable path")
	}
}
