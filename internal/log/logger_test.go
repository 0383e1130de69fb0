package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestLoggerStampsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{
		Level:     slog.LevelDebug,
		Component: ComponentWorker,
		Handler:   slog.NewTextHandler(&buf, nil),
	})

	logger.Info("mirroring", FieldUsername, "alice", FieldRecords, 3)

	out := buf.String()
	if !strings.Contains(out, FieldComponent+"="+ComponentWorker) {
		t.Errorf("output missing component field: %s", out)
	}
	if !strings.Contains(out, FieldUsername+"=alice") {
		t.Errorf("output missing username field: %s", out)
	}
	if !strings.Contains(out, FieldRecords+"=3") {
		t.Errorf("output missing records field: %s", out)
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{
		Level:     slog.LevelInfo,
		Component: ComponentApp,
		Handler:   slog.NewTextHandler(&buf, nil),
	})

	child := logger.WithComponent(ComponentWorker)
	if child.Component() != ComponentWorker {
		t.Errorf("Component() = %q, want %q", child.Component(), ComponentWorker)
	}
	if logger.Component() != ComponentApp {
		t.Errorf("parent component changed to %q", logger.Component())
	}
}
