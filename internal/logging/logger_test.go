package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"mixdown/internal/services"
)

func newTestLogger(buf *bytes.Buffer, level string) *slog.Logger {
	levelVar := new(slog.LevelVar)
	levelVar.Set(parseLevel(level))
	return slog.New(newConsoleHandler(buf, levelVar))
}

func TestConsoleHandlerFormatsComponentPrefix(t *testing.T) {
	var buf bytes.Buffer
	logger := NewComponentLogger(newTestLogger(&buf, "info"), "scheduler")
	logger.Info("batch complete", Int("succeeded", 8), Int("failed", 2))

	line := buf.String()
	if !strings.Contains(line, " INFO scheduler: batch complete") {
		t.Fatalf("unexpected line %q", line)
	}
	if !strings.Contains(line, "succeeded=8") || !strings.Contains(line, "failed=2") {
		t.Fatalf("missing attrs in %q", line)
	}
}

func TestConsoleHandlerQuotesValues(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf, "info")
	logger.Info("track done", String("title", "Neon Drift"))

	if !strings.Contains(buf.String(), `title="Neon Drift"`) {
		t.Fatalf("expected quoted value, got %q", buf.String())
	}
}

func TestConsoleHandlerHonorsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf, "warn")
	logger.Info("suppressed")
	logger.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "suppressed") {
		t.Fatalf("info record should be filtered: %q", out)
	}
	if !strings.Contains(out, "kept") {
		t.Fatalf("warn record missing: %q", out)
	}
}

func TestWithContextAddsRunFields(t *testing.T) {
	var buf bytes.Buffer
	ctx := services.WithRunID(context.Background(), "abc123")
	ctx = services.WithPhase(ctx, "fetching")
	ctx = services.WithTrack(ctx, 2)

	WithContext(ctx, newTestLogger(&buf, "info")).Info("download complete")

	line := buf.String()
	for _, want := range []string{"run_id=abc123", "phase=fetching", "track=2"} {
		if !strings.Contains(line, want) {
			t.Fatalf("missing %q in %q", want, line)
		}
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}
