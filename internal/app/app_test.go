package app

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"NewsPublisher/internal/config"
	"NewsPublisher/internal/domain"
	"NewsPublisher/internal/infrastructure/storage"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.LoadFrom("")
	cfg.Database.DSN = filepath.Join(t.TempDir(), "app.db")
	cfg.Clients = []config.ClientConfig{{
		Username:      "alpha",
		SourceURL:     "http://127.0.0.1:1",
		RemixEnabled:  true,
		NicheKeywords: "travel tips",
	}}
	cfg.RemixTopics = []string{"summer beaches"}
	return cfg
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func events(t *testing.T, dsn string) []domain.EventLogEntry {
	t.Helper()
	store, err := storage.Open(context.Background(), dsn)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer store.Close()
	entries, err := store.ListEvents(context.Background(), domain.EventFilter{})
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	return entries
}

func TestRunTaskRemixUsesSeededTopic(t *testing.T) {
	cfg := testConfig(t)

	application, err := New(context.Background(), cfg, quietLogger())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := application.RunTask(context.Background(), "remix"); err != nil {
		t.Fatalf("run remix: %v", err)
	}

	var found bool
	for _, e := range events(t, cfg.Database.DSN) {
		if e.Category == domain.CategoryRemixTask && strings.Contains(e.Message, "summer beaches travel tips") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected remix query event for alpha")
	}
}

func TestRunTaskRejectsUnknownTask(t *testing.T) {
	application, err := New(context.Background(), testConfig(t), quietLogger())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := application.RunTask(context.Background(), "backup"); err == nil {
		t.Fatalf("expected error for unknown task")
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Pipeline.TopK = 0

	if _, err := New(context.Background(), cfg, quietLogger()); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestRunRecordsAgentStartAndStops(t *testing.T) {
	cfg := testConfig(t)

	application, err := New(context.Background(), cfg, quietLogger())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- application.Run(ctx) }()

	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("run did not stop after cancel")
	}

	var started bool
	for _, e := range events(t, cfg.Database.DSN) {
		if e.Category == domain.CategoryAgentStart {
			started = true
		}
	}
	if !started {
		t.Fatalf("expected agent_start event")
	}
}

func TestLogLinesCarryOneComponent(t *testing.T) {
	cfg := testConfig(t)

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	application, err := New(context.Background(), cfg, logger)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := application.RunTask(context.Background(), "publish"); err != nil {
		t.Fatalf("run publish: %v", err)
	}

	var sawSource bool
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if n := strings.Count(line, `"component":`); n > 1 {
			t.Fatalf("component tagged %d times: %s", n, line)
		}
		if strings.Contains(line, `"component":"source"`) {
			sawSource = true
		}
	}
	if !sawSource {
		t.Fatalf("expected log lines from the content source, got %s", buf.String())
	}
}
