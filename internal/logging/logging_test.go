package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestLevelFromString(t *testing.T) {
	t.Parallel()

	cases := map[string]slog.Level{
		"error":   slog.LevelError,
		"WARNING": slog.LevelWarn,
		" info ":  slog.LevelInfo,
		"":        slog.LevelInfo,
		"trace":   slog.LevelDebug,
	}
	for in, want := range cases {
		if got := levelFromString(in); got != want {
			t.Fatalf("%q: expected %v got %v", in, want, got)
		}
	}
}

func TestJSONFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewWithWriter(&buf, "info", "json").With("component", "pipeline").Info("Published item.", "client", "alpha")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected json line, got %q: %v", buf.String(), err)
	}
	if entry["component"] != "pipeline" || entry["client"] != "alpha" {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestTextFormatFiltersLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "warn", "text")
	logger.Info("hidden")
	logger.Warn("shown")

	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}
