package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"seattle-events/internal/config"
)

func TestNew_releaseWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Config{AppEnv: "prod", LogLevel: slog.LevelInfo}
	logger := newWithWriter(&buf, cfg, "1.2.3", "seattle-events")

	logger.Debug("hidden")
	logger.Info("hello", "n", 1)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1 (debug must be filtered): %q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("line is not JSON: %v", err)
	}
	for key, want := range map[string]any{
		"msg":     "hello",
		"app":     "seattle-events",
		"version": "1.2.3",
		"env":     "prod",
	} {
		if rec[key] != want {
			t.Errorf("%s = %v, want %v", key, rec[key], want)
		}
	}
}

func TestNew_devUsesTint(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Config{AppEnv: "dev", LogLevel: slog.LevelDebug}
	logger := newWithWriter(&buf, cfg, "dev", "seattle-events")

	logger.Debug("visible")

	out := buf.String()
	if !strings.Contains(out, "visible") {
		t.Errorf("output %q does not contain message", out)
	}
	if json.Valid([]byte(strings.TrimSpace(out))) {
		t.Errorf("dev output should be human-readable, got JSON %q", out)
	}
}
