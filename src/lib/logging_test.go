package lib

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewLogger(t *testing.T) {
	levels := []string{"DEBUG", "WARN", "ERROR", "UNKNOWN"}
	for _, level := range levels {
		if logger := NewLogger(level); logger == nil {
			t.Fatalf("NewLogger(%q) returned nil", level)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		" WARN": slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
	}
	for raw, want := range tests {
		if got := parseLevel(raw); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestNewLoggerToFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "WARN")
	logger.Info("hidden")
	logger.Warn("shown", "group_id", "g1")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info record should be filtered, got %s", out)
	}
	if !strings.Contains(out, `"group_id":"g1"`) {
		t.Fatalf("warn record missing attribute, got %s", out)
	}
}
