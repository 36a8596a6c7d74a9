package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{" error ", zerolog.ErrorLevel},
		{"trace", zerolog.TraceLevel},
		{"bogus", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestWithComponent(t *testing.T) {
	defer Init("info", false)

	var buf bytes.Buffer
	InitWriter(&buf, "debug", false)
	WithComponent("session").Info().Str("filter", "BLUR").Msg("processed")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if entry["component"] != "session" {
		t.Errorf("component = %v, want session", entry["component"])
	}
	if entry["filter"] != "BLUR" {
		t.Errorf("filter = %v, want BLUR", entry["filter"])
	}
	if entry["message"] != "processed" {
		t.Errorf("message = %v, want processed", entry["message"])
	}
}

func TestLevelFilters(t *testing.T) {
	defer Init("info", false)

	var buf bytes.Buffer
	InitWriter(&buf, "warn", false)
	WithComponent("x").Info().Msg("hidden")
	if buf.Len() != 0 {
		t.Errorf("info message logged at warn level: %q", buf.String())
	}
}
