package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input LogLevel
		want  zerolog.Level
	}{
		{LevelDebug, zerolog.DebugLevel},
		{LevelInfo, zerolog.InfoLevel},
		{LevelWarn, zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{LevelError, zerolog.ErrorLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"nonsense", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(string(tt.input), func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestSetup_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup(Config{Level: LevelInfo, Output: &buf})

	logger.Info().Str("endpoint", "/iss/engines.json").Msg("request succeeded")

	var event map[string]any
	if err := json.Unmarshal(buf.Bytes(), &event); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if event["message"] != "request succeeded" {
		t.Errorf("message = %v, want %q", event["message"], "request succeeded")
	}
	if event["endpoint"] != "/iss/engines.json" {
		t.Errorf("endpoint = %v, want /iss/engines.json", event["endpoint"])
	}
	if _, ok := event["time"]; !ok {
		t.Error("output lacks a timestamp field")
	}
}

func TestSetup_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup(Config{Level: LevelWarn, Output: &buf})

	logger.Debug().Msg("dropped debug")
	logger.Info().Msg("dropped info")
	logger.Warn().Msg("kept warn")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("below-threshold events were emitted: %q", out)
	}
	if !strings.Contains(out, "kept warn") {
		t.Errorf("warn event was filtered: %q", out)
	}
}

func TestNewLogger_ComponentField(t *testing.T) {
	var buf bytes.Buffer
	Setup(Config{Level: LevelInfo, Output: &buf})

	logger := NewLogger("pacer")
	logger.Info().Msg("wait complete")

	var event map[string]any
	if err := json.Unmarshal(buf.Bytes(), &event); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if event["component"] != "pacer" {
		t.Errorf("component = %v, want pacer", event["component"])
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Level != LevelInfo {
		t.Errorf("Level = %q, want info", cfg.Level)
	}
	if cfg.Pretty {
		t.Error("Pretty = true, want false")
	}
}
