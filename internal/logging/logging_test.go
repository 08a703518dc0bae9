// internal/logging/logging_test.go - Unit tests for logger construction
package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "info", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	logger.Debug("hidden")
	logger.Info("region loaded", "region", "stl", "incidents", 42)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("Expected 1 line, got %d: %q", len(lines), buf.String())
	}
	var record map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
		t.Fatalf("Expected JSON record, got %v", err)
	}
	if record["region"] != "stl" || record["incidents"] != float64(42) {
		t.Errorf("Unexpected record %v", record)
	}
}

func TestNewVerbose(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "error", Format: "text", Verbose: true}, &buf)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	logger.Debug("month missing", "path", "stl/2014-02.json")
	if !strings.Contains(buf.String(), "month missing") {
		t.Errorf("Expected debug output in verbose mode, got %q", buf.String())
	}
}

func TestNewInvalidFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}, &bytes.Buffer{}); err == nil {
		t.Error("Expected error for unknown format")
	}
}
