// cmd/cmd_test.go - Tests for command helpers
package cmd

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/valpere/crimegrid/internal/batch"
)

func TestParseBoundingBox(t *testing.T) {
	tests := []struct {
		name    string
		bbox    string
		wantErr bool
	}{
		{"valid", "-90.4,38.5,-90.1,38.8", false},
		{"spaces", " -90.4, 38.5 ,-90.1, 38.8", false},
		{"too few values", "-90.4,38.5,-90.1", true},
		{"not a number", "-90.4,abc,-90.1,38.8", true},
		{"inverted", "-90.1,38.5,-90.4,38.8", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := parseBoundingBox(tt.bbox)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseBoundingBox(%q) error = %v, wantErr %v", tt.bbox, err, tt.wantErr)
			}
			if !tt.wantErr && (b.Min.Lon() != -90.4 || b.Max.Lat() != 38.8) {
				t.Errorf("Unexpected bound %v", b)
			}
		})
	}
}

func newTileTestCommand() *cobra.Command {
	c := &cobra.Command{Use: "tile"}
	c.Flags().Int("z", 0, "")
	c.Flags().Int("x", 0, "")
	c.Flags().Int("y", 0, "")
	return c
}

func TestTileArgument(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		flags   map[string]string
		want    string
		wantErr bool
	}{
		{"argument", []string{"3/1/2"}, nil, "3/1/2", false},
		{"flags", nil, map[string]string{"z": "2", "x": "3", "y": "0"}, "2/3/0", false},
		{"zero tile from flags", nil, map[string]string{"z": "0", "x": "0", "y": "0"}, "0/0/0", false},
		{"nothing", nil, nil, "", true},
		{"both", []string{"3/1/2"}, map[string]string{"z": "3", "x": "1", "y": "2"}, "", true},
		{"out of range", nil, map[string]string{"z": "1", "x": "2", "y": "0"}, "", true},
		{"malformed", []string{"3/1"}, nil, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTileTestCommand()
			for k, v := range tt.flags {
				if err := c.Flags().Set(k, v); err != nil {
					t.Fatalf("Failed to set flag %s: %v", k, err)
				}
			}

			coord, err := tileArgument(c, tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("tileArgument() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && coord.String() != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, coord)
			}
		})
	}
}

func TestConsoleProgressReporter(t *testing.T) {
	var buf bytes.Buffer
	r := NewConsoleProgressReporter(&buf)

	job := batch.NewJob("test", nil, 1, batch.NewJobConfig())
	job.Progress.TotalTiles = 4
	job.Progress.ProcessedTiles = 2

	r.ReportProgress(job)
	if !strings.Contains(buf.String(), "50.0%") {
		t.Errorf("Expected progress percentage, got %q", buf.String())
	}

	// Second update within a second is rate limited
	buf.Reset()
	r.ReportChunkComplete(job, &batch.ChunkResult{})
	if buf.Len() != 0 {
		t.Errorf("Expected rate limited update, got %q", buf.String())
	}

	buf.Reset()
	r.ReportJobFailed(job, context.Canceled)
	if !strings.Contains(buf.String(), "Canceled") {
		t.Errorf("Expected cancellation message, got %q", buf.String())
	}

	buf.Reset()
	r.ReportJobFailed(job, errors.New("disk full"))
	if !strings.Contains(buf.String(), "Failed: disk full") {
		t.Errorf("Expected failure message, got %q", buf.String())
	}
}
