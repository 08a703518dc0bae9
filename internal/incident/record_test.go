// internal/incident/record_test.go - Unit tests for the field table
package incident

import (
	"testing"
	"time"

	"github.com/paulmach/orb"

	"github.com/valpere/crimegrid/internal"
)

func TestDefaultFieldTableValidates(t *testing.T) {
	if err := DefaultFieldTable().Validate(RequiredTargets...); err != nil {
		t.Errorf("Expected default table to validate, got %v", err)
	}
}

func TestFieldTableValidate(t *testing.T) {
	tests := []struct {
		name  string
		table FieldTable
	}{
		{
			name:  "missing location",
			table: FieldTable{"time": {Target: TargetTime, Convert: ToTime}},
		},
		{
			name: "duplicate target",
			table: FieldTable{
				"time":     {Target: TargetTime, Convert: ToTime},
				"reported": {Target: TargetTime, Convert: ToTime},
				"geo":      {Target: TargetLocation, Convert: ToPoint},
			},
		},
		{
			name: "nil converter",
			table: FieldTable{
				"time": {Target: TargetTime},
				"geo":  {Target: TargetLocation, Convert: ToPoint},
			},
		},
		{
			name: "empty target",
			table: FieldTable{
				"time": {Target: TargetTime, Convert: ToTime},
				"geo":  {Target: TargetLocation, Convert: ToPoint},
				"x":    {Convert: ToString},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.table.Validate(RequiredTargets...)
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !internal.HasCode(err, internal.ErrorCodeConfig) {
				t.Errorf("Expected CONFIG_ERROR, got %v", err)
			}
		})
	}
}

func TestFieldTableApply(t *testing.T) {
	raw := map[string]any{
		"description": "LARCENY",
		"time":        "2014-03-05T13:45:00-0600",
		"geo": map[string]any{
			"type":        "Point",
			"coordinates": []any{-90.1979, 38.6273},
		},
		"neighborhood": "Soulard",
	}

	rec, err := DefaultFieldTable().Apply(raw)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if rec.Description != "LARCENY" {
		t.Errorf("Expected description LARCENY, got %s", rec.Description)
	}
	want := time.Date(2014, 3, 5, 19, 45, 0, 0, time.UTC)
	if !rec.Time.Equal(want) {
		t.Errorf("Expected time %v, got %v", want, rec.Time)
	}
	if !rec.HasLocation() || *rec.Location != (orb.Point{-90.1979, 38.6273}) {
		t.Errorf("Expected location (-90.1979, 38.6273), got %v", rec.Location)
	}
	if rec.Fields["neighborhood"] != "Soulard" {
		t.Errorf("Expected unmapped field to be kept, got %v", rec.Fields)
	}
}

func TestFieldTableApplyWithoutGeo(t *testing.T) {
	rec, err := DefaultFieldTable().Apply(map[string]any{
		"description": "FRAUD",
		"time":        "2014-03-05T13:45:00Z",
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.HasLocation() {
		t.Errorf("Expected no location, got %v", rec.Location)
	}
}

func TestFieldTableApplyErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
	}{
		{"missing time", map[string]any{"description": "x"}},
		{"bad time", map[string]any{"time": "yesterday"}},
		{"geo not point", map[string]any{
			"time": "2014-03-05T13:45:00Z",
			"geo":  map[string]any{"type": "LineString", "coordinates": []any{}},
		}},
		{"geo short coordinates", map[string]any{
			"time": "2014-03-05T13:45:00Z",
			"geo":  map[string]any{"type": "Point", "coordinates": []any{1.0}},
		}},
		{"geo not object", map[string]any{
			"time": "2014-03-05T13:45:00Z",
			"geo":  "38.6,-90.2",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DefaultFieldTable().Apply(tt.raw); err == nil {
				t.Error("Expected an error")
			}
		})
	}
}

func TestToTimeLayouts(t *testing.T) {
	tests := []struct {
		in   any
		want time.Time
	}{
		{"2014-03-05T13:45:00-0600", time.Date(2014, 3, 5, 19, 45, 0, 0, time.UTC)},
		{"2014-03-05T13:45:00Z", time.Date(2014, 3, 5, 13, 45, 0, 0, time.UTC)},
		{"2014-03-05", time.Date(2014, 3, 5, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		got, err := ToTime(tt.in)
		if err != nil {
			t.Errorf("ToTime(%v): unexpected error %v", tt.in, err)
			continue
		}
		if !got.(time.Time).Equal(tt.want) {
			t.Errorf("ToTime(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
