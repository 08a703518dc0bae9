// internal/incident/record.go - Incident records and the static source field table
package incident

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/spf13/cast"

	"github.com/valpere/crimegrid/internal"
)

// TimeLayout is the timestamp layout written by the crime crawlers
const TimeLayout = "2006-01-02T15:04:05-0700"

// Record targets understood by FieldTable.Apply
const (
	TargetDescription = "description"
	TargetTime        = "time"
	TargetLocation    = "location"
)

// RequiredTargets are the record fields every field table must produce
var RequiredTargets = []string{TargetTime, TargetLocation}

// Record is a single crime incident. Location is nil when the incident was never geocoded.
type Record struct {
	Description string
	Time        time.Time
	Location    *orb.Point
	Fields      map[string]any
}

// HasLocation reports whether the record can be placed on the grid
func (r Record) HasLocation() bool {
	return r.Location != nil
}

// Converter turns a raw JSON value into a typed record value
type Converter func(value any) (any, error)

// FieldRule maps one source field onto a record target
type FieldRule struct {
	Target  string
	Convert Converter
}

// FieldTable maps source field names to record targets. It is built once and validated at startup.
type FieldTable map[string]FieldRule

// DefaultFieldTable returns the table for the monthly crime JSON files
func DefaultFieldTable() FieldTable {
	return FieldTable{
		"description": {Target: TargetDescription, Convert: ToString},
		"time":        {Target: TargetTime, Convert: ToTime},
		"geo":         {Target: TargetLocation, Convert: ToPoint},
	}
}

// Validate checks that the table produces every required target exactly once
func (t FieldTable) Validate(required ...string) error {
	produced := make(map[string]string, len(t))
	sources := make([]string, 0, len(t))
	for source := range t {
		sources = append(sources, source)
	}
	sort.Strings(sources)

	for _, source := range sources {
		rule := t[source]
		if rule.Target == "" {
			return internal.NewError(internal.ErrorCodeConfig,
				fmt.Sprintf("field %q has no target", source), nil)
		}
		if rule.Convert == nil {
			return internal.NewError(internal.ErrorCodeConfig,
				fmt.Sprintf("field %q has no converter", source), nil)
		}
		if prev, ok := produced[rule.Target]; ok {
			return internal.NewError(internal.ErrorCodeConfig,
				fmt.Sprintf("fields %q and %q both map to %q", prev, source, rule.Target), nil)
		}
		produced[rule.Target] = source
	}

	var missing []string
	for _, target := range required {
		if _, ok := produced[target]; !ok {
			missing = append(missing, target)
		}
	}
	if len(missing) > 0 {
		return internal.NewError(internal.ErrorCodeConfig,
			fmt.Sprintf("field table does not produce required fields: %s", strings.Join(missing, ", ")), nil)
	}
	return nil
}

// Apply converts one raw JSON object into a Record.
// Source fields without a rule are kept verbatim in Record.Fields.
func (t FieldTable) Apply(raw map[string]any) (Record, error) {
	rec := Record{}
	for source, value := range raw {
		rule, ok := t[source]
		if !ok {
			if rec.Fields == nil {
				rec.Fields = make(map[string]any)
			}
			rec.Fields[source] = value
			continue
		}

		converted, err := rule.Convert(value)
		if err != nil {
			return Record{}, fmt.Errorf("field %q: %w", source, err)
		}

		switch rule.Target {
		case TargetDescription:
			rec.Description, _ = converted.(string)
		case TargetTime:
			tm, ok := converted.(time.Time)
			if !ok {
				return Record{}, fmt.Errorf("field %q: converter returned %T, want time.Time", source, converted)
			}
			rec.Time = tm
		case TargetLocation:
			p, ok := converted.(*orb.Point)
			if !ok {
				return Record{}, fmt.Errorf("field %q: converter returned %T, want *orb.Point", source, converted)
			}
			rec.Location = p
		default:
			if rec.Fields == nil {
				rec.Fields = make(map[string]any)
			}
			rec.Fields[rule.Target] = converted
		}
	}

	if rec.Time.IsZero() {
		return Record{}, internal.NewError(internal.ErrorCodeValidation, "record has no time", nil)
	}
	return rec, nil
}

// ToString converts a value to a string
func ToString(value any) (any, error) {
	return cast.ToStringE(value)
}

// ToTime parses a timestamp in the crawler layout, RFC 3339, or any layout cast understands
func ToTime(value any) (any, error) {
	if s, ok := value.(string); ok {
		for _, layout := range []string{TimeLayout, time.RFC3339} {
			if tm, err := time.Parse(layout, s); err == nil {
				return tm, nil
			}
		}
	}
	tm, err := cast.ToTimeE(value)
	if err != nil {
		return nil, internal.NewError(internal.ErrorCodeValidation,
			fmt.Sprintf("invalid timestamp %v", value), err)
	}
	return tm, nil
}

// ToPoint converts a GeoJSON Point object into a location. A null value yields a nil location.
func ToPoint(value any) (any, error) {
	if value == nil {
		return (*orb.Point)(nil), nil
	}

	obj, err := cast.ToStringMapE(value)
	if err != nil {
		return nil, internal.NewError(internal.ErrorCodeValidation, "geo is not an object", err)
	}
	if typ := cast.ToString(obj["type"]); typ != "Point" {
		return nil, internal.NewError(internal.ErrorCodeValidation,
			fmt.Sprintf("geo type %q is not Point", typ), nil)
	}

	coords, err := cast.ToSliceE(obj["coordinates"])
	if err != nil || len(coords) < 2 {
		return nil, internal.NewError(internal.ErrorCodeValidation,
			fmt.Sprintf("invalid point coordinates %v", obj["coordinates"]), err)
	}
	lon, err := cast.ToFloat64E(coords[0])
	if err != nil {
		return nil, internal.NewError(internal.ErrorCodeValidation, "invalid longitude", err)
	}
	lat, err := cast.ToFloat64E(coords[1])
	if err != nil {
		return nil, internal.NewError(internal.ErrorCodeValidation, "invalid latitude", err)
	}

	return &orb.Point{lon, lat}, nil
}
