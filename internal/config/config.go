// internal/config/config.go - Configuration management
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/valpere/crimegrid/internal"
	"github.com/valpere/crimegrid/internal/batch"
	"github.com/valpere/crimegrid/internal/incident"
	"github.com/valpere/crimegrid/internal/logging"
	"github.com/valpere/crimegrid/internal/output"
	"github.com/valpere/crimegrid/internal/region"
)

// Config represents the complete application configuration
type Config struct {
	Grid    GridConfig     `mapstructure:"grid"`
	Window  WindowConfig   `mapstructure:"window"`
	Input   InputConfig    `mapstructure:"input"`
	Regions []RegionConfig `mapstructure:"regions"`
	Output  OutputConfig   `mapstructure:"output"`
	Batch   BatchConfig    `mapstructure:"batch"`
	Logging LoggingConfig  `mapstructure:"logging"`
	Metrics MetricsConfig  `mapstructure:"metrics"`
}

// GridConfig contains the aggregation resolution
type GridConfig struct {
	BaseZoom     int  `mapstructure:"base_zoom"`
	CellDepth    int  `mapstructure:"cell_depth"`
	StrictBounds bool `mapstructure:"strict_bounds"`
}

// WindowConfig is the incident time window [from, to)
type WindowConfig struct {
	From string `mapstructure:"from"`
	To   string `mapstructure:"to"`
}

// InputConfig locates the monthly incident files
type InputConfig struct {
	DataDir            string `mapstructure:"data_dir"`
	StripOutsideRegion bool   `mapstructure:"strip_outside_region"`
}

// RegionConfig describes one area of interest
type RegionConfig struct {
	Name      string `mapstructure:"name"`
	Boundary  string `mapstructure:"boundary"`
	HumanName string `mapstructure:"human_name"`
	URL       string `mapstructure:"url"`
}

// OutputConfig contains output formatting configuration
type OutputConfig struct {
	Directory   string `mapstructure:"directory"`
	Format      string `mapstructure:"format"`
	Pretty      bool   `mapstructure:"pretty"`
	Compression bool   `mapstructure:"compression"`
	Metadata    bool   `mapstructure:"metadata"`
	Mode        string `mapstructure:"mode"`
	WorldZoom   int    `mapstructure:"world_zoom"`
	WorldFile   string `mapstructure:"world_file"`
}

// BatchConfig contains batch processing configuration
type BatchConfig struct {
	Concurrency int           `mapstructure:"concurrency"`
	ChunkSize   int           `mapstructure:"chunk_size"`
	Timeout     time.Duration `mapstructure:"timeout"`
	FailOnError bool          `mapstructure:"fail_on_error"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Verbose  bool   `mapstructure:"verbose"`
	Progress bool   `mapstructure:"progress"`
}

// MetricsConfig selects where render metrics are written
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// Load loads configuration from the global viper instance
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom loads configuration from v
func LoadFrom(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, internal.NewError(internal.ErrorCodeConfig, "failed to unmarshal configuration", err)
	}

	if err := Validate(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Grid defaults
	v.SetDefault("grid.base_zoom", 14)
	v.SetDefault("grid.cell_depth", 3)
	v.SetDefault("grid.strict_bounds", false)

	// Input defaults
	v.SetDefault("input.data_dir", "data")
	v.SetDefault("input.strip_outside_region", true)

	// Output defaults
	v.SetDefault("output.directory", "grid-data")
	v.SetDefault("output.format", "geojson")
	v.SetDefault("output.pretty", false)
	v.SetDefault("output.compression", false)
	v.SetDefault("output.metadata", false)
	v.SetDefault("output.mode", string(internal.OutputModeTiles))
	v.SetDefault("output.world_zoom", 10)
	v.SetDefault("output.world_file", "grid.json")

	// Batch defaults
	v.SetDefault("batch.concurrency", 8)
	v.SetDefault("batch.chunk_size", 256)
	v.SetDefault("batch.timeout", 30*time.Minute)
	v.SetDefault("batch.fail_on_error", false)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.verbose", false)
	v.SetDefault("logging.progress", true)
}

// windowLayouts are tried in order before falling back to cast
var windowLayouts = []string{incident.MonthLayout, "2006-01-02", time.RFC3339}

// ParseWindowTime parses a window bound such as "2014-01", "2014-01-15" or an RFC 3339 timestamp
func ParseWindowTime(s string) (time.Time, error) {
	for _, layout := range windowLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	t, err := cast.ToTimeE(s)
	if err != nil {
		return time.Time{}, internal.NewError(internal.ErrorCodeConfig,
			fmt.Sprintf("invalid window time %q", s), err)
	}
	return t, nil
}

// Range returns the parsed window [from, to)
func (w WindowConfig) Range() (time.Time, time.Time, error) {
	from, err := ParseWindowTime(w.From)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("window.from: %w", err)
	}
	to, err := ParseWindowTime(w.To)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("window.to: %w", err)
	}
	return from, to, nil
}

// Spec converts the region entry for region.Load
func (r RegionConfig) Spec() region.Spec {
	return region.Spec{
		Name:      r.Name,
		Boundary:  r.Boundary,
		HumanName: r.HumanName,
		URL:       r.URL,
	}
}

// OutputMode returns the configured output mode
func (c *Config) OutputMode() internal.OutputMode {
	return internal.OutputMode(strings.ToLower(c.Output.Mode))
}

// WriterConfig builds the tile writer configuration
func (c *Config) WriterConfig() *output.WriterConfig {
	return &output.WriterConfig{
		Format:      output.Format(strings.ToLower(c.Output.Format)),
		Pretty:      c.Output.Pretty,
		Compression: c.Output.Compression,
		Metadata:    c.Output.Metadata,
	}
}

// JobConfig builds the batch job configuration
func (c *Config) JobConfig() *batch.JobConfig {
	return &batch.JobConfig{
		Concurrency: c.Batch.Concurrency,
		ChunkSize:   c.Batch.ChunkSize,
		Timeout:     c.Batch.Timeout,
		FailOnError: c.Batch.FailOnError,
	}
}

// LoggingOptions builds the logger options
func (c *Config) LoggingOptions() logging.Options {
	return logging.Options{
		Level:   c.Logging.Level,
		Format:  c.Logging.Format,
		Verbose: c.Logging.Verbose,
	}
}
