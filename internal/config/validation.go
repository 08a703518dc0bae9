// internal/config/validation.go - Configuration validation
package config

import (
	"fmt"
	"strings"

	"github.com/valpere/crimegrid/internal"
	"github.com/valpere/crimegrid/internal/geo"
	"github.com/valpere/crimegrid/internal/tile"
)

// Validate validates the configuration structure and values
func Validate(config *Config) error {
	if err := validateGrid(&config.Grid); err != nil {
		return configError("grid configuration invalid", err)
	}

	if err := validateWindow(&config.Window); err != nil {
		return configError("window configuration invalid", err)
	}

	if err := validateRegions(config.Regions); err != nil {
		return configError("regions configuration invalid", err)
	}

	if err := validateOutput(&config.Output); err != nil {
		return configError("output configuration invalid", err)
	}

	if err := validateBatch(&config.Batch); err != nil {
		return configError("batch configuration invalid", err)
	}

	if err := validateLogging(&config.Logging); err != nil {
		return configError("logging configuration invalid", err)
	}

	return nil
}

func configError(msg string, err error) error {
	return internal.NewError(internal.ErrorCodeConfig, msg, err)
}

// validateGrid validates the aggregation resolution
func validateGrid(config *GridConfig) error {
	if err := geo.ValidateZoom(config.BaseZoom); err != nil {
		return fmt.Errorf("base_zoom: %w", err)
	}

	if err := tile.ValidateCellDepth(config.CellDepth); err != nil {
		return fmt.Errorf("cell_depth: %w", err)
	}

	if config.CellDepth > config.BaseZoom {
		return fmt.Errorf("cell_depth %d must not exceed base_zoom %d", config.CellDepth, config.BaseZoom)
	}

	return nil
}

// validateWindow requires a non-empty window when one is configured
func validateWindow(config *WindowConfig) error {
	if config.From == "" && config.To == "" {
		return nil
	}

	from, to, err := config.Range()
	if err != nil {
		return err
	}
	if !from.Before(to) {
		return fmt.Errorf("from %s must be before to %s", config.From, config.To)
	}

	return nil
}

// validateRegions requires unique names and a boundary for every region
func validateRegions(regions []RegionConfig) error {
	seen := make(map[string]bool, len(regions))
	for i, r := range regions {
		if r.Name == "" {
			return fmt.Errorf("region %d: name is required", i)
		}
		if strings.ContainsAny(r.Name, `/\`) {
			return fmt.Errorf("region %s: name must not contain path separators", r.Name)
		}
		if seen[r.Name] {
			return fmt.Errorf("region %s: duplicate name", r.Name)
		}
		seen[r.Name] = true

		if r.Boundary == "" {
			return fmt.Errorf("region %s: boundary is required", r.Name)
		}
	}

	return nil
}

// validateOutput validates output configuration parameters
func validateOutput(config *OutputConfig) error {
	validFormats := []string{"geojson", "json", "mvt"}
	if !contains(validFormats, config.Format) {
		return fmt.Errorf("invalid format: %s, must be one of %v", config.Format, validFormats)
	}

	validModes := []string{string(internal.OutputModeTiles), string(internal.OutputModeWorld)}
	if !contains(validModes, config.Mode) {
		return fmt.Errorf("invalid mode: %s, must be one of %v", config.Mode, validModes)
	}

	if config.Directory == "" {
		return fmt.Errorf("directory is required")
	}

	if err := geo.ValidateZoom(config.WorldZoom); err != nil {
		return fmt.Errorf("world_zoom: %w", err)
	}

	if config.Mode == string(internal.OutputModeWorld) && config.WorldFile == "" {
		return fmt.Errorf("world_file is required in world mode")
	}

	return nil
}

// validateBatch validates batch processing configuration parameters
func validateBatch(config *BatchConfig) error {
	if config.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive")
	}

	if config.Concurrency > 1000 {
		return fmt.Errorf("concurrency must not exceed 1000")
	}

	if config.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive")
	}

	if config.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}

	return nil
}

// validateLogging validates logging configuration parameters
func validateLogging(config *LoggingConfig) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, config.Level) {
		return fmt.Errorf("invalid log level: %s, must be one of %v", config.Level, validLevels)
	}

	validFormats := []string{"text", "json"}
	if !contains(validFormats, config.Format) {
		return fmt.Errorf("invalid log format: %s, must be one of %v", config.Format, validFormats)
	}

	return nil
}

// contains checks if a string slice contains a specific string (case-insensitive)
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if strings.EqualFold(s, item) {
			return true
		}
	}
	return false
}
