// cmd/root.go - Root command implementation
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/valpere/crimegrid/internal/config"
	"github.com/valpere/crimegrid/internal/logging"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "crimegrid",
	Short: "Aggregate crime incidents into multi-zoom map grids",
	Long: `CrimeGrid counts geolocated crime incidents per Web Mercator tile cell.

Incidents are read from monthly per-region files, counted into a sparse grid at
the base zoom, merged across regions and rolled up to every coarser zoom. The
result is written either as regional GeoJSON tiles (one file per z/x/y holding
a window of finer cells) or as a single dense world grid.

Examples:
  # Render regional tiles for the first quarter of 2014
  crimegrid render --from 2014-01 --to 2014-04

  # Render the legacy world grid at zoom 10
  crimegrid render --mode world --world-zoom 10 --from 2014-01 --to 2014-04

  # Print a single regional tile
  crimegrid tile 3/1/2 --from 2014-01 --to 2014-04

  # Assemble the tiles visible in a map view
  crimegrid view --bbox "-90.4,38.5,-90.1,38.8" --zoom 12

  # Use a configuration file
  crimegrid render --config crimegrid.yaml`,
	Version:      "1.0.0",
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.crimegrid.yaml)")

	// Grid flags
	rootCmd.PersistentFlags().Int("base-zoom", 14, "zoom level incidents are counted at")
	rootCmd.PersistentFlags().Int("cell-depth", 3, "zoom levels between a file tile and its cells")
	rootCmd.PersistentFlags().String("from", "", "window start, inclusive (e.g. 2014-01)")
	rootCmd.PersistentFlags().String("to", "", "window end, exclusive (e.g. 2014-04)")
	rootCmd.PersistentFlags().String("data-dir", "data", "directory of monthly incident files")

	// Output flags
	rootCmd.PersistentFlags().StringP("format", "f", "geojson", "output format (geojson, json, mvt)")
	rootCmd.PersistentFlags().Bool("pretty", false, "pretty print JSON output")
	rootCmd.PersistentFlags().Bool("compression", false, "compress output files")

	// Processing flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
	rootCmd.PersistentFlags().Int("concurrency", 8, "number of concurrent workers")

	// Bind flags to viper
	viper.BindPFlag("grid.base_zoom", rootCmd.PersistentFlags().Lookup("base-zoom"))
	viper.BindPFlag("grid.cell_depth", rootCmd.PersistentFlags().Lookup("cell-depth"))
	viper.BindPFlag("window.from", rootCmd.PersistentFlags().Lookup("from"))
	viper.BindPFlag("window.to", rootCmd.PersistentFlags().Lookup("to"))
	viper.BindPFlag("input.data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))
	viper.BindPFlag("output.format", rootCmd.PersistentFlags().Lookup("format"))
	viper.BindPFlag("output.pretty", rootCmd.PersistentFlags().Lookup("pretty"))
	viper.BindPFlag("output.compression", rootCmd.PersistentFlags().Lookup("compression"))
	viper.BindPFlag("logging.verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("batch.concurrency", rootCmd.PersistentFlags().Lookup("concurrency"))
}

// initConfig reads in .env, the config file and ENV variables if set.
func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "Warning: failed to load .env:", err)
	}

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".crimegrid" (without extension)
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".crimegrid")
	}

	// Environment variables, e.g. CRIMEGRID_GRID_BASE_ZOOM
	viper.SetEnvPrefix("CRIMEGRID")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("logging.verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

// loadConfig loads the configuration and the logger it describes
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := logging.New(cfg.LoggingOptions(), os.Stderr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	slog.SetDefault(logger)

	return cfg, logger, nil
}
