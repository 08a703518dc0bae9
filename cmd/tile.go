// cmd/tile.go - Single regional tile command
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/valpere/crimegrid/internal/output"
	"github.com/valpere/crimegrid/internal/render"
	"github.com/valpere/crimegrid/internal/tile"
)

// tileCmd represents the tile command
var tileCmd = &cobra.Command{
	Use:   "tile [z/x/y]",
	Short: "Aggregate incidents and print a single regional tile",
	Long: `Aggregate the incidents of every configured region inside the time window and
encode a single regional tile. The tile holds the cells of zoom z+cell-depth
that fall inside tile z/x/y.

The coordinate is given either as a z/x/y argument or with --z/--x/--y.

Examples:
  # Print the world tile to stdout
  crimegrid tile 0/0/0 --from 2014-01 --to 2014-04

  # Write a tile using coordinate flags
  crimegrid tile --z 11 --x 492 --y 786 --from 2014-01 --to 2014-04 --output tile.geojson

  # Write a compressed vector tile
  crimegrid tile 11/492/786 --from 2014-01 --to 2014-04 --format mvt --compression --output tile.mvt.gz`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTile,
}

func init() {
	rootCmd.AddCommand(tileCmd)

	// Tile flags
	tileCmd.Flags().Int("z", 0, "tile zoom level")
	tileCmd.Flags().Int("x", 0, "tile x coordinate")
	tileCmd.Flags().Int("y", 0, "tile y coordinate")

	// Output flags
	tileCmd.Flags().StringP("output", "o", "", "output file path (default: stdout)")
	tileCmd.Flags().Bool("metadata", false, "include tile metadata in output")

	tileCmd.MarkFlagsRequiredTogether("z", "x", "y")
}

func runTile(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	coord, err := tileArgument(cmd, args)
	if err != nil {
		return err
	}

	outputPath, _ := cmd.Flags().GetString("output")
	metadata, _ := cmd.Flags().GetBool("metadata")

	fs := afero.NewOsFs()
	renderer, err := render.New(fs, cfg, render.WithLogger(logger))
	if err != nil {
		return err
	}

	res, err := renderer.BuildFamily(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to build grid: %w", err)
	}

	rt, err := tile.Extract(res.Family, coord.Z, coord.X, coord.Y, cfg.Grid.CellDepth)
	if err != nil {
		return fmt.Errorf("failed to extract tile %s: %w", coord, err)
	}
	encoded := tile.NewEncoder().EncodeTile(rt)

	writerConfig := cfg.WriterConfig()
	writerConfig.Metadata = metadata

	if outputPath != "" && outputPath != "-" {
		// Ensure output directory exists
		if err := fs.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	writer, err := output.NewWriter(fs, cmd.OutOrStdout(), writerConfig, outputPath, false)
	if err != nil {
		return fmt.Errorf("failed to create writer: %w", err)
	}
	defer writer.Close()

	if err := writer.Write(encoded); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if viper.GetBool("logging.verbose") {
		fmt.Fprintf(os.Stderr, "Tile %s: %d cells, %d incidents\n",
			coord, encoded.Metadata.FeatureCount, encoded.Metadata.CrimeCount)
	}

	return nil
}

// tileArgument reads the tile coordinate from the z/x/y argument or the coordinate flags
func tileArgument(cmd *cobra.Command, args []string) (*tile.TileCoordinate, error) {
	if len(args) == 1 {
		if cmd.Flags().Changed("z") {
			return nil, fmt.Errorf("use either a z/x/y argument or --z/--x/--y, not both")
		}
		return tile.ParseTileCoordinate(args[0])
	}

	if !cmd.Flags().Changed("z") {
		return nil, fmt.Errorf("either a z/x/y argument or --z/--x/--y coordinates must be specified")
	}

	z, _ := cmd.Flags().GetInt("z")
	x, _ := cmd.Flags().GetInt("x")
	y, _ := cmd.Flags().GetInt("y")

	coord := tile.NewTileCoordinate(z, x, y)
	if err := coord.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tile coordinates: %w", err)
	}
	return coord, nil
}
