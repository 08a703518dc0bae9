// cmd/view.go - Map view command over a rendered tile tree
package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/valpere/crimegrid/internal/view"
)

// viewCmd represents the view command
var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Assemble the rendered cells visible in a map view",
	Long: `Load the regional tiles a map client would show for a bounding box and map zoom
from a tile tree written by 'crimegrid render', and print their cells as one
GeoJSON FeatureCollection.

Map zooms deeper than base-zoom minus cell-depth reuse the deepest file tiles.
Tiles outside every region are absent from the tree and contribute no cells.

Examples:
  # Cells visible over St. Louis at map zoom 12
  crimegrid view --bbox "-90.4,38.5,-90.1,38.8" --zoom 12

  # Whole world at zoom 0 from a custom tree, written to a file
  crimegrid view --dir ./out --zoom 0 --output world.geojson`,
	RunE: runView,
}

func init() {
	rootCmd.AddCommand(viewCmd)

	viewCmd.Flags().String("dir", "", "rendered tile tree (default: output.directory)")
	viewCmd.Flags().String("bbox", "-180,-85.05112878,180,85.05112878", "view bounds: 'min_lon,min_lat,max_lon,max_lat'")
	viewCmd.Flags().Int("zoom", 0, "map zoom level")
	viewCmd.Flags().StringP("output", "o", "", "output file path (default: stdout)")
}

func runView(cmd *cobra.Command, args []string) error {
	_, logger, err := loadConfig()
	if err != nil {
		return err
	}

	dir, _ := cmd.Flags().GetString("dir")
	bboxStr, _ := cmd.Flags().GetString("bbox")
	zoom, _ := cmd.Flags().GetInt("zoom")
	outputPath, _ := cmd.Flags().GetString("output")

	if dir == "" {
		dir = viper.GetString("output.directory")
	}
	if dir == "" {
		dir = "grid-data"
	}

	bound, err := parseBoundingBox(bboxStr)
	if err != nil {
		return fmt.Errorf("failed to parse bounding box: %w", err)
	}

	fs := afero.NewOsFs()
	src, manifest, err := view.NewLocalSourceFromManifest(fs, dir)
	if err != nil {
		return fmt.Errorf("failed to open tile tree: %w", err)
	}

	controller, err := view.NewController(src, manifest.BaseZoom, manifest.CellDepth)
	if err != nil {
		return err
	}

	update, err := controller.Update(cmd.Context(), view.View{Bound: bound, Zoom: zoom})
	if err != nil {
		return err
	}
	logger.Debug("View updated", "file_zoom", update.Zoom, "tiles", len(update.Added))

	fc := controller.Collection()
	var data []byte
	if viper.GetBool("output.pretty") {
		data, err = json.MarshalIndent(fc, "", "  ")
	} else {
		data, err = json.Marshal(fc)
	}
	if err != nil {
		return fmt.Errorf("failed to encode view: %w", err)
	}

	if outputPath == "" || outputPath == "-" {
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	}
	if err := afero.WriteFile(fs, outputPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	logger.Info("View written", "path", outputPath, "tiles", len(controller.Layers()), "features", len(fc.Features))
	return nil
}

// parseBoundingBox parses a bounding box string
func parseBoundingBox(bbox string) (orb.Bound, error) {
	parts := strings.Split(bbox, ",")
	if len(parts) != 4 {
		return orb.Bound{}, fmt.Errorf("bounding box must have 4 values: min_lon,min_lat,max_lon,max_lat")
	}

	coords := make([]float64, 4)
	for i, part := range parts {
		val, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return orb.Bound{}, fmt.Errorf("invalid coordinate value: %s", part)
		}
		coords[i] = val
	}

	if coords[0] > coords[2] || coords[1] > coords[3] {
		return orb.Bound{}, fmt.Errorf("bounding box minimum exceeds maximum: %s", bbox)
	}

	return orb.Bound{
		Min: orb.Point{coords[0], coords[1]},
		Max: orb.Point{coords[2], coords[3]},
	}, nil
}
