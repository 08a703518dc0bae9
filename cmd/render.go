// cmd/render.go - Render pass command
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/valpere/crimegrid/internal/batch"
	"github.com/valpere/crimegrid/internal/metrics"
	"github.com/valpere/crimegrid/internal/render"
)

// renderCmd represents the render command
var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Aggregate incidents and write the grid",
	Long: `Aggregate the incidents of every configured region inside the time window and
write the result.

In tiles mode every present cell of every zoom from 0 to base-zoom minus
cell-depth becomes one regional tile file under <output-dir>/z/x/y.json, plus a
manifest.json describing the pass. In world mode a single dense grid at
world-zoom is written instead.

Regions whose boundary or incident files cannot be read are skipped and
reported; the pass fails only when every region fails or the grid breaks an
invariant.

Examples:
  # Render tiles for 2014 into ./grid-data
  crimegrid render --from 2014-01 --to 2015-01

  # Render compressed vector tiles with more workers
  crimegrid render --from 2014-01 --to 2015-01 --format mvt --compression --concurrency 16

  # Render the world grid at zoom 8
  crimegrid render --mode world --world-zoom 8 --from 2014-01 --to 2015-01

  # Write metrics for the node exporter textfile collector
  crimegrid render --from 2014-01 --to 2015-01 --metrics-file /var/lib/node_exporter/crimegrid.prom`,
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	// Output flags
	renderCmd.Flags().String("mode", "tiles", "output mode (tiles, world)")
	renderCmd.Flags().String("output-dir", "grid-data", "output directory")
	renderCmd.Flags().Int("world-zoom", 10, "zoom of the dense grid in world mode")
	renderCmd.Flags().String("world-file", "grid.json", "world grid file, relative to the output directory")
	renderCmd.Flags().Bool("metadata", false, "include tile metadata in output")

	// Processing flags
	renderCmd.Flags().Int("chunk-size", 256, "number of tiles per processing chunk")
	renderCmd.Flags().Duration("timeout", 30*time.Minute, "tile emission timeout")
	renderCmd.Flags().Bool("fail-on-error", false, "stop processing on first tile error")
	renderCmd.Flags().Bool("strict-bounds", false, "fail on incidents outside the Mercator range instead of skipping them")
	renderCmd.Flags().Bool("strip-outside", true, "drop incidents outside their region boundary")

	// Progress flags
	renderCmd.Flags().Bool("progress", true, "show progress indicator")
	renderCmd.Flags().String("metrics-file", "", "write prometheus metrics to this textfile")

	viper.BindPFlag("output.mode", renderCmd.Flags().Lookup("mode"))
	viper.BindPFlag("output.directory", renderCmd.Flags().Lookup("output-dir"))
	viper.BindPFlag("output.world_zoom", renderCmd.Flags().Lookup("world-zoom"))
	viper.BindPFlag("output.world_file", renderCmd.Flags().Lookup("world-file"))
	viper.BindPFlag("output.metadata", renderCmd.Flags().Lookup("metadata"))
	viper.BindPFlag("batch.chunk_size", renderCmd.Flags().Lookup("chunk-size"))
	viper.BindPFlag("batch.timeout", renderCmd.Flags().Lookup("timeout"))
	viper.BindPFlag("batch.fail_on_error", renderCmd.Flags().Lookup("fail-on-error"))
	viper.BindPFlag("grid.strict_bounds", renderCmd.Flags().Lookup("strict-bounds"))
	viper.BindPFlag("input.strip_outside_region", renderCmd.Flags().Lookup("strip-outside"))
	viper.BindPFlag("logging.progress", renderCmd.Flags().Lookup("progress"))
	viper.BindPFlag("metrics.textfile", renderCmd.Flags().Lookup("metrics-file"))
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	opts := []render.Option{
		render.WithLogger(logger),
		render.WithMetrics(metrics.NewRecorder()),
	}
	if cfg.Logging.Progress {
		opts = append(opts, render.WithProgressReporter(NewConsoleProgressReporter(cmd.ErrOrStderr())))
	}

	renderer, err := render.New(afero.NewOsFs(), cfg, opts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Render started",
		"mode", cfg.OutputMode(), "from", cfg.Window.From, "to", cfg.Window.To,
		"base_zoom", cfg.Grid.BaseZoom, "cell_depth", cfg.Grid.CellDepth, "regions", len(cfg.Regions))

	res, err := renderer.Run(ctx)
	if err != nil {
		return fmt.Errorf("render failed: %w", err)
	}

	stats := res.Stats
	logger.Info("Render completed",
		"regions", stats.Regions, "failed_regions", stats.FailedRegions,
		"incidents", stats.Incidents, "unlocated", stats.Unlocated, "rejected", stats.Rejected,
		"tiles", stats.WrittenTiles, "failed_tiles", stats.FailedTiles, "duration", stats.Duration())

	return nil
}

// ConsoleProgressReporter implements progress reporting to console
type ConsoleProgressReporter struct {
	out        io.Writer
	lastUpdate time.Time
}

// NewConsoleProgressReporter creates a new console progress reporter
func NewConsoleProgressReporter(out io.Writer) *ConsoleProgressReporter {
	return &ConsoleProgressReporter{out: out}
}

// ReportProgress reports job progress to console
func (r *ConsoleProgressReporter) ReportProgress(job *batch.Job) error {
	if time.Since(r.lastUpdate) < time.Second {
		return nil // Rate limit updates
	}

	progress := job.Progress.CalculateProgress()
	fmt.Fprintf(r.out, "\rProgress: %.1f%% (%d/%d tiles, %.2f tiles/sec)",
		progress, job.Progress.ProcessedTiles, job.Progress.TotalTiles, job.Progress.Throughput)

	r.lastUpdate = time.Now()
	return nil
}

// ReportChunkComplete reports chunk completion
func (r *ConsoleProgressReporter) ReportChunkComplete(job *batch.Job, chunk *batch.ChunkResult) error {
	return r.ReportProgress(job)
}

// ReportJobComplete reports job completion
func (r *ConsoleProgressReporter) ReportJobComplete(job *batch.Job) error {
	fmt.Fprintf(r.out, "\rCompleted: 100%% (%d tiles, %d features)\n",
		job.Progress.ProcessedTiles, job.Progress.Features)
	return nil
}

// ReportJobFailed reports job failure
func (r *ConsoleProgressReporter) ReportJobFailed(job *batch.Job, err error) error {
	if errors.Is(err, context.Canceled) {
		fmt.Fprintf(r.out, "\rCanceled after %d tiles\n", job.Progress.ProcessedTiles)
		return nil
	}
	fmt.Fprintf(r.out, "\rFailed: %s\n", err.Error())
	return nil
}
