// internal/metrics/metrics.go - Prometheus metrics for render passes
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Record outcomes
const (
	OutcomeLocated   = "located"
	OutcomeUnlocated = "unlocated"
	OutcomeRejected  = "rejected"
	OutcomeFiltered  = "filtered"
)

// Recorder holds the collectors of one process on its own registry
type Recorder struct {
	registry *prometheus.Registry

	Records       *prometheus.CounterVec
	SeededCells   prometheus.Counter
	Tiles         *prometheus.CounterVec
	FailedRegions prometheus.Counter
	GridCells     *prometheus.GaugeVec
	Duration      prometheus.Gauge
}

// NewRecorder creates and registers every collector
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		Records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crimegrid_records_total",
			Help: "Incident records read, by outcome",
		}, []string{"outcome"}),
		SeededCells: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crimegrid_seeded_cells_total",
			Help: "Zero-count cells marked present by region boundaries",
		}),
		Tiles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crimegrid_tiles_total",
			Help: "Regional tiles emitted, by status",
		}, []string{"status"}),
		FailedRegions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crimegrid_failed_regions_total",
			Help: "Regions skipped because they could not be loaded",
		}),
		GridCells: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "crimegrid_grid_cells",
			Help: "Present cells per zoom level of the last render",
		}, []string{"zoom"}),
		Duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "crimegrid_render_duration_seconds",
			Help: "Wall time of the last render pass",
		}),
	}

	r.registry.MustRegister(r.Records, r.SeededCells, r.Tiles, r.FailedRegions, r.GridCells, r.Duration)
	return r
}

// Registry exposes the recorder's registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveRecords adds n records with the given outcome
func (r *Recorder) ObserveRecords(outcome string, n int) {
	r.Records.WithLabelValues(outcome).Add(float64(n))
}

// ObserveTiles adds the successful and failed tiles of a batch job
func (r *Recorder) ObserveTiles(success, failed int64) {
	r.Tiles.WithLabelValues("success").Add(float64(success))
	r.Tiles.WithLabelValues("failed").Add(float64(failed))
}

// ObserveLevel sets the present cell count of one zoom level
func (r *Recorder) ObserveLevel(zoom, cells int) {
	r.GridCells.WithLabelValues(fmt.Sprintf("%d", zoom)).Set(float64(cells))
}

// ObserveDuration records the wall time of a render pass
func (r *Recorder) ObserveDuration(d time.Duration) {
	r.Duration.Set(d.Seconds())
}

// WriteTextfile writes every metric in the text exposition format for a node exporter textfile collector
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
