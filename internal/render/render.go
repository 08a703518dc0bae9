// internal/render/render.go - Render pass: regions to grid to tiles
package render

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/valpere/crimegrid/internal"
	"github.com/valpere/crimegrid/internal/batch"
	"github.com/valpere/crimegrid/internal/config"
	"github.com/valpere/crimegrid/internal/grid"
	"github.com/valpere/crimegrid/internal/incident"
	"github.com/valpere/crimegrid/internal/metrics"
	"github.com/valpere/crimegrid/internal/output"
	"github.com/valpere/crimegrid/internal/region"
	"github.com/valpere/crimegrid/internal/tile"
)

// Renderer runs render passes over the configured regions
type Renderer struct {
	fs       afero.Fs
	cfg      *config.Config
	table    incident.FieldTable
	logger   *slog.Logger
	metrics  *metrics.Recorder
	reporter batch.ProgressReporter
}

// Option customizes a Renderer
type Option func(*Renderer)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(r *Renderer) {
		r.logger = logger
	}
}

// WithMetrics records pass metrics on m
func WithMetrics(m *metrics.Recorder) Option {
	return func(r *Renderer) {
		r.metrics = m
	}
}

// WithProgressReporter reports tile emission progress
func WithProgressReporter(reporter batch.ProgressReporter) Option {
	return func(r *Renderer) {
		r.reporter = reporter
	}
}

// WithFieldTable replaces the default incident field table
func WithFieldTable(table incident.FieldTable) Option {
	return func(r *Renderer) {
		r.table = table
	}
}

// Result summarizes a render pass
type Result struct {
	Stats    internal.ProcessingStats
	Family   *grid.ZoomFamily
	Manifest *output.Manifest
	// RegionErrors holds the failures of skipped regions
	RegionErrors error
}

// New creates a renderer. The field table is validated here, once.
func New(fs afero.Fs, cfg *config.Config, opts ...Option) (*Renderer, error) {
	r := &Renderer{
		fs:     fs,
		cfg:    cfg,
		table:  incident.DefaultFieldTable(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}

	if err := r.table.Validate(incident.RequiredTargets...); err != nil {
		return nil, fmt.Errorf("invalid field table: %w", err)
	}
	if len(cfg.Regions) == 0 {
		return nil, internal.NewError(internal.ErrorCodeConfig, "no regions configured", nil)
	}
	if cfg.Window.From == "" || cfg.Window.To == "" {
		return nil, internal.NewError(internal.ErrorCodeConfig, "a time window (from, to) is required", nil)
	}
	if cfg.OutputMode() == internal.OutputModeWorld && cfg.Output.WorldZoom > cfg.Grid.BaseZoom {
		return nil, internal.NewError(internal.ErrorCodeConfig,
			fmt.Sprintf("world_zoom %d is deeper than base_zoom %d", cfg.Output.WorldZoom, cfg.Grid.BaseZoom), nil)
	}
	return r, nil
}

// regionResult is the outcome of loading one region
type regionResult struct {
	grid    grid.SparseGrid
	summary output.RegionSummary
	err     error
}

// BuildFamily loads every region, merges their grids and rolls the result up.
// Regions that fail are skipped and reported in Result.RegionErrors; invariant violations abort.
func (r *Renderer) BuildFamily(ctx context.Context) (*Result, error) {
	res := &Result{Stats: internal.ProcessingStats{StartTime: time.Now()}}

	from, to, err := r.cfg.Window.Range()
	if err != nil {
		return nil, internal.NewError(internal.ErrorCodeConfig, "invalid time window", err)
	}

	store := incident.NewStore(r.fs, r.cfg.Input.DataDir, r.table, r.logger)
	results := make([]regionResult, len(r.cfg.Regions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(r.cfg.Batch.Concurrency, 1))
	for i, rc := range r.cfg.Regions {
		i, rc := i, rc
		g.Go(func() error {
			rg, summary, err := r.loadRegion(gctx, store, rc, from, to)
			if internal.HasCode(err, internal.ErrorCodeInvariant) {
				return err
			}
			results[i] = regionResult{grid: rg, summary: summary, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("render aborted: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var grids []grid.SparseGrid
	var summaries []output.RegionSummary
	for _, rr := range results {
		res.Stats.Regions++
		if rr.err != nil {
			res.Stats.FailedRegions++
			rr.summary.Error = rr.err.Error()
			res.RegionErrors = multierr.Append(res.RegionErrors, rr.err)
			r.logger.Warn("Skipping region", "region", rr.summary.Name, "error", rr.err)
			if r.metrics != nil {
				r.metrics.FailedRegions.Inc()
			}
		} else {
			grids = append(grids, rr.grid)
			res.Stats.Incidents += int64(rr.summary.Incidents)
			res.Stats.Unlocated += int64(rr.summary.Unlocated)
			res.Stats.Rejected += int64(rr.summary.Rejected)
		}
		summaries = append(summaries, rr.summary)
	}

	if len(grids) == 0 {
		return nil, internal.NewError(internal.ErrorCodeProcessing, "every region failed to load", res.RegionErrors)
	}

	merged := grid.MergeAll(grids...)
	family, err := grid.BuildZoomFamily(merged, r.cfg.Grid.BaseZoom)
	if err != nil {
		return nil, fmt.Errorf("failed to roll up grid: %w", err)
	}
	res.Family = family

	levels := make([]output.LevelSummary, 0, len(family.Levels))
	for z, level := range family.Levels {
		levels = append(levels, output.LevelSummary{Zoom: z, Cells: level.Len(), Total: level.Total()})
		if r.metrics != nil {
			r.metrics.ObserveLevel(z, level.Len())
		}
	}

	res.Manifest = &output.Manifest{
		From:        from,
		To:          to,
		BaseZoom:    r.cfg.Grid.BaseZoom,
		CellDepth:   r.cfg.Grid.CellDepth,
		Format:      r.cfg.WriterConfig().Format,
		Compression: r.cfg.Output.Compression,
		Regions:     summaries,
		Levels:      levels,
	}

	r.logger.Info("Grid built",
		"regions", res.Stats.Regions-res.Stats.FailedRegions,
		"failed_regions", res.Stats.FailedRegions,
		"incidents", res.Stats.Incidents,
		"cells", merged.Len())

	return res, nil
}

// loadRegion runs geometry, records, base grid, seed and validation for one region
func (r *Renderer) loadRegion(ctx context.Context, store *incident.Store, rc config.RegionConfig, from, to time.Time) (grid.SparseGrid, output.RegionSummary, error) {
	summary := output.RegionSummary{Name: rc.Name, HumanName: rc.HumanName, URL: rc.URL}
	if summary.HumanName == "" {
		summary.HumanName = rc.Name
	}
	logger := r.logger.With("region", rc.Name)
	zoom := r.cfg.Grid.BaseZoom

	reg, err := region.Load(r.fs, rc.Spec())
	if err != nil {
		return nil, summary, err
	}
	summary.HumanName = reg.HumanName

	records, loadStats, err := store.Load(ctx, reg.Name, from, to)
	if err != nil {
		return nil, summary, fmt.Errorf("region %s: %w", reg.Name, err)
	}

	if r.cfg.Input.StripOutsideRegion {
		var stripped int
		records, stripped = stripOutside(records, reg)
		if stripped > 0 {
			logger.Debug("Stripped incidents outside region", "count", stripped)
		}
		loadStats.Filtered += stripped
	}

	opts := []grid.BuildOption{grid.WithLogger(logger)}
	if r.cfg.Grid.StrictBounds {
		opts = append(opts, grid.WithStrictBounds())
	}
	g, buildStats, err := grid.Build(records, zoom, opts...)
	if err != nil {
		return nil, summary, fmt.Errorf("region %s: %w", reg.Name, err)
	}

	seeded, err := grid.Seed(g, reg.Geometry, zoom)
	if err != nil {
		return nil, summary, fmt.Errorf("region %s: %w", reg.Name, err)
	}

	if err := g.Validate(zoom); err != nil {
		return nil, summary, fmt.Errorf("region %s: %w", reg.Name, err)
	}

	summary.Incidents = buildStats.Located
	summary.Unlocated = buildStats.Unlocated
	summary.Rejected = buildStats.Rejected
	summary.Seeded = seeded

	if r.metrics != nil {
		r.metrics.ObserveRecords(metrics.OutcomeLocated, buildStats.Located)
		r.metrics.ObserveRecords(metrics.OutcomeUnlocated, buildStats.Unlocated)
		r.metrics.ObserveRecords(metrics.OutcomeRejected, buildStats.Rejected)
		r.metrics.ObserveRecords(metrics.OutcomeFiltered, loadStats.Filtered)
		r.metrics.SeededCells.Add(float64(seeded))
	}

	logger.Info("Region loaded",
		"files", loadStats.Files, "missing_months", loadStats.Missing,
		"incidents", buildStats.Located, "unlocated", buildStats.Unlocated,
		"rejected", buildStats.Rejected, "seeded", seeded)

	return g, summary, nil
}

// stripOutside drops located records that fall outside the region boundary.
// Unlocated records are kept so they are still counted.
func stripOutside(records []incident.Record, reg *region.Region) ([]incident.Record, int) {
	kept := records[:0]
	stripped := 0
	for _, rec := range records {
		if rec.HasLocation() && !reg.Contains(*rec.Location) {
			stripped++
			continue
		}
		kept = append(kept, rec)
	}
	return kept, stripped
}

// Run performs a full render pass and writes its output
func (r *Renderer) Run(ctx context.Context) (*Result, error) {
	start := time.Now()

	res, err := r.BuildFamily(ctx)
	if err != nil {
		return nil, err
	}

	switch r.cfg.OutputMode() {
	case internal.OutputModeWorld:
		err = r.writeWorld(res)
	default:
		err = r.writeTiles(ctx, res)
	}
	if err != nil {
		return res, err
	}

	res.Stats.StartTime = start
	res.Stats.EndTime = time.Now()

	if r.metrics != nil {
		r.metrics.ObserveTiles(res.Stats.WrittenTiles, res.Stats.FailedTiles)
		r.metrics.ObserveDuration(res.Stats.Duration())
		if r.cfg.Metrics.Textfile != "" {
			if err := r.metrics.WriteTextfile(r.cfg.Metrics.Textfile); err != nil {
				r.logger.Warn("Failed to write metrics", "error", err)
			}
		}
	}

	return res, nil
}

// writeTiles emits every covered regional tile and the manifest
func (r *Renderer) writeTiles(ctx context.Context, res *Result) error {
	writer, err := output.NewMultiFileWriter(r.fs, r.cfg.WriterConfig(), r.cfg.Output.Directory)
	if err != nil {
		return internal.NewError(internal.ErrorCodeFileSystem, "failed to create tile writer", err)
	}
	defer writer.Close()

	coords := tile.Coverage(res.Family, r.cfg.Grid.CellDepth)
	job := batch.NewJob(fmt.Sprintf("render-%d", time.Now().Unix()), coords, r.cfg.Grid.CellDepth, r.cfg.JobConfig())

	bp := batch.NewBatchProcessor(res.Family, writer, r.reporter, r.logger)
	err = bp.Process(ctx, job)

	res.Stats.TotalTiles = job.Progress.TotalTiles
	res.Stats.WrittenTiles = job.Progress.SuccessTiles
	res.Stats.FailedTiles = job.Progress.FailedTiles
	if err != nil {
		return fmt.Errorf("tile emission failed: %w", err)
	}

	res.Manifest.GeneratedAt = time.Now().UTC()
	res.Manifest.Tiles = int(job.Progress.SuccessTiles)
	if err := output.WriteManifest(r.fs, r.cfg.Output.Directory, res.Manifest); err != nil {
		return err
	}

	r.logger.Info("Tiles written",
		"tiles", job.Progress.SuccessTiles, "failed", job.Progress.FailedTiles,
		"features", job.Progress.Features, "directory", r.cfg.Output.Directory)
	return nil
}

// writeWorld writes the dense legacy grid at the configured world zoom
func (r *Renderer) writeWorld(res *Result) error {
	zoom := r.cfg.Output.WorldZoom
	level, err := res.Family.Level(zoom)
	if err != nil {
		return err
	}

	path := r.WorldPath()
	if err := output.WriteWorldGrid(r.fs, path, grid.Dense(level, zoom), r.cfg.Output.Pretty); err != nil {
		return err
	}

	r.logger.Info("World grid written", "path", path, "zoom", zoom, "cells", level.Len())
	return nil
}

// WorldPath returns where world mode writes its grid
func (r *Renderer) WorldPath() string {
	if filepath.IsAbs(r.cfg.Output.WorldFile) {
		return r.cfg.Output.WorldFile
	}
	return filepath.Join(r.cfg.Output.Directory, r.cfg.Output.WorldFile)
}
