// internal/batch/processor.go - Batch processing implementation
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/valpere/crimegrid/internal"
	"github.com/valpere/crimegrid/internal/grid"
	"github.com/valpere/crimegrid/internal/output"
	"github.com/valpere/crimegrid/internal/tile"
)

// BatchProcessor extracts, encodes and writes the regional tiles of a job
type BatchProcessor struct {
	family   *grid.ZoomFamily
	encoder  *tile.Encoder
	writer   output.Writer
	reporter ProgressReporter
	logger   *slog.Logger
	mutex    sync.RWMutex
}

// NewBatchProcessor creates a new batch processor over a completed zoom family
func NewBatchProcessor(family *grid.ZoomFamily, writer output.Writer, reporter ProgressReporter, logger *slog.Logger) *BatchProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchProcessor{
		family:   family,
		encoder:  tile.NewEncoder(),
		writer:   writer,
		reporter: reporter,
		logger:   logger,
	}
}

// Process executes a complete batch processing job
func (bp *BatchProcessor) Process(ctx context.Context, job *Job) error {
	if err := bp.validateJob(job); err != nil {
		bp.completeJobWithError(job, err)
		return err
	}

	if job.Config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.Config.Timeout)
		defer cancel()
	}

	bp.mutex.Lock()
	job.Status = JobStatusRunning
	now := time.Now()
	job.StartedAt = &now
	job.Progress.StartTime = now
	bp.mutex.Unlock()

	if bp.reporter != nil {
		bp.reporter.ReportProgress(job)
	}

	workItems := bp.generateWorkItems(job)

	totalChunks := (len(workItems) + job.Config.ChunkSize - 1) / job.Config.ChunkSize

	bp.mutex.Lock()
	job.Progress.TotalTiles = int64(len(workItems))
	job.Progress.TotalChunks = totalChunks
	bp.mutex.Unlock()

	bp.logger.Debug("Batch job started",
		"job", job.ID, "tiles", len(workItems), "chunks", totalChunks)

	for chunkStart, chunkID := 0, 0; chunkStart < len(workItems); chunkStart, chunkID = chunkStart+job.Config.ChunkSize, chunkID+1 {
		select {
		case <-ctx.Done():
			bp.completeJobCanceled(job, ctx.Err())
			return ctx.Err()
		default:
		}

		chunkEnd := min(chunkStart+job.Config.ChunkSize, len(workItems))
		chunk := workItems[chunkStart:chunkEnd]
		for _, item := range chunk {
			item.ChunkID = chunkID
		}

		bp.mutex.Lock()
		job.Progress.CurrentChunk = chunkID + 1
		bp.mutex.Unlock()

		chunkResult, err := bp.ProcessChunk(ctx, job, chunk)
		bp.updateJobProgress(job, chunkResult)

		if bp.reporter != nil {
			bp.reporter.ReportChunkComplete(job, chunkResult)
		}

		if err != nil {
			if job.Config.FailOnError || internal.HasCode(err, internal.ErrorCodeInvariant) {
				bp.completeJobWithError(job, fmt.Errorf("chunk %d failed: %w", chunkID, err))
				return err
			}
			bp.logger.Warn("Chunk failed", "job", job.ID, "chunk", chunkID, "error", err)
		}
	}

	bp.completeJobSuccessfully(job)

	if bp.reporter != nil {
		bp.reporter.ReportJobComplete(job)
	}

	return nil
}

// ProcessChunk extracts and encodes a chunk of tiles concurrently, then writes the successes.
// The returned error is the first tile failure, or the write failure.
func (bp *BatchProcessor) ProcessChunk(ctx context.Context, job *Job, workItems []*WorkItem) (*ChunkResult, error) {
	start := time.Now()
	result := &ChunkResult{}
	if len(workItems) == 0 {
		return result, nil
	}
	result.ChunkID = workItems[0].ChunkID

	p := pool.NewWithResults[*WorkResult]().WithMaxGoroutines(max(job.Config.Concurrency, 1))
	for _, item := range workItems {
		item := item
		p.Go(func() *WorkResult {
			if err := ctx.Err(); err != nil {
				return &WorkResult{Item: item, Error: err}
			}
			return bp.processWorkItem(item, job.CellDepth)
		})
	}

	results := p.Wait()
	sort.Slice(results, func(i, j int) bool {
		return results[i].Item.ItemID < results[j].Item.ItemID
	})
	result.Results = results

	var firstErr error
	encoded := make([]*tile.EncodedTile, 0, len(results))
	for _, r := range results {
		if r.Error != nil {
			result.FailureCount++
			if firstErr == nil {
				firstErr = fmt.Errorf("tile %s: %w", r.Item.Coordinate.String(), r.Error)
			}
			continue
		}
		result.SuccessCount++
		result.Features += r.Tile.Metadata.FeatureCount
		encoded = append(encoded, r.Tile)
	}

	if len(encoded) > 0 {
		if err := bp.writer.WriteBatch(encoded); err != nil {
			result.FailureCount += result.SuccessCount
			result.SuccessCount = 0
			result.Duration = time.Since(start)
			return result, fmt.Errorf("failed to write batch: %w", err)
		}
	}

	result.Duration = time.Since(start)
	return result, firstErr
}

// processWorkItem extracts and encodes a single tile. Pure computation is never retried.
func (bp *BatchProcessor) processWorkItem(item *WorkItem, cellDepth int) *WorkResult {
	start := time.Now()
	c := item.Coordinate

	rt, err := tile.Extract(bp.family, c.Z, c.X, c.Y, cellDepth)
	if err != nil {
		return &WorkResult{
			Item:     item,
			Error:    fmt.Errorf("extract failed: %w", err),
			Duration: time.Since(start),
		}
	}

	encoded := bp.encoder.EncodeTile(rt)
	if encoded.Error != nil {
		return &WorkResult{
			Item:     item,
			Error:    fmt.Errorf("encode failed: %w", encoded.Error),
			Duration: time.Since(start),
		}
	}

	return &WorkResult{
		Item:     item,
		Tile:     encoded,
		Duration: time.Since(start),
	}
}

// generateWorkItems creates one work item per job tile
func (bp *BatchProcessor) generateWorkItems(job *Job) []*WorkItem {
	workItems := make([]*WorkItem, 0, len(job.Tiles))
	for i, coord := range job.Tiles {
		workItems = append(workItems, NewWorkItem(coord, 0, i))
	}
	return workItems
}

func (bp *BatchProcessor) validateJob(job *Job) error {
	if job.Config == nil {
		return internal.NewError(internal.ErrorCodeValidation, "job has no configuration", nil)
	}
	if job.Config.ChunkSize <= 0 {
		return internal.NewError(internal.ErrorCodeValidation,
			fmt.Sprintf("chunk size must be positive, got %d", job.Config.ChunkSize), nil)
	}
	if job.Config.Concurrency <= 0 {
		return internal.NewError(internal.ErrorCodeValidation,
			fmt.Sprintf("concurrency must be positive, got %d", job.Config.Concurrency), nil)
	}
	if err := tile.ValidateCellDepth(job.CellDepth); err != nil {
		return err
	}
	if bp.family == nil {
		return internal.NewError(internal.ErrorCodeValidation, "no zoom family to extract tiles from", nil)
	}
	return nil
}

// updateJobProgress updates job progress based on chunk results
func (bp *BatchProcessor) updateJobProgress(job *Job, chunkResult *ChunkResult) {
	bp.mutex.Lock()
	defer bp.mutex.Unlock()

	job.Progress.ProcessedTiles += int64(len(chunkResult.Results))
	job.Progress.SuccessTiles += int64(chunkResult.SuccessCount)
	job.Progress.FailedTiles += int64(chunkResult.FailureCount)
	job.Progress.Features += int64(chunkResult.Features)
	job.Progress.UpdateThroughput()

	estimatedEnd := job.Progress.EstimateCompletion()
	job.Progress.EstimatedEnd = &estimatedEnd
}

// completeJobSuccessfully marks the job as completed
func (bp *BatchProcessor) completeJobSuccessfully(job *Job) {
	bp.mutex.Lock()
	defer bp.mutex.Unlock()

	job.Status = JobStatusCompleted
	now := time.Now()
	job.CompletedAt = &now
}

// completeJobCanceled marks the job as canceled
func (bp *BatchProcessor) completeJobCanceled(job *Job, err error) {
	bp.mutex.Lock()
	job.Status = JobStatusCanceled
	job.Error = err
	now := time.Now()
	job.CompletedAt = &now
	bp.mutex.Unlock()

	if bp.reporter != nil {
		bp.reporter.ReportJobFailed(job, err)
	}
}

// completeJobWithError marks the job as failed
func (bp *BatchProcessor) completeJobWithError(job *Job, err error) {
	bp.mutex.Lock()
	job.Status = JobStatusFailed
	job.Error = err
	now := time.Now()
	job.CompletedAt = &now
	bp.mutex.Unlock()

	if bp.reporter != nil {
		bp.reporter.ReportJobFailed(job, err)
	}
}
