// internal/batch/types.go - Batch processing types
package batch

import (
	"context"
	"time"

	"github.com/valpere/crimegrid/internal/tile"
)

// Job represents a batch of regional tiles to extract, encode and write
type Job struct {
	ID          string                `json:"id"`
	Tiles       []tile.TileCoordinate `json:"tiles"`
	CellDepth   int                   `json:"cell_depth"`
	Config      *JobConfig            `json:"config"`
	Status      JobStatus             `json:"status"`
	Progress    *JobProgress          `json:"progress"`
	CreatedAt   time.Time             `json:"created_at"`
	StartedAt   *time.Time            `json:"started_at,omitempty"`
	CompletedAt *time.Time            `json:"completed_at,omitempty"`
	Error       error                 `json:"error,omitempty"`
}

// JobConfig contains configuration for a batch processing job
type JobConfig struct {
	Concurrency int           `json:"concurrency"`
	ChunkSize   int           `json:"chunk_size"`
	Timeout     time.Duration `json:"timeout"`
	FailOnError bool          `json:"fail_on_error"`
}

// JobStatus represents the current status of a batch job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCanceled  JobStatus = "canceled"
)

// JobProgress tracks the progress of a batch processing job
type JobProgress struct {
	TotalTiles     int64      `json:"total_tiles"`
	ProcessedTiles int64      `json:"processed_tiles"`
	FailedTiles    int64      `json:"failed_tiles"`
	SuccessTiles   int64      `json:"success_tiles"`
	CurrentChunk   int        `json:"current_chunk"`
	TotalChunks    int        `json:"total_chunks"`
	StartTime      time.Time  `json:"start_time"`
	EstimatedEnd   *time.Time `json:"estimated_end,omitempty"`
	Throughput     float64    `json:"throughput"`
	Features       int64      `json:"features"`
}

// WorkItem is one tile of a job
type WorkItem struct {
	Coordinate tile.TileCoordinate `json:"coordinate"`
	ChunkID    int                 `json:"chunk_id"`
	ItemID     int                 `json:"item_id"`
}

// WorkResult represents the result of processing a work item
type WorkResult struct {
	Item     *WorkItem         `json:"item"`
	Tile     *tile.EncodedTile `json:"tile,omitempty"`
	Error    error             `json:"error,omitempty"`
	Duration time.Duration     `json:"duration"`
}

// ChunkResult represents the result of processing a chunk of work items
type ChunkResult struct {
	ChunkID      int           `json:"chunk_id"`
	Results      []*WorkResult `json:"results"`
	Duration     time.Duration `json:"duration"`
	SuccessCount int           `json:"success_count"`
	FailureCount int           `json:"failure_count"`
	Features     int           `json:"features"`
}

// Processor defines the interface for executing batch processing jobs
type Processor interface {
	Process(ctx context.Context, job *Job) error
	ProcessChunk(ctx context.Context, job *Job, workItems []*WorkItem) (*ChunkResult, error)
}

// ProgressReporter defines the interface for reporting job progress
type ProgressReporter interface {
	ReportProgress(job *Job) error
	ReportChunkComplete(job *Job, chunk *ChunkResult) error
	ReportJobComplete(job *Job) error
	ReportJobFailed(job *Job, err error) error
}

// NewJob creates a new batch processing job
func NewJob(id string, tiles []tile.TileCoordinate, cellDepth int, config *JobConfig) *Job {
	return &Job{
		ID:        id,
		Tiles:     tiles,
		CellDepth: cellDepth,
		Config:    config,
		Status:    JobStatusPending,
		Progress:  NewJobProgress(),
		CreatedAt: time.Now(),
	}
}

// NewJobConfig creates a new job configuration with default values
func NewJobConfig() *JobConfig {
	return &JobConfig{
		Concurrency: 8,
		ChunkSize:   256,
		Timeout:     30 * time.Minute,
		FailOnError: false,
	}
}

// NewJobProgress creates a new job progress tracker
func NewJobProgress() *JobProgress {
	return &JobProgress{StartTime: time.Now()}
}

// NewWorkItem creates a new work item
func NewWorkItem(coord tile.TileCoordinate, chunkID, itemID int) *WorkItem {
	return &WorkItem{
		Coordinate: coord,
		ChunkID:    chunkID,
		ItemID:     itemID,
	}
}

// IsComplete returns true if the job has finished (successfully or with error)
func (j *Job) IsComplete() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed || j.Status == JobStatusCanceled
}

// IsRunning returns true if the job is currently being processed
func (j *Job) IsRunning() bool {
	return j.Status == JobStatusRunning
}

// EstimateCompletion estimates when the job will complete based on current progress
func (p *JobProgress) EstimateCompletion() time.Time {
	if p.Throughput == 0 || p.ProcessedTiles == 0 {
		return time.Now().Add(time.Hour)
	}

	remaining := p.TotalTiles - p.ProcessedTiles
	if remaining <= 0 {
		return time.Now()
	}

	secondsRemaining := float64(remaining) / p.Throughput
	return time.Now().Add(time.Duration(secondsRemaining * float64(time.Second)))
}

// CalculateProgress calculates the completion percentage
func (p *JobProgress) CalculateProgress() float64 {
	if p.TotalTiles == 0 {
		return 0
	}
	return float64(p.ProcessedTiles) / float64(p.TotalTiles) * 100
}

// UpdateThroughput updates the processing throughput based on elapsed time
func (p *JobProgress) UpdateThroughput() {
	elapsed := time.Since(p.StartTime)
	if elapsed.Seconds() > 0 && p.ProcessedTiles > 0 {
		p.Throughput = float64(p.ProcessedTiles) / elapsed.Seconds()
	}
}

// String returns a string representation of the job status
func (s JobStatus) String() string {
	return string(s)
}

// IsValid checks if the job status is valid
func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusPending, JobStatusRunning, JobStatusCompleted, JobStatusFailed, JobStatusCanceled:
		return true
	default:
		return false
	}
}
