// internal/types.go - Common types for internal packages
package internal

import (
	"errors"
	"time"
)

// OutputMode selects how a render pass serializes the aggregated grid
type OutputMode string

const (
	OutputModeTiles OutputMode = "tiles"
	OutputModeWorld OutputMode = "world"
)

// ProcessingStats represents metrics for a render pass
type ProcessingStats struct {
	Regions       int
	FailedRegions int
	Incidents     int64
	Unlocated     int64
	Rejected      int64
	TotalTiles    int64
	WrittenTiles  int64
	FailedTiles   int64
	StartTime     time.Time
	EndTime       time.Time
}

// Duration returns the elapsed time of the pass
func (s *ProcessingStats) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}

// Error represents application-specific errors
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap exposes the underlying cause to errors.Is and errors.As
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new application error
func NewError(code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// HasCode reports whether any error in err's chain is an *Error with the given code
func HasCode(err error, code string) bool {
	for err != nil {
		var appErr *Error
		if !errors.As(err, &appErr) {
			return false
		}
		if appErr.Code == code {
			return true
		}
		err = appErr.Cause
	}
	return false
}

// ErrorCode constants for common error types
const (
	ErrorCodeOutOfRange        = "OUT_OF_RANGE"
	ErrorCodeInvariant         = "INTERNAL_INVARIANT"
	ErrorCodeMalformedGeometry = "MALFORMED_REGION_GEOMETRY"
	ErrorCodeProcessing        = "PROCESSING_ERROR"
	ErrorCodeValidation        = "VALIDATION_ERROR"
	ErrorCodeConfig            = "CONFIG_ERROR"
	ErrorCodeNotFound          = "NOT_FOUND"
	ErrorCodeFileSystem        = "FILESYSTEM_ERROR"
)
