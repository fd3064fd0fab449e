// internal/types.go - Common types for internal packages
package internal

import (
	"time"
)

// StageStats represents metrics for a single pipeline stage
type StageStats struct {
	Name       string
	InputRows  int
	OutputRows int
	StartTime  time.Time
	EndTime    time.Time
}

// Duration returns the elapsed wall time of the stage
func (s *StageStats) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}

// PipelineStats represents metrics for a full pipeline run
type PipelineStats struct {
	Stages    []StageStats
	StartTime time.Time
	EndTime   time.Time
}

// Add appends a completed stage's metrics
func (p *PipelineStats) Add(stage StageStats) {
	p.Stages = append(p.Stages, stage)
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

// ErrorCode constants for common error types
const (
	ErrorCodeProcessing = "PROCESSING_ERROR"
	ErrorCodeValidation = "VALIDATION_ERROR"
	ErrorCodeConfig     = "CONFIG_ERROR"
	ErrorCodeNotFound   = "NOT_FOUND"
	ErrorCodeGeometry   = "GEOMETRY_ERROR"
	ErrorCodeFileSystem = "FILESYSTEM_ERROR"
)
