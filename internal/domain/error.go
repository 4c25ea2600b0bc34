package domain

import (
	"errors"
	"fmt"

	"grading-coordinator/internal/domain/model"
)

var (
	// Common domain errors
	ErrNotFound              = errors.New("job not found")
	ErrConflict              = errors.New("version conflict")
	ErrInvalidTransition     = errors.New("invalid transition")
	ErrUnknownQuestion       = errors.New("unknown question number")
	ErrMarksOutOfRange       = errors.New("marks out of range")
	ErrAssessmentUnavailable = errors.New("assessment service unavailable")
	ErrFeedbackUnavailable   = errors.New("feedback service unavailable")
	ErrReportNotReady        = errors.New("report not ready")
	ErrInvalidArgument       = errors.New("invalid argument")
	ErrReadDatabaseRow       = errors.New("failed to read database row")
	ErrInvalidExecContext    = errors.New("invalid executor context")
)

// InvalidTransitionError carries the job's current state and the operation
// that was rejected. It matches ErrInvalidTransition under errors.Is.
type InvalidTransitionError struct {
	State model.JobState
	Op    model.Operation
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("operation %q not allowed in state %q", e.Op, e.State)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
