package adapter

import (
	"context"

	"grading-coordinator/internal/domain/model"
)

// AssessmentRequest describes one grading call. SourceKey locates the
// answer-sheet artifact; AnswerKey is the optional teacher mark scheme
// (question -> canonical answer). An empty AnswerKey means "no reference"
// mode where the service grades on general knowledge.
type AssessmentRequest struct {
	JobID      string
	Subject    string
	ExamName   string
	SourceKey  string
	TotalMarks float64
	AnswerKey  map[int]string
}

// AssessmentService is the port for the remote extraction/assessment call.
// It is opaque, possibly slow and possibly failing; callers bound it with the
// context and treat any error as domain.ErrAssessmentUnavailable. The
// returned answers are the complete replacement set for the job.
type AssessmentService interface {
	Assess(ctx context.Context, req AssessmentRequest) ([]model.AnswerRecord, error)

	// CountTokens reports the prompt-token footprint a request would have,
	// best-effort where the provider has no exact counter.
	CountTokens(ctx context.Context, req AssessmentRequest) (int, error)
}
