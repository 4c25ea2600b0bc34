package adapter

import (
	"context"

	"grading-coordinator/internal/domain/model"
)

// ReportRenderer renders a job's final assessed state into a downloadable
// document and returns the object-store key it was written under. Rendering
// is a pure function of the job snapshot; it never mutates the job record.
type ReportRenderer interface {
	Render(ctx context.Context, job *model.Job, format string) (objectKey string, err error)
}
