package repository

import (
	"context"

	"grading-coordinator/internal/domain/model"
)

// Mutator transforms a job inside a version-checked commit. The job it
// receives already carries the version being committed (expected+1), so a
// mutator can tag artifacts such as report handles with it. Returning an
// error aborts the commit with no write.
type Mutator func(job *model.Job) error

// JobRepository is the durable, versioned store of job records. Commit is the
// sole concurrency-control primitive: it re-reads the row transactionally,
// rejects with domain.ErrConflict when the stored version no longer equals
// expectedVersion, applies the mutator and persists all-or-nothing.
type JobRepository interface {
	Create(ctx context.Context, tx Tx, job *model.Job) error
	Read(ctx context.Context, jobID string) (*model.Job, error)
	Commit(ctx context.Context, jobID string, expectedVersion int64, mutate Mutator) (*model.Job, error)
	// List returns non-deleted jobs, newest first, optionally filtered by
	// state. It is a read-only history projection.
	List(ctx context.Context, state model.JobState, limit int) ([]*model.Job, error)
	// ClaimUploaded atomically fetches one job in the uploaded state and
	// moves it to processing, so concurrent workers never pick the same job.
	ClaimUploaded(ctx context.Context) (*model.Job, error)
}
