package usecase

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"grading-coordinator/internal/domain"
	"grading-coordinator/internal/domain/model"
	"grading-coordinator/internal/domain/ports/adapter"
	"grading-coordinator/internal/domain/ports/repository"
)

// Compile-time check
var _ JobUseCase = (*jobUC)(nil)

// CreateJobInput carries the upload metadata plus the source document.
// Document may be nil when the artifact was uploaded out of band and
// SourceKey already points at it.
type CreateJobInput struct {
	StudentName string
	StudentID   string
	ExamName    string
	Subject     string
	TotalMarks  float64
	ReferenceID string
	SourceKey   string
	Document    io.Reader
	Size        int64
	ContentType string
	Filename    string
}

type JobUseCase interface {
	Create(ctx context.Context, in CreateJobInput) (*model.Job, error)
	BeginProcessing(ctx context.Context, jobID string) (*model.Job, error)
	RecordAssessment(ctx context.Context, jobID string, answers []model.AnswerRecord) (*model.Job, error)
	RecordAssessmentError(ctx context.Context, jobID string, cause error) (*model.Job, error)
	Get(ctx context.Context, jobID string) (*model.Job, error)
	List(ctx context.Context, state model.JobState, limit int) ([]*model.Job, error)
	Delete(ctx context.Context, jobID string) error
}

type jobUC struct {
	jobs  repository.JobRepository
	refs  repository.ReferenceKeyRepository
	store adapter.ArtifactStore
	log   *zerolog.Logger
}

func NewJobUseCase(jobs repository.JobRepository, refs repository.ReferenceKeyRepository, store adapter.ArtifactStore, logger *zerolog.Logger) *jobUC {
	l := logger.With().Str("component", "JobUseCase").Logger()
	return &jobUC{jobs: jobs, refs: refs, store: store, log: &l}
}

func (u *jobUC) Create(ctx context.Context, in CreateJobInput) (*model.Job, error) {
	if strings.TrimSpace(in.StudentName) == "" || strings.TrimSpace(in.ExamName) == "" {
		return nil, domain.ErrInvalidArgument
	}
	if in.TotalMarks <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	if in.ReferenceID != "" {
		if _, err := u.refs.FindByID(ctx, in.ReferenceID); err != nil {
			return nil, fmt.Errorf("resolve reference %s: %w", in.ReferenceID, err)
		}
	}

	id := newJobID()
	sourceKey := in.SourceKey
	if in.Document != nil {
		sourceKey = uploadKey(id, in.Filename)
		if err := u.store.Put(ctx, sourceKey, in.ContentType, in.Document, in.Size); err != nil {
			return nil, fmt.Errorf("store source document: %w", err)
		}
	}
	if sourceKey == "" {
		return nil, domain.ErrInvalidArgument
	}

	job := model.NewJob(id, in.StudentName, in.StudentID, in.ExamName, in.Subject, in.ReferenceID, sourceKey, in.TotalMarks)
	if err := u.jobs.Create(ctx, nil, job); err != nil {
		return nil, err
	}
	u.log.Info().Str("job_id", job.JobID).Str("exam", job.ExamName).Msg("job created")
	return job, nil
}

func (u *jobUC) BeginProcessing(ctx context.Context, jobID string) (*model.Job, error) {
	return u.transition(ctx, jobID, model.OpBeginProcessing, func(job *model.Job) error {
		return nil
	})
}

func (u *jobUC) RecordAssessment(ctx context.Context, jobID string, answers []model.AnswerRecord) (*model.Job, error) {
	normalized, err := normalizeAnswerSet(answers)
	if err != nil {
		return nil, err
	}
	return u.transition(ctx, jobID, model.OpAssessmentComplete, func(job *model.Job) error {
		job.Answers = normalized
		job.Recompute()
		job.InvalidateDerived()
		job.LastError = ""
		return nil
	})
}

func (u *jobUC) RecordAssessmentError(ctx context.Context, jobID string, cause error) (*model.Job, error) {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return u.transition(ctx, jobID, model.OpAssessmentError, func(job *model.Job) error {
		job.LastError = msg
		return nil
	})
}

func (u *jobUC) Get(ctx context.Context, jobID string) (*model.Job, error) {
	return u.jobs.Read(ctx, jobID)
}

func (u *jobUC) List(ctx context.Context, state model.JobState, limit int) ([]*model.Job, error) {
	if limit <= 0 {
		limit = 50
	}
	return u.jobs.List(ctx, state, limit)
}

func (u *jobUC) Delete(ctx context.Context, jobID string) error {
	_, err := u.transition(ctx, jobID, model.OpDelete, func(job *model.Job) error {
		job.Deleted = true
		return nil
	})
	if err == nil {
		u.log.Info().Str("job_id", jobID).Msg("job deleted")
	}
	return err
}

// transition runs the read-guard-commit cycle shared by all simple lifecycle
// operations: the guard is checked on a snapshot, then re-checked inside the
// version-checked commit so the state machine is enforced at a single point.
func (u *jobUC) transition(ctx context.Context, jobID string, op model.Operation, mutate repository.Mutator) (*model.Job, error) {
	snap, err := u.jobs.Read(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if _, err := domain.NextState(snap.State, op); err != nil {
		return nil, err
	}
	return u.jobs.Commit(ctx, jobID, snap.Version, func(job *model.Job) error {
		next, err := domain.NextState(job.State, op)
		if err != nil {
			return err
		}
		if err := mutate(job); err != nil {
			return err
		}
		job.State = next
		return nil
	})
}

// newJobID returns a time-ordered job identifier so history listings sort
// naturally by creation time.
func newJobID() string {
	return ulid.Make().String()
}

func uploadKey(jobID, filename string) string {
	ext := ""
	if i := strings.LastIndex(filename, "."); i >= 0 {
		ext = strings.ToLower(filename[i:])
	}
	return "uploads/" + jobID + ext
}
