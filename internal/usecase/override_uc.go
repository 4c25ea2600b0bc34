package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"grading-coordinator/internal/domain"
	"grading-coordinator/internal/domain/model"
	"grading-coordinator/internal/domain/ports/repository"
)

// Compile-time check
var _ OverrideUseCase = (*overrideUC)(nil)

// OverrideEntry is one teacher correction. Marks is optional so a reviewer
// can attach notes or a corrected explanation without touching the score.
type OverrideEntry struct {
	QuestionNumber int
	Marks          *float64
	Explanation    string
	ReviewerNotes  string
}

// OverrideBatch applies atomically: every entry passes validation or none
// commit.
type OverrideBatch struct {
	Entries          []OverrideEntry
	ReviewerName     string
	ReviewerComments string
}

type OverrideUseCase interface {
	// Apply validates and applies the batch against expectedVersion. A stale
	// version yields domain.ErrConflict; the caller re-reads and retries.
	Apply(ctx context.Context, jobID string, expectedVersion int64, batch OverrideBatch) (*model.Job, error)
}

type overrideUC struct {
	jobs repository.JobRepository
	log  *zerolog.Logger
}

func NewOverrideUseCase(jobs repository.JobRepository, logger *zerolog.Logger) *overrideUC {
	l := logger.With().Str("component", "OverrideUseCase").Logger()
	return &overrideUC{jobs: jobs, log: &l}
}

func (u *overrideUC) Apply(ctx context.Context, jobID string, expectedVersion int64, batch OverrideBatch) (*model.Job, error) {
	if len(batch.Entries) == 0 {
		return nil, fmt.Errorf("%w: empty override batch", domain.ErrInvalidArgument)
	}

	job, err := u.jobs.Commit(ctx, jobID, expectedVersion, func(job *model.Job) error {
		next, err := domain.NextState(job.State, model.OpApplyOverride)
		if err != nil {
			return err
		}
		// Validate the entire batch before mutating anything.
		for _, e := range batch.Entries {
			ans := job.Answer(e.QuestionNumber)
			if ans == nil {
				return fmt.Errorf("%w: question %d", domain.ErrUnknownQuestion, e.QuestionNumber)
			}
			if e.Marks != nil && (*e.Marks < 0 || *e.Marks > ans.MaxMarks) {
				return fmt.Errorf("%w: question %d value %v exceeds [0, %v]",
					domain.ErrMarksOutOfRange, e.QuestionNumber, *e.Marks, ans.MaxMarks)
			}
		}
		for _, e := range batch.Entries {
			ans := job.Answer(e.QuestionNumber)
			if e.Marks != nil {
				ans.MarksObtained = *e.Marks
				ans.Correct = model.MarksAreCorrect(ans.MarksObtained, ans.MaxMarks)
			}
			if e.Explanation != "" {
				ans.Explanation = e.Explanation
			}
			if e.ReviewerNotes != "" {
				ans.ReviewerNotes = e.ReviewerNotes
			}
			ans.ReviewedBy = batch.ReviewerName
		}
		job.Recompute()
		job.ReviewerName = batch.ReviewerName
		if batch.ReviewerComments != "" {
			job.ReviewerComments = batch.ReviewerComments
		}
		job.State = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.log.Info().
		Str("job_id", job.JobID).
		Int("updates", len(batch.Entries)).
		Str("reviewer", batch.ReviewerName).
		Float64("percentage", job.Percentage).
		Msg("override applied")
	return job, nil
}
