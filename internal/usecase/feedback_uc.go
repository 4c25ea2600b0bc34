package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"grading-coordinator/internal/domain"
	"grading-coordinator/internal/domain/model"
	"grading-coordinator/internal/domain/ports/adapter"
	"grading-coordinator/internal/domain/ports/repository"
)

// Compile-time check
var _ FeedbackUseCase = (*feedbackUC)(nil)

type FeedbackUseCase interface {
	Synthesize(ctx context.Context, jobID string) (*model.Job, error)
}

type feedbackUC struct {
	jobs repository.JobRepository
	ai   adapter.FeedbackSynthesizer
	log  *zerolog.Logger
}

func NewFeedbackUseCase(jobs repository.JobRepository, ai adapter.FeedbackSynthesizer, logger *zerolog.Logger) *feedbackUC {
	l := logger.With().Str("component", "FeedbackUseCase").Logger()
	return &feedbackUC{jobs: jobs, ai: ai, log: &l}
}

func (u *feedbackUC) Synthesize(ctx context.Context, jobID string) (*model.Job, error) {
	snap, err := u.jobs.Read(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if _, err := domain.NextState(snap.State, model.OpSynthesizeFeedback); err != nil {
		return nil, err
	}

	insights, err := u.ai.Synthesize(ctx, snap.StudentName, snap.Subject, snap.Answers, snap.Percentage)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFeedbackUnavailable, err)
	}
	if insights == nil {
		return nil, fmt.Errorf("%w: empty response", domain.ErrFeedbackUnavailable)
	}

	job, err := u.jobs.Commit(ctx, jobID, snap.Version, func(job *model.Job) error {
		next, err := domain.NextState(job.State, model.OpSynthesizeFeedback)
		if err != nil {
			return err
		}
		job.Insights = insights
		job.State = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.log.Info().Str("job_id", job.JobID).Msg("feedback synthesized")
	return job, nil
}
