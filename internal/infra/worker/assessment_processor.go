package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"grading-coordinator/internal/domain"
	"grading-coordinator/internal/domain/model"
	"grading-coordinator/internal/domain/ports/adapter"
	"grading-coordinator/internal/domain/ports/repository"
	"grading-coordinator/internal/infra/logging"
	"grading-coordinator/internal/infra/metrics"
	"grading-coordinator/internal/usecase"
)

// AssessmentProcessor drains uploaded jobs in the background: claim one,
// run the automated assessment, record the result. Claiming uses
// FOR UPDATE SKIP LOCKED on the store side so several instances can poll the
// same table without stepping on each other.
type AssessmentProcessor struct {
	jobs     repository.JobRepository
	refs     repository.ReferenceKeyRepository
	jobUC    usecase.JobUseCase
	assessor adapter.AssessmentService
	poll     time.Duration
	log      *zerolog.Logger
}

func NewAssessmentProcessor(
	jobs repository.JobRepository,
	refs repository.ReferenceKeyRepository,
	jobUC usecase.JobUseCase,
	assessor adapter.AssessmentService,
	poll time.Duration,
	logger *zerolog.Logger,
) *AssessmentProcessor {
	if poll <= 0 {
		poll = 2 * time.Second
	}
	l := logger.With().Str("component", "AssessmentProcessor").Logger()
	return &AssessmentProcessor{
		jobs:     jobs,
		refs:     refs,
		jobUC:    jobUC,
		assessor: assessor,
		poll:     poll,
		log:      &l,
	}
}

// Start runs the poll loop until ctx is cancelled. Run it in a goroutine.
func (p *AssessmentProcessor) Start(ctx context.Context, pool *Pool) {
	p.log.Info().Dur("poll", p.poll).Msg("assessment processor started")
	ticker := time.NewTicker(p.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Info().Msg("assessment processor stopping")
			return
		case <-ticker.C:
			_ = pool.Submit(func(ctx context.Context) error {
				p.processOne(ctx)
				return nil
			})
		}
	}
}

func (p *AssessmentProcessor) processOne(ctx context.Context) {
	job, err := p.jobs.ClaimUploaded(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			p.log.Error().Err(err).Msg("claim failed")
		}
		return
	}

	ctx = logging.WithJobID(ctx, job.JobID)
	log := logging.With(ctx, p.log)
	log.Info().Msg("assessing job")
	start := time.Now()

	answers, err := p.assess(ctx, job)
	if err != nil {
		metrics.IncJobAssessed("failed")
		log.Error().Err(err).Msg("assessment failed")
		// Record on a fresh context so cancellation mid-call still lands the
		// failed state.
		if _, rerr := p.jobUC.RecordAssessmentError(context.Background(), job.JobID, err); rerr != nil {
			log.Error().Err(rerr).Msg("failed to record assessment error")
		}
		return
	}

	updated, err := p.jobUC.RecordAssessment(ctx, job.JobID, answers)
	if err != nil {
		metrics.IncJobAssessed("failed")
		log.Error().Err(err).Msg("failed to record assessment")
		if _, rerr := p.jobUC.RecordAssessmentError(context.Background(), job.JobID, err); rerr != nil {
			log.Error().Err(rerr).Msg("failed to record assessment error")
		}
		return
	}

	metrics.IncJobAssessed("assessed")
	log.Info().
		Float64("percentage", updated.Percentage).
		Str("grade", updated.Grade).
		Dur("duration", time.Since(start)).
		Msg("job assessed")
}

func (p *AssessmentProcessor) assess(ctx context.Context, job *model.Job) ([]model.AnswerRecord, error) {
	var answerKey map[int]string
	if job.ReferenceID != "" {
		ref, err := p.refs.FindByID(ctx, job.ReferenceID)
		switch {
		case err == nil:
			answerKey = ref.AnswerKey()
		case errors.Is(err, domain.ErrNotFound):
			p.log.Warn().Str("job_id", job.JobID).Str("reference_id", job.ReferenceID).
				Msg("stored reference missing, grading without it")
		default:
			return nil, err
		}
	}

	return p.assessor.Assess(ctx, adapter.AssessmentRequest{
		JobID:      job.JobID,
		Subject:    job.Subject,
		ExamName:   job.ExamName,
		SourceKey:  job.SourceKey,
		TotalMarks: job.TotalMarks,
		AnswerKey:  answerKey,
	})
}
