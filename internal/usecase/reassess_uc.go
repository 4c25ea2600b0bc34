package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"grading-coordinator/internal/domain"
	"grading-coordinator/internal/domain/model"
	"grading-coordinator/internal/domain/ports/adapter"
	"grading-coordinator/internal/domain/ports/repository"
)

// Compile-time check
var _ ReassessUseCase = (*reassessUC)(nil)

type ReassessUseCase interface {
	// Reassess re-runs automated evaluation and replaces the answer set
	// wholesale. referenceID overrides the job's stored reference; empty
	// falls back to the stored one, then to no-reference mode.
	Reassess(ctx context.Context, jobID, referenceID string) (*model.Job, error)
}

// ReassessPolicy controls what happens to manual overrides across a
// re-assessment. The observed product behavior discards them; preserving is
// kept configurable because teachers re-reviewing everything is a cost.
type ReassessPolicy struct {
	PreserveOverrides bool
}

type reassessUC struct {
	jobs     repository.JobRepository
	refs     repository.ReferenceKeyRepository
	assessor adapter.AssessmentService
	policy   ReassessPolicy
	log      *zerolog.Logger
}

func NewReassessUseCase(jobs repository.JobRepository, refs repository.ReferenceKeyRepository, assessor adapter.AssessmentService, policy ReassessPolicy, logger *zerolog.Logger) *reassessUC {
	l := logger.With().Str("component", "ReassessUseCase").Logger()
	return &reassessUC{jobs: jobs, refs: refs, assessor: assessor, policy: policy, log: &l}
}

func (u *reassessUC) Reassess(ctx context.Context, jobID, referenceID string) (*model.Job, error) {
	snap, err := u.jobs.Read(ctx, jobID)
	if err != nil {
		return nil, err
	}
	// Guard before the external call so a doomed request never reaches the
	// assessment service.
	if _, err := domain.NextState(snap.State, model.OpReassess); err != nil {
		return nil, err
	}

	answerKey, err := u.resolveAnswerKey(ctx, snap, referenceID)
	if err != nil {
		return nil, err
	}

	raw, err := u.assessor.Assess(ctx, adapter.AssessmentRequest{
		JobID:      snap.JobID,
		Subject:    snap.Subject,
		ExamName:   snap.ExamName,
		SourceKey:  snap.SourceKey,
		TotalMarks: snap.TotalMarks,
		AnswerKey:  answerKey,
	})
	if err != nil {
		// No partial commit: the job stays exactly as it was. Retry policy
		// belongs to the caller.
		return nil, fmt.Errorf("%w: %v", domain.ErrAssessmentUnavailable, err)
	}

	fresh, err := normalizeAnswerSet(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrAssessmentUnavailable, err)
	}

	job, err := u.jobs.Commit(ctx, jobID, snap.Version, func(job *model.Job) error {
		next, err := domain.NextState(job.State, model.OpReassess)
		if err != nil {
			return err
		}
		if u.policy.PreserveOverrides {
			carryOverrides(job.Answers, fresh)
		}
		job.Answers = fresh
		job.Recompute()
		job.InvalidateDerived()
		job.LastError = ""
		job.State = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.log.Info().
		Str("job_id", job.JobID).
		Float64("percentage", job.Percentage).
		Str("grade", job.Grade).
		Bool("with_reference", len(answerKey) > 0).
		Msg("reassessment completed")
	return job, nil
}

func (u *reassessUC) resolveAnswerKey(ctx context.Context, job *model.Job, referenceID string) (map[int]string, error) {
	id := referenceID
	explicit := id != ""
	if id == "" {
		id = job.ReferenceID
	}
	if id == "" {
		return nil, nil // no-reference mode
	}
	ref, err := u.refs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) && !explicit {
			// A stored reference that has since been removed downgrades to
			// no-reference grading rather than blocking the job.
			u.log.Warn().Str("job_id", job.JobID).Str("reference_id", id).Msg("stored reference missing, grading without it")
			return nil, nil
		}
		return nil, err
	}
	return ref.AnswerKey(), nil
}

// carryOverrides re-applies reviewer-touched marks from the old answer set
// onto the fresh one, where the question still exists and the old value still
// fits the new bounds.
func carryOverrides(old, fresh []model.AnswerRecord) {
	byNumber := make(map[int]*model.AnswerRecord, len(fresh))
	for i := range fresh {
		byNumber[fresh[i].QuestionNumber] = &fresh[i]
	}
	for _, prev := range old {
		if prev.ReviewedBy == "" {
			continue
		}
		cur, ok := byNumber[prev.QuestionNumber]
		if !ok || prev.MarksObtained > cur.MaxMarks {
			continue
		}
		cur.MarksObtained = prev.MarksObtained
		cur.Correct = model.MarksAreCorrect(cur.MarksObtained, cur.MaxMarks)
		cur.ReviewedBy = prev.ReviewedBy
		cur.ReviewerNotes = prev.ReviewerNotes
	}
}
