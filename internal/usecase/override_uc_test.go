package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"grading-coordinator/internal/domain"
	"grading-coordinator/internal/domain/model"
)

func marks(v float64) *float64 { return &v }

func TestOverrideUseCase_RecomputesAndMovesToReviewed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newMemJobRepo()
	uc := NewOverrideUseCase(repo, newLogger())
	job := seedJob(t, repo, model.JobStateAssessed) // 40+40 of 100 -> 80%

	got, err := uc.Apply(ctx, job.JobID, job.Version, OverrideBatch{
		ReviewerName:     "Mr. Grader",
		ReviewerComments: "question 1 deserved full marks",
		Entries: []OverrideEntry{
			{QuestionNumber: 1, Marks: marks(50), ReviewerNotes: "full credit"},
		},
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got.State != model.JobStateReviewed {
		t.Fatalf("state = %s, want reviewed", got.State)
	}
	if got.MarksObtained != 90 || got.Percentage != 90 || got.Grade != "A" {
		t.Fatalf("marks=%v pct=%v grade=%s, want 90/90/A", got.MarksObtained, got.Percentage, got.Grade)
	}
	if got.Version != job.Version+1 {
		t.Fatalf("version = %d, want %d", got.Version, job.Version+1)
	}
	q1 := got.Answer(1)
	if q1.ReviewedBy != "Mr. Grader" || q1.ReviewerNotes != "full credit" {
		t.Fatalf("reviewer identity not recorded: %+v", q1)
	}
	if got.ReviewerName != "Mr. Grader" || got.ReviewerComments == "" {
		t.Fatalf("job-level reviewer fields not set")
	}
}

func TestOverrideUseCase_BatchIsAtomic(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newMemJobRepo()
	uc := NewOverrideUseCase(repo, newLogger())
	job := seedJob(t, repo, model.JobStateAssessed)

	t.Run("unknown question rejects whole batch", func(t *testing.T) {
		_, err := uc.Apply(ctx, job.JobID, job.Version, OverrideBatch{
			ReviewerName: "Mr. Grader",
			Entries: []OverrideEntry{
				{QuestionNumber: 1, Marks: marks(50)}, // valid
				{QuestionNumber: 99, Marks: marks(1)}, // no such question
			},
		})
		if !errors.Is(err, domain.ErrUnknownQuestion) {
			t.Fatalf("want ErrUnknownQuestion, got %v", err)
		}
	})

	t.Run("out-of-range marks reject whole batch", func(t *testing.T) {
		_, err := uc.Apply(ctx, job.JobID, job.Version, OverrideBatch{
			ReviewerName: "Mr. Grader",
			Entries: []OverrideEntry{
				{QuestionNumber: 1, Marks: marks(10)}, // valid
				{QuestionNumber: 2, Marks: marks(51)}, // above MaxMarks 50
			},
		})
		if !errors.Is(err, domain.ErrMarksOutOfRange) {
			t.Fatalf("want ErrMarksOutOfRange, got %v", err)
		}
	})

	// failed batches must leave version, marks and state untouched
	cur, _ := repo.Read(ctx, job.JobID)
	if cur.Version != job.Version {
		t.Fatalf("version changed by failed batch: %d -> %d", job.Version, cur.Version)
	}
	if cur.State != model.JobStateAssessed || cur.MarksObtained != 80 {
		t.Fatalf("content changed by failed batch: state=%s marks=%v", cur.State, cur.MarksObtained)
	}
	if cur.Answer(1).MarksObtained != 40 {
		t.Fatalf("partial entry applied: q1=%v", cur.Answer(1).MarksObtained)
	}
}

func TestOverrideUseCase_StaleVersionConflicts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newMemJobRepo()
	uc := NewOverrideUseCase(repo, newLogger())
	job := seedJob(t, repo, model.JobStateAssessed)

	if _, err := uc.Apply(ctx, job.JobID, job.Version, OverrideBatch{
		ReviewerName: "First",
		Entries:      []OverrideEntry{{QuestionNumber: 1, Marks: marks(45)}},
	}); err != nil {
		t.Fatalf("first apply: %v", err)
	}

	_, err := uc.Apply(ctx, job.JobID, job.Version, OverrideBatch{
		ReviewerName: "Second",
		Entries:      []OverrideEntry{{QuestionNumber: 2, Marks: marks(45)}},
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("stale version: want ErrConflict, got %v", err)
	}
}

func TestOverrideUseCase_ConcurrentSameVersion_ExactlyOneWins(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newMemJobRepo()
	uc := NewOverrideUseCase(repo, newLogger())
	job := seedJob(t, repo, model.JobStateAssessed)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = uc.Apply(ctx, job.JobID, job.Version, OverrideBatch{
				ReviewerName: "Racer",
				Entries:      []OverrideEntry{{QuestionNumber: 1, Marks: marks(42)}},
			})
		}(i)
	}
	wg.Wait()

	ok, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflicts != n-1 {
		t.Fatalf("ok=%d conflicts=%d, want exactly one winner", ok, conflicts)
	}

	cur, _ := repo.Read(ctx, job.JobID)
	if cur.Version != job.Version+1 {
		t.Fatalf("version = %d, want single bump to %d", cur.Version, job.Version+1)
	}
}

func TestOverrideUseCase_RejectsEmptyBatchAndWrongState(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newMemJobRepo()
	uc := NewOverrideUseCase(repo, newLogger())

	job := seedJob(t, repo, model.JobStateUploaded)
	if _, err := uc.Apply(ctx, job.JobID, job.Version, OverrideBatch{
		Entries: []OverrideEntry{{QuestionNumber: 1, Marks: marks(1)}},
	}); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("uploaded job: want ErrInvalidTransition, got %v", err)
	}

	if _, err := uc.Apply(ctx, job.JobID, job.Version, OverrideBatch{}); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("empty batch: want ErrInvalidArgument, got %v", err)
	}
}
