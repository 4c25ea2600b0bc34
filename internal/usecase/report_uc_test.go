package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"grading-coordinator/internal/domain"
	"grading-coordinator/internal/domain/model"
)

func TestReportUseCase_GenerateAndMemoize(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newMemJobRepo()
	rend := &fakeRenderer{}
	store := newFakeStore()
	uc := NewReportUseCase(repo, rend, store, time.Minute, newLogger())
	job := seedJob(t, repo, model.JobStateReviewed)

	got, err := uc.Generate(ctx, job.JobID, "xlsx")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got.State != model.JobStateCompleted {
		t.Fatalf("state = %s, want completed", got.State)
	}
	if got.Report == nil || got.Report.Version != got.Version || got.Report.Format != "xlsx" {
		t.Fatalf("handle mismatch: %+v version=%d", got.Report, got.Version)
	}
	if rend.calls != 1 {
		t.Fatalf("renderer calls = %d, want 1", rend.calls)
	}

	// second generation is answered from the memoized handle
	again, err := uc.Generate(ctx, job.JobID, "xlsx")
	if err != nil {
		t.Fatalf("second Generate: %v", err)
	}
	if rend.calls != 1 {
		t.Fatalf("renderer re-invoked for current report: calls=%d", rend.calls)
	}
	if again.Version != got.Version || again.Report.ObjectKey != got.Report.ObjectKey {
		t.Fatalf("memoized call changed the job: %+v", again.Report)
	}
}

func TestReportUseCase_RegeneratesAfterMutation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newMemJobRepo()
	rend := &fakeRenderer{}
	uc := NewReportUseCase(repo, rend, newFakeStore(), time.Minute, newLogger())
	overrides := NewOverrideUseCase(repo, newLogger())
	job := seedJob(t, repo, model.JobStateReviewed)

	first, err := uc.Generate(ctx, job.JobID, "xlsx")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	// an override bumps the version and stales the handle
	reviewed, err := overrides.Apply(ctx, job.JobID, first.Version, OverrideBatch{
		ReviewerName: "Mr. Grader",
		Entries:      []OverrideEntry{{QuestionNumber: 1, Marks: marks(50)}},
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	second, err := uc.Generate(ctx, job.JobID, "xlsx")
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if rend.calls != 2 {
		t.Fatalf("renderer calls = %d, want 2", rend.calls)
	}
	if second.Report.Version != reviewed.Version+1 || second.Report.ObjectKey == first.Report.ObjectKey {
		t.Fatalf("fresh handle expected: %+v", second.Report)
	}
	if second.State != model.JobStateCompleted {
		t.Fatalf("state = %s after regenerate", second.State)
	}
}

func TestReportUseCase_FormatChangeRerenders(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newMemJobRepo()
	rend := &fakeRenderer{}
	uc := NewReportUseCase(repo, rend, newFakeStore(), time.Minute, newLogger())
	job := seedJob(t, repo, model.JobStateReviewed)

	if _, err := uc.Generate(ctx, job.JobID, "xlsx"); err != nil {
		t.Fatalf("xlsx: %v", err)
	}
	got, err := uc.Generate(ctx, job.JobID, "json")
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	if rend.calls != 2 || got.Report.Format != "json" {
		t.Fatalf("calls=%d format=%s, want fresh json render", rend.calls, got.Report.Format)
	}
}

func TestReportUseCase_GuardsState(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	rend := &fakeRenderer{}

	for _, state := range []model.JobState{
		model.JobStateUploaded, model.JobStateProcessing,
		model.JobStateAssessed, model.JobStateFailed,
	} {
		repo := newMemJobRepo()
		uc := NewReportUseCase(repo, rend, newFakeStore(), time.Minute, newLogger())
		job := seedJob(t, repo, state)
		if _, err := uc.Generate(ctx, job.JobID, "xlsx"); !errors.Is(err, domain.ErrInvalidTransition) {
			t.Fatalf("state %s: want ErrInvalidTransition, got %v", state, err)
		}
	}
	if rend.calls != 0 {
		t.Fatalf("renderer called despite guard: %d", rend.calls)
	}
}

func TestReportUseCase_Download(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newMemJobRepo()
	uc := NewReportUseCase(repo, &fakeRenderer{}, newFakeStore(), time.Minute, newLogger())
	job := seedJob(t, repo, model.JobStateReviewed)

	// no report yet
	if _, err := uc.Download(ctx, job.JobID); !errors.Is(err, domain.ErrReportNotReady) {
		t.Fatalf("want ErrReportNotReady, got %v", err)
	}

	generated, err := uc.Generate(ctx, job.JobID, "xlsx")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	url, err := uc.Download(ctx, job.JobID)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if url != "https://store.local/"+generated.Report.ObjectKey {
		t.Fatalf("unexpected url %q", url)
	}

	// stale the handle and downloads must refuse again
	if _, err := repo.Commit(ctx, job.JobID, generated.Version, func(j *model.Job) error { return nil }); err != nil {
		t.Fatalf("bump: %v", err)
	}
	if _, err := uc.Download(ctx, job.JobID); !errors.Is(err, domain.ErrReportNotReady) {
		t.Fatalf("stale report: want ErrReportNotReady, got %v", err)
	}
}
