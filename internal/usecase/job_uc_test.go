package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"grading-coordinator/internal/domain"
	"grading-coordinator/internal/domain/model"
)

func newLogger() *zerolog.Logger { l := zerolog.Nop(); return &l }

func seedJob(t *testing.T, repo *memJobRepo, state model.JobState) *model.Job {
	t.Helper()
	job := model.NewJob("01TESTJOB", "Ada Lovelace", "stu-1", "Midterm", "Math", "", "uploads/01TESTJOB.pdf", 100)
	job.State = state
	if state != model.JobStateUploaded {
		job.Answers = []model.AnswerRecord{
			{QuestionNumber: 1, MarksObtained: 40, MaxMarks: 50, Correct: true},
			{QuestionNumber: 2, MarksObtained: 40, MaxMarks: 50, Correct: true},
		}
		job.Recompute()
	}
	if err := repo.Create(context.Background(), nil, job); err != nil {
		t.Fatalf("seed: %v", err)
	}
	got, err := repo.Read(context.Background(), job.JobID)
	if err != nil {
		t.Fatalf("seed read: %v", err)
	}
	return got
}

func TestJobUseCase_Create(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newMemJobRepo()
	refs := newMemRefRepo()
	store := newFakeStore()
	uc := NewJobUseCase(repo, refs, store, newLogger())

	t.Run("uploads document and starts in uploaded", func(t *testing.T) {
		job, err := uc.Create(ctx, CreateJobInput{
			StudentName: "Ada Lovelace",
			ExamName:    "Midterm",
			Subject:     "Math",
			TotalMarks:  100,
			Document:    strings.NewReader("pdf-bytes"),
			Size:        9,
			ContentType: "application/pdf",
			Filename:    "sheet.pdf",
		})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if job.State != model.JobStateUploaded || job.Version != 1 {
			t.Fatalf("state=%s version=%d, want uploaded/1", job.State, job.Version)
		}
		if job.SourceKey == "" || !strings.HasPrefix(job.SourceKey, "uploads/") {
			t.Fatalf("unexpected source key %q", job.SourceKey)
		}
		if _, ok := store.objects[job.SourceKey]; !ok {
			t.Fatalf("document not stored under %q", job.SourceKey)
		}
	})

	t.Run("rejects missing student name", func(t *testing.T) {
		_, err := uc.Create(ctx, CreateJobInput{ExamName: "Midterm", TotalMarks: 100, SourceKey: "k"})
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("want ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("rejects non-positive total marks", func(t *testing.T) {
		_, err := uc.Create(ctx, CreateJobInput{StudentName: "Ada", ExamName: "Midterm", SourceKey: "k"})
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("want ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("rejects unknown reference", func(t *testing.T) {
		_, err := uc.Create(ctx, CreateJobInput{
			StudentName: "Ada", ExamName: "Midterm", TotalMarks: 100,
			SourceKey: "k", ReferenceID: "missing",
		})
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("want ErrNotFound, got %v", err)
		}
	})
}

func TestJobUseCase_Lifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newMemJobRepo()
	uc := NewJobUseCase(repo, newMemRefRepo(), newFakeStore(), newLogger())
	job := seedJob(t, repo, model.JobStateUploaded)

	got, err := uc.BeginProcessing(ctx, job.JobID)
	if err != nil {
		t.Fatalf("BeginProcessing: %v", err)
	}
	if got.State != model.JobStateProcessing || got.Version != job.Version+1 {
		t.Fatalf("state=%s version=%d after begin", got.State, got.Version)
	}

	answers := []model.AnswerRecord{
		{QuestionNumber: 2, MarksObtained: 30, MaxMarks: 50},
		{QuestionNumber: 1, MarksObtained: 50, MaxMarks: 50},
	}
	got, err = uc.RecordAssessment(ctx, job.JobID, answers)
	if err != nil {
		t.Fatalf("RecordAssessment: %v", err)
	}
	if got.State != model.JobStateAssessed {
		t.Fatalf("state = %s, want assessed", got.State)
	}
	if got.Answers[0].QuestionNumber != 1 || got.Answers[1].QuestionNumber != 2 {
		t.Fatalf("answers not sorted: %+v", got.Answers)
	}
	if got.Percentage != 80 || got.Grade != "B" {
		t.Fatalf("pct=%v grade=%s, want 80/B", got.Percentage, got.Grade)
	}
	if !got.Answers[0].Correct || !got.Answers[1].Correct {
		t.Fatalf("correct flags not rederived: %+v", got.Answers)
	}
}

func TestJobUseCase_AssessmentError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newMemJobRepo()
	uc := NewJobUseCase(repo, newMemRefRepo(), newFakeStore(), newLogger())
	job := seedJob(t, repo, model.JobStateProcessing)

	got, err := uc.RecordAssessmentError(ctx, job.JobID, errors.New("model timeout"))
	if err != nil {
		t.Fatalf("RecordAssessmentError: %v", err)
	}
	if got.State != model.JobStateFailed || got.LastError != "model timeout" {
		t.Fatalf("state=%s lastError=%q", got.State, got.LastError)
	}
}

func TestJobUseCase_RecordAssessment_RejectsBadSets(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newMemJobRepo()
	uc := NewJobUseCase(repo, newMemRefRepo(), newFakeStore(), newLogger())
	job := seedJob(t, repo, model.JobStateProcessing)

	cases := []struct {
		name    string
		answers []model.AnswerRecord
		want    error
	}{
		{"empty", nil, domain.ErrInvalidArgument},
		{"duplicate question", []model.AnswerRecord{
			{QuestionNumber: 1, MarksObtained: 1, MaxMarks: 5},
			{QuestionNumber: 1, MarksObtained: 2, MaxMarks: 5},
		}, domain.ErrInvalidArgument},
		{"marks above max", []model.AnswerRecord{
			{QuestionNumber: 1, MarksObtained: 6, MaxMarks: 5},
		}, domain.ErrMarksOutOfRange},
		{"negative marks", []model.AnswerRecord{
			{QuestionNumber: 1, MarksObtained: -1, MaxMarks: 5},
		}, domain.ErrMarksOutOfRange},
	}
	for _, c := range cases {
		if _, err := uc.RecordAssessment(ctx, job.JobID, c.answers); !errors.Is(err, c.want) {
			t.Fatalf("%s: want %v, got %v", c.name, c.want, err)
		}
	}

	// the job must be untouched after every rejection
	cur, _ := repo.Read(ctx, job.JobID)
	if cur.Version != job.Version || cur.State != model.JobStateProcessing {
		t.Fatalf("job mutated by rejected assessment: version=%d state=%s", cur.Version, cur.State)
	}
}

func TestJobUseCase_Delete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newMemJobRepo()
	uc := NewJobUseCase(repo, newMemRefRepo(), newFakeStore(), newLogger())
	job := seedJob(t, repo, model.JobStateCompleted)

	if err := uc.Delete(ctx, job.JobID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	cur, err := repo.Read(ctx, job.JobID)
	if err != nil {
		t.Fatalf("Read after delete: %v", err)
	}
	if cur.State != model.JobStateDeleted || !cur.Deleted {
		t.Fatalf("state=%s deleted=%v after delete", cur.State, cur.Deleted)
	}

	// deleted jobs reject every further operation
	if _, err := uc.BeginProcessing(ctx, job.JobID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("want ErrInvalidTransition on deleted job, got %v", err)
	}
	if err := uc.Delete(ctx, job.JobID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("double delete: want ErrInvalidTransition, got %v", err)
	}
}
