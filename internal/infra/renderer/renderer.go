package renderer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"grading-coordinator/internal/domain/model"
	"grading-coordinator/internal/domain/ports/adapter"
	"grading-coordinator/internal/infra/metrics"
)

var _ adapter.ReportRenderer = (*StoreRenderer)(nil)

// StoreRenderer renders score reports and writes them to the artifact store.
// Object keys embed the job version so a stale handle can never collide with
// a fresh render.
type StoreRenderer struct {
	store adapter.ArtifactStore
	log   *zerolog.Logger
}

func NewStoreRenderer(store adapter.ArtifactStore, log *zerolog.Logger) *StoreRenderer {
	return &StoreRenderer{store: store, log: log}
}

func (r *StoreRenderer) Render(ctx context.Context, job *model.Job, format string) (string, error) {
	start := time.Now()

	var (
		body        []byte
		contentType string
		err         error
	)
	switch format {
	case "xlsx":
		body, err = renderXLSX(job)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case "json":
		body, err = renderJSON(job)
		contentType = "application/json"
	default:
		return "", fmt.Errorf("unsupported report format %q", format)
	}
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("reports/%s-v%d.%s", job.JobID, job.Version, format)
	if err := r.store.Put(ctx, key, contentType, bytes.NewReader(body), int64(len(body))); err != nil {
		return "", fmt.Errorf("store report: %w", err)
	}

	metrics.IncReportRender(format)
	r.log.Info().Str("job_id", job.JobID).Str("format", format).
		Int("bytes", len(body)).
		Int64("elapsed_ms", time.Since(start).Milliseconds()).
		Msg("report rendered")
	return key, nil
}

// reportDoc is the JSON report shape. It mirrors what the spreadsheet shows
// so both formats carry the same information.
type reportDoc struct {
	JobID         string               `json:"job_id"`
	StudentName   string               `json:"student_name"`
	StudentID     string               `json:"student_id,omitempty"`
	ExamName      string               `json:"exam_name"`
	Subject       string               `json:"subject"`
	TotalMarks    float64              `json:"total_marks"`
	MarksObtained float64              `json:"marks_obtained"`
	Percentage    float64              `json:"percentage"`
	Grade         string               `json:"grade"`
	Answers       []model.AnswerRecord `json:"answers"`
	Insights      *model.Insights      `json:"insights,omitempty"`
	Reviewer      string               `json:"reviewer_name,omitempty"`
	Comments      string               `json:"reviewer_comments,omitempty"`
	GeneratedAt   time.Time            `json:"generated_at"`
}

func renderJSON(job *model.Job) ([]byte, error) {
	doc := reportDoc{
		JobID:         job.JobID,
		StudentName:   job.StudentName,
		StudentID:     job.StudentID,
		ExamName:      job.ExamName,
		Subject:       job.Subject,
		TotalMarks:    job.TotalMarks,
		MarksObtained: job.MarksObtained,
		Percentage:    job.Percentage,
		Grade:         job.Grade,
		Answers:       job.Answers,
		Insights:      job.Insights,
		Reviewer:      job.ReviewerName,
		Comments:      job.ReviewerComments,
		GeneratedAt:   time.Now().UTC(),
	}
	return json.MarshalIndent(doc, "", "  ")
}
