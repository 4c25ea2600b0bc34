package adapter

import (
	"context"

	"grading-coordinator/internal/domain/model"
)

// FeedbackSynthesizer is the port for the narrative feedback service. Given
// the current assessed answers it returns strengths, improvement areas and
// recommendations. Failures surface as domain.ErrFeedbackUnavailable.
type FeedbackSynthesizer interface {
	Synthesize(ctx context.Context, studentName, subject string, answers []model.AnswerRecord, percentage float64) (*model.Insights, error)
}
