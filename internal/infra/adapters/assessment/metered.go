package assessment

import (
	"context"
	"fmt"
	"time"

	"grading-coordinator/internal/domain/model"
	"grading-coordinator/internal/domain/ports/adapter"
	"grading-coordinator/internal/infra/metrics"
)

var _ adapter.AssessmentService = (*meteredAssessor)(nil)

// meteredAssessor wraps a provider with call-latency metrics, an overall
// call timeout and a prompt-token ceiling.
type meteredAssessor struct {
	inner           adapter.AssessmentService
	timeout         time.Duration
	maxPromptTokens int
}

func NewMetered(inner adapter.AssessmentService, timeout time.Duration, maxPromptTokens int) adapter.AssessmentService {
	return &meteredAssessor{inner: inner, timeout: timeout, maxPromptTokens: maxPromptTokens}
}

func (m *meteredAssessor) Assess(ctx context.Context, req adapter.AssessmentRequest) ([]model.AnswerRecord, error) {
	if m.maxPromptTokens > 0 {
		if n, err := m.inner.CountTokens(ctx, req); err == nil && n > m.maxPromptTokens {
			return nil, fmt.Errorf("prompt is %d tokens, limit %d", n, m.maxPromptTokens)
		}
	}

	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	start := time.Now()
	answers, err := m.inner.Assess(ctx, req)
	metrics.ObserveAssessment(time.Since(start), err == nil)
	return answers, err
}

func (m *meteredAssessor) CountTokens(ctx context.Context, req adapter.AssessmentRequest) (int, error) {
	return m.inner.CountTokens(ctx, req)
}
