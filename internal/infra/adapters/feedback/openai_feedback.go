package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"grading-coordinator/internal/domain/model"
	"grading-coordinator/internal/domain/ports/adapter"
	"grading-coordinator/internal/infra/metrics"
)

var _ adapter.FeedbackSynthesizer = (*OpenAISynthesizer)(nil)

// OpenAISynthesizer turns an assessed answer set into narrative feedback via
// the OpenAI Chat Completions API.
type OpenAISynthesizer struct {
	client openai.Client
	model  string
}

func NewOpenAISynthesizer(apiKey, baseURL, model string) (*OpenAISynthesizer, error) {
	if apiKey == "" {
		return nil, errors.New("feedback: empty api key")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAISynthesizer{client: openai.NewClient(opts...), model: model}, nil
}

func (s *OpenAISynthesizer) Synthesize(ctx context.Context, studentName, subject string, answers []model.AnswerRecord, percentage float64) (*model.Insights, error) {
	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(s.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("You are an encouraging teacher writing feedback for a graded exam. Respond with JSON only."),
			openai.UserMessage(feedbackPrompt(studentName, subject, answers, percentage)),
		},
	})
	if err != nil {
		metrics.IncFeedbackCall(false)
		return nil, err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		metrics.IncFeedbackCall(false)
		return nil, errors.New("feedback: empty completion")
	}

	insights, err := parseInsights(resp.Choices[0].Message.Content)
	metrics.IncFeedbackCall(err == nil)
	return insights, err
}

func feedbackPrompt(studentName, subject string, answers []model.AnswerRecord, percentage float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Student %q scored %.2f%% in %q.\n\nPer-question results:\n", studentName, percentage, subject)
	for _, a := range answers {
		fmt.Fprintf(&b, "Q%d (%.1f/%.1f): %s\n", a.QuestionNumber, a.MarksObtained, a.MaxMarks, a.Explanation)
	}
	b.WriteString("\nWrite feedback as JSON matching:\n")
	b.WriteString(`{"overall_feedback":"...","strengths":["..."],"areas_for_improvement":["..."],"recommendations":["..."]}`)
	b.WriteString("\nDo not wrap the JSON in markdown fences.")
	return b.String()
}

func parseInsights(raw string) (*model.Insights, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var out model.Insights
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &out); err != nil {
		return nil, fmt.Errorf("decode insights: %w", err)
	}
	if out.OverallFeedback == "" {
		return nil, errors.New("insights missing overall feedback")
	}
	return &out, nil
}
