package assessment

import (
	"context"
	"errors"

	"google.golang.org/genai"

	"grading-coordinator/internal/domain/model"
	"grading-coordinator/internal/domain/ports/adapter"
)

var _ adapter.AssessmentService = (*GeminiAdapter)(nil)

// GeminiAdapter grades answer sheets through the Gemini API.
type GeminiAdapter struct {
	client *genai.Client
	model  string
}

func NewGeminiAdapter(ctx context.Context, apiKey, baseURL, model string) (*GeminiAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	return &GeminiAdapter{client: c, model: model}, nil
}

func (g *GeminiAdapter) Assess(ctx context.Context, req adapter.AssessmentRequest) ([]model.AnswerRecord, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		promptContents(buildPrompt(req)),
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
		},
	)
	if err != nil {
		return nil, err
	}

	text := ""
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil && len(resp.Candidates[0].Content.Parts) > 0 {
		text = resp.Candidates[0].Content.Parts[0].Text
	}
	if text == "" {
		return nil, errors.New("gemini: empty grading response")
	}
	return parseSheet(text)
}

func (g *GeminiAdapter) CountTokens(ctx context.Context, req adapter.AssessmentRequest) (int, error) {
	resp, err := g.client.Models.CountTokens(ctx, g.model, promptContents(buildPrompt(req)), nil)
	if err != nil {
		return 0, err
	}
	return int(resp.TotalTokens), nil
}

func promptContents(prompt string) []*genai.Content {
	return []*genai.Content{{
		Role:  genai.RoleUser,
		Parts: []*genai.Part{{Text: prompt}},
	}}
}
