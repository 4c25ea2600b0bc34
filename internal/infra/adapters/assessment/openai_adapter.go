package assessment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/pkoukk/tiktoken-go"

	"grading-coordinator/internal/domain/model"
	"grading-coordinator/internal/domain/ports/adapter"
)

var _ adapter.AssessmentService = (*OpenAIAdapter)(nil)

// OpenAIAdapter grades answer sheets through any OpenAI-compatible Chat
// Completions endpoint. Token counting is local via tiktoken since the API
// has no dry-run counter.
type OpenAIAdapter struct {
	apiKey string
	base   string
	model  string
	client *http.Client
}

func NewOpenAIAdapter(apiKey, baseURL, model string) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("openai: empty api key")
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIAdapter{
		apiKey: apiKey,
		base:   baseURL,
		model:  model,
		client: &http.Client{Timeout: 90 * time.Second},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (o *OpenAIAdapter) Assess(ctx context.Context, req adapter.AssessmentRequest) ([]model.AnswerRecord, error) {
	reqBody := struct {
		Model          string        `json:"model"`
		Messages       []chatMessage `json:"messages"`
		ResponseFormat struct {
			Type string `json:"type"`
		} `json:"response_format"`
	}{
		Model: o.model,
		Messages: []chatMessage{
			{Role: "system", Content: "You are a strict but fair exam grader. Respond with JSON only."},
			{Role: "user", Content: buildPrompt(req)},
		},
	}
	reqBody.ResponseFormat.Type = "json_object"

	b, _ := json.Marshal(reqBody)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.base+"/chat/completions", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("openai http %d", resp.StatusCode)
	}

	var payload struct {
		Choices []struct {
			Message chatMessage `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	for _, c := range payload.Choices {
		if c.Message.Content != "" {
			return parseSheet(c.Message.Content)
		}
	}
	return nil, errors.New("openai: no choice content")
}

func (o *OpenAIAdapter) CountTokens(_ context.Context, req adapter.AssessmentRequest) (int, error) {
	enc, err := tiktoken.EncodingForModel(o.model)
	if err != nil {
		// Unknown models fall back to the GPT-4 family encoding.
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return 0, err
		}
	}
	return len(enc.Encode(buildPrompt(req), nil, nil)), nil
}
