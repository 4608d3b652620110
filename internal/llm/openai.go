package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const openAIDefaultModel = "gpt-4o-mini"

// OpenAI generates messages through the chat completions API.
type OpenAI struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewOpenAI creates the OpenAI provider. baseURL defaults to the public
// API endpoint when empty; tests point it at a local server.
func NewOpenAI(baseURL string, logger *slog.Logger) *OpenAI {
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	return &OpenAI{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger.With("component", "llm", "provider", ProviderOpenAI),
	}
}

// Provider returns the provider identifier.
func (o *OpenAI) Provider() string { return ProviderOpenAI }

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Generate calls chat completions with the expanded prompt and returns
// the generated text, or "" on any failure.
func (o *OpenAI) Generate(ctx context.Context, req Request) string {
	if req.APIKey == "" {
		return ""
	}

	model := req.Model
	if model == "" {
		model = openAIDefaultModel
	}

	body, err := json.Marshal(chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "user", Content: buildPrompt(req)},
		},
	})
	if err != nil {
		o.logger.Warn("marshal request failed", "error", err)
		return ""
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		o.logger.Warn("build request failed", "error", err)
		return ""
	}
	httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		o.logger.Warn("generation request failed", "model", model, "error", err)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		o.logger.Warn("generation returned non-2xx", "model", model, "status", resp.StatusCode)
		return ""
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		o.logger.Warn("decode response failed", "error", err)
		return ""
	}
	if len(parsed.Choices) == 0 {
		return ""
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content)
}
