package llm

import (
	"context"
	"log/slog"
	"strings"

	"google.golang.org/genai"
)

const geminiDefaultModel = "gemini-2.0-flash"

// Gemini generates messages through the Google GenAI SDK. Because keys
// are per owner, a client is built per call rather than held.
type Gemini struct {
	logger *slog.Logger
}

// NewGemini creates the Gemini provider.
func NewGemini(logger *slog.Logger) *Gemini {
	return &Gemini{
		logger: logger.With("component", "llm", "provider", ProviderGemini),
	}
}

// Provider returns the provider identifier.
func (g *Gemini) Provider() string { return ProviderGemini }

// Generate calls the Gemini API with the expanded prompt and returns
// the generated text, or "" on any failure.
func (g *Gemini) Generate(ctx context.Context, req Request) string {
	if req.APIKey == "" {
		return ""
	}

	model := req.Model
	if model == "" {
		model = geminiDefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: req.APIKey,
	})
	if err != nil {
		g.logger.Warn("create client failed", "error", err)
		return ""
	}

	resp, err := client.Models.GenerateContent(ctx, model, genai.Text(buildPrompt(req)), nil)
	if err != nil {
		g.logger.Warn("generation request failed", "model", model, "error", err)
		return ""
	}

	return strings.TrimSpace(resp.Text())
}
