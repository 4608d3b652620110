// Package llm generates personalized outreach messages through
// interchangeable model providers.
package llm

import (
	"context"
	"strings"
)

// Provider identifiers accepted in agent settings.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// maxSiteContent bounds how much scraped text is injected into the
// prompt, keeping requests inside provider context limits.
const maxSiteContent = 4000

// Request carries everything a provider needs for one generation call.
// The API key is per owner and resolved at call time, so providers hold
// no credentials of their own.
type Request struct {
	APIKey string
	Model  string
	Prompt string

	LeadName    string
	LeadCompany string
	LeadPhone   string
	LeadSite    string

	SiteContent string
}

// Generator produces a message for one lead, or "" when generation
// fails for any reason. Failures never propagate past the provider.
type Generator interface {
	Provider() string
	Generate(ctx context.Context, req Request) string
}

// Registry maps provider identifiers to generators.
type Registry struct {
	generators map[string]Generator
}

// NewRegistry builds a registry from the given generators.
func NewRegistry(gens ...Generator) *Registry {
	r := &Registry{generators: make(map[string]Generator, len(gens))}
	for _, g := range gens {
		r.generators[g.Provider()] = g
	}
	return r
}

// Lookup returns the generator for a provider, or nil if unknown.
func (r *Registry) Lookup(provider string) Generator {
	return r.generators[strings.ToLower(strings.TrimSpace(provider))]
}

// buildPrompt expands lead placeholders in the prompt template and
// appends the scraped site content, truncated to maxSiteContent runes.
func buildPrompt(req Request) string {
	prompt := req.Prompt
	replacer := strings.NewReplacer(
		"{nome}", req.LeadName,
		"{empresa}", req.LeadCompany,
		"{telefone}", req.LeadPhone,
		"{site}", req.LeadSite,
	)
	prompt = replacer.Replace(prompt)

	content := strings.TrimSpace(req.SiteContent)
	if content == "" {
		return prompt
	}
	if runes := []rune(content); len(runes) > maxSiteContent {
		content = string(runes[:maxSiteContent])
	}

	var b strings.Builder
	b.WriteString(prompt)
	b.WriteString("\n\nConteúdo do site do lead:\n")
	b.WriteString(content)
	return b.String()
}
