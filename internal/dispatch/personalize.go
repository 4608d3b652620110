package dispatch

import (
	"context"
	"fmt"

	"github.com/zapdrip/zapdrip/internal/llm"
	"github.com/zapdrip/zapdrip/internal/models"
)

// Generators resolves a message generator by provider identifier.
// Satisfied by llm.Registry.
type Generators interface {
	Lookup(provider string) llm.Generator
}

// Result is the outcome of one personalization attempt: either the
// generated message, or the campaign default with the reason
// personalization stopped short.
type Result struct {
	Message        string
	Personalized   bool
	FallbackReason string
}

// Personalizer attempts AI personalization for a lead, degrading to
// the campaign's default message with a recorded reason at the first
// branch that cannot proceed.
type Personalizer struct {
	store      Store
	scraper    Scraper
	generators Generators
}

// NewPersonalizer creates a personalizer.
func NewPersonalizer(store Store, scraper Scraper, generators Generators) *Personalizer {
	return &Personalizer{store: store, scraper: scraper, generators: generators}
}

// Personalize runs the fallback chain for one lead. A returned error
// means a store read failed; provider and content failures never
// surface as errors, they pick a fallback reason instead.
func (p *Personalizer) Personalize(ctx context.Context, campaign *models.Campaign, lead *models.Lead) (Result, error) {
	fallback := func(reason string) Result {
		return Result{Message: campaign.DefaultMessage, FallbackReason: reason}
	}

	if lead.SiteURL == "" {
		return fallback(models.FallbackNoSite), nil
	}

	settings, err := p.store.AgentSettings(campaign.OwnerID)
	if err != nil {
		return Result{}, fmt.Errorf("load agent settings: %w", err)
	}
	if !settings.Configured() {
		return fallback(models.FallbackAgentNotSetUp), nil
	}

	generator := p.generators.Lookup(settings.Provider)
	if generator == nil {
		return fallback(models.FallbackAgentNotSetUp), nil
	}

	apiKey, err := p.store.ProviderKey(campaign.OwnerID, settings.Provider)
	if err != nil {
		return Result{}, fmt.Errorf("load provider key: %w", err)
	}
	if apiKey == "" {
		return fallback(models.FallbackNoAPIKey(settings.Provider)), nil
	}

	siteContent := p.scraper.Fetch(ctx, lead.SiteURL)
	if siteContent == "" {
		return fallback(models.FallbackScrapeFailed), nil
	}

	message := generator.Generate(ctx, llm.Request{
		APIKey:      apiKey,
		Model:       settings.Model,
		Prompt:      settings.Prompt,
		LeadName:    lead.Name,
		LeadCompany: lead.Company,
		LeadPhone:   lead.Phone,
		LeadSite:    lead.SiteURL,
		SiteContent: siteContent,
	})
	if message == "" {
		return fallback(models.FallbackGeneration(settings.Provider)), nil
	}

	return Result{Message: message, Personalized: true}, nil
}
