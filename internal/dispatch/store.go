// Package dispatch runs the campaign loops: one lead at a time per
// campaign, personalization with layered fallback, chunked gateway
// sends, and randomized pacing between iterations.
package dispatch

import (
	"context"
	"time"

	"github.com/zapdrip/zapdrip/internal/models"
	"github.com/zapdrip/zapdrip/internal/ratelimit"
)

// Store is the durable state the loop reads and writes. It is
// satisfied by repository.Store.
type Store interface {
	GetCampaign(id string) (*models.Campaign, error)
	SetCampaignStatus(id, status string) error
	IncrementSent(id string, custom bool) error
	IncrementErrors(id string) error
	FindRunning() ([]models.Campaign, error)
	FindDueScheduled(now time.Time) ([]models.Campaign, error)

	OldestPendingLead(campaignID string) (*models.Lead, error)
	MarkLeadProcessing(id string) error
	MarkLeadSent(id, status, message, fallbackReason string) error
	MarkLeadError(id, detail string) error
	RequeueStaleLeads(cutoff time.Time, activeCampaignIDs []string) (int, error)

	AgentSettings(ownerID string) (*models.AgentSettings, error)
	ProviderKey(ownerID, provider string) (string, error)
}

// Scraper fetches readable site text, "" on failure.
type Scraper interface {
	Fetch(ctx context.Context, url string) string
}

// Sender delivers one chunk through the gateway.
type Sender interface {
	SendText(ctx context.Context, instance, phone, text string) bool
}

// Budget gates sends against the per-instance budget. May be nil.
type Budget interface {
	Allow(instance string) ratelimit.Result
}
