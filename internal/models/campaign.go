package models

import "time"

// Campaign statuses. Running is the only state in which a dispatch loop
// keeps rescheduling itself.
const (
	CampaignDraft     = "draft"
	CampaignScheduled = "scheduled"
	CampaignRunning   = "running"
	CampaignPaused    = "paused"
	CampaignCompleted = "completed"
	CampaignCancelled = "cancelled"
	CampaignError     = "error"
)

// Campaign is a batch dispatch job: one default message (or AI-personalized
// variant), one lead list, one gateway instance, paced over time.
type Campaign struct {
	ID              string     `json:"id"`
	OwnerID         string     `json:"owner_id"`
	Name            string     `json:"name"`
	DefaultMessage  string     `json:"default_message"`
	Instance        string     `json:"instance"`
	DelayMinSeconds int        `json:"delay_min_seconds"`
	DelayMaxSeconds int        `json:"delay_max_seconds"`
	Status          string     `json:"status"`
	ScheduledAt     *time.Time `json:"scheduled_at,omitempty"`
	LeadsTotal      int        `json:"leads_total"`
	SentCustom      int        `json:"sent_custom"`
	SentDefault     int        `json:"sent_default"`
	Errors          int        `json:"errors"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// CampaignListFilter for filtering campaigns
type CampaignListFilter struct {
	OwnerID string
	Status  string
	Limit   int
	Offset  int
}
