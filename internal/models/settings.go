package models

import "time"

// AgentSettings holds the per-owner personalization configuration. A missing
// row is a valid state: the dispatch loop falls back to the campaign's
// default message.
type AgentSettings struct {
	OwnerID   string    `json:"owner_id"`
	Prompt    string    `json:"prompt"`
	Provider  string    `json:"provider"`
	Model     string    `json:"model"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Configured reports whether the settings are complete enough to attempt
// personalization.
func (a *AgentSettings) Configured() bool {
	return a != nil && a.Prompt != "" && a.Provider != ""
}

// ProviderKey is a per-owner credential for a generation provider.
type ProviderKey struct {
	OwnerID   string    `json:"owner_id"`
	Provider  string    `json:"provider"`
	APIKey    string    `json:"-"`
	UpdatedAt time.Time `json:"updated_at"`
}
