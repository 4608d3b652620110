package models

import "time"

// Lead statuses. The three enviado_*/erro outcomes are terminal; a lead is
// never revisited once it leaves pendente.
const (
	LeadPending     = "pendente"
	LeadProcessing  = "processando"
	LeadSentCustom  = "enviado_personalizado"
	LeadSentDefault = "enviado_padrao"
	LeadError       = "erro"
)

// Fallback reason codes recorded when personalization could not be completed.
const (
	FallbackNoSite        = "sem_site"
	FallbackAgentNotSetUp = "ia_nao_configurada"
	FallbackScrapeFailed  = "erro_jina"
)

// FallbackNoAPIKey returns the fallback reason for a missing provider credential.
func FallbackNoAPIKey(provider string) string {
	return "sem_api_key_" + provider
}

// FallbackGeneration returns the fallback reason for a failed generation call.
func FallbackGeneration(provider string) string {
	return "erro_geracao_" + provider
}

// Lead is a contact record targeted for one outbound message within a campaign.
type Lead struct {
	ID             string     `json:"id"`
	CampaignID     string     `json:"campaign_id"`
	Name           string     `json:"name"`
	Phone          string     `json:"phone"`
	Company        string     `json:"company,omitempty"`
	SiteURL        string     `json:"site_url,omitempty"`
	Status         string     `json:"status"`
	SentMessage    string     `json:"sent_message,omitempty"`
	FallbackReason string     `json:"fallback_reason,omitempty"`
	ErrorDetail    string     `json:"error_detail,omitempty"`
	ProcessingAt   *time.Time `json:"processing_at,omitempty"`
	SentAt         *time.Time `json:"sent_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// LeadStats holds per-campaign lead counts by status
type LeadStats struct {
	Total       int `json:"total"`
	Pending     int `json:"pending"`
	Processing  int `json:"processing"`
	SentCustom  int `json:"sent_custom"`
	SentDefault int `json:"sent_default"`
	Errors      int `json:"errors"`
}
