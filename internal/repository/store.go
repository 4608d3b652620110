package repository

import (
	"database/sql"
	"time"

	"github.com/zapdrip/zapdrip/internal/models"
)

// Store bundles the repositories behind the single store contract the
// dispatch loop consumes.
type Store struct {
	Campaigns *CampaignRepository
	Leads     *LeadRepository
	Settings  *SettingsRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		Campaigns: NewCampaignRepository(db),
		Leads:     NewLeadRepository(db),
		Settings:  NewSettingsRepository(db),
	}
}

func (s *Store) GetCampaign(id string) (*models.Campaign, error) {
	return s.Campaigns.GetByID(id)
}

func (s *Store) SetCampaignStatus(id, status string) error {
	return s.Campaigns.UpdateStatus(id, status)
}

func (s *Store) IncrementSent(id string, custom bool) error {
	return s.Campaigns.IncrementSent(id, custom)
}

func (s *Store) IncrementErrors(id string) error {
	return s.Campaigns.IncrementErrors(id)
}

func (s *Store) FindRunning() ([]models.Campaign, error) {
	return s.Campaigns.FindRunning()
}

func (s *Store) FindDueScheduled(now time.Time) ([]models.Campaign, error) {
	return s.Campaigns.FindDueScheduled(now)
}

func (s *Store) OldestPendingLead(campaignID string) (*models.Lead, error) {
	return s.Leads.OldestPending(campaignID)
}

func (s *Store) MarkLeadProcessing(id string) error {
	return s.Leads.MarkProcessing(id)
}

func (s *Store) MarkLeadSent(id, status, message, fallbackReason string) error {
	return s.Leads.MarkSent(id, status, message, fallbackReason)
}

func (s *Store) MarkLeadError(id, detail string) error {
	return s.Leads.MarkError(id, detail)
}

func (s *Store) CountPendingLeads() (int, error) {
	return s.Leads.CountPending()
}

func (s *Store) RequeueStaleLeads(cutoff time.Time, activeCampaignIDs []string) (int, error) {
	return s.Leads.RequeueStale(cutoff, activeCampaignIDs)
}

func (s *Store) AgentSettings(ownerID string) (*models.AgentSettings, error) {
	return s.Settings.AgentSettings(ownerID)
}

func (s *Store) ProviderKey(ownerID, provider string) (string, error) {
	return s.Settings.ProviderKey(ownerID, provider)
}
