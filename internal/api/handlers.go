package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zapdrip/zapdrip/internal/llm"
	"github.com/zapdrip/zapdrip/internal/models"
)

// LeadInput is one lead row in a campaign creation request.
type LeadInput struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Company string `json:"company,omitempty"`
	SiteURL string `json:"site_url,omitempty"`
}

// CreateCampaignRequest is the request body for POST /campaigns
type CreateCampaignRequest struct {
	OwnerID         string      `json:"owner_id"`
	Name            string      `json:"name"`
	DefaultMessage  string      `json:"default_message"`
	Instance        string      `json:"instance,omitempty"`
	DelayMinSeconds int         `json:"delay_min_seconds,omitempty"`
	DelayMaxSeconds int         `json:"delay_max_seconds,omitempty"`
	ScheduledAt     *time.Time  `json:"scheduled_at,omitempty"`
	Leads           []LeadInput `json:"leads"`
}

// CampaignResponse is the response for GET /campaigns/{id}
type CampaignResponse struct {
	Campaign *models.Campaign `json:"campaign"`
	Leads    models.LeadStats `json:"leads"`
}

// ListCampaignsResponse is the response for GET /campaigns
type ListCampaignsResponse struct {
	Campaigns []models.Campaign `json:"campaigns"`
	Total     int               `json:"total"`
}

// ListLeadsResponse is the response for GET /campaigns/{id}/leads
type ListLeadsResponse struct {
	Leads []models.Lead `json:"leads"`
}

// AgentSettingsRequest is the request body for PUT /agent-settings
type AgentSettingsRequest struct {
	OwnerID  string `json:"owner_id"`
	Prompt   string `json:"prompt"`
	Provider string `json:"provider"`
	Model    string `json:"model,omitempty"`
}

// ProviderKeyRequest is the request body for PUT /provider-keys
type ProviderKeyRequest struct {
	OwnerID  string `json:"owner_id"`
	Provider string `json:"provider"`
	APIKey   string `json:"api_key"`
}

// HealthResponse is the response for GET /health
type HealthResponse struct {
	Status          string `json:"status"`
	Version         string `json:"version"`
	Uptime          string `json:"uptime"`
	ActiveCampaigns int    `json:"active_campaigns"`
}

// ErrorResponse is the error response
type ErrorResponse struct {
	Error string `json:"error"`
}

func validProvider(provider string) bool {
	return provider == llm.ProviderOpenAI || provider == llm.ProviderGemini
}

// handleCreateCampaign handles POST /api/v1/campaigns
func (s *Server) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req CreateCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.OwnerID == "" {
		s.sendError(w, http.StatusBadRequest, "owner_id is required")
		return
	}
	if req.Name == "" {
		s.sendError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.DefaultMessage == "" {
		s.sendError(w, http.StatusBadRequest, "default_message is required")
		return
	}
	if len(req.Leads) == 0 {
		s.sendError(w, http.StatusBadRequest, "at least one lead is required")
		return
	}
	if req.DelayMinSeconds < 0 || req.DelayMaxSeconds < 0 {
		s.sendError(w, http.StatusBadRequest, "delays must not be negative")
		return
	}
	if req.DelayMaxSeconds > 0 && req.DelayMaxSeconds < req.DelayMinSeconds {
		s.sendError(w, http.StatusBadRequest, "delay_max_seconds must be >= delay_min_seconds")
		return
	}
	if req.ScheduledAt != nil && req.ScheduledAt.Before(time.Now()) {
		s.sendError(w, http.StatusBadRequest, "scheduled_at must be in the future")
		return
	}

	leads := make([]models.Lead, len(req.Leads))
	for i, l := range req.Leads {
		if l.Phone == "" {
			s.sendError(w, http.StatusBadRequest, "every lead needs a phone")
			return
		}
		leads[i] = models.Lead{
			Name:    l.Name,
			Phone:   l.Phone,
			Company: l.Company,
			SiteURL: l.SiteURL,
		}
	}

	campaign := &models.Campaign{
		OwnerID:         req.OwnerID,
		Name:            req.Name,
		DefaultMessage:  req.DefaultMessage,
		Instance:        req.Instance,
		DelayMinSeconds: req.DelayMinSeconds,
		DelayMaxSeconds: req.DelayMaxSeconds,
		ScheduledAt:     req.ScheduledAt,
	}

	if err := s.store.Campaigns.CreateWithLeads(campaign, leads); err != nil {
		s.logger.Error("failed to create campaign", "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to create campaign")
		return
	}

	s.logger.Info("campaign created via API",
		"campaign_id", campaign.ID,
		"owner_id", campaign.OwnerID,
		"leads", len(leads),
		"status", campaign.Status,
	)

	s.sendJSON(w, http.StatusCreated, campaign)
}

// handleListCampaigns handles GET /api/v1/campaigns
func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	filter := models.CampaignListFilter{
		OwnerID: r.URL.Query().Get("owner_id"),
		Status:  r.URL.Query().Get("status"),
		Limit:   queryInt(r, "limit", 50),
		Offset:  queryInt(r, "offset", 0),
	}

	campaigns, total, err := s.store.Campaigns.List(filter)
	if err != nil {
		s.logger.Error("failed to list campaigns", "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to list campaigns")
		return
	}

	s.sendJSON(w, http.StatusOK, ListCampaignsResponse{
		Campaigns: campaigns,
		Total:     total,
	})
}

// handleGetCampaign handles GET /api/v1/campaigns/{id}
func (s *Server) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	campaign := s.loadCampaign(w, r)
	if campaign == nil {
		return
	}

	stats, err := s.store.Leads.Stats(campaign.ID)
	if err != nil {
		s.logger.Error("failed to get lead stats", "campaign_id", campaign.ID, "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to get lead stats")
		return
	}

	s.sendJSON(w, http.StatusOK, CampaignResponse{
		Campaign: campaign,
		Leads:    stats,
	})
}

// handleListLeads handles GET /api/v1/campaigns/{id}/leads
func (s *Server) handleListLeads(w http.ResponseWriter, r *http.Request) {
	campaign := s.loadCampaign(w, r)
	if campaign == nil {
		return
	}

	leads, err := s.store.Leads.ListByCampaign(campaign.ID, queryInt(r, "limit", 0), queryInt(r, "offset", 0))
	if err != nil {
		s.logger.Error("failed to list leads", "campaign_id", campaign.ID, "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to list leads")
		return
	}

	s.sendJSON(w, http.StatusOK, ListLeadsResponse{Leads: leads})
}

// handleStartCampaign handles POST /api/v1/campaigns/{id}/start. It flips
// the campaign to running and attaches a dispatch loop, which covers first
// start, resume after pause, an early manual start of a scheduled
// campaign, and the manual restart of a campaign stopped by a fatal
// error alike.
func (s *Server) handleStartCampaign(w http.ResponseWriter, r *http.Request) {
	campaign := s.loadCampaign(w, r)
	if campaign == nil {
		return
	}

	switch campaign.Status {
	case models.CampaignDraft, models.CampaignScheduled, models.CampaignPaused, models.CampaignError:
	case models.CampaignRunning:
		s.sendError(w, http.StatusConflict, "Campaign is already running")
		return
	default:
		s.sendError(w, http.StatusConflict, "Campaign cannot be started from status "+campaign.Status)
		return
	}

	if err := s.store.SetCampaignStatus(campaign.ID, models.CampaignRunning); err != nil {
		s.logger.Error("failed to start campaign", "campaign_id", campaign.ID, "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to start campaign")
		return
	}

	s.control.Start(campaign.ID)

	campaign.Status = models.CampaignRunning
	s.sendJSON(w, http.StatusOK, campaign)
}

// handlePauseCampaign handles POST /api/v1/campaigns/{id}/pause
func (s *Server) handlePauseCampaign(w http.ResponseWriter, r *http.Request) {
	campaign := s.loadCampaign(w, r)
	if campaign == nil {
		return
	}

	if campaign.Status != models.CampaignRunning {
		s.sendError(w, http.StatusConflict, "Only a running campaign can be paused")
		return
	}

	// Status first, then the timer: an iteration racing this request
	// re-reads the campaign and retires on its own.
	if err := s.store.SetCampaignStatus(campaign.ID, models.CampaignPaused); err != nil {
		s.logger.Error("failed to pause campaign", "campaign_id", campaign.ID, "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to pause campaign")
		return
	}
	s.control.Stop(campaign.ID)

	campaign.Status = models.CampaignPaused
	s.sendJSON(w, http.StatusOK, campaign)
}

// handleCancelCampaign handles POST /api/v1/campaigns/{id}/cancel
func (s *Server) handleCancelCampaign(w http.ResponseWriter, r *http.Request) {
	campaign := s.loadCampaign(w, r)
	if campaign == nil {
		return
	}

	switch campaign.Status {
	case models.CampaignCompleted, models.CampaignCancelled:
		s.sendError(w, http.StatusConflict, "Campaign is already finished")
		return
	}

	if err := s.store.SetCampaignStatus(campaign.ID, models.CampaignCancelled); err != nil {
		s.logger.Error("failed to cancel campaign", "campaign_id", campaign.ID, "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to cancel campaign")
		return
	}
	s.control.Stop(campaign.ID)

	campaign.Status = models.CampaignCancelled
	s.sendJSON(w, http.StatusOK, campaign)
}

// handleGetAgentSettings handles GET /api/v1/agent-settings
func (s *Server) handleGetAgentSettings(w http.ResponseWriter, r *http.Request) {
	ownerID := r.URL.Query().Get("owner_id")
	if ownerID == "" {
		s.sendError(w, http.StatusBadRequest, "owner_id is required")
		return
	}

	settings, err := s.store.AgentSettings(ownerID)
	if err != nil {
		s.logger.Error("failed to get agent settings", "owner_id", ownerID, "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to get agent settings")
		return
	}
	if settings == nil {
		s.sendError(w, http.StatusNotFound, "Agent settings not found")
		return
	}

	s.sendJSON(w, http.StatusOK, settings)
}

// handlePutAgentSettings handles PUT /api/v1/agent-settings
func (s *Server) handlePutAgentSettings(w http.ResponseWriter, r *http.Request) {
	var req AgentSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.OwnerID == "" {
		s.sendError(w, http.StatusBadRequest, "owner_id is required")
		return
	}
	if req.Prompt == "" {
		s.sendError(w, http.StatusBadRequest, "prompt is required")
		return
	}
	if !validProvider(req.Provider) {
		s.sendError(w, http.StatusBadRequest, "provider must be openai or gemini")
		return
	}

	settings := &models.AgentSettings{
		OwnerID:  req.OwnerID,
		Prompt:   req.Prompt,
		Provider: req.Provider,
		Model:    req.Model,
	}
	if err := s.store.Settings.UpsertAgentSettings(settings); err != nil {
		s.logger.Error("failed to save agent settings", "owner_id", req.OwnerID, "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to save agent settings")
		return
	}

	s.sendJSON(w, http.StatusOK, settings)
}

// handlePutProviderKey handles PUT /api/v1/provider-keys
func (s *Server) handlePutProviderKey(w http.ResponseWriter, r *http.Request) {
	var req ProviderKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.OwnerID == "" {
		s.sendError(w, http.StatusBadRequest, "owner_id is required")
		return
	}
	if !validProvider(req.Provider) {
		s.sendError(w, http.StatusBadRequest, "provider must be openai or gemini")
		return
	}
	if req.APIKey == "" {
		s.sendError(w, http.StatusBadRequest, "api_key is required")
		return
	}

	key := &models.ProviderKey{
		OwnerID:  req.OwnerID,
		Provider: req.Provider,
		APIKey:   req.APIKey,
	}
	if err := s.store.Settings.UpsertProviderKey(key); err != nil {
		s.logger.Error("failed to save provider key", "owner_id", req.OwnerID, "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to save provider key")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	active := 0
	if s.control != nil {
		active = len(s.control.Active())
	}

	s.sendJSON(w, http.StatusOK, HealthResponse{
		Status:          "ok",
		Version:         "0.1.0",
		Uptime:          time.Since(s.startTime).String(),
		ActiveCampaigns: active,
	})
}

// loadCampaign resolves the {id} URL param to a campaign. It writes the
// error response itself and returns nil when the request cannot proceed.
func (s *Server) loadCampaign(w http.ResponseWriter, r *http.Request) *models.Campaign {
	id := chi.URLParam(r, "id")
	if id == "" {
		s.sendError(w, http.StatusBadRequest, "id is required")
		return nil
	}

	campaign, err := s.store.GetCampaign(id)
	if err != nil {
		s.logger.Error("failed to get campaign", "campaign_id", id, "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to get campaign")
		return nil
	}
	if campaign == nil {
		s.sendError(w, http.StatusNotFound, "Campaign not found")
		return nil
	}

	return campaign
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

// sendJSON sends a JSON response
func (s *Server) sendJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// sendError sends an error response
func (s *Server) sendError(w http.ResponseWriter, status int, message string) {
	s.sendJSON(w, status, ErrorResponse{Error: message})
}
