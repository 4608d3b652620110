package repository

import (
	"database/sql"
	"time"

	"github.com/zapdrip/zapdrip/internal/models"
)

type SettingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// AgentSettings returns the owner's personalization settings, or nil when
// none are stored. Absence is a valid state.
func (r *SettingsRepository) AgentSettings(ownerID string) (*models.AgentSettings, error) {
	s := &models.AgentSettings{}
	var prompt, provider, model sql.NullString

	err := r.db.QueryRow(`
		SELECT owner_id, prompt, provider, model, updated_at
		FROM agent_settings WHERE owner_id = ?`, ownerID,
	).Scan(&s.OwnerID, &prompt, &provider, &model, &s.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if prompt.Valid {
		s.Prompt = prompt.String
	}
	if provider.Valid {
		s.Provider = provider.String
	}
	if model.Valid {
		s.Model = model.String
	}

	return s, nil
}

// UpsertAgentSettings stores or replaces the owner's settings.
func (r *SettingsRepository) UpsertAgentSettings(s *models.AgentSettings) error {
	s.UpdatedAt = time.Now()
	_, err := r.db.Exec(`
		INSERT INTO agent_settings (owner_id, prompt, provider, model, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(owner_id) DO UPDATE SET prompt = excluded.prompt,
			provider = excluded.provider, model = excluded.model, updated_at = excluded.updated_at`,
		s.OwnerID, s.Prompt, s.Provider, s.Model, s.UpdatedAt)
	return err
}

// ProviderKey returns the owner's credential for a provider, or "" when none
// is stored.
func (r *SettingsRepository) ProviderKey(ownerID, provider string) (string, error) {
	var key string
	err := r.db.QueryRow(
		"SELECT api_key FROM provider_keys WHERE owner_id = ? AND provider = ?",
		ownerID, provider,
	).Scan(&key)

	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return key, nil
}

// UpsertProviderKey stores or replaces a provider credential.
func (r *SettingsRepository) UpsertProviderKey(k *models.ProviderKey) error {
	k.UpdatedAt = time.Now()
	_, err := r.db.Exec(`
		INSERT INTO provider_keys (owner_id, provider, api_key, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(owner_id, provider) DO UPDATE SET api_key = excluded.api_key,
			updated_at = excluded.updated_at`,
		k.OwnerID, k.Provider, k.APIKey, k.UpdatedAt)
	return err
}
