package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/zapdrip/zapdrip/internal/models"
)

type CampaignRepository struct {
	db *sql.DB
}

func NewCampaignRepository(db *sql.DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

// CreateWithLeads creates a campaign and its lead batch in one transaction.
// The campaign starts in draft, or scheduled when a start time is set.
func (r *CampaignRepository) CreateWithLeads(c *models.Campaign, leads []models.Lead) error {
	c.ID = uuid.New().String()
	c.Status = models.CampaignDraft
	if c.ScheduledAt != nil {
		c.Status = models.CampaignScheduled
	}
	c.LeadsTotal = len(leads)
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO campaigns (id, owner_id, name, default_message, instance, delay_min_seconds, delay_max_seconds, status, scheduled_at, leads_total, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.OwnerID, c.Name, c.DefaultMessage, c.Instance, c.DelayMinSeconds, c.DelayMaxSeconds, c.Status, c.ScheduledAt, c.LeadsTotal, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create campaign: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO leads (id, campaign_id, name, phone, company, site_url, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for i := range leads {
		leads[i].ID = uuid.New().String()
		leads[i].CampaignID = c.ID
		leads[i].Status = models.LeadPending
		leads[i].CreatedAt = now

		_, err := stmt.Exec(leads[i].ID, c.ID, leads[i].Name, leads[i].Phone, leads[i].Company, leads[i].SiteURL, leads[i].Status, leads[i].CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to create lead: %w", err)
		}
	}

	return tx.Commit()
}

// GetByID returns a campaign by ID, or nil when it does not exist.
func (r *CampaignRepository) GetByID(id string) (*models.Campaign, error) {
	c := &models.Campaign{}
	var scheduledAt sql.NullTime
	var instance sql.NullString

	err := r.db.QueryRow(`
		SELECT id, owner_id, name, default_message, instance, delay_min_seconds, delay_max_seconds,
			status, scheduled_at, leads_total, sent_custom, sent_default, errors, created_at, updated_at
		FROM campaigns WHERE id = ?`, id,
	).Scan(&c.ID, &c.OwnerID, &c.Name, &c.DefaultMessage, &instance, &c.DelayMinSeconds, &c.DelayMaxSeconds,
		&c.Status, &scheduledAt, &c.LeadsTotal, &c.SentCustom, &c.SentDefault, &c.Errors, &c.CreatedAt, &c.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if instance.Valid {
		c.Instance = instance.String
	}
	if scheduledAt.Valid {
		c.ScheduledAt = &scheduledAt.Time
	}

	return c, nil
}

// List returns campaigns with optional filtering
func (r *CampaignRepository) List(filter models.CampaignListFilter) ([]models.Campaign, int, error) {
	countQuery := "SELECT COUNT(*) FROM campaigns WHERE 1=1"
	args := []any{}

	if filter.OwnerID != "" {
		countQuery += " AND owner_id = ?"
		args = append(args, filter.OwnerID)
	}
	if filter.Status != "" {
		countQuery += " AND status = ?"
		args = append(args, filter.Status)
	}

	var total int
	if err := r.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, owner_id, name, default_message, instance, delay_min_seconds, delay_max_seconds,
			status, scheduled_at, leads_total, sent_custom, sent_default, errors, created_at, updated_at
		FROM campaigns WHERE 1=1`

	args = []any{}
	if filter.OwnerID != "" {
		query += " AND owner_id = ?"
		args = append(args, filter.OwnerID)
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	campaigns := []models.Campaign{}
	for rows.Next() {
		var c models.Campaign
		var scheduledAt sql.NullTime
		var instance sql.NullString

		err := rows.Scan(&c.ID, &c.OwnerID, &c.Name, &c.DefaultMessage, &instance, &c.DelayMinSeconds, &c.DelayMaxSeconds,
			&c.Status, &scheduledAt, &c.LeadsTotal, &c.SentCustom, &c.SentDefault, &c.Errors, &c.CreatedAt, &c.UpdatedAt)
		if err != nil {
			return nil, 0, err
		}

		if instance.Valid {
			c.Instance = instance.String
		}
		if scheduledAt.Valid {
			c.ScheduledAt = &scheduledAt.Time
		}

		campaigns = append(campaigns, c)
	}

	return campaigns, total, nil
}

// UpdateStatus updates campaign status and touches updated_at.
func (r *CampaignRepository) UpdateStatus(id, status string) error {
	_, err := r.db.Exec("UPDATE campaigns SET status = ?, updated_at = ? WHERE id = ?",
		status, time.Now(), id)
	return err
}

// IncrementSent bumps the matching sent counter and touches updated_at so
// dashboard polling sees progress.
func (r *CampaignRepository) IncrementSent(id string, custom bool) error {
	column := "sent_default"
	if custom {
		column = "sent_custom"
	}
	_, err := r.db.Exec("UPDATE campaigns SET "+column+" = "+column+" + 1, updated_at = ? WHERE id = ?",
		time.Now(), id)
	return err
}

// IncrementErrors bumps the error counter and touches updated_at.
func (r *CampaignRepository) IncrementErrors(id string) error {
	_, err := r.db.Exec("UPDATE campaigns SET errors = errors + 1, updated_at = ? WHERE id = ?",
		time.Now(), id)
	return err
}

// FindRunning returns all campaigns with status 'running'
func (r *CampaignRepository) FindRunning() ([]models.Campaign, error) {
	return r.findByStatusQuery("SELECT id, owner_id, name, default_message, instance, delay_min_seconds, delay_max_seconds, status, scheduled_at, leads_total, sent_custom, sent_default, errors, created_at, updated_at FROM campaigns WHERE status = ? ORDER BY created_at", models.CampaignRunning)
}

// FindDueScheduled returns scheduled campaigns whose start time has passed.
func (r *CampaignRepository) FindDueScheduled(now time.Time) ([]models.Campaign, error) {
	return r.findByStatusQuery("SELECT id, owner_id, name, default_message, instance, delay_min_seconds, delay_max_seconds, status, scheduled_at, leads_total, sent_custom, sent_default, errors, created_at, updated_at FROM campaigns WHERE status = ? AND scheduled_at IS NOT NULL AND scheduled_at <= ? ORDER BY scheduled_at", models.CampaignScheduled, now)
}

func (r *CampaignRepository) findByStatusQuery(query string, args ...any) ([]models.Campaign, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	campaigns := []models.Campaign{}
	for rows.Next() {
		var c models.Campaign
		var scheduledAt sql.NullTime
		var instance sql.NullString

		err := rows.Scan(&c.ID, &c.OwnerID, &c.Name, &c.DefaultMessage, &instance, &c.DelayMinSeconds, &c.DelayMaxSeconds,
			&c.Status, &scheduledAt, &c.LeadsTotal, &c.SentCustom, &c.SentDefault, &c.Errors, &c.CreatedAt, &c.UpdatedAt)
		if err != nil {
			return nil, err
		}

		if instance.Valid {
			c.Instance = instance.String
		}
		if scheduledAt.Valid {
			c.ScheduledAt = &scheduledAt.Time
		}

		campaigns = append(campaigns, c)
	}

	return campaigns, nil
}
