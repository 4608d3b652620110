package repository

import (
	"database/sql"
	"strings"
	"time"

	"github.com/zapdrip/zapdrip/internal/models"
)

type LeadRepository struct {
	db *sql.DB
}

func NewLeadRepository(db *sql.DB) *LeadRepository {
	return &LeadRepository{db: db}
}

const leadColumns = `id, campaign_id, name, phone, company, site_url, status,
	sent_message, fallback_reason, error_detail, processing_at, sent_at, created_at`

// OldestPending returns the single oldest pending lead for a campaign, FIFO
// by creation time, or nil when none remain. Insertion order breaks ties so
// a batch created in one transaction still drains in order.
func (r *LeadRepository) OldestPending(campaignID string) (*models.Lead, error) {
	row := r.db.QueryRow(`
		SELECT `+leadColumns+`
		FROM leads
		WHERE campaign_id = ? AND status = ?
		ORDER BY created_at, rowid
		LIMIT 1`, campaignID, models.LeadPending)

	lead, err := scanLead(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return lead, nil
}

// GetByID returns a lead by ID, or nil when it does not exist.
func (r *LeadRepository) GetByID(id string) (*models.Lead, error) {
	row := r.db.QueryRow(`SELECT `+leadColumns+` FROM leads WHERE id = ?`, id)

	lead, err := scanLead(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return lead, nil
}

// MarkProcessing flips a lead to processando and records when it happened.
// This is the durability checkpoint: a lead in processando is excluded from
// OldestPending, so it is never picked up twice.
func (r *LeadRepository) MarkProcessing(id string) error {
	_, err := r.db.Exec("UPDATE leads SET status = ?, processing_at = ? WHERE id = ?",
		models.LeadProcessing, time.Now(), id)
	return err
}

// MarkSent records a successful dispatch outcome.
func (r *LeadRepository) MarkSent(id, status, message, fallbackReason string) error {
	_, err := r.db.Exec(`
		UPDATE leads SET status = ?, sent_message = ?, fallback_reason = ?, sent_at = ?
		WHERE id = ?`,
		status, message, fallbackReason, time.Now(), id)
	return err
}

// MarkError records a failed dispatch outcome.
func (r *LeadRepository) MarkError(id, detail string) error {
	_, err := r.db.Exec("UPDATE leads SET status = ?, error_detail = ? WHERE id = ?",
		models.LeadError, detail, id)
	return err
}

// Stats returns lead counts by status for a campaign.
func (r *LeadRepository) Stats(campaignID string) (models.LeadStats, error) {
	var stats models.LeadStats

	err := r.db.QueryRow(`
		SELECT
			COUNT(*) as total,
			SUM(CASE WHEN status = 'pendente' THEN 1 ELSE 0 END),
			SUM(CASE WHEN status = 'processando' THEN 1 ELSE 0 END),
			SUM(CASE WHEN status = 'enviado_personalizado' THEN 1 ELSE 0 END),
			SUM(CASE WHEN status = 'enviado_padrao' THEN 1 ELSE 0 END),
			SUM(CASE WHEN status = 'erro' THEN 1 ELSE 0 END)
		FROM leads WHERE campaign_id = ?`, campaignID,
	).Scan(&stats.Total, &stats.Pending, &stats.Processing, &stats.SentCustom, &stats.SentDefault, &stats.Errors)

	return stats, err
}

// ListByCampaign returns leads for a campaign in FIFO order.
func (r *LeadRepository) ListByCampaign(campaignID string, limit, offset int) ([]models.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE campaign_id = ? ORDER BY created_at, rowid`
	args := []any{campaignID}

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	if offset > 0 {
		query += " OFFSET ?"
		args = append(args, offset)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := []models.Lead{}
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, *lead)
	}

	return leads, nil
}

// CountPending returns the number of pending leads in running campaigns.
func (r *LeadRepository) CountPending() (int, error) {
	var n int
	err := r.db.QueryRow(`
		SELECT COUNT(*)
		FROM leads l
		JOIN campaigns c ON c.id = l.campaign_id
		WHERE l.status = ? AND c.status = ?`,
		models.LeadPending, models.CampaignRunning,
	).Scan(&n)
	return n, err
}

// RequeueStale flips leads stuck in processando since before the cutoff back
// to pendente. Campaigns with an active dispatch loop are skipped: their
// processando lead is legitimately in flight.
func (r *LeadRepository) RequeueStale(cutoff time.Time, activeCampaignIDs []string) (int, error) {
	query := `
		UPDATE leads SET status = ?, processing_at = NULL
		WHERE status = ? AND processing_at IS NOT NULL AND processing_at <= ?`
	args := []any{models.LeadPending, models.LeadProcessing, cutoff}

	if len(activeCampaignIDs) > 0 {
		placeholders := strings.Repeat("?,", len(activeCampaignIDs))
		query += " AND campaign_id NOT IN (" + placeholders[:len(placeholders)-1] + ")"
		for _, id := range activeCampaignIDs {
			args = append(args, id)
		}
	}

	res, err := r.db.Exec(query, args...)
	if err != nil {
		return 0, err
	}

	n, err := res.RowsAffected()
	return int(n), err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (*models.Lead, error) {
	lead := &models.Lead{}
	var company, siteURL, sentMessage, fallbackReason, errorDetail sql.NullString
	var processingAt, sentAt sql.NullTime

	err := row.Scan(&lead.ID, &lead.CampaignID, &lead.Name, &lead.Phone, &company, &siteURL, &lead.Status,
		&sentMessage, &fallbackReason, &errorDetail, &processingAt, &sentAt, &lead.CreatedAt)
	if err != nil {
		return nil, err
	}

	if company.Valid {
		lead.Company = company.String
	}
	if siteURL.Valid {
		lead.SiteURL = siteURL.String
	}
	if sentMessage.Valid {
		lead.SentMessage = sentMessage.String
	}
	if fallbackReason.Valid {
		lead.FallbackReason = fallbackReason.String
	}
	if errorDetail.Valid {
		lead.ErrorDetail = errorDetail.String
	}
	if processingAt.Valid {
		lead.ProcessingAt = &processingAt.Time
	}
	if sentAt.Valid {
		lead.SentAt = &sentAt.Time
	}

	return lead, nil
}
