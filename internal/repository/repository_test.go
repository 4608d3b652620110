package repository

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/zapdrip/zapdrip/internal/db"
	"github.com/zapdrip/zapdrip/internal/models"
)

// setupTestDB creates an in-memory SQLite database with all migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	database, err := db.NewMemory()
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := database.Migrate(); err != nil {
		t.Fatalf("migration failed: %v", err)
	}

	t.Cleanup(func() {
		database.Close()
	})

	return database.DB
}

// createTestCampaign inserts a campaign with the given leads and returns it
func createTestCampaign(t *testing.T, repo *CampaignRepository, leads []models.Lead) *models.Campaign {
	t.Helper()

	c := &models.Campaign{
		OwnerID:         "owner-1",
		Name:            "Prospecção Q3",
		DefaultMessage:  "Olá {nome}, tudo bem?",
		Instance:        "vendas-01",
		DelayMinSeconds: 150,
		DelayMaxSeconds: 320,
	}
	if err := repo.CreateWithLeads(c, leads); err != nil {
		t.Fatalf("CreateWithLeads() error: %v", err)
	}
	return c
}
