package repository

import (
	"testing"

	"github.com/zapdrip/zapdrip/internal/models"
)

func TestAgentSettings_Absent(t *testing.T) {
	database := setupTestDB(t)
	settings := NewSettingsRepository(database)

	s, err := settings.AgentSettings("owner-1")
	if err != nil {
		t.Fatalf("AgentSettings() error: %v", err)
	}
	if s != nil {
		t.Errorf("AgentSettings() = %+v, want nil", s)
	}
	if s.Configured() {
		t.Error("nil settings must not report as configured")
	}
}

func TestAgentSettings_Upsert(t *testing.T) {
	database := setupTestDB(t)
	settings := NewSettingsRepository(database)

	s := &models.AgentSettings{
		OwnerID:  "owner-1",
		Prompt:   "Escreva uma mensagem curta para {nome} da empresa {empresa}.",
		Provider: "openai",
		Model:    "gpt-4o-mini",
	}
	if err := settings.UpsertAgentSettings(s); err != nil {
		t.Fatalf("UpsertAgentSettings() error: %v", err)
	}

	got, err := settings.AgentSettings("owner-1")
	if err != nil {
		t.Fatalf("AgentSettings() error: %v", err)
	}
	if got == nil || !got.Configured() {
		t.Fatalf("AgentSettings() = %+v, want configured settings", got)
	}
	if got.Provider != "openai" || got.Model != "gpt-4o-mini" {
		t.Errorf("AgentSettings() = %+v", got)
	}

	// Upsert replaces in place
	s.Provider = "gemini"
	s.Model = "gemini-2.0-flash"
	if err := settings.UpsertAgentSettings(s); err != nil {
		t.Fatalf("UpsertAgentSettings() error: %v", err)
	}
	got, _ = settings.AgentSettings("owner-1")
	if got.Provider != "gemini" {
		t.Errorf("Provider = %q, want gemini", got.Provider)
	}
}

func TestProviderKey(t *testing.T) {
	database := setupTestDB(t)
	settings := NewSettingsRepository(database)

	key, err := settings.ProviderKey("owner-1", "openai")
	if err != nil {
		t.Fatalf("ProviderKey() error: %v", err)
	}
	if key != "" {
		t.Errorf("ProviderKey() = %q, want empty", key)
	}

	err = settings.UpsertProviderKey(&models.ProviderKey{
		OwnerID:  "owner-1",
		Provider: "openai",
		APIKey:   "sk-test",
	})
	if err != nil {
		t.Fatalf("UpsertProviderKey() error: %v", err)
	}

	key, err = settings.ProviderKey("owner-1", "openai")
	if err != nil {
		t.Fatalf("ProviderKey() error: %v", err)
	}
	if key != "sk-test" {
		t.Errorf("ProviderKey() = %q, want sk-test", key)
	}

	// Keys are scoped per provider
	key, _ = settings.ProviderKey("owner-1", "gemini")
	if key != "" {
		t.Errorf("ProviderKey(gemini) = %q, want empty", key)
	}
}
