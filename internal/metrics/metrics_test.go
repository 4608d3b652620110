package metrics

import (
	"testing"

	dto "github.com/prometheus/client_model/go"
)

func TestNew(t *testing.T) {
	m := New()
	if m == nil {
		t.Fatal("New() returned nil")
	}

	if m.Registry() == nil {
		t.Error("Registry() returned nil")
	}

	if m.MessagesSentTotal == nil {
		t.Error("MessagesSentTotal is nil")
	}
	if m.MessagesFailedTotal == nil {
		t.Error("MessagesFailedTotal is nil")
	}
	if m.FallbacksTotal == nil {
		t.Error("FallbacksTotal is nil")
	}
	if m.ActiveCampaigns == nil {
		t.Error("ActiveCampaigns is nil")
	}
	if m.IterationDurationSeconds == nil {
		t.Error("IterationDurationSeconds is nil")
	}
	if m.APIRequestsTotal == nil {
		t.Error("APIRequestsTotal is nil")
	}
}

func TestGlobalMetrics(t *testing.T) {
	if Global() != nil {
		t.Error("Global() should be nil before SetGlobal")
	}

	m := New()
	SetGlobal(m)

	if Global() != m {
		t.Error("Global() did not return the set metrics")
	}

	SetGlobal(nil)
}

func TestIncMessagesSent(t *testing.T) {
	m := New()
	SetGlobal(m)
	defer SetGlobal(nil)

	IncMessagesSent("personalizado")
	IncMessagesSent("personalizado")
	IncMessagesSent("padrao")

	counter, err := m.MessagesSentTotal.GetMetricWithLabelValues("personalizado")
	if err != nil {
		t.Fatalf("Failed to get counter: %v", err)
	}

	var metric dto.Metric
	if err := counter.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}

	if metric.Counter.GetValue() != 2 {
		t.Errorf("Expected counter value 2, got %f", metric.Counter.GetValue())
	}
}

func TestIncFallbacks(t *testing.T) {
	m := New()
	SetGlobal(m)
	defer SetGlobal(nil)

	IncFallbacks("sem_site")
	IncFallbacks("erro_jina")
	IncFallbacks("sem_site")

	counter, err := m.FallbacksTotal.GetMetricWithLabelValues("sem_site")
	if err != nil {
		t.Fatalf("Failed to get counter: %v", err)
	}

	var metric dto.Metric
	if err := counter.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}

	if metric.Counter.GetValue() != 2 {
		t.Errorf("Expected counter value 2, got %f", metric.Counter.GetValue())
	}
}

func TestIncBudgetExceeded(t *testing.T) {
	m := New()
	SetGlobal(m)
	defer SetGlobal(nil)

	IncBudgetExceeded("vendas-01")
	IncBudgetExceeded("vendas-01")
	IncBudgetExceeded("vendas-02")

	counter, err := m.BudgetExceededTotal.GetMetricWithLabelValues("vendas-01")
	if err != nil {
		t.Fatalf("Failed to get counter: %v", err)
	}

	var metric dto.Metric
	if err := counter.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}

	if metric.Counter.GetValue() != 2 {
		t.Errorf("Expected budget exceeded 2, got %f", metric.Counter.GetValue())
	}
}

func TestGlobalNilSafe(t *testing.T) {
	SetGlobal(nil)

	// These should not panic when global is nil
	IncMessagesSent("padrao")
	IncMessagesFailed()
	IncFallbacks("sem_site")
	IncChunksSent()
	IncBudgetExceeded("vendas-01")
	ObserveIteration(0.5)
}
