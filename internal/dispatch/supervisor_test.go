package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/zapdrip/zapdrip/internal/llm"
	"github.com/zapdrip/zapdrip/internal/models"
)

func newTestSupervisor(t *testing.T) (*Supervisor, *testEnv) {
	t.Helper()

	env := newTestEnv(t, nil)
	s := NewSupervisor(env.runner, env.store, time.Hour, testLogger())
	t.Cleanup(s.Shutdown)
	return s, env
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func TestStart_ProcessesLeadAndSchedulesNext(t *testing.T) {
	s, env := newTestSupervisor(t)
	c := env.createCampaign(t, []models.Lead{
		{Name: "Ana", Phone: "1"},
		{Name: "Bia", Phone: "2"},
	})
	id := leadID(t, env, c.ID)

	// Delays of 150s+ keep the chained timer pending for the whole test.
	s.Start(c.ID)

	if lead := env.lead(t, id); lead.Status != models.LeadSentDefault {
		t.Errorf("first lead status = %q, want %q", lead.Status, models.LeadSentDefault)
	}
	if !containsID(s.Active(), c.ID) {
		t.Error("expected campaign to stay active with a pending timer")
	}
}

func TestStart_DrainedCampaignRetires(t *testing.T) {
	s, env := newTestSupervisor(t)
	c := env.createCampaign(t, nil)

	s.Start(c.ID)

	if containsID(s.Active(), c.ID) {
		t.Error("completed campaign must not keep a timer")
	}
	got, _ := env.store.GetCampaign(c.ID)
	if got.Status != models.CampaignCompleted {
		t.Errorf("campaign status = %q, want %q", got.Status, models.CampaignCompleted)
	}
}

// slowSender blocks inside SendText until released, tracking how many
// sends overlap.
type slowSender struct {
	mu       sync.Mutex
	inFlight int
	maxSeen  int
	once     sync.Once
	entered  chan struct{}
	release  chan struct{}
}

func newSlowSender() *slowSender {
	return &slowSender{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (s *slowSender) SendText(ctx context.Context, instance, phone, text string) bool {
	s.mu.Lock()
	s.inFlight++
	if s.inFlight > s.maxSeen {
		s.maxSeen = s.inFlight
	}
	s.mu.Unlock()

	s.once.Do(func() { close(s.entered) })
	<-s.release

	s.mu.Lock()
	s.inFlight--
	s.mu.Unlock()
	return true
}

func (s *slowSender) overlap() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxSeen
}

func TestStart_WhileIterationInFlight(t *testing.T) {
	env := newTestEnv(t, nil)
	sender := newSlowSender()
	personalizer := NewPersonalizer(env.store, env.scraper, llm.NewRegistry(env.gen))
	runner := NewRunner(env.store, personalizer, sender, nil, RunnerConfig{ChunkPause: -1}, testLogger())
	s := NewSupervisor(runner, env.store, time.Hour, testLogger())
	t.Cleanup(s.Shutdown)

	c := env.createCampaign(t, []models.Lead{
		{Name: "Ana", Phone: "1"},
		{Name: "Bia", Phone: "2"},
	})

	done := make(chan struct{})
	go func() {
		s.Start(c.ID)
		close(done)
	}()
	<-sender.entered

	// The first iteration is blocked inside the gateway send. A second
	// Start must defer to the running chain, not fork another one.
	s.Start(c.ID)

	close(sender.release)
	<-done

	if n := sender.overlap(); n != 1 {
		t.Fatalf("overlapping sends = %d, want 1", n)
	}

	// Only the first lead was processed; the second waits on the timer.
	stats, err := env.store.Leads.Stats(c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stats.SentDefault != 1 || stats.Pending != 1 {
		t.Errorf("lead stats = %+v, want one sent and one pending", stats)
	}
}

func TestStop_Idempotent(t *testing.T) {
	s, env := newTestSupervisor(t)
	c := env.createCampaign(t, []models.Lead{
		{Name: "Ana", Phone: "1"},
		{Name: "Bia", Phone: "2"},
	})

	s.Start(c.ID)
	s.Stop(c.ID)
	s.Stop(c.ID) // must be a no-op, not a panic

	if len(s.Active()) != 0 {
		t.Errorf("Active() = %v, want empty after Stop", s.Active())
	}

	// Stopping an unknown campaign is also a no-op.
	s.Stop("nunca-iniciada")
}

func TestResumeAll(t *testing.T) {
	s, env := newTestSupervisor(t)
	a := env.createCampaign(t, []models.Lead{{Name: "Ana", Phone: "1"}, {Name: "Bia", Phone: "2"}})
	b := env.createCampaign(t, []models.Lead{{Name: "Caio", Phone: "3"}, {Name: "Duda", Phone: "4"}})

	// A draft campaign must not be resumed.
	draft := &models.Campaign{OwnerID: "owner-1", Name: "rascunho", DefaultMessage: "oi"}
	if err := env.store.Campaigns.CreateWithLeads(draft, nil); err != nil {
		t.Fatal(err)
	}

	if err := s.ResumeAll(); err != nil {
		t.Fatalf("ResumeAll() error: %v", err)
	}

	active := s.Active()
	if len(active) != 2 || !containsID(active, a.ID) || !containsID(active, b.ID) {
		t.Errorf("Active() = %v, want exactly the two running campaigns", active)
	}
}

func TestPromoteDue(t *testing.T) {
	s, env := newTestSupervisor(t)

	past := time.Now().Add(-time.Minute)
	due := &models.Campaign{
		OwnerID:         "owner-1",
		Name:            "agendada",
		DefaultMessage:  "oi",
		DelayMinSeconds: 150,
		DelayMaxSeconds: 320,
		ScheduledAt:     &past,
	}
	if err := env.store.Campaigns.CreateWithLeads(due, []models.Lead{
		{Name: "Ana", Phone: "1"}, {Name: "Bia", Phone: "2"},
	}); err != nil {
		t.Fatal(err)
	}

	future := time.Now().Add(time.Hour)
	notYet := &models.Campaign{OwnerID: "owner-1", Name: "futura", DefaultMessage: "oi", ScheduledAt: &future}
	if err := env.store.Campaigns.CreateWithLeads(notYet, nil); err != nil {
		t.Fatal(err)
	}

	s.promoteDue()

	got, _ := env.store.GetCampaign(due.ID)
	if got.Status != models.CampaignRunning {
		t.Errorf("due campaign status = %q, want running", got.Status)
	}
	if !containsID(s.Active(), due.ID) {
		t.Error("due campaign should have a live loop")
	}

	got, _ = env.store.GetCampaign(notYet.ID)
	if got.Status != models.CampaignScheduled {
		t.Errorf("future campaign status = %q, want untouched scheduled", got.Status)
	}
}

func TestShutdown_CancelsTimers(t *testing.T) {
	env := newTestEnv(t, nil)
	s := NewSupervisor(env.runner, env.store, time.Hour, testLogger())

	c := env.createCampaign(t, []models.Lead{{Name: "Ana", Phone: "1"}, {Name: "Bia", Phone: "2"}})
	s.Start(c.ID)

	s.Shutdown()

	if len(s.Active()) != 0 {
		t.Errorf("Active() = %v, want empty after Shutdown", s.Active())
	}

	// Status stays running so the next boot's ResumeAll recovers it.
	got, _ := env.store.GetCampaign(c.ID)
	if got.Status != models.CampaignRunning {
		t.Errorf("campaign status = %q, want running preserved", got.Status)
	}
}
