package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/zapdrip/zapdrip/internal/models"
)

// defaultSchedulerInterval is the cadence for promoting due scheduled
// campaigns.
const defaultSchedulerInterval = 60 * time.Second

// Supervisor owns the campaign→timer map. A nil timer entry marks a
// campaign whose iteration is executing right now; a non-nil entry is
// a pending reschedule. All mutation goes through Start/Stop.
type Supervisor struct {
	runner   *Runner
	store    Store
	logger   *slog.Logger
	interval time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer

	done chan struct{}
	wg   sync.WaitGroup
}

// NewSupervisor creates a supervisor. schedulerInterval <= 0 uses the
// default 60s cadence.
func NewSupervisor(runner *Runner, store Store, schedulerInterval time.Duration, logger *slog.Logger) *Supervisor {
	if schedulerInterval <= 0 {
		schedulerInterval = defaultSchedulerInterval
	}
	return &Supervisor{
		runner:   runner,
		store:    store,
		logger:   logger.With("component", "supervisor"),
		interval: schedulerInterval,
		timers:   make(map[string]*time.Timer),
		done:     make(chan struct{}),
	}
}

// Start runs one iteration immediately, chaining further iterations
// from there. A campaign whose iteration is executing right now keeps
// its existing chain: at most one iteration per campaign is ever in
// flight. A pending timer is cancelled in favor of the immediate run.
func (s *Supervisor) Start(campaignID string) {
	s.mu.Lock()
	if t, ok := s.timers[campaignID]; ok {
		if t == nil {
			// Iteration executing now; it reschedules itself.
			s.mu.Unlock()
			return
		}
		t.Stop()
	}
	s.timers[campaignID] = nil
	s.mu.Unlock()

	s.logger.Info("campaign loop started", "campaign_id", campaignID)
	s.iterate(campaignID)
}

// Stop cancels the pending timer for a campaign, if any. Safe to call
// for unknown campaigns and safe to call twice. An iteration already
// executing finishes; it observes the status change on its next pass.
func (s *Supervisor) Stop(campaignID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[campaignID]; ok {
		if t != nil {
			t.Stop()
		}
		delete(s.timers, campaignID)
		s.logger.Info("campaign loop stopped", "campaign_id", campaignID)
	}
}

// Active returns the campaign IDs with a live loop.
func (s *Supervisor) Active() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.timers))
	for id := range s.timers {
		ids = append(ids, id)
	}
	return ids
}

// ResumeAll restarts the loop for every campaign the store still marks
// running. Run once at boot to recover in-flight campaigns.
func (s *Supervisor) ResumeAll() error {
	running, err := s.store.FindRunning()
	if err != nil {
		return err
	}

	if len(running) > 0 {
		s.logger.Info("resuming running campaigns", "count", len(running))
	}
	for _, c := range running {
		s.Start(c.ID)
	}
	return nil
}

// RunScheduler promotes due scheduled campaigns to running, checking
// immediately and then on a fixed cadence until ctx or Shutdown stops
// it.
func (s *Supervisor) RunScheduler(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.promoteDue()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.done:
				return
			case <-ticker.C:
				s.promoteDue()
			}
		}
	}()
	s.logger.Info("scheduler started", "interval", s.interval)
}

// Shutdown stops the scheduler and cancels every pending timer.
// Campaigns keep their running status in the store, so ResumeAll picks
// them up on the next boot.
func (s *Supervisor) Shutdown() {
	close(s.done)
	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.timers {
		if t != nil {
			t.Stop()
		}
		delete(s.timers, id)
	}
	s.logger.Info("supervisor shut down")
}

// promoteDue flips due scheduled campaigns to running and starts them.
// A failure on one campaign never aborts the cycle.
func (s *Supervisor) promoteDue() {
	due, err := s.store.FindDueScheduled(time.Now())
	if err != nil {
		s.logger.Error("failed to query scheduled campaigns", "error", err)
		return
	}

	for _, c := range due {
		if err := s.store.SetCampaignStatus(c.ID, models.CampaignRunning); err != nil {
			s.logger.Error("failed to promote scheduled campaign", "campaign_id", c.ID, "error", err)
			continue
		}
		s.logger.Info("scheduled campaign promoted", "campaign_id", c.ID, "name", c.Name)
		s.Start(c.ID)
	}
}

// iterate runs one iteration and either chains the next timer or
// retires the loop.
func (s *Supervisor) iterate(campaignID string) {
	delay, cont := s.runner.RunIteration(context.Background(), campaignID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.timers[campaignID]; !ok {
		// Stopped while the iteration was executing.
		return
	}
	if !cont {
		delete(s.timers, campaignID)
		return
	}

	// The callback compares timer identity: if Start or Stop replaced
	// or removed this timer while the callback was waiting on the
	// lock, it must not run a duplicate iteration.
	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		s.mu.Lock()
		if s.timers[campaignID] != t {
			s.mu.Unlock()
			return
		}
		s.timers[campaignID] = nil
		s.mu.Unlock()

		s.iterate(campaignID)
	})
	s.timers[campaignID] = t
}
