package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// SweeperConfig contains stale-lead sweep settings.
type SweeperConfig struct {
	// MaxAge is how long a lead may sit in processando before it is
	// considered abandoned by a dead process.
	MaxAge time.Duration
	// Interval is the sweep cadence. Zero for either field disables
	// the sweeper.
	Interval time.Duration
}

// ActiveCampaigns reports campaigns with a live dispatch loop, whose
// in-flight lead must not be requeued.
type ActiveCampaigns interface {
	Active() []string
}

// Sweeper requeues leads a crashed process left stuck in processando,
// so they re-enter the FIFO instead of being abandoned.
type Sweeper struct {
	store  Store
	active ActiveCampaigns
	cfg    SweeperConfig
	logger *slog.Logger
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewSweeper creates a sweeper.
func NewSweeper(store Store, active ActiveCampaigns, cfg SweeperConfig, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		store:  store,
		active: active,
		cfg:    cfg,
		logger: logger.With("component", "sweeper"),
		done:   make(chan struct{}),
	}
}

// Start starts the sweep loop. No-op when the config disables it.
func (s *Sweeper) Start(ctx context.Context) {
	if s.cfg.MaxAge <= 0 || s.cfg.Interval <= 0 {
		return
	}

	s.wg.Add(1)
	go s.loop(ctx)
	s.logger.Info("sweeper started", "max_age", s.cfg.MaxAge, "interval", s.cfg.Interval)
}

// Stop stops the sweeper and waits for the loop to finish.
func (s *Sweeper) Stop() {
	close(s.done)
	s.wg.Wait()
}

func (s *Sweeper) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.runSweep()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			s.runSweep()
		}
	}
}

func (s *Sweeper) runSweep() {
	cutoff := time.Now().Add(-s.cfg.MaxAge)

	var exclude []string
	if s.active != nil {
		exclude = s.active.Active()
	}

	n, err := s.store.RequeueStaleLeads(cutoff, exclude)
	if err != nil {
		s.logger.Error("failed to requeue stale leads", "error", err)
		return
	}
	if n > 0 {
		s.logger.Info("requeued stale leads", "count", n)
	}
}
