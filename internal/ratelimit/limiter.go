// Package ratelimit enforces per-instance send budgets so one gateway
// number is never pushed past safe hourly or daily volumes.
package ratelimit

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketSendBudgets = []byte("send_budgets")

// Config contains the send budget per gateway instance. Zero values
// disable the corresponding cap.
type Config struct {
	PerHour int `yaml:"per_hour"`
	PerDay  int `yaml:"per_day"`

	FlushInterval time.Duration `yaml:"flush_interval,omitempty"`
}

// Counter tracks sends within the current hour and day windows.
type Counter struct {
	HourlyCount int       `json:"hourly_count"`
	DailyCount  int       `json:"daily_count"`
	HourStart   time.Time `json:"hour_start"`
	DayStart    time.Time `json:"day_start"`
}

// Result reports whether a send fits the budget, and when to retry if
// it does not.
type Result struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Limiter tracks send counters per instance, persisted to bolt so
// budgets survive restarts.
type Limiter struct {
	db       *bolt.DB
	config   Config
	counters map[string]*Counter
	mu       sync.RWMutex
	stopCh   chan struct{}
}

// NewLimiter creates a limiter backed by the given bolt database and
// loads any persisted counters.
func NewLimiter(db *bolt.DB, cfg Config) (*Limiter, error) {
	if cfg.FlushInterval == 0 {
		cfg.FlushInterval = 10 * time.Second
	}

	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSendBudgets)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create send budgets bucket: %w", err)
	}

	l := &Limiter{
		db:       db,
		config:   cfg,
		counters: make(map[string]*Counter),
		stopCh:   make(chan struct{}),
	}

	if err := l.loadCounters(); err != nil {
		return nil, fmt.Errorf("load counters: %w", err)
	}

	go l.persistLoop()

	return l, nil
}

// Allow reports whether the instance may send now and, if so, counts
// the send against its budget.
func (l *Limiter) Allow(instance string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	counter := l.getOrCreateCounter(instance, now)
	l.resetExpired(counter, now)

	if res := l.check(counter, now); !res.Allowed {
		return res
	}

	counter.HourlyCount++
	counter.DailyCount++
	return Result{Allowed: true}
}

// Check reports whether a send would be allowed without consuming
// budget.
func (l *Limiter) Check(instance string) Result {
	l.mu.RLock()
	defer l.mu.RUnlock()

	counter, ok := l.counters[instance]
	if !ok {
		return Result{Allowed: true}
	}

	now := time.Now()
	effective := *counter
	if now.Sub(effective.HourStart) >= time.Hour {
		effective.HourlyCount = 0
	}
	if now.Sub(effective.DayStart) >= 24*time.Hour {
		effective.DailyCount = 0
	}
	return l.check(&effective, now)
}

// Stats returns the current counter for an instance.
func (l *Limiter) Stats(instance string) Counter {
	l.mu.RLock()
	defer l.mu.RUnlock()

	counter, ok := l.counters[instance]
	if !ok {
		return Counter{}
	}

	now := time.Now()
	stats := *counter
	if now.Sub(stats.HourStart) >= time.Hour {
		stats.HourlyCount = 0
	}
	if now.Sub(stats.DayStart) >= 24*time.Hour {
		stats.DailyCount = 0
	}
	return stats
}

// Stop halts background persistence and flushes counters.
func (l *Limiter) Stop() error {
	close(l.stopCh)
	return l.persistCounters()
}

func (l *Limiter) check(counter *Counter, now time.Time) Result {
	if l.config.PerHour > 0 && counter.HourlyCount >= l.config.PerHour {
		return Result{
			RetryAfter: counter.HourStart.Add(time.Hour).Sub(now),
		}
	}
	if l.config.PerDay > 0 && counter.DailyCount >= l.config.PerDay {
		return Result{
			RetryAfter: counter.DayStart.Add(24 * time.Hour).Sub(now),
		}
	}
	return Result{Allowed: true}
}

func (l *Limiter) getOrCreateCounter(instance string, now time.Time) *Counter {
	counter, ok := l.counters[instance]
	if !ok {
		counter = &Counter{HourStart: now, DayStart: now}
		l.counters[instance] = counter
	}
	return counter
}

func (l *Limiter) resetExpired(counter *Counter, now time.Time) {
	if now.Sub(counter.HourStart) >= time.Hour {
		counter.HourlyCount = 0
		counter.HourStart = now
	}
	if now.Sub(counter.DayStart) >= 24*time.Hour {
		counter.DailyCount = 0
		counter.DayStart = now
	}
}

func (l *Limiter) loadCounters() error {
	return l.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketSendBudgets)
		if bucket == nil {
			return nil
		}

		return bucket.ForEach(func(k, v []byte) error {
			var counter Counter
			if err := json.Unmarshal(v, &counter); err != nil {
				return nil // skip invalid entries
			}
			l.counters[string(k)] = &counter
			return nil
		})
	})
}

func (l *Limiter) persistCounters() error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketSendBudgets)
		if bucket == nil {
			return nil
		}

		for instance, counter := range l.counters {
			data, err := json.Marshal(counter)
			if err != nil {
				continue
			}
			if err := bucket.Put([]byte(instance), data); err != nil {
				return err
			}
		}
		return nil
	})
}

func (l *Limiter) persistLoop() {
	ticker := time.NewTicker(l.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-ticker.C:
			l.persistCounters()
		}
	}
}
