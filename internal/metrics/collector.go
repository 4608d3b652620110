package metrics

import (
	"context"
	"sync"
	"time"
)

// CampaignStatsProvider reports how many campaigns have a live timer.
type CampaignStatsProvider interface {
	Active() []string
}

// LeadStatsProvider reports pending leads across running campaigns.
type LeadStatsProvider interface {
	CountPendingLeads() (int, error)
}

// Collector periodically refreshes campaign and lead gauges.
type Collector struct {
	metrics   *Metrics
	campaigns CampaignStatsProvider
	leads     LeadStatsProvider
	interval  time.Duration

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewCollector creates a gauge collector.
func NewCollector(m *Metrics, campaigns CampaignStatsProvider, leads LeadStatsProvider, interval time.Duration) *Collector {
	if interval == 0 {
		interval = 15 * time.Second
	}
	return &Collector{
		metrics:   m,
		campaigns: campaigns,
		leads:     leads,
		interval:  interval,
		stopCh:    make(chan struct{}),
	}
}

// Start begins the collector background loop.
func (c *Collector) Start(ctx context.Context) {
	c.wg.Add(1)
	go c.loop(ctx)
}

// Stop halts the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
	c.wg.Wait()
}

func (c *Collector) loop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.collect()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.collect()
		}
	}
}

func (c *Collector) collect() {
	if c.campaigns != nil {
		c.metrics.ActiveCampaigns.Set(float64(len(c.campaigns.Active())))
	}
	if c.leads != nil {
		if n, err := c.leads.CountPendingLeads(); err == nil {
			c.metrics.LeadsPending.Set(float64(n))
		}
	}
}
