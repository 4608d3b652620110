package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/zapdrip/zapdrip/internal/chunk"
	"github.com/zapdrip/zapdrip/internal/metrics"
	"github.com/zapdrip/zapdrip/internal/models"
)

// Default inter-lead delay bounds in seconds, used when a campaign has
// no valid bounds of its own. Randomized pacing keeps the send pattern
// away from provider abuse detection.
const (
	DefaultDelayMinSeconds = 150
	DefaultDelayMaxSeconds = 320
)

// defaultChunkPause approximates human typing cadence between chunks
// of one message.
const defaultChunkPause = 2 * time.Second

// RunnerConfig tunes one runner.
type RunnerConfig struct {
	// ChunkPause is the wait between chunks of a multi-chunk message.
	// Zero means the default; negative disables the pause.
	ChunkPause time.Duration

	// DelayMinSeconds and DelayMaxSeconds replace the built-in
	// fallback pacing bounds for campaigns without valid bounds of
	// their own. Ignored when not a valid range.
	DelayMinSeconds int
	DelayMaxSeconds int
}

// Runner executes single dispatch iterations. It owns no timers; the
// Supervisor decides when iterations happen.
type Runner struct {
	store        Store
	personalizer *Personalizer
	sender       Sender
	budget       Budget
	logger       *slog.Logger
	chunkPause   time.Duration
	delayMin     int
	delayMax     int
}

// NewRunner creates a runner.
func NewRunner(store Store, personalizer *Personalizer, sender Sender, budget Budget, cfg RunnerConfig, logger *slog.Logger) *Runner {
	pause := cfg.ChunkPause
	if pause == 0 {
		pause = defaultChunkPause
	}
	if pause < 0 {
		pause = 0
	}
	delayMin, delayMax := cfg.DelayMinSeconds, cfg.DelayMaxSeconds
	if delayMin <= 0 || delayMax < delayMin {
		delayMin, delayMax = DefaultDelayMinSeconds, DefaultDelayMaxSeconds
	}
	return &Runner{
		store:        store,
		personalizer: personalizer,
		sender:       sender,
		budget:       budget,
		logger:       logger.With("component", "dispatch"),
		chunkPause:   pause,
		delayMin:     delayMin,
		delayMax:     delayMax,
	}
}

// RunIteration processes at most one lead for a campaign and reports
// whether the loop should continue and after how long. cont=false
// means terminal: completed, externally stopped, or a fatal store
// failure (logged, campaign flipped to error).
func (r *Runner) RunIteration(ctx context.Context, campaignID string) (delay time.Duration, cont bool) {
	start := time.Now()
	defer func() {
		metrics.ObserveIteration(time.Since(start).Seconds())
	}()

	campaign, err := r.store.GetCampaign(campaignID)
	if err != nil {
		r.logger.Error("load campaign failed, stopping loop", "campaign_id", campaignID, "error", err)
		return 0, false
	}
	if campaign == nil {
		return 0, false
	}
	if campaign.Status != models.CampaignRunning {
		r.logger.Info("campaign no longer running, stopping loop", "campaign_id", campaignID, "status", campaign.Status)
		return 0, false
	}

	lead, err := r.store.OldestPendingLead(campaignID)
	if err != nil {
		return 0, r.fatal(campaignID, fmt.Errorf("fetch pending lead: %w", err))
	}
	if lead == nil {
		if err := r.store.SetCampaignStatus(campaignID, models.CampaignCompleted); err != nil {
			return 0, r.fatal(campaignID, fmt.Errorf("mark campaign completed: %w", err))
		}
		r.logger.Info("campaign completed", "campaign_id", campaignID,
			"sent_custom", campaign.SentCustom, "sent_default", campaign.SentDefault, "errors", campaign.Errors)
		return 0, false
	}

	// Budget gate before the lead is touched, so a denied send leaves
	// the lead pendente for the retry. Gated after the fetch so a
	// drained campaign completes without spending budget.
	if r.budget != nil {
		if res := r.budget.Allow(campaign.Instance); !res.Allowed {
			metrics.IncBudgetExceeded(campaign.Instance)
			retry := res.RetryAfter
			if retry <= 0 {
				retry = time.Duration(r.delayMax) * time.Second
			}
			r.logger.Info("instance budget exhausted, deferring",
				"campaign_id", campaignID, "instance", campaign.Instance, "retry_after", retry)
			return retry, true
		}
	}

	// Durability checkpoint: once processando, this lead is never
	// fetched again, even across a crash.
	if err := r.store.MarkLeadProcessing(lead.ID); err != nil {
		return 0, r.fatal(campaignID, fmt.Errorf("mark lead processing: %w", err))
	}

	if err := r.processLead(ctx, campaign, lead); err != nil {
		return 0, r.fatal(campaignID, err)
	}

	// Re-read so an external pause or cancel during this iteration is
	// honored before rescheduling.
	campaign, err = r.store.GetCampaign(campaignID)
	if err != nil {
		return 0, r.fatal(campaignID, fmt.Errorf("reload campaign: %w", err))
	}
	if campaign == nil || campaign.Status != models.CampaignRunning {
		return 0, false
	}

	return r.nextDelay(campaign), true
}

// processLead runs personalization, chunking, and sending for one
// lead. Provider failures and panics degrade to a lead-level erro; the
// returned error is reserved for store failures.
func (r *Runner) processLead(ctx context.Context, campaign *models.Campaign, lead *models.Lead) (storeErr error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("panic while processing lead, marking erro",
				"campaign_id", campaign.ID, "lead_id", lead.ID, "panic", rec)
			storeErr = r.recordError(campaign, lead, fmt.Sprintf("panic: %v", rec))
		}
	}()

	result, err := r.personalizer.Personalize(ctx, campaign, lead)
	if err != nil {
		return fmt.Errorf("personalize lead %s: %w", lead.ID, err)
	}

	for i, piece := range chunk.Split(result.Message) {
		if i > 0 && r.chunkPause > 0 {
			select {
			case <-ctx.Done():
				return r.recordError(campaign, lead, "envio interrompido: "+ctx.Err().Error())
			case <-time.After(r.chunkPause):
			}
		}
		if !r.sender.SendText(ctx, campaign.Instance, lead.Phone, piece) {
			return r.recordError(campaign, lead, fmt.Sprintf("falha ao enviar chunk %d no gateway", i+1))
		}
		metrics.IncChunksSent()
	}

	status := models.LeadSentDefault
	if result.Personalized {
		status = models.LeadSentCustom
	}
	if err := r.store.MarkLeadSent(lead.ID, status, result.Message, result.FallbackReason); err != nil {
		return fmt.Errorf("mark lead sent: %w", err)
	}
	if err := r.store.IncrementSent(campaign.ID, result.Personalized); err != nil {
		return fmt.Errorf("increment sent counter: %w", err)
	}

	if result.Personalized {
		metrics.IncMessagesSent("personalizado")
	} else {
		metrics.IncMessagesSent("padrao")
		metrics.IncFallbacks(result.FallbackReason)
	}
	r.logger.Info("lead dispatched", "campaign_id", campaign.ID, "lead_id", lead.ID,
		"status", status, "fallback_reason", result.FallbackReason)
	return nil
}

// recordError marks the lead erro and bumps the campaign error counter.
func (r *Runner) recordError(campaign *models.Campaign, lead *models.Lead, detail string) error {
	metrics.IncMessagesFailed()
	r.logger.Warn("lead failed", "campaign_id", campaign.ID, "lead_id", lead.ID, "detail", detail)

	if err := r.store.MarkLeadError(lead.ID, detail); err != nil {
		return fmt.Errorf("mark lead error: %w", err)
	}
	if err := r.store.IncrementErrors(campaign.ID); err != nil {
		return fmt.Errorf("increment error counter: %w", err)
	}
	return nil
}

// fatal stops the loop on a systemic failure rather than hot-looping.
// The campaign is flipped to error so the stall is visible; manual
// restart resumes it.
func (r *Runner) fatal(campaignID string, err error) bool {
	r.logger.Error("fatal iteration error, stopping loop", "campaign_id", campaignID, "error", err)
	if serr := r.store.SetCampaignStatus(campaignID, models.CampaignError); serr != nil {
		r.logger.Error("failed to mark campaign error", "campaign_id", campaignID, "error", serr)
	}
	return false
}

// nextDelay draws a uniform integer delay in the campaign's bounds,
// falling back to the runner's configured bounds.
func (r *Runner) nextDelay(campaign *models.Campaign) time.Duration {
	min, max := campaign.DelayMinSeconds, campaign.DelayMaxSeconds
	if min <= 0 || max < min {
		min, max = r.delayMin, r.delayMax
	}
	return time.Duration(min+rand.IntN(max-min+1)) * time.Second
}
