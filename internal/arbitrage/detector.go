package arbitrage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/arblens/internal/domain"
)

// PairLister reads every stored pair.
type PairLister interface {
	List(ctx context.Context) ([]domain.MarketPair, error)
}

// DetectorConfig configures the detector.
type DetectorConfig struct {
	Strategy Strategy
	Pairs    PairLister
	Bus      domain.SignalBus
	// Interval between full scans. Pair mutations also trigger a scan.
	Interval time.Duration
	// DedupTTL bounds how often one pair is announced.
	DedupTTL time.Duration
	Logger   *slog.Logger
}

// Detector scans pairs with its strategy and publishes each new opportunity
// on domain.ChannelOpportunity as a notification.
type Detector struct {
	strategy Strategy
	pairs    PairLister
	bus      domain.SignalBus
	interval time.Duration
	dedup    *Dedup
	now      func() time.Time
	logger   *slog.Logger
}

// NewDetector creates a detector that runs the given strategy.
func NewDetector(cfg DetectorConfig) *Detector {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.DedupTTL <= 0 {
		cfg.DedupTTL = 15 * time.Minute
	}
	return &Detector{
		strategy: cfg.Strategy,
		pairs:    cfg.Pairs,
		bus:      cfg.Bus,
		interval: cfg.Interval,
		dedup:    NewDedup(cfg.DedupTTL),
		now:      func() time.Time { return time.Now().UTC() },
		logger:   cfg.Logger.With(slog.String("component", "arb_detector")),
	}
}

// Run scans once, then on every tick and after every pair mutation. It
// blocks until ctx is cancelled.
func (d *Detector) Run(ctx context.Context) error {
	events, err := d.bus.Subscribe(ctx, domain.ChannelPairs)
	if err != nil {
		return fmt.Errorf("arb detector: subscribe pairs: %w", err)
	}
	d.logger.Info("arb detector started",
		slog.String("strategy", d.strategy.Name()),
		slog.Duration("interval", d.interval),
	)
	defer d.logger.Info("arb detector stopped")

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.scanAndLog(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			d.dedup.Cleanup(d.now())
			d.scanAndLog(ctx)
		case _, ok := <-events:
			if !ok {
				return nil
			}
			d.scanAndLog(ctx)
		}
	}
}

func (d *Detector) scanAndLog(ctx context.Context) {
	if _, err := d.Scan(ctx); err != nil && ctx.Err() == nil {
		d.logger.WarnContext(ctx, "arb detector: scan failed", slog.String("error", err.Error()))
	}
}

// Scan evaluates every pair once and publishes the opportunities that were
// not announced within the dedup window. It returns what it published.
func (d *Detector) Scan(ctx context.Context) ([]Opportunity, error) {
	pairs, err := d.pairs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("arb detector: list pairs: %w", err)
	}
	now := d.now()
	var published []Opportunity
	for _, p := range pairs {
		opp, ok := d.strategy.Detect(ctx, p, now)
		if !ok {
			d.dedup.Forget(p.ID)
			continue
		}
		if d.dedup.IsDuplicate(p.ID, now) {
			continue
		}
		if err := d.publish(ctx, opp); err != nil {
			d.dedup.Forget(p.ID)
			d.logger.WarnContext(ctx, "arb detector: publish failed",
				slog.String("pair_id", p.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		published = append(published, opp)
	}
	return published, nil
}

func (d *Detector) publish(ctx context.Context, opp Opportunity) error {
	payload, err := json.Marshal(OpportunityNotification(opp))
	if err != nil {
		return err
	}
	return d.bus.Publish(ctx, domain.ChannelOpportunity, payload)
}

// OpportunityNotification renders opp as a toast.
func OpportunityNotification(opp Opportunity) domain.Notification {
	return domain.Notification{
		Type:  domain.NotifyOpportunity,
		Title: "Cross-Venue Spread Detected",
		Message: fmt.Sprintf("Buy on %s, sell on %s: %.0f bps net at %d%% confidence",
			opp.BuyVenue, opp.SellVenue, opp.NetEdgeBps, opp.Confidence),
		Data: &domain.NotificationData{
			Pair:   opp.PairID,
			Profit: fmt.Sprintf("%.1f", opp.NetEdgeBps/100),
		},
		Action:    &domain.NotificationAction{Label: domain.ReviewPairAction},
		Timestamp: opp.DetectedAt,
	}
}
