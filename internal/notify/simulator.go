package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/alanyoungcy/arblens/internal/domain"
)

// Adder accepts new notifications.
type Adder interface {
	Add(n domain.Notification) domain.Notification
}

// OpportunityNotification is the synthetic high-confidence pair alert.
func OpportunityNotification() domain.Notification {
	return domain.Notification{
		Type:    domain.NotifyOpportunity,
		Title:   "New High-Confidence Pair",
		Message: "A new market pair with 96% confidence has been detected",
		Data: &domain.NotificationData{
			Pair:   "TRUMP2024/KALSHI-POLY",
			Profit: "3.2",
		},
		Action: &domain.NotificationAction{Label: domain.ReviewPairAction},
	}
}

// Simulator periodically injects opportunity notifications with a fixed
// probability, standing in for a live opportunity feed.
type Simulator struct {
	sink        Adder
	interval    time.Duration
	probability float64
	rand        func() float64
	logger      *slog.Logger
}

// NewSimulator creates a Simulator. rnd defaults to math/rand when nil.
func NewSimulator(sink Adder, interval time.Duration, probability float64, rnd func() float64, logger *slog.Logger) *Simulator {
	if rnd == nil {
		rnd = rand.Float64
	}
	return &Simulator{
		sink:        sink,
		interval:    interval,
		probability: probability,
		rand:        rnd,
		logger:      logger.With(slog.String("component", "opportunity_simulator")),
	}
}

// Tick rolls once and adds a notification on success.
func (s *Simulator) Tick() (domain.Notification, bool) {
	if s.rand() >= s.probability {
		return domain.Notification{}, false
	}
	n := s.sink.Add(OpportunityNotification())
	s.logger.Info("simulated opportunity", slog.String("notification_id", n.ID))
	return n, true
}

// Run ticks every interval until ctx is done.
func (s *Simulator) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "simulator started",
		slog.Duration("interval", s.interval),
		slog.Float64("probability", s.probability),
	)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Subscriber is the subscribe half of a signal bus.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// RelayOpportunities reads opportunity notifications published on
// domain.ChannelOpportunity and adds them to sink until ctx is done. It is
// the live replacement for the Simulator.
func RelayOpportunities(ctx context.Context, bus Subscriber, sink Adder, logger *slog.Logger) error {
	logger = logger.With(slog.String("component", "opportunity_relay"))
	ch, err := bus.Subscribe(ctx, domain.ChannelOpportunity)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payload, ok := <-ch:
			if !ok {
				return nil
			}
			var n domain.Notification
			if err := json.Unmarshal(payload, &n); err != nil {
				logger.WarnContext(ctx, "discarding malformed opportunity",
					slog.String("error", err.Error()),
				)
				continue
			}
			if n.Type == "" {
				n.Type = domain.NotifyOpportunity
			}
			sink.Add(n)
		}
	}
}
