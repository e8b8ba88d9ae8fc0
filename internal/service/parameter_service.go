package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/arblens/internal/domain"
)

// ParameterService reads and updates the system parameters record.
type ParameterService struct {
	store   domain.ParameterStore
	audit   domain.AuditStore
	bus     domain.SignalBus
	latency time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

// NewParameterService creates a ParameterService. audit and bus may be nil.
func NewParameterService(
	store domain.ParameterStore,
	audit domain.AuditStore,
	bus domain.SignalBus,
	latency time.Duration,
	logger *slog.Logger,
) *ParameterService {
	return &ParameterService{
		store:   store,
		audit:   audit,
		bus:     bus,
		latency: latency,
		now:     func() time.Time { return time.Now().UTC() },
		logger:  logger.With(slog.String("component", "parameter_service")),
	}
}

// Get returns the current parameters.
func (s *ParameterService) Get(ctx context.Context) (domain.SystemParameters, error) {
	p, err := s.store.Get(ctx)
	if err != nil {
		return domain.SystemParameters{}, fmt.Errorf("parameter_service: get: %w", err)
	}
	return p, nil
}

// Update validates and persists params, returning the stored record.
func (s *ParameterService) Update(ctx context.Context, params domain.SystemParameters) (domain.SystemParameters, error) {
	if err := params.Validate(); err != nil {
		return domain.SystemParameters{}, err
	}
	if err := sleep(ctx, s.latency); err != nil {
		return domain.SystemParameters{}, err
	}

	params.UpdatedAt = s.now()
	if err := s.store.Save(ctx, params); err != nil {
		return domain.SystemParameters{}, fmt.Errorf("parameter_service: save: %w", err)
	}

	recordAudit(ctx, s.audit, s.bus, s.logger, "parameters_updated", map[string]any{
		"min_confidence_threshold": params.MinConfidenceThreshold,
		"max_pairs_per_venue":      params.MaxPairsPerVenue,
		"matching_algorithm":       string(params.MatchingAlgorithm),
		"auto_approval_threshold":  params.AutoApprovalThreshold,
		"refresh_interval":         params.RefreshInterval,
		"enable_auto_matching":     params.EnableAutoMatching,
		"require_manual_review":    params.RequireManualReview,
	})
	publishJSON(ctx, s.bus, s.logger, domain.ChannelParams, params)
	s.logger.InfoContext(ctx, "parameters updated",
		slog.String("algorithm", string(params.MatchingAlgorithm)),
	)
	return params, nil
}

// AuditService lists audit entries.
type AuditService struct {
	store domain.AuditStore
}

// NewAuditService creates an AuditService.
func NewAuditService(store domain.AuditStore) *AuditService {
	return &AuditService{store: store}
}

// List returns audit entries, newest first.
func (s *AuditService) List(ctx context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error) {
	entries, err := s.store.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("audit_service: list: %w", err)
	}
	return entries, nil
}
