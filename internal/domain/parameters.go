package domain

import (
	"fmt"
	"strings"
	"time"
)

// MatchingAlgorithm selects how candidate pairs are scored.
type MatchingAlgorithm string

const (
	MatchingSemantic    MatchingAlgorithm = "semantic"
	MatchingStatistical MatchingAlgorithm = "statistical"
	MatchingHybrid      MatchingAlgorithm = "hybrid"
)

// SystemParameters are the global tuning knobs of pair matching.
// RefreshInterval is in seconds.
type SystemParameters struct {
	MinConfidenceThreshold int               `json:"min_confidence_threshold"`
	MaxPairsPerVenue       int               `json:"max_pairs_per_venue"`
	MatchingAlgorithm      MatchingAlgorithm `json:"matching_algorithm"`
	AutoApprovalThreshold  int               `json:"auto_approval_threshold"`
	RefreshInterval        int               `json:"refresh_interval"`
	EnableAutoMatching     bool              `json:"enable_auto_matching"`
	RequireManualReview    bool              `json:"require_manual_review"`
	UpdatedAt              time.Time         `json:"updated_at"`
}

const (
	MinRefreshInterval = 60
	MaxRefreshInterval = 3600
)

// DefaultSystemParameters returns the factory settings.
func DefaultSystemParameters() SystemParameters {
	return SystemParameters{
		MinConfidenceThreshold: 70,
		MaxPairsPerVenue:       1000,
		MatchingAlgorithm:      MatchingHybrid,
		AutoApprovalThreshold:  95,
		RefreshInterval:        300,
		EnableAutoMatching:     true,
		RequireManualReview:    false,
	}
}

// Validate returns a combined error describing every out-of-range field.
func (p SystemParameters) Validate() error {
	var errs []string
	if p.MinConfidenceThreshold < MinConfidence || p.MinConfidenceThreshold > MaxConfidence {
		errs = append(errs, fmt.Sprintf("min_confidence_threshold must be 0-100, got %d", p.MinConfidenceThreshold))
	}
	if p.AutoApprovalThreshold < MinConfidence || p.AutoApprovalThreshold > MaxConfidence {
		errs = append(errs, fmt.Sprintf("auto_approval_threshold must be 0-100, got %d", p.AutoApprovalThreshold))
	}
	if p.MaxPairsPerVenue < 1 {
		errs = append(errs, "max_pairs_per_venue must be >= 1")
	}
	if p.RefreshInterval < MinRefreshInterval || p.RefreshInterval > MaxRefreshInterval {
		errs = append(errs, fmt.Sprintf("refresh_interval must be %d-%d seconds, got %d",
			MinRefreshInterval, MaxRefreshInterval, p.RefreshInterval))
	}
	switch p.MatchingAlgorithm {
	case MatchingSemantic, MatchingStatistical, MatchingHybrid:
	default:
		errs = append(errs, fmt.Sprintf("unknown matching_algorithm %q", p.MatchingAlgorithm))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidParameters, strings.Join(errs, "; "))
	}
	return nil
}
