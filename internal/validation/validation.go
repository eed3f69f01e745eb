package validation

import (
	"fmt"
	"math"
	"sort"

	"github.com/BarkinBalci/sponsorship-attribution-service/internal/domain"
)

// CreditEpsilon is the tolerance for the sum-to-one credit check
const CreditEpsilon = 1e-6

// Thresholds are the converting-path counts at which a result moves up a confidence level
type Thresholds struct {
	Minimum int
	Medium  int
	High    int
}

// DefaultThresholds returns 30 / 100 / 500
func DefaultThresholds() Thresholds {
	return Thresholds{Minimum: 30, Medium: 100, High: 500}
}

// Validate checks the thresholds are positive and ascending
func (t Thresholds) Validate() error {
	if t.Minimum <= 0 || t.Medium < t.Minimum || t.High < t.Medium {
		return fmt.Errorf("confidence thresholds must be positive and ascending, got %d/%d/%d", t.Minimum, t.Medium, t.High)
	}
	return nil
}

// Classify maps a sample size to its confidence level
func (t Thresholds) Classify(sampleSize int) domain.ConfidenceLevel {
	switch {
	case sampleSize < t.Minimum:
		return domain.ConfidenceInsufficientData
	case sampleSize < t.Medium:
		return domain.ConfidenceLow
	case sampleSize < t.High:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceHigh
	}
}

// CheckCreditSum enforces sum(credits) == 1 for converting results and all-zero
// credits otherwise. It never renormalizes.
func CheckCreditSum(result *domain.AttributionResult) error {
	var sum float64
	for _, c := range result.Credits {
		if c < 0 || c > 1+CreditEpsilon || math.IsNaN(c) {
			return &CreditSumInvariantError{PathID: result.PathID, Model: string(result.Model), Sum: c}
		}
		sum += c
	}

	want := 0.0
	if result.Converted {
		want = 1.0
	}
	if math.Abs(sum-want) > CreditEpsilon || math.IsNaN(sum) {
		return &CreditSumInvariantError{PathID: result.PathID, Model: string(result.Model), Sum: sum}
	}
	return nil
}

// ValidatePath checks that touchpoints are strictly ordered by
// (occurred_at, event_id), so equal timestamps are allowed when their ids
// ascend, and that a conversion, if any, is the single terminal event
func ValidatePath(p *domain.AttributionPath) error {
	if len(p.Touchpoints) == 0 {
		return &InvalidPathError{PathID: p.PathID, Reason: "path has no touchpoints"}
	}

	for i := 1; i < len(p.Touchpoints); i++ {
		prev, cur := p.Touchpoints[i-1], p.Touchpoints[i]
		if cur.OccurredAt.Before(prev.OccurredAt) {
			return &InvalidPathError{PathID: p.PathID, Reason: fmt.Sprintf("touchpoint %s occurs before %s", cur.EventID, prev.EventID)}
		}
		if cur.OccurredAt.Equal(prev.OccurredAt) && cur.EventID <= prev.EventID {
			return &InvalidPathError{PathID: p.PathID, Reason: fmt.Sprintf("touchpoint %s is not ordered after %s at the same time", cur.EventID, prev.EventID)}
		}
	}

	last := len(p.Touchpoints) - 1
	for i, tp := range p.Touchpoints {
		if tp.IsConversion() && i != last {
			return &InvalidPathError{PathID: p.PathID, Reason: fmt.Sprintf("conversion %s is not the terminal touchpoint", tp.EventID)}
		}
	}

	if p.ConversionEventID != "" {
		if p.Touchpoints[last].EventID != p.ConversionEventID || !p.Touchpoints[last].IsConversion() {
			return &InvalidPathError{PathID: p.PathID, Reason: "conversion event is not the last touchpoint"}
		}
	} else if p.Touchpoints[last].IsConversion() {
		return &InvalidPathError{PathID: p.PathID, Reason: "terminal conversion is not recorded on the path"}
	}
	return nil
}

// ValidateClusters returns one error per listener key found in more than one cluster
func ValidateClusters(clusters []domain.IdentityCluster) []error {
	owners := make(map[string][]string)
	for _, c := range clusters {
		for _, key := range c.MemberKeys {
			owners[key] = append(owners[key], c.ClusterID)
		}
	}

	keys := make([]string, 0, len(owners))
	for key, ids := range owners {
		if len(ids) > 1 {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	errs := make([]error, 0, len(keys))
	for _, key := range keys {
		errs = append(errs, &OverlappingClusterError{ListenerKey: key, ClusterIDs: owners[key]})
	}
	return errs
}
