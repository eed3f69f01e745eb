package pipeline

import (
	"errors"
	"sort"
	"time"

	"github.com/BarkinBalci/sponsorship-attribution-service/internal/validation"
)

// Item error kinds
const (
	KindOverlappingCluster = "overlapping_cluster"
	KindInvalidPath        = "invalid_path"
	KindCreditSum          = "credit_sum"
	KindAttribution        = "attribution"
)

// RunReport summarizes one campaign recompute
type RunReport struct {
	RunID           string         `json:"run_id,omitempty"`
	CampaignID      string         `json:"campaign_id"`
	Events          int            `json:"events"`
	Clusters        int            `json:"clusters"`
	Paths           int            `json:"paths"`
	ConvertingPaths int            `json:"converting_paths"`
	Results         int            `json:"results"`
	ItemErrors      map[string]int `json:"item_errors"`
	Duration        time.Duration  `json:"duration_ns"`
	Error           string         `json:"error,omitempty"`
}

// TotalItemErrors is the number of skipped items across all kinds
func (r *RunReport) TotalItemErrors() int {
	total := 0
	for _, n := range r.ItemErrors {
		total += n
	}
	return total
}

func (r *RunReport) countItemError(err error) string {
	kind := errorKind(err)
	r.ItemErrors[kind]++
	return kind
}

func errorKind(err error) string {
	var overlap *validation.OverlappingClusterError
	var invalidPath *validation.InvalidPathError
	var creditSum *validation.CreditSumInvariantError
	switch {
	case errors.As(err, &overlap):
		return KindOverlappingCluster
	case errors.As(err, &invalidPath):
		return KindInvalidPath
	case errors.As(err, &creditSum):
		return KindCreditSum
	default:
		return KindAttribution
	}
}

func sortedKinds(m map[string]int) []string {
	kinds := make([]string, 0, len(m))
	for k := range m {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
