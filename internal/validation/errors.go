package validation

import (
	"fmt"
	"strings"
)

// CreditSumInvariantError reports a converting path whose credits do not sum to 1.0
type CreditSumInvariantError struct {
	PathID string
	Model  string
	Sum    float64
}

func (e *CreditSumInvariantError) Error() string {
	return fmt.Sprintf("credit sum invariant violated for path %s under %s: sum=%.9f", e.PathID, e.Model, e.Sum)
}

// OverlappingClusterError reports a listener key that belongs to more than one cluster
type OverlappingClusterError struct {
	ListenerKey string
	ClusterIDs  []string
}

func (e *OverlappingClusterError) Error() string {
	return fmt.Sprintf("listener key %s belongs to multiple clusters: %s", e.ListenerKey, strings.Join(e.ClusterIDs, ", "))
}

// InvalidPathError reports a path that breaks ordering or terminal-conversion rules
type InvalidPathError struct {
	PathID string
	Reason string
}

func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("invalid path %s: %s", e.PathID, e.Reason)
}
