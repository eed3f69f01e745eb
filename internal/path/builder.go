package path

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/BarkinBalci/sponsorship-attribution-service/internal/domain"
)

// Config tunes path segmentation
type Config struct {
	// LookbackWindow is the inactivity gap that closes an open path
	LookbackWindow time.Duration
}

// DefaultConfig returns a 30 day look-back window
func DefaultConfig() Config {
	return Config{LookbackWindow: 30 * 24 * time.Hour}
}

// Builder assembles attribution paths per identity cluster
type Builder struct {
	cfg Config
	log *zap.Logger
}

// NewBuilder creates a new path builder
func NewBuilder(cfg Config, log *zap.Logger) *Builder {
	if cfg.LookbackWindow <= 0 {
		cfg.LookbackWindow = DefaultConfig().LookbackWindow
	}
	return &Builder{cfg: cfg, log: log}
}

// Build orders each cluster's campaign events and splits them into paths. A
// path closes on a conversion or after LookbackWindow without activity; paths
// closed by inactivity, and the trailing open path, are incomplete.
func (b *Builder) Build(campaignID string, clusters []domain.IdentityCluster, events []*domain.AttributionEvent) ([]domain.AttributionPath, error) {
	if campaignID == "" {
		return nil, errors.New("campaign id is required")
	}

	live := LiveEvents(campaignID, events)

	byListener := make(map[string][]*domain.AttributionEvent)
	for _, e := range live {
		byListener[e.ListenerKey] = append(byListener[e.ListenerKey], e)
	}

	var paths []domain.AttributionPath
	claimed := make(map[string]bool)
	for _, c := range clusters {
		var touchpoints []*domain.AttributionEvent
		for _, key := range c.MemberKeys {
			touchpoints = append(touchpoints, byListener[key]...)
			claimed[key] = true
		}
		if len(touchpoints) == 0 {
			continue
		}
		sortEvents(touchpoints)
		paths = append(paths, b.segment(campaignID, c.ClusterID, touchpoints)...)
	}

	if unclaimed := len(byListener) - countClaimed(byListener, claimed); unclaimed > 0 {
		b.log.Warn("Events without an identity cluster were skipped",
			zap.String("campaign_id", campaignID),
			zap.Int("listener_keys", unclaimed))
	}

	return paths, nil
}

func (b *Builder) segment(campaignID, clusterID string, events []*domain.AttributionEvent) []domain.AttributionPath {
	var paths []domain.AttributionPath
	var current []*domain.AttributionEvent

	closePath := func(conversionID string) {
		paths = append(paths, domain.AttributionPath{
			PathID:            PathID(campaignID, clusterID, current[0].EventID),
			CampaignID:        campaignID,
			ClusterID:         clusterID,
			Touchpoints:       current,
			ConversionEventID: conversionID,
		})
		current = nil
	}

	for _, e := range events {
		if len(current) > 0 && e.OccurredAt.Sub(current[len(current)-1].OccurredAt) > b.cfg.LookbackWindow {
			closePath("")
		}
		current = append(current, e)
		if e.IsConversion() {
			closePath(e.EventID)
		}
	}
	if len(current) > 0 {
		closePath("")
	}
	return paths
}

// PathID derives a stable path id from the campaign, cluster and first touchpoint
func PathID(campaignID, clusterID, firstEventID string) string {
	hash := sha256.Sum256([]byte(campaignID + "|" + clusterID + "|" + firstEventID))
	return "path_" + hex.EncodeToString(hash[:16])
}

// LiveEvents keeps the campaign's events that no later correction supersedes
func LiveEvents(campaignID string, events []*domain.AttributionEvent) []*domain.AttributionEvent {
	superseded := make(map[string]bool)
	for _, e := range events {
		if e != nil && e.CampaignID == campaignID && e.Supersedes != "" {
			superseded[e.Supersedes] = true
		}
	}

	live := make([]*domain.AttributionEvent, 0, len(events))
	for _, e := range events {
		if e == nil || e.CampaignID != campaignID || superseded[e.EventID] {
			continue
		}
		live = append(live, e)
	}
	return live
}

func sortEvents(events []*domain.AttributionEvent) {
	sort.Slice(events, func(i, j int) bool {
		if !events[i].OccurredAt.Equal(events[j].OccurredAt) {
			return events[i].OccurredAt.Before(events[j].OccurredAt)
		}
		return events[i].EventID < events[j].EventID
	})
}

func countClaimed(byListener map[string][]*domain.AttributionEvent, claimed map[string]bool) int {
	n := 0
	for key := range byListener {
		if claimed[key] {
			n++
		}
	}
	return n
}
