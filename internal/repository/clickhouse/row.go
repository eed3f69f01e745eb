package clickhouse

import (
	"fmt"
	"time"

	"github.com/BarkinBalci/sponsorship-attribution-service/internal/domain"
)

// eventRow is the column layout of attribution_events
type eventRow struct {
	EventID           string
	CampaignID        string
	EpisodeID         string
	OccurredAt        time.Time
	Method            string
	ListenerKey       string
	ConversionValue   *float64
	Supersedes        string
	UserID            string
	EmailHash         string
	CustomerID        string
	DeviceFingerprint string
	IPAddress         string
	Segment           string
	RawPayload        string
	IngestedAt        time.Time
	Version           uint64
}

func toRow(e *domain.AttributionEvent, version uint64) (eventRow, error) {
	payload, err := domain.MarshalPayload(e.Payload)
	if err != nil {
		return eventRow{}, fmt.Errorf("failed to marshal payload of event %s: %w", e.EventID, err)
	}

	ingestedAt := e.IngestedAt
	if ingestedAt.IsZero() {
		ingestedAt = time.Now().UTC()
	}

	return eventRow{
		EventID:           e.EventID,
		CampaignID:        e.CampaignID,
		EpisodeID:         e.EpisodeID,
		OccurredAt:        e.OccurredAt.UTC(),
		Method:            string(e.Method),
		ListenerKey:       e.ListenerKey,
		ConversionValue:   e.ConversionValue,
		Supersedes:        e.Supersedes,
		UserID:            e.Identity.UserID,
		EmailHash:         e.Identity.EmailHash,
		CustomerID:        e.Identity.CustomerID,
		DeviceFingerprint: e.Identity.DeviceFingerprint,
		IPAddress:         e.Identity.IPAddress,
		Segment:           e.Segment,
		RawPayload:        string(payload),
		IngestedAt:        ingestedAt,
		Version:           version,
	}, nil
}

func (r eventRow) toEvent() (*domain.AttributionEvent, error) {
	method := domain.Method(r.Method)
	payload, err := domain.UnmarshalPayload(method, []byte(r.RawPayload))
	if err != nil {
		return nil, err
	}

	return &domain.AttributionEvent{
		EventID:         r.EventID,
		CampaignID:      r.CampaignID,
		EpisodeID:       r.EpisodeID,
		OccurredAt:      r.OccurredAt.UTC(),
		Method:          method,
		Payload:         payload,
		ListenerKey:     r.ListenerKey,
		ConversionValue: r.ConversionValue,
		Supersedes:      r.Supersedes,
		Identity: domain.IdentityHints{
			UserID:            r.UserID,
			EmailHash:         r.EmailHash,
			CustomerID:        r.CustomerID,
			DeviceFingerprint: r.DeviceFingerprint,
			IPAddress:         r.IPAddress,
		},
		Segment:    r.Segment,
		IngestedAt: r.IngestedAt.UTC(),
	}, nil
}
