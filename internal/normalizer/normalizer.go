package normalizer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BarkinBalci/sponsorship-attribution-service/internal/domain"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/repository"
)

// CampaignLookup resolves campaigns referenced by incoming events
type CampaignLookup interface {
	GetCampaign(ctx context.Context, campaignID string) (*domain.Campaign, error)
}

// Config tunes event normalization
type Config struct {
	// DedupTTL is how long dedup keys are held
	DedupTTL time.Duration
	// MaxClockSkew is how far in the future occurred_at may be
	MaxClockSkew time.Duration
}

// DefaultConfig holds dedup keys for 30 days and allows one second of skew
func DefaultConfig() Config {
	return Config{DedupTTL: 30 * 24 * time.Hour, MaxClockSkew: time.Second}
}

// Normalizer validates raw events and turns them into AttributionEvents
type Normalizer struct {
	campaigns CampaignLookup
	dedup     DedupIndex
	cfg       Config
	log       *zap.Logger
	now       func() time.Time
}

// New creates a new event normalizer
func New(campaigns CampaignLookup, dedup DedupIndex, cfg Config, log *zap.Logger) *Normalizer {
	if cfg.DedupTTL <= 0 {
		cfg.DedupTTL = DefaultConfig().DedupTTL
	}
	return &Normalizer{
		campaigns: campaigns,
		dedup:     dedup,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
	}
}

// Normalize validates raw and returns exactly one AttributionEvent, or a
// MalformedEventError, UnknownCampaignError or DuplicateEventError. Nothing is
// recorded unless the whole event is valid.
func (n *Normalizer) Normalize(ctx context.Context, raw *RawEvent) (*domain.AttributionEvent, error) {
	now := n.now()

	if err := n.validateCommon(raw, now); err != nil {
		return nil, err
	}

	event := &domain.AttributionEvent{
		CampaignID:      raw.CampaignID,
		EpisodeID:       raw.EpisodeID,
		OccurredAt:      raw.OccurredAt.UTC(),
		Method:          raw.Method,
		ListenerKey:     strings.TrimSpace(raw.ListenerKey),
		ConversionValue: raw.ConversionValue,
		Supersedes:      raw.Supersedes,
		Identity:        raw.Identity,
		Segment:         raw.Segment,
		IngestedAt:      now.UTC(),
	}

	payload, err := buildPayload(raw)
	if err != nil {
		return nil, err
	}
	event.Payload = payload
	if p, ok := payload.(domain.DirectAPIPayload); ok {
		v := p.ConversionValue
		event.ConversionValue = &v
	}

	campaign, err := n.campaigns.GetCampaign(ctx, raw.CampaignID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &UnknownCampaignError{CampaignID: raw.CampaignID}
		}
		return nil, fmt.Errorf("failed to look up campaign: %w", err)
	}

	if p, ok := payload.(domain.PromoCodePayload); ok {
		customer, registered := campaign.LookupCode(p.Code)
		if !registered {
			return nil, malformed("promo_code.code", "is not registered for the campaign")
		}
		if event.Identity.CustomerID == "" {
			event.Identity.CustomerID = customer
		}
	}

	event.EventID = computeEventID(event)

	if key := DedupKey(event); key != "" {
		existing, claimed, err := n.dedup.Claim(ctx, key, event.EventID, n.cfg.DedupTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to claim dedup key: %w", err)
		}
		if !claimed {
			n.log.Info("Duplicate event rejected",
				zap.String("campaign_id", event.CampaignID),
				zap.String("dedup_key", key),
				zap.String("original_event_id", existing))
			return nil, &DuplicateEventError{Key: key, OriginalEventID: existing}
		}
	}

	return event, nil
}

// Release frees the dedup claim of an event that could not be persisted so
// the caller can retry it
func (n *Normalizer) Release(ctx context.Context, event *domain.AttributionEvent) error {
	key := DedupKey(event)
	if key == "" {
		return nil
	}
	if err := n.dedup.Release(ctx, key); err != nil {
		return fmt.Errorf("failed to release dedup key: %w", err)
	}
	return nil
}

func (n *Normalizer) validateCommon(raw *RawEvent, now time.Time) error {
	if raw == nil {
		return malformed("event", "is required")
	}
	if !raw.Method.Valid() {
		return malformed("method", fmt.Sprintf("%q is not supported", raw.Method))
	}
	if strings.TrimSpace(raw.CampaignID) == "" {
		return malformed("campaign_id", "is required")
	}
	if strings.TrimSpace(raw.ListenerKey) == "" {
		return malformed("listener_key", "is required")
	}
	if raw.OccurredAt.IsZero() {
		return malformed("occurred_at", "is required")
	}
	if raw.OccurredAt.After(now.Add(n.cfg.MaxClockSkew)) {
		n.log.Warn("Timestamp validation failed: future timestamp",
			zap.Time("occurred_at", raw.OccurredAt),
			zap.Time("current_time", now),
			zap.String("campaign_id", raw.CampaignID))
		return malformed("occurred_at", "cannot be in the future")
	}
	if raw.ConversionValue != nil {
		if err := checkValue("conversion_value", *raw.ConversionValue); err != nil {
			return err
		}
	}
	return nil
}

// buildPayload validates the method section of raw. The switch covers every
// domain.Method.
func buildPayload(raw *RawEvent) (domain.Payload, error) {
	switch raw.Method {
	case domain.MethodPromoCode:
		if raw.PromoCode == nil || strings.TrimSpace(raw.PromoCode.Code) == "" {
			return nil, malformed("promo_code.code", "is required")
		}
		return domain.PromoCodePayload{
			Code:    domain.NormalizeCode(raw.PromoCode.Code),
			OrderID: raw.PromoCode.OrderID,
		}, nil

	case domain.MethodPixel, domain.MethodUTM:
		if raw.Pixel == nil || strings.TrimSpace(raw.Pixel.PageURL) == "" {
			return nil, malformed("pixel.page_url", "is required")
		}
		u, err := url.Parse(raw.Pixel.PageURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, malformed("pixel.page_url", "must be an absolute URL")
		}
		utm := raw.Pixel.UTM
		if utm.Empty() {
			utm = utmFromQuery(u.Query())
		}
		if utm.Empty() && len(raw.Pixel.Metadata) == 0 {
			return nil, malformed("pixel", "requires at least one utm parameter or metadata")
		}
		return domain.PixelPayload{
			PageURL:  raw.Pixel.PageURL,
			UTM:      utm,
			Metadata: raw.Pixel.Metadata,
		}, nil

	case domain.MethodDirectAPI:
		if raw.DirectAPI == nil || strings.TrimSpace(raw.DirectAPI.IdempotencyKey) == "" {
			return nil, malformed("direct_api.idempotency_key", "is required")
		}
		if raw.DirectAPI.ConversionValue == nil {
			return nil, malformed("direct_api.conversion_value", "is required")
		}
		if err := checkValue("direct_api.conversion_value", *raw.DirectAPI.ConversionValue); err != nil {
			return nil, err
		}
		return domain.DirectAPIPayload{
			IdempotencyKey:  strings.TrimSpace(raw.DirectAPI.IdempotencyKey),
			ConversionValue: *raw.DirectAPI.ConversionValue,
			Currency:        strings.ToUpper(raw.DirectAPI.Currency),
			OrderID:         raw.DirectAPI.OrderID,
		}, nil
	}
	return nil, malformed("method", fmt.Sprintf("%q is not supported", raw.Method))
}

func checkValue(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return malformed(field, "must be a finite number")
	}
	if v < 0 {
		return malformed(field, "cannot be negative")
	}
	return nil
}

func utmFromQuery(q url.Values) domain.UTMParams {
	return domain.UTMParams{
		Source:   q.Get("utm_source"),
		Medium:   q.Get("utm_medium"),
		Campaign: q.Get("utm_campaign"),
		Term:     q.Get("utm_term"),
		Content:  q.Get("utm_content"),
	}
}

// computeEventID generates a deterministic event ID from the identifying fields.
// direct_api events are identified by campaign and idempotency key alone.
func computeEventID(e *domain.AttributionEvent) string {
	var data string
	switch p := e.Payload.(type) {
	case domain.DirectAPIPayload:
		data = fmt.Sprintf("%s|%s|%s", e.CampaignID, e.Method, p.IdempotencyKey)
	case domain.PromoCodePayload:
		data = fmt.Sprintf("%s|%s|%s|%d|%s|%s", e.CampaignID, e.Method, e.ListenerKey, e.OccurredAt.UnixNano(), p.Code, e.Supersedes)
	case domain.PixelPayload:
		data = fmt.Sprintf("%s|%s|%s|%d|%s|%s", e.CampaignID, e.Method, e.ListenerKey, e.OccurredAt.UnixNano(), p.PageURL, e.Supersedes)
	}

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
