package normalizer

import (
	"context"
	"fmt"
	"time"

	"github.com/BarkinBalci/sponsorship-attribution-service/internal/domain"
)

// DedupIndex records dedup keys with atomic insert-if-absent semantics
type DedupIndex interface {
	// Claim stores eventID under key unless the key is already held. It
	// returns the holder's event id and false when the key was taken.
	Claim(ctx context.Context, key, eventID string, ttl time.Duration) (existing string, claimed bool, err error)

	// Release removes key so the event can be submitted again
	Release(ctx context.Context, key string) error
}

// PromoBucket is the window within which repeated redemptions of one promo
// code by one listener count as a single event
const PromoBucket = time.Hour

// DedupKey returns the dedup key of a normalized event. Methods without
// dedup semantics return an empty key.
func DedupKey(e *domain.AttributionEvent) string {
	switch p := e.Payload.(type) {
	case domain.DirectAPIPayload:
		return fmt.Sprintf("idem:%s:%s", e.CampaignID, p.IdempotencyKey)
	case domain.PromoCodePayload:
		bucket := e.OccurredAt.UTC().Truncate(PromoBucket).Unix()
		return fmt.Sprintf("promo:%s:%s:%s:%d", e.CampaignID, domain.NormalizeCode(p.Code), e.ListenerKey, bucket)
	default:
		return ""
	}
}
