package normalizer

import (
	"time"

	"github.com/BarkinBalci/sponsorship-attribution-service/internal/domain"
)

// RawEvent is an incoming touchpoint before validation. Exactly one of the
// method sections is expected to be set, matching Method.
type RawEvent struct {
	CampaignID  string
	EpisodeID   string
	Method      domain.Method
	OccurredAt  time.Time
	ListenerKey string
	Supersedes  string
	Segment     string
	Identity    domain.IdentityHints

	// ConversionValue marks a promo code or pixel event as a conversion.
	// direct_api events carry theirs in DirectAPI.
	ConversionValue *float64

	PromoCode *RawPromoCode
	Pixel     *RawPixel
	DirectAPI *RawDirectAPI
}

// RawPromoCode is the promo code section of a raw event
type RawPromoCode struct {
	Code    string
	OrderID string
}

// RawPixel is the pixel or UTM section of a raw event
type RawPixel struct {
	PageURL  string
	UTM      domain.UTMParams
	Metadata map[string]string
}

// RawDirectAPI is the direct API conversion section of a raw event
type RawDirectAPI struct {
	IdempotencyKey  string
	ConversionValue *float64
	Currency        string
	OrderID         string
}
