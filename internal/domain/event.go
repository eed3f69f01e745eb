package domain

import "time"

// Method identifies the channel a touchpoint was observed on
type Method string

const (
	MethodPromoCode Method = "promo_code"
	MethodPixel     Method = "pixel"
	MethodUTM       Method = "utm"
	MethodDirectAPI Method = "direct_api"
)

// Valid reports whether m is one of the supported ingest methods
func (m Method) Valid() bool {
	switch m {
	case MethodPromoCode, MethodPixel, MethodUTM, MethodDirectAPI:
		return true
	}
	return false
}

// IdentityHints carries the identity signals known for a listener at ingest time.
// UserID, EmailHash and CustomerID are deterministic signals; DeviceFingerprint
// and IPAddress only feed probabilistic linking.
type IdentityHints struct {
	UserID            string `json:"user_id,omitempty"`
	EmailHash         string `json:"email_hash,omitempty"`
	CustomerID        string `json:"customer_id,omitempty"`
	DeviceFingerprint string `json:"device_fingerprint,omitempty"`
	IPAddress         string `json:"ip_address,omitempty"`
}

// HasDeterministic reports whether any deterministic identity signal is present
func (h IdentityHints) HasDeterministic() bool {
	return h.UserID != "" || h.EmailHash != "" || h.CustomerID != ""
}

// AttributionEvent is one observed touchpoint. Events are append-only: a
// correction is a new event whose Supersedes points at the event it replaces.
type AttributionEvent struct {
	EventID         string        `json:"event_id"`
	CampaignID      string        `json:"campaign_id"`
	EpisodeID       string        `json:"episode_id,omitempty"`
	OccurredAt      time.Time     `json:"occurred_at"`
	Method          Method        `json:"method"`
	Payload         Payload       `json:"-"`
	ListenerKey     string        `json:"listener_key"`
	ConversionValue *float64      `json:"conversion_value,omitempty"`
	Supersedes      string        `json:"supersedes,omitempty"`
	Identity        IdentityHints `json:"identity"`
	Segment         string        `json:"segment,omitempty"`
	IngestedAt      time.Time     `json:"ingested_at"`
}

// IsConversion reports whether the event carries a conversion value
func (e *AttributionEvent) IsConversion() bool {
	return e.ConversionValue != nil
}

// Value returns the conversion value or zero for non-conversion touchpoints
func (e *AttributionEvent) Value() float64 {
	if e.ConversionValue == nil {
		return 0
	}
	return *e.ConversionValue
}
