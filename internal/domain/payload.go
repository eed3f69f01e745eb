package domain

import (
	"encoding/json"
	"fmt"
)

// Payload is the method-specific part of an AttributionEvent. The set of
// implementations is closed: PromoCodePayload, PixelPayload and DirectAPIPayload.
type Payload interface {
	payload()
}

// PromoCodePayload is a promo-code redemption
type PromoCodePayload struct {
	Code    string `json:"code"`
	OrderID string `json:"order_id,omitempty"`
}

// UTMParams are the standard campaign tagging parameters
type UTMParams struct {
	Source   string `json:"utm_source,omitempty"`
	Medium   string `json:"utm_medium,omitempty"`
	Campaign string `json:"utm_campaign,omitempty"`
	Term     string `json:"utm_term,omitempty"`
	Content  string `json:"utm_content,omitempty"`
}

// Empty reports whether no UTM parameter is set
func (u UTMParams) Empty() bool {
	return u == UTMParams{}
}

// PixelPayload is a tracking-pixel fire or a UTM-tagged click
type PixelPayload struct {
	PageURL  string            `json:"page_url"`
	UTM      UTMParams         `json:"utm"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// DirectAPIPayload is a conversion reported by the sponsor's backend
type DirectAPIPayload struct {
	IdempotencyKey  string  `json:"idempotency_key"`
	ConversionValue float64 `json:"conversion_value"`
	Currency        string  `json:"currency,omitempty"`
	OrderID         string  `json:"order_id,omitempty"`
}

func (PromoCodePayload) payload() {}
func (PixelPayload) payload()     {}
func (DirectAPIPayload) payload() {}

// MarshalPayload encodes a payload for storage or transport
func MarshalPayload(p Payload) ([]byte, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p)
}

// UnmarshalPayload decodes a payload stored for the given method
func UnmarshalPayload(method Method, data []byte) (Payload, error) {
	if len(data) == 0 {
		return nil, nil
	}

	switch method {
	case MethodPromoCode:
		var p PromoCodePayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("failed to decode promo code payload: %w", err)
		}
		return p, nil
	case MethodPixel, MethodUTM:
		var p PixelPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("failed to decode pixel payload: %w", err)
		}
		return p, nil
	case MethodDirectAPI:
		var p DirectAPIPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("failed to decode direct api payload: %w", err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unsupported method: %q", method)
	}
}

type eventJSON AttributionEvent

type eventWire struct {
	*eventJSON
	RawPayload json.RawMessage `json:"raw_payload"`
}

// MarshalJSON writes the payload under raw_payload
func (e AttributionEvent) MarshalJSON() ([]byte, error) {
	raw, err := MarshalPayload(e.Payload)
	if err != nil {
		return nil, err
	}
	ej := eventJSON(e)
	return json.Marshal(eventWire{eventJSON: &ej, RawPayload: raw})
}

// UnmarshalJSON decodes raw_payload according to the event method
func (e *AttributionEvent) UnmarshalJSON(data []byte) error {
	wire := eventWire{eventJSON: (*eventJSON)(e)}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	p, err := UnmarshalPayload(e.Method, wire.RawPayload)
	if err != nil {
		return err
	}
	e.Payload = p
	return nil
}
