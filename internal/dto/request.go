package dto

import (
	"time"

	"github.com/BarkinBalci/sponsorship-attribution-service/internal/domain"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/normalizer"
)

// IngestEventRequest represents an attribution event submission
type IngestEventRequest struct {
	CampaignID      string            `json:"campaign_id" binding:"required" example:"cmp_987"`
	EpisodeID       string            `json:"episode_id" example:"ep_42"`
	Method          string            `json:"method" binding:"required,oneof=promo_code pixel utm direct_api" example:"promo_code"`
	OccurredAt      time.Time         `json:"occurred_at" binding:"required" example:"2026-03-01T12:00:00Z"`
	ListenerKey     string            `json:"listener_key" binding:"required" example:"device_7f3a"`
	Supersedes      string            `json:"supersedes" example:""`
	Segment         string            `json:"segment" example:"25-34"`
	ConversionValue *float64          `json:"conversion_value" example:"49.99"`
	Identity        *IdentityRequest  `json:"identity"`
	PromoCode       *PromoCodeRequest `json:"promo_code"`
	Pixel           *PixelRequest     `json:"pixel"`
	DirectAPI       *DirectAPIRequest `json:"direct_api"`
}

// IdentityRequest carries the identity hints known at ingest time
type IdentityRequest struct {
	UserID            string `json:"user_id" example:"user_123"`
	EmailHash         string `json:"email_hash" example:"5e884898da28047151d0e56f8dc62927"`
	CustomerID        string `json:"customer_id" example:"cust_42"`
	DeviceFingerprint string `json:"device_fingerprint" example:"fp_a1b2"`
	IPAddress         string `json:"ip_address" example:"203.0.113.7"`
}

// PromoCodeRequest is the promo_code section of an event
type PromoCodeRequest struct {
	Code    string `json:"code" example:"PODCAST20"`
	OrderID string `json:"order_id" example:"ord_555"`
}

// PixelRequest is the pixel or utm section of an event
type PixelRequest struct {
	PageURL  string            `json:"page_url" example:"https://shop.example.com/?utm_source=podcast"`
	UTM      UTMRequest        `json:"utm"`
	Metadata map[string]string `json:"metadata" swaggertype:"object,string" example:"pixel_id:px_1"`
}

// UTMRequest holds UTM parameters
type UTMRequest struct {
	Source   string `json:"source" example:"podcast"`
	Medium   string `json:"medium" example:"audio"`
	Campaign string `json:"campaign" example:"spring_launch"`
	Term     string `json:"term"`
	Content  string `json:"content"`
}

// DirectAPIRequest is the direct_api section of an event
type DirectAPIRequest struct {
	IdempotencyKey  string   `json:"idempotency_key" example:"order-555"`
	ConversionValue *float64 `json:"conversion_value" example:"49.99"`
	Currency        string   `json:"currency" example:"USD"`
	OrderID         string   `json:"order_id" example:"ord_555"`
}

// IngestEventsBulkRequest represents a bulk attribution event submission
type IngestEventsBulkRequest struct {
	Events []IngestEventRequest `json:"events" binding:"required,min=1,max=1000,dive"`
}

// GetCampaignROIRequest represents a campaign ROI query
type GetCampaignROIRequest struct {
	Model string `form:"model" example:"linear"`
}

// RecomputeRequest triggers a recompute of one campaign or of all campaigns
type RecomputeRequest struct {
	CampaignID string `json:"campaign_id" example:"cmp_987"`
	All        bool   `json:"all" example:"false"`
}

// ToRawEvent converts the request into the normalizer's input
func (r *IngestEventRequest) ToRawEvent() *normalizer.RawEvent {
	raw := &normalizer.RawEvent{
		CampaignID:      r.CampaignID,
		EpisodeID:       r.EpisodeID,
		Method:          domain.Method(r.Method),
		OccurredAt:      r.OccurredAt,
		ListenerKey:     r.ListenerKey,
		Supersedes:      r.Supersedes,
		Segment:         r.Segment,
		ConversionValue: r.ConversionValue,
	}
	if r.Identity != nil {
		raw.Identity = domain.IdentityHints{
			UserID:            r.Identity.UserID,
			EmailHash:         r.Identity.EmailHash,
			CustomerID:        r.Identity.CustomerID,
			DeviceFingerprint: r.Identity.DeviceFingerprint,
			IPAddress:         r.Identity.IPAddress,
		}
	}
	if r.PromoCode != nil {
		raw.PromoCode = &normalizer.RawPromoCode{Code: r.PromoCode.Code, OrderID: r.PromoCode.OrderID}
	}
	if r.Pixel != nil {
		raw.Pixel = &normalizer.RawPixel{
			PageURL: r.Pixel.PageURL,
			UTM: domain.UTMParams{
				Source:   r.Pixel.UTM.Source,
				Medium:   r.Pixel.UTM.Medium,
				Campaign: r.Pixel.UTM.Campaign,
				Term:     r.Pixel.UTM.Term,
				Content:  r.Pixel.UTM.Content,
			},
			Metadata: r.Pixel.Metadata,
		}
	}
	if r.DirectAPI != nil {
		raw.DirectAPI = &normalizer.RawDirectAPI{
			IdempotencyKey:  r.DirectAPI.IdempotencyKey,
			ConversionValue: r.DirectAPI.ConversionValue,
			Currency:        r.DirectAPI.Currency,
			OrderID:         r.DirectAPI.OrderID,
		}
	}
	return raw
}
