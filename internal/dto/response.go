package dto

import (
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/domain"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/pipeline"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error           string `json:"error" example:"malformed_event"`
	Message         string `json:"message,omitempty" example:"malformed event: promo_code.code is required"`
	Field           string `json:"field,omitempty" example:"promo_code.code"`
	OriginalEventID string `json:"original_event_id,omitempty" example:"3f1c9a"`
}

// IngestEventResponse represents an accepted attribution event
type IngestEventResponse struct {
	EventID string                   `json:"event_id" example:"3f1c9a"`
	Status  string                   `json:"status" example:"accepted"`
	Event   *domain.AttributionEvent `json:"event" swaggertype:"object"`
}

// BulkItemError describes one rejected event of a bulk submission
type BulkItemError struct {
	Index           int    `json:"index" example:"3"`
	Error           string `json:"error" example:"duplicate_event"`
	Message         string `json:"message" example:"duplicate event for idem:cmp_987:order-555"`
	OriginalEventID string `json:"original_event_id,omitempty"`
}

// IngestEventsBulkResponse represents the outcome of a bulk submission
type IngestEventsBulkResponse struct {
	Accepted int             `json:"accepted" example:"5"`
	Rejected int             `json:"rejected" example:"0"`
	EventIDs []string        `json:"event_ids,omitempty" example:"evt_1,evt_2,evt_3"`
	Errors   []BulkItemError `json:"errors,omitempty"`
}

// RecomputeResponse carries the report of every recomputed campaign
type RecomputeResponse struct {
	Reports []*pipeline.RunReport `json:"reports"`
}

// HealthResponse represents the health of the service and its dependencies
type HealthResponse struct {
	Status string            `json:"status" example:"ok"`
	Checks map[string]string `json:"checks,omitempty"`
}
