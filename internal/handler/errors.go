package handler

import (
	"errors"
	"net/http"

	"github.com/BarkinBalci/sponsorship-attribution-service/internal/attribution"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/dto"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/normalizer"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/repository"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/service"
)

// errorResponse maps a service error to its HTTP status and body
func errorResponse(err error) (int, dto.ErrorResponse) {
	var malformed *normalizer.MalformedEventError
	var unknown *normalizer.UnknownCampaignError
	var duplicate *normalizer.DuplicateEventError

	switch {
	case errors.As(err, &malformed):
		return http.StatusBadRequest, dto.ErrorResponse{Error: "malformed_event", Message: err.Error(), Field: malformed.Field}
	case errors.As(err, &unknown):
		return http.StatusNotFound, dto.ErrorResponse{Error: "unknown_campaign", Message: err.Error()}
	case errors.As(err, &duplicate):
		return http.StatusConflict, dto.ErrorResponse{Error: "duplicate_event", Message: err.Error(), OriginalEventID: duplicate.OriginalEventID}
	case errors.Is(err, service.ErrModelNotEnabled), errors.Is(err, attribution.ErrUnknownModel):
		return http.StatusBadRequest, dto.ErrorResponse{Error: "invalid_model", Message: err.Error()}
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, dto.ErrorResponse{Error: "not_found", Message: err.Error()}
	default:
		return http.StatusInternalServerError, dto.ErrorResponse{Error: "internal_error", Message: err.Error()}
	}
}
