package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/BarkinBalci/sponsorship-attribution-service/docs"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/attribution"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/dto"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/normalizer"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/pipeline"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/service"
)

type Handler struct {
	attributionService service.AttributionServicer
	gatherer           prometheus.Gatherer
	router             *gin.Engine
	log                *zap.Logger
}

func NewHandler(attributionService service.AttributionServicer, gatherer prometheus.Gatherer, log *zap.Logger) *Handler {
	h := &Handler{
		attributionService: attributionService,
		gatherer:           gatherer,
		router:             gin.Default(),
		log:                log,
	}

	h.registerRoutes()

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.router.GET("/health", h.healthCheck)
	h.router.POST("/attribution-events", h.ingestEvent)
	h.router.POST("/attribution-events/bulk", h.ingestEventsBulk)
	h.router.GET("/campaigns/:id/roi", h.getCampaignROI)
	h.router.POST("/recompute", h.recompute)
	h.router.GET("/internal/metrics", gin.WrapH(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})))
	h.router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

// healthCheck handles health check requests
// @Summary Health check
// @Description Check the service and ping its storage dependencies
// @Tags health
// @Produce json
// @Success 200 {object} dto.HealthResponse
// @Failure 503 {object} dto.HealthResponse
// @Router /health [get]
func (h *Handler) healthCheck(c *gin.Context) {
	response := dto.HealthResponse{Status: "ok", Checks: map[string]string{}}
	status := http.StatusOK

	for name, err := range h.attributionService.Health(c.Request.Context()) {
		if err != nil {
			h.log.Warn("Health check failed",
				zap.String("dependency", name),
				zap.Error(err))
			response.Checks[name] = err.Error()
			response.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		response.Checks[name] = "ok"
	}

	c.JSON(status, response)
}

// ingestEvent handles POST /attribution-events
// @Summary Ingest an attribution event
// @Description Validate, deduplicate and enqueue a promo code, pixel, utm or direct API event
// @Tags events
// @Accept json
// @Produce json
// @Param event body dto.IngestEventRequest true "Event data"
// @Success 201 {object} dto.IngestEventResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /attribution-events [post]
func (h *Handler) ingestEvent(c *gin.Context) {
	var req dto.IngestEventRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid event request",
			zap.Error(err),
			zap.String("campaign_id", req.CampaignID))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	event, err := h.attributionService.IngestEvent(c.Request.Context(), req.ToRawEvent())
	if err != nil {
		status, response := errorResponse(err)
		if status == http.StatusInternalServerError {
			h.log.Error("Failed to ingest event",
				zap.Error(err),
				zap.String("campaign_id", req.CampaignID),
				zap.String("method", req.Method))
		} else {
			h.log.Info("Event rejected",
				zap.String("reason", response.Error),
				zap.String("campaign_id", req.CampaignID),
				zap.String("method", req.Method))
		}
		c.JSON(status, response)
		return
	}

	h.log.Info("Event accepted",
		zap.String("event_id", event.EventID),
		zap.String("campaign_id", event.CampaignID),
		zap.String("method", string(event.Method)))

	c.JSON(http.StatusCreated, dto.IngestEventResponse{
		EventID: event.EventID,
		Status:  "accepted",
		Event:   event,
	})
}

// ingestEventsBulk handles POST /attribution-events/bulk
// @Summary Ingest multiple attribution events
// @Description Ingest up to 1000 events; each event is accepted or rejected on its own
// @Tags events
// @Accept json
// @Produce json
// @Param events body dto.IngestEventsBulkRequest true "Bulk events data"
// @Success 202 {object} dto.IngestEventsBulkResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /attribution-events/bulk [post]
func (h *Handler) ingestEventsBulk(c *gin.Context) {
	var bulkRequest dto.IngestEventsBulkRequest

	if err := c.ShouldBindJSON(&bulkRequest); err != nil {
		h.log.Warn("Invalid bulk event request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	raws := make([]normalizer.RawEvent, 0, len(bulkRequest.Events))
	for i := range bulkRequest.Events {
		raws = append(raws, *bulkRequest.Events[i].ToRawEvent())
	}

	response := dto.IngestEventsBulkResponse{}
	for _, result := range h.attributionService.IngestBulk(c.Request.Context(), raws) {
		if result.Err != nil {
			_, errResp := errorResponse(result.Err)
			response.Errors = append(response.Errors, dto.BulkItemError{
				Index:           result.Index,
				Error:           errResp.Error,
				Message:         errResp.Message,
				OriginalEventID: errResp.OriginalEventID,
			})
			continue
		}
		response.EventIDs = append(response.EventIDs, result.Event.EventID)
	}
	response.Accepted = len(response.EventIDs)
	response.Rejected = len(response.Errors)

	h.log.Info("Bulk events processed",
		zap.Int("accepted", response.Accepted),
		zap.Int("rejected", response.Rejected),
		zap.Int("total", len(bulkRequest.Events)))

	c.JSON(http.StatusAccepted, response)
}

// getCampaignROI handles GET /campaigns/:id/roi
// @Summary Get campaign ROI
// @Description Campaign ROI and ROAS for one attribution model, recomputed when the stored result is stale
// @Tags roi
// @Produce json
// @Param id path string true "Campaign ID"
// @Param model query string false "Attribution model" Enums(first_touch, last_touch, linear, time_decay, position_based, u_shaped, w_shaped) default(linear)
// @Success 200 {object} domain.CampaignROI
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /campaigns/{id}/roi [get]
func (h *Handler) getCampaignROI(c *gin.Context) {
	var req dto.GetCampaignROIRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}
	if req.Model == "" {
		req.Model = "linear"
	}

	model, err := attribution.ParseModel(req.Model)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid_model",
			Message: err.Error(),
		})
		return
	}

	campaignID := c.Param("id")
	roi, err := h.attributionService.GetCampaignROI(c.Request.Context(), campaignID, model)
	if err != nil {
		status, response := errorResponse(err)
		if status == http.StatusInternalServerError {
			h.log.Error("Failed to get campaign ROI",
				zap.Error(err),
				zap.String("campaign_id", campaignID),
				zap.String("model", string(model)))
		}
		c.JSON(status, response)
		return
	}

	h.log.Info("Campaign ROI retrieved",
		zap.String("campaign_id", campaignID),
		zap.String("model", string(model)),
		zap.String("confidence_level", string(roi.ConfidenceLevel)),
		zap.Int("sample_size", roi.SampleSize))

	c.JSON(http.StatusOK, roi)
}

// recompute handles POST /recompute
// @Summary Recompute attribution
// @Description Re-run identity resolution, path building, attribution and ROI for one campaign or all campaigns
// @Tags roi
// @Accept json
// @Produce json
// @Param request body dto.RecomputeRequest true "Campaign to recompute, or all"
// @Success 200 {object} dto.RecomputeResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /recompute [post]
func (h *Handler) recompute(c *gin.Context) {
	var req dto.RecomputeRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}
	if (req.CampaignID == "") == !req.All {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: "exactly one of campaign_id or all must be set",
		})
		return
	}

	ctx := c.Request.Context()
	if req.All {
		reports, err := h.attributionService.RecomputeAll(ctx)
		if err != nil {
			h.log.Error("Failed to recompute campaigns", zap.Error(err))
			status, response := errorResponse(err)
			c.JSON(status, response)
			return
		}
		c.JSON(http.StatusOK, dto.RecomputeResponse{Reports: reports})
		return
	}

	report, err := h.attributionService.Recompute(ctx, req.CampaignID)
	if err != nil {
		status, response := errorResponse(err)
		if status == http.StatusInternalServerError {
			h.log.Error("Failed to recompute campaign",
				zap.Error(err),
				zap.String("campaign_id", req.CampaignID))
		}
		c.JSON(status, response)
		return
	}
	c.JSON(http.StatusOK, dto.RecomputeResponse{Reports: []*pipeline.RunReport{report}})
}
