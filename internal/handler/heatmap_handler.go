package handler

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/hexmap-backend-go/internal/hexagg"
	"github.com/jengzang/hexmap-backend-go/internal/loader"
	"github.com/jengzang/hexmap-backend-go/internal/logging"
	"github.com/jengzang/hexmap-backend-go/internal/models"
	"github.com/jengzang/hexmap-backend-go/internal/service"
	"github.com/jengzang/hexmap-backend-go/pkg/response"
)

// HeatmapQuery is the query string of GET /heatmap.
// Resolution stays a string so that an empty value can be told apart from 0.
type HeatmapQuery struct {
	ColName    string  `form:"col_name"`
	Resolution *string `form:"resolution"`
}

var invalidResolutionMessage = fmt.Sprintf("Invalid resolution. Must be an integer between %d and %d.",
	hexagg.MinResolution, hexagg.MaxResolution)

// HeatmapHandler handles HTTP requests for hex heatmaps
type HeatmapHandler struct {
	service           *service.HeatmapService
	defaultResolution int
}

// NewHeatmapHandler creates a new heatmap handler
func NewHeatmapHandler(service *service.HeatmapService, defaultResolution int) *HeatmapHandler {
	return &HeatmapHandler{service: service, defaultResolution: defaultResolution}
}

// GetHeatmap handles GET /heatmap
func (h *HeatmapHandler) GetHeatmap(c *gin.Context) {
	var query HeatmapQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, invalidResolutionMessage)
		return
	}

	column, err := models.ParseValueColumn(query.ColName)
	if err != nil {
		response.BadRequest(c, models.InvalidColumnMessage)
		return
	}

	resolution, err := h.parseResolution(query.Resolution)
	if err != nil {
		response.BadRequest(c, invalidResolutionMessage)
		return
	}

	result, err := h.service.GetHeatmap(c.Request.Context(), column, resolution)
	switch {
	case errors.Is(err, hexagg.ErrInvalidResolution):
		response.BadRequest(c, fmt.Sprintf("Invalid resolution %d. Must be an integer between %d and %d.",
			resolution, hexagg.MinResolution, hexagg.MaxResolution))
		return
	case errors.Is(err, loader.ErrSourceUnavailable):
		logging.Error().Err(err).Msg("record source unavailable")
		response.InternalError(c, "Failed to load location data")
		return
	case err != nil:
		logging.Error().Err(err).Msg("heatmap failed")
		response.InternalError(c, "Failed to build heatmap")
		return
	}

	if result.CacheHit {
		c.Header("X-Cache", "HIT")
	} else {
		c.Header("X-Cache", "MISS")
	}
	response.RawJSON(c, result.Body)
}

// parseResolution falls back to the default only when the parameter is absent.
// "resolution=" and non-numeric values are errors.
func (h *HeatmapHandler) parseResolution(raw *string) (int, error) {
	if raw == nil {
		return h.defaultResolution, nil
	}
	return strconv.Atoi(*raw)
}
