package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jengzang/hexmap-backend-go/internal/service"
	"github.com/jengzang/hexmap-backend-go/pkg/response"
)

// CacheHandler handles HTTP requests for cache management
type CacheHandler struct {
	service *service.HeatmapService
}

// NewCacheHandler creates a new cache handler
func NewCacheHandler(service *service.HeatmapService) *CacheHandler {
	return &CacheHandler{service: service}
}

// GetCacheInfo handles GET /cache/info
func (h *CacheHandler) GetCacheInfo(c *gin.Context) {
	response.Success(c, h.service.CacheInfo())
}

// ClearCache handles DELETE /cache/clear
func (h *CacheHandler) ClearCache(c *gin.Context) {
	h.service.ClearCache()
	response.Message(c, "Cache cleared")
}
