package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jengzang/hexmap-backend-go/internal/config"
	"github.com/jengzang/hexmap-backend-go/internal/handler"
	"github.com/jengzang/hexmap-backend-go/internal/middleware"
	"github.com/jengzang/hexmap-backend-go/internal/service"
)

// Dependencies are the long-lived objects the routes are bound to
type Dependencies struct {
	Heatmap  *service.HeatmapService
	Gatherer prometheus.Gatherer // nil hides /metrics
}

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config, deps Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Hello, from backend!"})
	})

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	heatmapHandler := handler.NewHeatmapHandler(deps.Heatmap, cfg.DefaultResolution)
	cacheHandler := handler.NewCacheHandler(deps.Heatmap)

	r.GET("/heatmap", heatmapHandler.GetHeatmap)

	cache := r.Group("/cache")
	{
		cache.GET("/info", cacheHandler.GetCacheInfo)
		cache.DELETE("/clear", middleware.AdminAuth(cfg.JWTSecret), cacheHandler.ClearCache)
	}

	return r
}
