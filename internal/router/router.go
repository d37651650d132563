package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/stemsi/sat-explorer/internal/config"
	"github.com/stemsi/sat-explorer/internal/handler"
	"github.com/stemsi/sat-explorer/internal/metrics"
	"github.com/stemsi/sat-explorer/internal/middleware"
	"github.com/stemsi/sat-explorer/internal/response"
	"github.com/stemsi/sat-explorer/internal/service"
)

// chartMaxAge is the Cache-Control max-age of rendered charts.
const chartMaxAge = 300

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Explorer *handler.ExplorerHandler
	Session  *handler.SessionHandler
	Page     *handler.PageHandler
	System   *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	handlers *Handlers,
	shareService *service.ShareService,
	limiter *middleware.RateLimiter,
	gatherer prometheus.Gatherer,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.RequestLogger(log))
	router.Use(metrics.Middleware())
	router.Use(middleware.Brotli())

	router.GET("/health", handlers.System.Health)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	router.GET("/", handlers.Page.Index)

	// ─── 1. Explorer API ───────────────────────────────────────────────
	api := router.Group("/api/v1")
	{
		api.GET("/controls", handlers.Explorer.GetControls)
		api.GET("/views", handlers.Explorer.GetViews)
		api.POST("/share", middleware.NoStore(), handlers.Explorer.CreateShare)
	}

	// ─── 2. Rendered charts (rate limited, cacheable) ──────────────────
	charts := router.Group("/api/v1")
	charts.Use(limiter.Middleware(), middleware.CacheControl(chartMaxAge))
	{
		charts.GET("/chart.png", handlers.Explorer.GetChartPNG)
		charts.GET("/chart.svg", handlers.Explorer.GetChartSVG)
	}

	// ─── 3. Shared filter states ───────────────────────────────────────
	shared := router.Group("/api/v1/shared/:token")
	shared.Use(middleware.RequireShareToken(shareService))
	{
		shared.GET("/views", handlers.Explorer.GetSharedViews)
		shared.GET("/chart.png", limiter.Middleware(), middleware.CacheControl(chartMaxAge), handlers.Explorer.GetSharedChart)
	}

	// ─── 4. Interaction sessions ───────────────────────────────────────
	ws := router.Group("/ws/v1")
	{
		ws.GET("/session", handlers.Session.Session)
	}

	return router
}
