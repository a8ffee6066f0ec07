package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"gate-checkin-backend/config"
	"gate-checkin-backend/internal/metrics"
	"gate-checkin-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg *config.ServerConfig, h *Handler, m *metrics.Metrics) *gin.Engine {
	r := gin.Default()

	if len(cfg.CORSOrigins) > 0 {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowOrigins = cfg.CORSOrigins
		corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
		corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
		r.Use(cors.New(corsConfig))
	}

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	// Statistics are recomputed from scratch, so they are served from cache.
	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(ttl, 2*ttl)
	caching := mw.Cache(cacheStore, ttl)

	r.GET("/health", h.Health)
	if m != nil {
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		events := api.Group("/events/:event_id")
		events.POST("/scans", h.PostScan)
		events.POST("/stewards", h.PostSteward)
		events.GET("/checkins", h.ListCheckIns)
		events.GET("/stats", caching, h.GetEventStats)

		api.GET("/registry/:licence", h.GetRegistry)
		api.DELETE("/checkins", h.DeleteCheckIns)
	}

	return r
}
