package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"gate-checkin-backend/internal/checkin"
	"gate-checkin-backend/internal/metrics"
	"gate-checkin-backend/internal/registry"
	"gate-checkin-backend/internal/stats"
	"gate-checkin-backend/internal/store"
)

// Gate records scans and steward check-ins.
type Gate interface {
	Scan(ctx context.Context, req checkin.ScanRequest) (*checkin.Result, error)
	CheckInSteward(ctx context.Context, req checkin.StewardRequest) (*checkin.Result, error)
}

// StatsProvider computes event statistics.
type StatsProvider interface {
	EventStats(ctx context.Context, eventID string) (*stats.EventStats, error)
}

// Registry looks a licence up on the public register.
type Registry interface {
	Lookup(ctx context.Context, licence string) registry.Result
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store    store.Store
	gate     Gate
	stats    StatsProvider
	registry Registry
	metrics  *metrics.Metrics
}

// NewHandler creates a new API handler. reg and m may be nil.
func NewHandler(s store.Store, gate Gate, agg StatsProvider, reg Registry, m *metrics.Metrics) *Handler {
	return &Handler{
		store:    s,
		gate:     gate,
		stats:    agg,
		registry: reg,
		metrics:  m,
	}
}

// Health reports whether the database answers.
func (h *Handler) Health(c *gin.Context) {
	sqlDB, err := h.store.DB().DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
