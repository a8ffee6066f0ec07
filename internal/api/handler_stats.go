package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gate-checkin-backend/internal/parse"
)

// GetEventStats handles GET /api/events/:event_id/stats.
func (h *Handler) GetEventStats(c *gin.Context) {
	s, err := h.stats.EventStats(c.Request.Context(), c.Param("event_id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute event statistics"})
		return
	}
	c.JSON(http.StatusOK, s)
}

// GetRegistry handles GET /api/registry/:licence, an operator re-check that
// bypasses the gate flow.
func (h *Handler) GetRegistry(c *gin.Context) {
	licence := c.Param("licence")
	if !parse.IsLicenceNumber(licence) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "licence must be 16 digits"})
		return
	}
	if h.registry == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "registry lookups are disabled"})
		return
	}

	res := h.registry.Lookup(c.Request.Context(), licence)
	if res.Error != "" {
		c.JSON(http.StatusBadGateway, gin.H{"error": res.Error})
		return
	}
	c.JSON(http.StatusOK, res)
}
