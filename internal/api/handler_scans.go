package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"gate-checkin-backend/internal/checkin"
	"gate-checkin-backend/internal/model"
)

type postScanRequest struct {
	Badge  string `json:"badge" binding:"required"`
	Method string `json:"method" binding:"omitempty,oneof=qr_scan manual_entry ocr_scan"`
}

// PostScan handles POST /api/events/:event_id/scans.
func (h *Handler) PostScan(c *gin.Context) {
	var req postScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	badge := strings.TrimSpace(req.Badge)
	if badge == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "badge must not be blank"})
		return
	}
	if strings.EqualFold(badge, model.StewardBadge) {
		c.JSON(http.StatusBadRequest, gin.H{"error": checkin.ErrReservedBadge.Error()})
		return
	}

	start := time.Now()
	res, err := h.gate.Scan(c.Request.Context(), checkin.ScanRequest{
		EventID: c.Param("event_id"),
		Raw:     req.Badge,
		Method:  model.CheckInMethod(req.Method),
	})
	h.metrics.ObserveScanLatency(time.Since(start))
	if res != nil {
		h.metrics.IncrementScan(string(res.Status))
	}

	switch {
	case errors.Is(err, checkin.ErrReservedBadge):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, res)
	default:
		c.JSON(http.StatusOK, res)
	}
}

type postStewardRequest struct {
	Name     string `json:"name" binding:"required"`
	Provider string `json:"provider"`
	Method   string `json:"method" binding:"omitempty,oneof=qr_scan manual_entry ocr_scan"`
}

// PostSteward handles POST /api/events/:event_id/stewards.
func (h *Handler) PostSteward(c *gin.Context) {
	var req postStewardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.gate.CheckInSteward(c.Request.Context(), checkin.StewardRequest{
		EventID:  c.Param("event_id"),
		Name:     req.Name,
		Provider: req.Provider,
		Method:   model.CheckInMethod(req.Method),
	})
	switch {
	case errors.Is(err, checkin.ErrStewardName):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, res)
	default:
		h.metrics.IncrementSteward()
		c.JSON(http.StatusCreated, res)
	}
}
