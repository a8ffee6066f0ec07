package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"gate-checkin-backend/internal/checkin"
	"gate-checkin-backend/internal/model"
)

// checkInResponse is one row of the event check-in list.
type checkInResponse struct {
	ID            string              `json:"id"`
	BadgeID       string              `json:"badge_id"`
	DisplayName   string              `json:"display_name"`
	Name          string              `json:"name"`
	Provider      string              `json:"provider"`
	Role          string              `json:"role,omitempty"`
	Verified      bool                `json:"verified"`
	IsDuplicate   bool                `json:"is_duplicate"`
	CheckInMethod model.CheckInMethod `json:"check_in_method"`
	CheckInTime   time.Time           `json:"check_in_time"`
	SignInTime    time.Time           `json:"sign_in_time"`
	SignOutTime   *time.Time          `json:"sign_out_time"`
	ClosedBy      string              `json:"closed_by,omitempty"`
}

// ListCheckIns handles GET /api/events/:event_id/checkins.
func (h *Handler) ListCheckIns(c *gin.Context) {
	records, err := h.store.ListCheckIns(c.Request.Context(), c.Param("event_id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve check-ins"})
		return
	}

	response := make([]checkInResponse, 0, len(records))
	for i := range records {
		rec := &records[i]
		name, provider, role := checkin.Identity(rec)
		response = append(response, checkInResponse{
			ID:            rec.ID,
			BadgeID:       rec.BadgeID,
			DisplayName:   checkin.DisplayName(rec),
			Name:          name,
			Provider:      provider,
			Role:          role,
			Verified:      rec.Verified,
			IsDuplicate:   rec.IsDuplicate,
			CheckInMethod: rec.CheckInMethod,
			CheckInTime:   rec.CheckInTime,
			SignInTime:    rec.SignInTime,
			SignOutTime:   rec.SignOutTime,
			ClosedBy:      rec.ClosedBy,
		})
	}
	c.JSON(http.StatusOK, response)
}

type deleteCheckInsRequest struct {
	IDs []string `json:"ids" binding:"required,min=1"`
}

// DeleteCheckIns handles DELETE /api/checkins, an administrative bulk delete.
func (h *Handler) DeleteCheckIns(c *gin.Context) {
	var req deleteCheckInsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	deleted, err := h.store.DeleteCheckIns(c.Request.Context(), req.IDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}
