package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rideloop/backend/internal/api/dto"
	"github.com/rideloop/backend/internal/api/middleware"
	"github.com/rideloop/backend/internal/service/alert"
	apperrors "github.com/rideloop/backend/pkg/errors"
)

// TriggerEmergency handles POST /v1/emergency
func (h *Handlers) TriggerEmergency(c *gin.Context) {
	p := middleware.Principal(c)

	var req dto.EmergencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperrors.ValidationFailed("Invalid alert payload", err))
		return
	}

	var rideID *uuid.UUID
	if req.RideID != "" {
		id, err := uuid.Parse(req.RideID)
		if err != nil {
			h.respondError(c, apperrors.ValidationFailed("Invalid ride id", err))
			return
		}
		rideID = &id
	}

	notified := h.Alerts.Trigger(c.Request.Context(), p, alert.TriggerInput{
		RideID:  rideID,
		Message: req.Message,
	})

	h.Monitor.RecordEmergencyAlert()
	c.JSON(http.StatusOK, dto.SuccessResponse{
		Message: "Alert raised",
		Data:    gin.H{"emails_sent": notified},
	})
}
