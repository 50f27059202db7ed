package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rideloop/backend/internal/api/dto"
	"github.com/rideloop/backend/internal/api/middleware"
	"github.com/rideloop/backend/internal/domain/user"
	apperrors "github.com/rideloop/backend/pkg/errors"
	"github.com/rideloop/backend/pkg/logger"
)

// GetProfile handles GET /v1/me
func (h *Handlers) GetProfile(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user": middleware.Principal(c)})
}

// UpdateProfile handles PATCH /v1/me
func (h *Handlers) UpdateProfile(c *gin.Context) {
	p := middleware.Principal(c)

	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperrors.ValidationFailed("Invalid profile payload", err))
		return
	}

	if req.Name != "" {
		p.Name = req.Name
	}
	if req.Phone != "" {
		p.Phone = req.Phone
	}
	if req.Vehicle != nil {
		p.Vehicle = *req.Vehicle
	}
	if req.EmergencyContacts != nil {
		p.EmergencyContacts = req.EmergencyContacts
	}

	if err := h.Users.Update(c.Request.Context(), p); err != nil {
		h.respondError(c, apperrors.StoreError("Failed to update profile", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": p})
}

// SetAvailability handles POST /v1/drivers/availability
func (h *Handlers) SetAvailability(c *gin.Context) {
	p := middleware.Principal(c)

	var req dto.AvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperrors.ValidationFailed("is_online required", err))
		return
	}

	if err := h.Coordinator.SetAvailability(c.Request.Context(), p.ID, *req.IsOnline); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.SuccessResponse{
		Message: "Availability updated",
		Data:    gin.H{"is_online": *req.IsOnline},
	})
}

// ApproveDriver handles POST /v1/users/:id/approve (admin)
func (h *Handlers) ApproveDriver(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.respondError(c, apperrors.ValidationFailed("Invalid user id", err))
		return
	}

	u, err := h.Users.GetByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, apperrors.NotFound("Driver not found", err))
		return
	}
	if u.Role != user.RoleDriver {
		h.respondError(c, apperrors.NotFound("Driver not found", nil))
		return
	}

	if err := h.Users.SetApproved(c.Request.Context(), id, true); err != nil {
		h.respondError(c, apperrors.StoreError("Failed to approve driver", err))
		return
	}

	h.Logger.Info("Driver approved", logger.String("driver_id", id.String()))
	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "Driver approved"})
}

// BlockUser handles POST /v1/users/:id/block (admin)
func (h *Handlers) BlockUser(c *gin.Context) {
	h.setBlocked(c, true, "User blocked")
}

// UnblockUser handles POST /v1/users/:id/unblock (admin)
func (h *Handlers) UnblockUser(c *gin.Context) {
	h.setBlocked(c, false, "User unblocked")
}

func (h *Handlers) setBlocked(c *gin.Context, blocked bool, message string) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.respondError(c, apperrors.ValidationFailed("Invalid user id", err))
		return
	}

	if err := h.Users.SetBlocked(c.Request.Context(), id, blocked); err != nil {
		h.respondError(c, apperrors.NotFound("User not found", err))
		return
	}

	h.Logger.Info(message, logger.String("user_id", id.String()))
	c.JSON(http.StatusOK, dto.SuccessResponse{Message: message})
}
