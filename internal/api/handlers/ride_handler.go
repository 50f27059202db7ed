package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rideloop/backend/internal/api/dto"
	"github.com/rideloop/backend/internal/api/middleware"
	"github.com/rideloop/backend/internal/coordinator"
	"github.com/rideloop/backend/internal/domain/ride"
	"github.com/rideloop/backend/internal/domain/user"
	apperrors "github.com/rideloop/backend/pkg/errors"
)

// RequestRide handles POST /v1/rides
func (h *Handlers) RequestRide(c *gin.Context) {
	p := middleware.Principal(c)

	var req dto.RequestRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperrors.ValidationFailed("Pickup and destination address required", err))
		return
	}

	rd, err := h.Coordinator.RequestRide(c.Request.Context(), p.ID, coordinator.RequestRideInput{
		Pickup:        ride.Location{Address: req.Pickup.Address, Lat: req.Pickup.Lat, Lng: req.Pickup.Lng},
		Destination:   ride.Location{Address: req.Destination.Address, Lat: req.Destination.Lat, Lng: req.Destination.Lng},
		Fare:          req.Fare,
		PaymentMethod: ride.PaymentMethod(req.PaymentMethod),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.Monitor.RecordRideRequested(string(rd.PaymentMethod))
	c.JSON(http.StatusCreated, gin.H{"ride": rd})
}

// GetRide handles GET /v1/rides/:id
func (h *Handlers) GetRide(c *gin.Context) {
	p := middleware.Principal(c)

	rideID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.respondError(c, apperrors.ValidationFailed("Invalid ride id", err))
		return
	}

	rd, err := h.Rides.GetByID(c.Request.Context(), rideID)
	if err != nil {
		h.respondError(c, apperrors.NotFound("Ride not found", err))
		return
	}

	// Riders see their own rides, drivers the ones assigned to them.
	switch p.Role {
	case user.RoleAdmin:
	case user.RoleRider:
		if rd.RiderID != p.ID {
			h.respondError(c, apperrors.Forbidden("Not your ride", nil))
			return
		}
	case user.RoleDriver:
		if rd.DriverID != nil && *rd.DriverID != p.ID {
			h.respondError(c, apperrors.Forbidden("Not your ride", nil))
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"ride": rd})
}

// AcceptRide handles POST /v1/rides/:id/accept
func (h *Handlers) AcceptRide(c *gin.Context) {
	p := middleware.Principal(c)

	rideID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.respondError(c, apperrors.ValidationFailed("Invalid ride id", err))
		return
	}

	rd, err := h.Coordinator.AcceptRide(c.Request.Context(), rideID, p.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.Monitor.RecordRideAccepted(rd.ID.String())
	c.JSON(http.StatusOK, gin.H{"ride": rd})
}

// UpdateRideStatus handles PATCH /v1/rides/:id/status
func (h *Handlers) UpdateRideStatus(c *gin.Context) {
	p := middleware.Principal(c)

	rideID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.respondError(c, apperrors.ValidationFailed("Invalid ride id", err))
		return
	}

	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperrors.ValidationFailed("Status required", err))
		return
	}

	rd, err := h.Coordinator.UpdateStatus(c.Request.Context(), rideID, ride.Status(req.Status), p.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.Monitor.RecordStatusChange(rd.ID.String(), string(rd.Status))
	c.JSON(http.StatusOK, gin.H{"ride": rd})
}
