package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/rideloop/backend/internal/api/dto"
	"github.com/rideloop/backend/internal/auth"
	"github.com/rideloop/backend/internal/config"
	"github.com/rideloop/backend/internal/coordinator"
	"github.com/rideloop/backend/internal/domain/ride"
	"github.com/rideloop/backend/internal/domain/user"
	"github.com/rideloop/backend/internal/service/alert"
	apperrors "github.com/rideloop/backend/pkg/errors"
	"github.com/rideloop/backend/pkg/logger"
	"github.com/rideloop/backend/pkg/monitoring"
	"github.com/rideloop/backend/pkg/realtime"
)

// Handlers holds all handler dependencies
type Handlers struct {
	Coordinator *coordinator.Coordinator
	Alerts      *alert.Service
	Users       user.Repository
	Rides       ride.Repository
	Tokens      *auth.Manager
	Hub         *realtime.Hub
	Monitor     *monitoring.NewRelicApp
	Logger      *logger.Logger
	WebSocket   config.WebSocketConfig
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	coord *coordinator.Coordinator,
	alerts *alert.Service,
	users user.Repository,
	rides ride.Repository,
	tokens *auth.Manager,
	hub *realtime.Hub,
	monitor *monitoring.NewRelicApp,
	log *logger.Logger,
	wsCfg config.WebSocketConfig,
) *Handlers {
	return &Handlers{
		Coordinator: coord,
		Alerts:      alerts,
		Users:       users,
		Rides:       rides,
		Tokens:      tokens,
		Hub:         hub,
		Monitor:     monitor,
		Logger:      log,
		WebSocket:   wsCfg,
	}
}

// respondError maps any error onto the structured failure body
func (h *Handlers) respondError(c *gin.Context, err error) {
	appErr := apperrors.GetAppError(err)
	if appErr.Status >= 500 {
		h.Logger.Error("Request failed", logger.Err(err), logger.String("path", c.FullPath()))
	}
	c.JSON(appErr.Status, dto.ErrorResponse{Code: appErr.Code, Message: appErr.Message})
}
