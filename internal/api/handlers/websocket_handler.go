package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gorilla "github.com/gorilla/websocket"

	"github.com/rideloop/backend/internal/auth"
	"github.com/rideloop/backend/internal/coordinator"
	"github.com/rideloop/backend/internal/domain/ride"
	"github.com/rideloop/backend/internal/domain/user"
	apperrors "github.com/rideloop/backend/pkg/errors"
	"github.com/rideloop/backend/pkg/logger"
	"github.com/rideloop/backend/pkg/realtime"
)

// HandleWebSocket handles GET /v1/ws. The session bootstrap verifies the
// presented token and resolves the principal before the connection is
// admitted to the registry; a blocked or unknown principal is refused with no
// partial join.
func (h *Handlers) HandleWebSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token = auth.FromBearer(c.GetHeader("Authorization"))
	}

	id, _, err := h.Tokens.Verify(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHORIZED", "message": "Invalid or missing token"})
		return
	}
	p, err := h.Users.GetByID(c.Request.Context(), id)
	if err != nil || p.IsBlocked {
		c.JSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHORIZED", "message": "Admission refused"})
		return
	}

	upgrader := gorilla.Upgrader{
		ReadBufferSize:  h.WebSocket.ReadBufferSize,
		WriteBufferSize: h.WebSocket.WriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			return true // dev only: restrict to the frontend origin in production
		},
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Logger.Error("Failed to upgrade to WebSocket", logger.Err(err))
		return
	}

	client := realtime.NewClient(h.Hub, conn, p.ID, p.Role, h.Logger)
	client.Dispatch = h.dispatchIntent
	client.OnClose = func(last bool) {
		h.Monitor.RecordActiveConnections(h.Hub.ActiveConnections())
		if !last {
			return
		}
		if err := h.Coordinator.HandleDisconnect(context.Background(), p.ID, p.Role); err != nil {
			h.Logger.Error("Disconnect side-effect failed",
				logger.String("user_id", p.ID.String()),
				logger.Err(err),
			)
		}
	}

	h.Hub.Register(client)
	switch p.Role {
	case user.RoleDriver:
		h.Hub.JoinGroup(client, realtime.GroupDrivers)
	case user.RoleAdmin:
		h.Hub.JoinGroup(client, realtime.GroupAdmins)
	}
	if err := h.Coordinator.HandleConnect(c.Request.Context(), p); err != nil {
		h.Logger.Error("Connect side-effect failed",
			logger.String("user_id", p.ID.String()),
			logger.Err(err),
		)
	}
	h.Monitor.RecordActiveConnections(h.Hub.ActiveConnections())

	go client.WritePump()
	go client.ReadPump()
}

// Socket intent payloads mirror the REST DTOs
type wsRideRequest struct {
	Pickup        ride.Location `json:"pickup"`
	Destination   ride.Location `json:"destination"`
	Fare          float64       `json:"fare"`
	PaymentMethod string        `json:"payment_method"`
}

type wsRideAccept struct {
	RideID uuid.UUID `json:"ride_id"`
}

type wsRideStatus struct {
	RideID uuid.UUID `json:"ride_id"`
	Status string    `json:"status"`
}

// dispatchIntent routes a socket intent to the coordinator and returns the
// synchronous result envelope for the same session.
func (h *Handlers) dispatchIntent(ctx context.Context, c *realtime.Client, event string, data json.RawMessage) realtime.Message {
	switch event {
	case "ride:request":
		var req wsRideRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return intentError(event, apperrors.ValidationFailed("Malformed ride request", err))
		}
		rd, err := h.Coordinator.RequestRide(ctx, c.UserID, coordinator.RequestRideInput{
			Pickup:        req.Pickup,
			Destination:   req.Destination,
			Fare:          req.Fare,
			PaymentMethod: ride.PaymentMethod(req.PaymentMethod),
		})
		if err != nil {
			return intentError(event, err)
		}
		return intentOK(event, gin.H{"ride_id": rd.ID, "status": rd.Status})

	case "ride:accept":
		var req wsRideAccept
		if err := json.Unmarshal(data, &req); err != nil {
			return intentError(event, apperrors.ValidationFailed("Malformed accept", err))
		}
		rd, err := h.Coordinator.AcceptRide(ctx, req.RideID, c.UserID)
		if err != nil {
			return intentError(event, err)
		}
		return intentOK(event, gin.H{"ride_id": rd.ID, "status": rd.Status})

	case "ride:status":
		var req wsRideStatus
		if err := json.Unmarshal(data, &req); err != nil {
			return intentError(event, apperrors.ValidationFailed("Malformed status update", err))
		}
		rd, err := h.Coordinator.UpdateStatus(ctx, req.RideID, ride.Status(req.Status), c.UserID)
		if err != nil {
			return intentError(event, err)
		}
		return intentOK(event, gin.H{"ride_id": rd.ID, "status": rd.Status})

	case "driver:offline":
		if err := h.Coordinator.SetAvailability(ctx, c.UserID, false); err != nil {
			return intentError(event, err)
		}
		return intentOK(event, gin.H{"is_online": false})

	case "driver:online":
		if err := h.Coordinator.SetAvailability(ctx, c.UserID, true); err != nil {
			return intentError(event, err)
		}
		return intentOK(event, gin.H{"is_online": true})

	default:
		return intentError(event, apperrors.ValidationFailed("Unknown intent", nil))
	}
}

func intentOK(event string, data interface{}) realtime.Message {
	return realtime.Message{
		Event: event + ":result",
		Data:  gin.H{"ok": true, "result": data},
	}
}

func intentError(event string, err error) realtime.Message {
	appErr := apperrors.GetAppError(err)
	return realtime.Message{
		Event: event + ":result",
		Data:  gin.H{"ok": false, "code": appErr.Code, "message": appErr.Message},
	}
}
