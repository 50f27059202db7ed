package coordinator

import (
	"time"

	"github.com/google/uuid"

	"github.com/rideloop/backend/internal/domain/ride"
	"github.com/rideloop/backend/internal/domain/user"
)

// Event topics emitted by the coordinator
const (
	EventRideNew           = "ride:new"
	EventRideAccepted      = "ride:accepted"
	EventRideRemoved       = "ride:removed"
	EventRideStatusUpdated = "ride:statusUpdated"
	EventDriverStatus      = "driver:status"
	EventDriverOffline     = "driver:offline"
)

// RideOfferPayload announces a fresh ride to the drivers group
type RideOfferPayload struct {
	RideID      uuid.UUID     `json:"ride_id"`
	Pickup      ride.Location `json:"pickup"`
	Destination ride.Location `json:"destination"`
	Fare        float64       `json:"fare"`
	CreatedAt   time.Time     `json:"created_at"`
}

// RideAcceptedPayload tells the rider who took the ride
type RideAcceptedPayload struct {
	RideID uuid.UUID    `json:"ride_id"`
	Driver user.Summary `json:"driver"`
	Status ride.Status  `json:"status"`
}

// RideRemovedPayload retracts an offer from the drivers group
type RideRemovedPayload struct {
	RideID uuid.UUID `json:"ride_id"`
}

// RideStatusPayload carries a lifecycle change to both parties
type RideStatusPayload struct {
	RideID uuid.UUID   `json:"ride_id"`
	Status ride.Status `json:"status"`
}

// DriverStatusPayload reports a driver's own presence change
type DriverStatusPayload struct {
	DriverID uuid.UUID `json:"driver_id"`
	IsOnline bool      `json:"is_online"`
}
