package ride

import (
	"time"

	"github.com/google/uuid"
)

// Status represents ride lifecycle state
type Status string

const (
	StatusRequested Status = "requested"
	StatusAccepted  Status = "accepted"
	StatusPickedUp  Status = "picked_up"
	StatusInTransit Status = "in_transit"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// PaymentMethod represents how the rider intends to pay
type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentCard   PaymentMethod = "card"
	PaymentWallet PaymentMethod = "wallet"
)

// Location is a pickup or destination point
type Location struct {
	Address string  `json:"address"`
	Lat     float64 `json:"lat,omitempty"`
	Lng     float64 `json:"lng,omitempty"`
}

// Ride represents a single trip moving through the lifecycle
type Ride struct {
	ID            uuid.UUID     `json:"id"`
	RiderID       uuid.UUID     `json:"rider_id"`
	DriverID      *uuid.UUID    `json:"driver_id,omitempty"`
	Pickup        Location      `json:"pickup"`
	Destination   Location      `json:"destination"`
	Fare          float64       `json:"fare"`
	Status        Status        `json:"status"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// transitions is the allowed status graph. Terminal states admit nothing.
var transitions = map[Status][]Status{
	StatusRequested: {StatusAccepted, StatusCancelled},
	StatusAccepted:  {StatusPickedUp, StatusCancelled},
	StatusPickedUp:  {StatusInTransit},
	StatusInTransit: {StatusCompleted},
}

// IsValid validates the status value
func (s Status) IsValid() bool {
	switch s {
	case StatusRequested, StatusAccepted, StatusPickedUp, StatusInTransit, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// CanTransitionTo reports whether the graph admits s -> next
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsValid validates the payment method
func (p PaymentMethod) IsValid() bool {
	switch p {
	case PaymentCash, PaymentCard, PaymentWallet:
		return true
	}
	return false
}

// AssignedTo reports whether the given driver holds this ride's driver slot
func (r *Ride) AssignedTo(driverID uuid.UUID) bool {
	return r.DriverID != nil && *r.DriverID == driverID
}

// RemovesFromOffer reports whether a status takes the ride off the open
// drivers board
func (s Status) RemovesFromOffer() bool {
	return s == StatusCancelled || s == StatusCompleted
}
