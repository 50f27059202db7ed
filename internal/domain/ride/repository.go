package ride

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for ride data access
type Repository interface {
	// Create creates a new ride
	Create(ctx context.Context, ride *Ride) error

	// GetByID retrieves a ride by ID
	GetByID(ctx context.Context, id uuid.UUID) (*Ride, error)

	// Update persists the ride's driver/status pair in one write
	Update(ctx context.Context, ride *Ride) error
}
