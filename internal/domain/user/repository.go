package user

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for principal data access
type Repository interface {
	// Create creates a new user
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)

	// GetByEmail retrieves a user by email
	GetByEmail(ctx context.Context, email string) (*User, error)

	// Update persists mutable profile fields
	Update(ctx context.Context, user *User) error

	// SetApproved flips the admin approval flag
	SetApproved(ctx context.Context, id uuid.UUID, approved bool) error

	// SetBlocked flips the block flag
	SetBlocked(ctx context.Context, id uuid.UUID, blocked bool) error
}
