package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/rideloop/backend/internal/domain/ride"
)

// RideRepository is the lib/pq-backed ride store
type RideRepository struct {
	db *sql.DB
}

// NewRideRepository creates a ride repository
func NewRideRepository(db *sql.DB) *RideRepository {
	return &RideRepository{db: db}
}

// Create inserts a new ride
func (r *RideRepository) Create(ctx context.Context, rd *ride.Ride) error {
	now := time.Now().UTC()
	rd.CreatedAt = now
	rd.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO rides (
			id, rider_id, driver_id, status, payment_method, fare,
			pickup_address, pickup_lat, pickup_lng,
			destination_address, destination_lat, destination_lng,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, rd.ID, rd.RiderID, rd.DriverID, rd.Status, rd.PaymentMethod, rd.Fare,
		rd.Pickup.Address, rd.Pickup.Lat, rd.Pickup.Lng,
		rd.Destination.Address, rd.Destination.Lat, rd.Destination.Lng,
		rd.CreatedAt, rd.UpdatedAt)
	return err
}

// GetByID retrieves a ride by ID
func (r *RideRepository) GetByID(ctx context.Context, id uuid.UUID) (*ride.Ride, error) {
	var rd ride.Ride
	err := r.db.QueryRowContext(ctx, `
		SELECT id, rider_id, driver_id, status, payment_method, fare,
		       pickup_address, pickup_lat, pickup_lng,
		       destination_address, destination_lat, destination_lng,
		       created_at, updated_at
		FROM rides WHERE id = $1
	`, id).Scan(
		&rd.ID, &rd.RiderID, &rd.DriverID, &rd.Status, &rd.PaymentMethod, &rd.Fare,
		&rd.Pickup.Address, &rd.Pickup.Lat, &rd.Pickup.Lng,
		&rd.Destination.Address, &rd.Destination.Lat, &rd.Destination.Lng,
		&rd.CreatedAt, &rd.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ride.ErrRideNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rd, nil
}

// Update persists the ride's driver/status pair. The write is a single
// statement so a failure leaves the stored row untouched.
func (r *RideRepository) Update(ctx context.Context, rd *ride.Ride) error {
	rd.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		UPDATE rides
		SET driver_id = $2, status = $3, fare = $4, updated_at = $5
		WHERE id = $1
	`, rd.ID, rd.DriverID, rd.Status, rd.Fare, rd.UpdatedAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ride.ErrRideNotFound
	}
	return nil
}
