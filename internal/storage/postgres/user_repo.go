package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/rideloop/backend/internal/domain/user"
)

// UserRepository is the lib/pq-backed principal store
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a user repository
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, name, email, phone, password_hash, role,
	is_online, is_approved, is_blocked, vehicle, emergency_contacts,
	created_at, updated_at`

// Create inserts a new user
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	vehicle, err := json.Marshal(u.Vehicle)
	if err != nil {
		return fmt.Errorf("marshal vehicle: %w", err)
	}
	contacts, err := json.Marshal(u.EmergencyContacts)
	if err != nil {
		return fmt.Errorf("marshal emergency contacts: %w", err)
	}

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO users (
			id, name, email, phone, password_hash, role,
			is_online, is_approved, is_blocked, vehicle, emergency_contacts,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, u.ID, u.Name, u.Email, u.Phone, u.PasswordHash, u.Role,
		u.IsOnline, u.IsApproved, u.IsBlocked, vehicle, contacts,
		u.CreatedAt, u.UpdatedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return user.ErrEmailTaken
	}
	return err
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// Update persists mutable profile fields
func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	vehicle, err := json.Marshal(u.Vehicle)
	if err != nil {
		return fmt.Errorf("marshal vehicle: %w", err)
	}
	contacts, err := json.Marshal(u.EmergencyContacts)
	if err != nil {
		return fmt.Errorf("marshal emergency contacts: %w", err)
	}

	u.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET name = $2, phone = $3, password_hash = $4,
		    vehicle = $5, emergency_contacts = $6, updated_at = $7
		WHERE id = $1
	`, u.ID, u.Name, u.Phone, u.PasswordHash, vehicle, contacts, u.UpdatedAt)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SetApproved flips the admin approval flag
func (r *UserRepository) SetApproved(ctx context.Context, id uuid.UUID, approved bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET is_approved = $2, updated_at = NOW() WHERE id = $1`,
		id, approved)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SetBlocked flips the block flag
func (r *UserRepository) SetBlocked(ctx context.Context, id uuid.UUID, blocked bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET is_blocked = $2, updated_at = NOW() WHERE id = $1`,
		id, blocked)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return user.ErrUserNotFound
	}
	return nil
}

func scanUser(row *sql.Row) (*user.User, error) {
	var (
		u        user.User
		vehicle  []byte
		contacts []byte
	)
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.Phone, &u.PasswordHash, &u.Role,
		&u.IsOnline, &u.IsApproved, &u.IsBlocked, &vehicle, &contacts,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, user.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(vehicle) > 0 {
		if err := json.Unmarshal(vehicle, &u.Vehicle); err != nil {
			return nil, fmt.Errorf("unmarshal vehicle: %w", err)
		}
	}
	if len(contacts) > 0 {
		if err := json.Unmarshal(contacts, &u.EmergencyContacts); err != nil {
			return nil, fmt.Errorf("unmarshal emergency contacts: %w", err)
		}
	}
	return &u, nil
}
