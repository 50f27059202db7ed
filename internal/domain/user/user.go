package user

import (
	"time"

	"github.com/google/uuid"
)

// Role represents what a principal is allowed to do
type Role string

const (
	RoleRider  Role = "rider"
	RoleDriver Role = "driver"
	RoleAdmin  Role = "admin"
)

// Vehicle holds a driver's vehicle details, shown to the rider on accept
type Vehicle struct {
	Plate string `json:"plate"`
	Model string `json:"model"`
	Color string `json:"color"`
}

// Contact is an emergency contact a user registered for alerts
type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// User represents an authenticated principal (rider, driver, or admin)
type User struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	Phone             string    `json:"phone,omitempty"`
	PasswordHash      string    `json:"-"`
	Role              Role      `json:"role"`
	IsOnline          bool      `json:"is_online"`
	IsApproved        bool      `json:"is_approved"`
	IsBlocked         bool      `json:"is_blocked"`
	Vehicle           Vehicle   `json:"vehicle,omitempty"`
	EmergencyContacts []Contact `json:"emergency_contacts,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// IsValid validates the role
func (r Role) IsValid() bool {
	switch r {
	case RoleRider, RoleDriver, RoleAdmin:
		return true
	}
	return false
}

// CanAcceptRides returns true if the user may take the driver slot of a ride
func (u *User) CanAcceptRides() bool {
	return u.Role == RoleDriver && u.IsApproved && u.IsOnline && !u.IsBlocked
}

// Summary is the driver payload sent to a rider when a ride is accepted
type Summary struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Phone   string    `json:"phone,omitempty"`
	Vehicle Vehicle   `json:"vehicle"`
}

// Summarize builds the notification-facing view of the user
func (u *User) Summarize() Summary {
	return Summary{
		ID:      u.ID,
		Name:    u.Name,
		Phone:   u.Phone,
		Vehicle: u.Vehicle,
	}
}
