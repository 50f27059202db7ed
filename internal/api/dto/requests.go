package dto

import (
	"github.com/rideloop/backend/internal/domain/user"
)

// RegisterRequest creates a new principal
type RegisterRequest struct {
	Name     string        `json:"name" binding:"required"`
	Email    string        `json:"email" binding:"required,email"`
	Password string        `json:"password" binding:"required,min=8"`
	Role     string        `json:"role" binding:"omitempty,oneof=rider driver"`
	Phone    string        `json:"phone"`
	Vehicle  *user.Vehicle `json:"vehicle"`
}

// LoginRequest exchanges credentials for a token
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse returns the issued token and the principal
type AuthResponse struct {
	Token string     `json:"token"`
	User  *user.User `json:"user"`
}

// LocationRequest is a pickup or destination point
type LocationRequest struct {
	Address string  `json:"address" binding:"required"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

// RequestRideRequest creates a ride
type RequestRideRequest struct {
	Pickup        LocationRequest `json:"pickup" binding:"required"`
	Destination   LocationRequest `json:"destination" binding:"required"`
	Fare          float64         `json:"fare" binding:"omitempty,gte=0"`
	PaymentMethod string          `json:"payment_method" binding:"omitempty,oneof=cash card wallet"`
}

// UpdateStatusRequest moves a ride along the lifecycle
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// AvailabilityRequest toggles driver presence
type AvailabilityRequest struct {
	IsOnline *bool `json:"is_online" binding:"required"`
}

// UpdateProfileRequest edits mutable profile fields
type UpdateProfileRequest struct {
	Name              string         `json:"name"`
	Phone             string         `json:"phone"`
	Vehicle           *user.Vehicle  `json:"vehicle"`
	EmergencyContacts []user.Contact `json:"emergency_contacts"`
}

// EmergencyRequest raises an alert
type EmergencyRequest struct {
	RideID  string `json:"ride_id" binding:"omitempty,uuid"`
	Message string `json:"message"`
}

// ErrorResponse is the structured failure body
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SuccessResponse wraps a success payload
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
