package ride

import "errors"

var (
	ErrRideNotFound      = errors.New("ride not found")
	ErrAlreadyAssigned   = errors.New("ride already assigned to another driver")
	ErrInvalidTransition = errors.New("invalid status transition")
)
