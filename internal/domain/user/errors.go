package user

import "errors"

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrEmailTaken    = errors.New("email already registered")
	ErrInvalidRole   = errors.New("invalid role")
	ErrUserBlocked   = errors.New("user is blocked")
	ErrNotApproved   = errors.New("driver is not approved")
	ErrDriverOffline = errors.New("driver is offline")
)
