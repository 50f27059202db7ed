package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/rideloop/backend/internal/api/dto"
	"github.com/rideloop/backend/internal/domain/user"
	apperrors "github.com/rideloop/backend/pkg/errors"
	"github.com/rideloop/backend/pkg/logger"
)

// Register handles POST /v1/auth/register
func (h *Handlers) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperrors.ValidationFailed("Invalid registration payload", err))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.respondError(c, apperrors.Internal("Failed to hash password", err))
		return
	}

	role := user.RoleRider
	if req.Role == string(user.RoleDriver) {
		role = user.RoleDriver
	}

	u := &user.User{
		ID:           uuid.New(),
		Name:         req.Name,
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:        req.Phone,
		PasswordHash: string(hash),
		Role:         role,
		// Drivers wait for admin approval; riders are approved on signup.
		IsApproved: role == user.RoleRider,
	}
	if req.Vehicle != nil {
		u.Vehicle = *req.Vehicle
	}

	if err := h.Users.Create(c.Request.Context(), u); err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			h.respondError(c, apperrors.ValidationFailed("Email already registered", err))
			return
		}
		h.respondError(c, apperrors.StoreError("Failed to create user", err))
		return
	}

	token, err := h.Tokens.Issue(u)
	if err != nil {
		h.respondError(c, apperrors.Internal("Failed to issue token", err))
		return
	}

	h.Logger.Info("User registered",
		logger.String("user_id", u.ID.String()),
		logger.String("role", string(u.Role)),
	)
	c.JSON(http.StatusCreated, dto.AuthResponse{Token: token, User: u})
}

// Login handles POST /v1/auth/login
func (h *Handlers) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperrors.ValidationFailed("Email and password required", err))
		return
	}

	u, err := h.Users.GetByEmail(c.Request.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		h.respondError(c, apperrors.Unauthorized("Invalid credentials", nil))
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		h.respondError(c, apperrors.Unauthorized("Invalid credentials", nil))
		return
	}
	if u.IsBlocked {
		h.respondError(c, apperrors.Forbidden("Account blocked. Contact support.", user.ErrUserBlocked))
		return
	}

	token, err := h.Tokens.Issue(u)
	if err != nil {
		h.respondError(c, apperrors.Internal("Failed to issue token", err))
		return
	}

	c.JSON(http.StatusOK, dto.AuthResponse{Token: token, User: u})
}
