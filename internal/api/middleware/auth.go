package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/rideloop/backend/internal/api/dto"
	"github.com/rideloop/backend/internal/auth"
	"github.com/rideloop/backend/internal/domain/user"
	apperrors "github.com/rideloop/backend/pkg/errors"
)

const principalKey = "principal"

// Authenticate resolves the bearer token to a principal and rejects blocked
// accounts before any handler runs.
func Authenticate(tokens *auth.Manager, users user.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := auth.FromBearer(c.GetHeader("Authorization"))
		id, _, err := tokens.Verify(token)
		if err != nil {
			abort(c, apperrors.Unauthorized("Invalid or missing token", err))
			return
		}

		u, err := users.GetByID(c.Request.Context(), id)
		if err != nil {
			abort(c, apperrors.Unauthorized("Unknown principal", err))
			return
		}
		if u.IsBlocked {
			abort(c, apperrors.Forbidden("Account blocked. Contact support.", user.ErrUserBlocked))
			return
		}

		c.Set(principalKey, u)
		c.Next()
	}
}

// RequireRole restricts a route to the given roles
func RequireRole(roles ...user.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := Principal(c)
		if p == nil {
			abort(c, apperrors.Unauthorized("Authentication required", nil))
			return
		}
		for _, role := range roles {
			if p.Role == role {
				c.Next()
				return
			}
		}
		abort(c, apperrors.Forbidden("Insufficient role", nil))
	}
}

// Principal returns the authenticated user attached by Authenticate
func Principal(c *gin.Context) *user.User {
	if v, ok := c.Get(principalKey); ok {
		if u, ok := v.(*user.User); ok {
			return u
		}
	}
	return nil
}

func abort(c *gin.Context, err *apperrors.AppError) {
	c.AbortWithStatusJSON(err.Status, dto.ErrorResponse{Code: err.Code, Message: err.Message})
}
