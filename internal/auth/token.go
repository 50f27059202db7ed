package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/rideloop/backend/internal/domain/user"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrMissingToken = errors.New("token missing")
)

// Claims carried in an access token
type Claims struct {
	Role user.Role `json:"role"`
	jwt.RegisteredClaims
}

// Manager signs and verifies access tokens
type Manager struct {
	secret []byte
	ttl    time.Duration
}

// NewManager creates a token manager
func NewManager(secret string, ttl time.Duration) *Manager {
	s := strings.TrimSpace(secret)
	if s == "" {
		panic("auth: empty token secret")
	}
	return &Manager{secret: []byte(s), ttl: ttl}
}

// Issue returns a signed access token for a principal
func (m *Manager) Issue(u *user.User) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Verify checks signature and expiry and resolves the principal identity
func (m *Manager) Verify(tokenString string) (uuid.UUID, user.Role, error) {
	if tokenString == "" {
		return uuid.Nil, "", ErrMissingToken
	}

	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, "", ErrInvalidToken
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, "", ErrInvalidToken
	}
	if !claims.Role.IsValid() {
		return uuid.Nil, "", ErrInvalidToken
	}
	return id, claims.Role, nil
}

// FromBearer strips the Bearer scheme from an Authorization header value.
// WebSocket clients may also pass the raw token in a query parameter.
func FromBearer(value string) string {
	if strings.HasPrefix(value, "Bearer ") {
		return strings.TrimPrefix(value, "Bearer ")
	}
	return value
}
