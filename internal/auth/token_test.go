package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rideloop/backend/internal/domain/user"
)

// TestManager_IssueVerify tests the token round trip
func TestManager_IssueVerify(t *testing.T) {
	m := NewManager("test-secret", time.Hour)
	u := &user.User{ID: uuid.New(), Role: user.RoleDriver}

	token, err := m.Issue(u)
	require.NoError(t, err)

	id, role, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, id)
	assert.Equal(t, user.RoleDriver, role)
}

// TestManager_RejectsBadTokens tests the rejection paths
func TestManager_RejectsBadTokens(t *testing.T) {
	m := NewManager("test-secret", time.Hour)
	u := &user.User{ID: uuid.New(), Role: user.RoleRider}

	t.Run("empty token", func(t *testing.T) {
		_, _, err := m.Verify("")
		assert.ErrorIs(t, err, ErrMissingToken)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, _, err := m.Verify("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, err := m.Issue(u)
		require.NoError(t, err)

		other := NewManager("different-secret", time.Hour)
		_, _, err = other.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired token", func(t *testing.T) {
		short := NewManager("test-secret", -time.Minute)
		token, err := short.Issue(u)
		require.NoError(t, err)

		_, _, err = m.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

// TestFromBearer tests header and query token forms
func TestFromBearer(t *testing.T) {
	assert.Equal(t, "abc", FromBearer("Bearer abc"))
	assert.Equal(t, "abc", FromBearer("abc"))
}
