package client

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, subject string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestAuthStoreTokenLifecycle(t *testing.T) {
	s := NewAuthStore()
	assert.Empty(t, s.Token())
	assert.False(t, s.Unauthorized())

	s.SetToken("abc")
	assert.Equal(t, "abc", s.Token())
}

func TestAuthStoreUserIDFromToken(t *testing.T) {
	s := NewAuthStore()
	assert.Empty(t, s.UserID())

	s.SetToken(signToken(t, "alice"))
	assert.Equal(t, "alice", s.UserID())

	s.SetToken("not-a-jwt")
	assert.Empty(t, s.UserID())
}

func TestAuthStoreHandleUnauthorized(t *testing.T) {
	s := NewAuthStore()
	s.SetToken("abc")

	s.HandleUnauthorized()
	assert.Empty(t, s.Token())
	assert.True(t, s.Unauthorized())

	s.ConsumeUnauthorized()
	assert.False(t, s.Unauthorized())

	// A fresh sign-in clears a pending flag too.
	s.HandleUnauthorized()
	s.SetToken("def")
	assert.False(t, s.Unauthorized())
	assert.Equal(t, "def", s.Token())
}

func TestAuthStoreSubscribe(t *testing.T) {
	s := NewAuthStore()

	calls := 0
	cancel := s.Subscribe(func() { calls++ })

	s.SetToken("abc")
	s.HandleUnauthorized()
	assert.Equal(t, 2, calls)

	cancel()
	s.SetToken("def")
	assert.Equal(t, 2, calls)
}
