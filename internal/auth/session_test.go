package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("let-me-in"), bcrypt.MinCost)
	require.NoError(t, err)
	return NewSession(string(hash), NewJWTService("signing-key", time.Hour))
}

func TestSession_LoginAndGuard(t *testing.T) {
	s := newTestSession(t)

	_, _, err := s.Login("wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	token, expires, err := s.Login("let-me-in")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, time.Minute)

	assert.True(t, s.IsAuthenticated(WithToken(context.Background(), token)))
	assert.False(t, s.IsAuthenticated(context.Background()))
	assert.False(t, s.IsAuthenticated(WithToken(context.Background(), token+"x")))
}

func TestJWTService_Expiry(t *testing.T) {
	svc := NewJWTService("signing-key", time.Minute)
	start := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	svc.clock = func() time.Time { return start }

	token, _, err := svc.Generate()
	require.NoError(t, err)
	_, err = svc.Validate(token)
	require.NoError(t, err)

	svc.clock = func() time.Time { return start.Add(2 * time.Minute) }
	_, err = svc.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_RejectsForeignKey(t *testing.T) {
	token, _, err := NewJWTService("one", time.Hour).Generate()
	require.NoError(t, err)

	_, err = NewJWTService("two", time.Hour).Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSession_EmptyHashDisablesLogin(t *testing.T) {
	s := NewSession("", NewJWTService("k", time.Hour))
	_, _, err := s.Login("")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
