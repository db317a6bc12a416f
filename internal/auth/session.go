package auth

import (
	"context"
	"errors"
	"time"

	"github.com/coastline-realty/content-backend/pkg/utils"
)

// CookieName is the HttpOnly cookie that carries the session token.
const CookieName = "admin_session"

var ErrInvalidCredentials = errors.New("invalid credentials")

// Guard answers whether the caller behind ctx is an authenticated admin.
type Guard interface {
	IsAuthenticated(ctx context.Context) bool
}

type tokenKey struct{}

// WithToken returns a context carrying the caller's session token.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFromContext returns the session token stored by WithToken.
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// Session checks the admin secret and issues session tokens.
type Session struct {
	secretHash string
	jwt        *JWTService
}

// NewSession creates a session guard. secretHash is a bcrypt hash of the
// admin secret; an empty hash disables login.
func NewSession(secretHash string, jwt *JWTService) *Session {
	return &Session{secretHash: secretHash, jwt: jwt}
}

// Login exchanges the admin secret for a session token.
func (s *Session) Login(secret string) (string, time.Time, error) {
	if !utils.CheckSecret(secret, s.secretHash) {
		return "", time.Time{}, ErrInvalidCredentials
	}
	return s.jwt.Generate()
}

// IsAuthenticated implements Guard.
func (s *Session) IsAuthenticated(ctx context.Context) bool {
	_, err := s.jwt.Validate(TokenFromContext(ctx))
	return err == nil
}
