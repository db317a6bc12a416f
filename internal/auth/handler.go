package auth

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/coastline-realty/content-backend/pkg/response"
)

// LoginRequest is the body for POST /api/auth/login.
type LoginRequest struct {
	Secret string `json:"secret" binding:"required"`
}

// SessionResponse reports the caller's session state.
type SessionResponse struct {
	Authenticated bool       `json:"authenticated"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	session      *Session
	secureCookie bool
	logger       *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(session *Session, secureCookie bool, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{session: session, secureCookie: secureCookie, logger: logger}
}

// Login handles POST /api/auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	token, expires, err := h.session.Login(req.Secret)
	if err != nil {
		h.logger.Warn("admin login rejected", zap.String("client_ip", c.ClientIP()))
		response.Unauthorized(c, "invalid secret")
		return
	}

	h.setCookie(c, token, int(time.Until(expires).Seconds()))
	response.OK(c, SessionResponse{Authenticated: true, ExpiresAt: &expires})
}

// Logout handles POST /api/auth/logout.
func (h *Handler) Logout(c *gin.Context) {
	h.setCookie(c, "", -1)
	response.OK(c, SessionResponse{Authenticated: false})
}

// Session handles GET /api/auth/session.
func (h *Handler) Session(c *gin.Context) {
	response.OK(c, SessionResponse{Authenticated: h.session.IsAuthenticated(c.Request.Context())})
}

func (h *Handler) setCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, value, maxAge, "/", "", h.secureCookie, true)
}
