package display

import (
	"github.com/gin-gonic/gin"

	"github.com/coastline-realty/content-backend/pkg/response"
)

// Handler serves the public display decision.
type Handler struct {
	svc *Service
}

// NewHandler creates a display handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Register mounts GET /display on g.
func (h *Handler) Register(g *gin.RouterGroup) {
	g.GET("/display", h.Current)
}

// Current handles GET /api/display.
func (h *Handler) Current(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	response.Send(c, h.svc.Current(c.Request.Context()))
}
