package promo

import (
	"github.com/gin-gonic/gin"

	"github.com/coastline-realty/content-backend/internal/action"
	"github.com/coastline-realty/content-backend/internal/models"
	"github.com/coastline-realty/content-backend/internal/uploads"
	"github.com/coastline-realty/content-backend/pkg/response"
)

// ReinstateRequest is the body for POST /promo/images/:id/reinstate.
type ReinstateRequest struct {
	DurationDays int `json:"durationDays"`
}

// ExpirationRequest is the body for PUT /promo/images/:id/expiration. A null
// date clears the expiration.
type ExpirationRequest struct {
	ExpirationDate *string `json:"expirationDate"`
}

// ForceRequest is the body for PUT /promo/force.
type ForceRequest struct {
	ForceGoLive *bool `json:"forceGoLive" binding:"required"`
}

// Handler handles promo HTTP endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a promo handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterPublic mounts the public routes.
func (h *Handler) RegisterPublic(g *gin.RouterGroup) {
	g.GET("/promo", h.Public)
}

// RegisterAdmin mounts the admin routes.
func (h *Handler) RegisterAdmin(g *gin.RouterGroup) {
	g.GET("/promo", h.Config)
	g.PUT("/promo/settings", h.UpdateSettings)
	g.PUT("/promo/force", h.SetForce)
	g.POST("/promo/images", h.AddImages)
	g.POST("/promo/images/:id/archive", h.Archive)
	g.POST("/promo/images/:id/reinstate", h.Reinstate)
	g.PUT("/promo/images/:id/expiration", h.SetExpiration)
	g.DELETE("/promo/images/:id", h.Delete)
}

// Public handles GET /api/promo. Past images are left out.
func (h *Handler) Public(c *gin.Context) {
	res := h.svc.Config(c.Request.Context())
	if cfg, ok := res.Data.(*models.PromoConfig); ok {
		public := cfg.Clone()
		public.PastPromos = []models.PromoImage{}
		res.Data = public
	}
	response.Send(c, res)
}

// Config handles GET /api/admin/promo.
func (h *Handler) Config(c *gin.Context) {
	response.Send(c, h.svc.Config(c.Request.Context()))
}

// UpdateSettings handles PUT /api/admin/promo/settings.
func (h *Handler) UpdateSettings(c *gin.Context) {
	var in SettingsInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	response.Send(c, h.svc.UpdateSettings(c.Request.Context(), in))
}

// SetForce handles PUT /api/admin/promo/force.
func (h *Handler) SetForce(c *gin.Context) {
	var req ForceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	response.Send(c, h.svc.SetForceGoLive(c.Request.Context(), *req.ForceGoLive))
}

// AddImages handles POST /api/admin/promo/images (multipart: files, alt,
// expirationDate).
func (h *Handler) AddImages(c *gin.Context) {
	var in AddInput
	if err := c.ShouldBind(&in); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	files, err := uploads.FromForm(c, "files")
	if err != nil {
		response.Send(c, action.Fail(err))
		return
	}
	response.Send(c, h.svc.AddImages(c.Request.Context(), in, files))
}

// Archive handles POST /api/admin/promo/images/:id/archive.
func (h *Handler) Archive(c *gin.Context) {
	response.Send(c, h.svc.Archive(c.Request.Context(), c.Param("id")))
}

// Reinstate handles POST /api/admin/promo/images/:id/reinstate.
func (h *Handler) Reinstate(c *gin.Context) {
	var req ReinstateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	response.Send(c, h.svc.Reinstate(c.Request.Context(), c.Param("id"), req.DurationDays))
}

// SetExpiration handles PUT /api/admin/promo/images/:id/expiration.
func (h *Handler) SetExpiration(c *gin.Context) {
	var req ExpirationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	response.Send(c, h.svc.SetExpiration(c.Request.Context(), c.Param("id"), req.ExpirationDate))
}

// Delete handles DELETE /api/admin/promo/images/:id.
func (h *Handler) Delete(c *gin.Context) {
	response.Send(c, h.svc.PermanentlyDelete(c.Request.Context(), c.Param("id")))
}
