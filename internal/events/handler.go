package events

import (
	"github.com/gin-gonic/gin"

	"github.com/coastline-realty/content-backend/internal/action"
	"github.com/coastline-realty/content-backend/internal/uploads"
	"github.com/coastline-realty/content-backend/pkg/response"
)

// Handler handles event flyer HTTP endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates an events handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterPublic mounts the public routes.
func (h *Handler) RegisterPublic(g *gin.RouterGroup) {
	g.GET("/events", h.Live)
}

// RegisterAdmin mounts the admin routes.
func (h *Handler) RegisterAdmin(g *gin.RouterGroup) {
	g.GET("/events", h.List)
	g.POST("/events", h.Create)
	g.PATCH("/events/:groupId", h.Update)
	g.POST("/events/:groupId/force", h.ToggleForce)
	g.DELETE("/events/:groupId", h.Delete)
}

// Live handles GET /api/events.
func (h *Handler) Live(c *gin.Context) {
	response.Send(c, h.svc.Live(c.Request.Context()))
}

// List handles GET /api/admin/events.
func (h *Handler) List(c *gin.Context) {
	response.Send(c, h.svc.List(c.Request.Context()))
}

// Create handles POST /api/admin/events (multipart: files, title, eventDate,
// goLiveDays, forceGoLive). Pages are stored in the order they were sent.
func (h *Handler) Create(c *gin.Context) {
	var in CreateInput
	if err := c.ShouldBind(&in); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	files, err := uploads.FromForm(c, "files")
	if err != nil {
		response.Send(c, action.Fail(err))
		return
	}
	response.Send(c, h.svc.CreateGroup(c.Request.Context(), in, files))
}

// Update handles PATCH /api/admin/events/:groupId.
func (h *Handler) Update(c *gin.Context) {
	var in UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	response.Send(c, h.svc.UpdateGroup(c.Request.Context(), c.Param("groupId"), in))
}

// ToggleForce handles POST /api/admin/events/:groupId/force.
func (h *Handler) ToggleForce(c *gin.Context) {
	response.Send(c, h.svc.ToggleForceGoLive(c.Request.Context(), c.Param("groupId")))
}

// Delete handles DELETE /api/admin/events/:groupId.
func (h *Handler) Delete(c *gin.Context) {
	response.Send(c, h.svc.DeleteGroup(c.Request.Context(), c.Param("groupId")))
}
