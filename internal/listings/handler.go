package listings

import (
	"github.com/gin-gonic/gin"

	"github.com/coastline-realty/content-backend/internal/models"
	"github.com/coastline-realty/content-backend/pkg/response"
)

// Handler handles listing HTTP endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a listings handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterPublic mounts the read routes on g.
func (h *Handler) RegisterPublic(g *gin.RouterGroup) {
	g.GET("/listings", h.List)
	g.GET("/listings/:id", h.Get)
}

// RegisterAdmin mounts the write routes on g.
func (h *Handler) RegisterAdmin(g *gin.RouterGroup) {
	g.POST("/listings", h.Create)
	g.PUT("/listings/:id", h.Update)
	g.DELETE("/listings/:id", h.Delete)
}

// List handles GET /listings?status=.
func (h *Handler) List(c *gin.Context) {
	response.Send(c, h.svc.List(c.Request.Context(), models.ListingStatus(c.Query("status"))))
}

// Get handles GET /listings/:id.
func (h *Handler) Get(c *gin.Context) {
	response.Send(c, h.svc.Get(c.Request.Context(), c.Param("id")))
}

// Create handles POST /listings.
func (h *Handler) Create(c *gin.Context) {
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	response.Send(c, h.svc.Create(c.Request.Context(), in))
}

// Update handles PUT /listings/:id.
func (h *Handler) Update(c *gin.Context) {
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	response.Send(c, h.svc.Update(c.Request.Context(), c.Param("id"), in))
}

// Delete handles DELETE /listings/:id.
func (h *Handler) Delete(c *gin.Context) {
	response.Send(c, h.svc.Delete(c.Request.Context(), c.Param("id")))
}
