package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"storybook-service/internal/middleware"
	"storybook-service/internal/models"
	"storybook-service/internal/services"
)

// InviteHandler handles invite and current-user HTTP requests
type InviteHandler struct {
	service *services.InviteService
}

// NewInviteHandler creates a new invite handler
func NewInviteHandler(service *services.InviteService) *InviteHandler {
	return &InviteHandler{service: service}
}

// CreateInvite handles POST /api/invites
func (h *InviteHandler) CreateInvite(c *gin.Context) {
	var req models.CreateInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "a valid email and role are required")
		return
	}

	invite, err := h.service.CreateInvite(c.Request.Context(), req, middleware.CurrentActor(c).UID)
	if err != nil {
		respondError(c, "Failed to create invite", err)
		return
	}
	c.JSON(http.StatusCreated, invite)
}

// ListInvites handles GET /api/invites
func (h *InviteHandler) ListInvites(c *gin.Context) {
	invites, err := h.service.ListInvites(c.Request.Context())
	if err != nil {
		respondError(c, "Failed to fetch invites", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invites": invites})
}

// DeleteInvite handles DELETE /api/invites/:id
func (h *InviteHandler) DeleteInvite(c *gin.Context) {
	if err := h.service.DeleteInvite(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, "Failed to delete invite", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AcceptInvite handles POST /api/invites/accept. The caller needs an
// identity but no user record yet.
func (h *InviteHandler) AcceptInvite(c *gin.Context) {
	var req models.AcceptInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "token is required")
		return
	}

	user, err := h.service.AcceptInvite(c.Request.Context(), middleware.CurrentIdentity(c), req)
	if err != nil {
		respondError(c, "Failed to accept invite", err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// Me handles GET /api/me
func (h *InviteHandler) Me(c *gin.Context) {
	user, err := h.service.Me(c.Request.Context(), middleware.CurrentIdentity(c).UID)
	if err != nil {
		respondError(c, "Failed to fetch user", err)
		return
	}
	c.JSON(http.StatusOK, user)
}
