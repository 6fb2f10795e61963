package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"storybook-service/internal/models"
	"storybook-service/internal/services"
)

// StoryHandler handles story HTTP requests
type StoryHandler struct {
	service *services.StoryService
}

// NewStoryHandler creates a new story handler
func NewStoryHandler(service *services.StoryService) *StoryHandler {
	return &StoryHandler{service: service}
}

// ListStories handles GET /api/stories
func (h *StoryHandler) ListStories(c *gin.Context) {
	stories, err := h.service.ListStories(c.Request.Context(), models.StoryFilter{
		OrderID: c.Query("order_id"),
		Status:  models.StoryStatus(c.Query("status")),
	})
	if err != nil {
		respondError(c, "Failed to fetch stories", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stories": stories})
}

// GetStory handles GET /api/stories/:id
func (h *StoryHandler) GetStory(c *gin.Context) {
	story, err := h.service.GetStory(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "Failed to fetch story", err)
		return
	}
	c.JSON(http.StatusOK, story)
}

// CreateStory handles POST /api/stories
func (h *StoryHandler) CreateStory(c *gin.Context) {
	var req models.StoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	story, err := h.service.CreateStory(c.Request.Context(), req)
	if err != nil {
		respondError(c, "Failed to create story", err)
		return
	}
	c.JSON(http.StatusCreated, story)
}

// UpdateStory handles PUT /api/stories/:id
func (h *StoryHandler) UpdateStory(c *gin.Context) {
	var req models.StoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	story, err := h.service.UpdateStory(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, "Failed to update story", err)
		return
	}
	c.JSON(http.StatusOK, story)
}

// DeleteStory handles DELETE /api/stories/:id
func (h *StoryHandler) DeleteStory(c *gin.Context) {
	if err := h.service.DeleteStory(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, "Failed to delete story", err)
		return
	}
	c.Status(http.StatusNoContent)
}
