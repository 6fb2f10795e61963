package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"storybook-service/internal/repository"
	"storybook-service/internal/services"
	"storybook-service/internal/workers"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	store    *repository.Store
	products *services.ProductService
	sync     *workers.WooSyncWorker
}

// NewHealthHandler creates a new health handler. products and sync may be nil.
func NewHealthHandler(store *repository.Store, products *services.ProductService, sync *workers.WooSyncWorker) *HealthHandler {
	return &HealthHandler{store: store, products: products, sync: sync}
}

// HealthCheck handles GET /health
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if err := h.store.Health(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  "storage ping failed",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "storybook-service",
	})
}

// ReadinessCheck handles GET /ready
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	status := "ready"
	body := gin.H{}

	if h.products != nil {
		if stats := h.products.CacheStats(); stats != nil {
			body["product_cache"] = stats
		}
	}
	if h.sync != nil {
		stats := h.sync.Stats()
		body["woo_sync"] = stats
		if stats.LastError != "" {
			status = "degraded"
		}
	}

	body["status"] = status
	c.JSON(http.StatusOK, body)
}
