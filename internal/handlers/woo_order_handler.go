package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"storybook-service/internal/clients/woocommerce"
	"storybook-service/internal/services"
)

// WooOrderHandler handles storefront order HTTP requests
type WooOrderHandler struct {
	service *services.WooSyncService
	logger  *logrus.Entry
}

// NewWooOrderHandler creates a new WooCommerce order handler
func NewWooOrderHandler(service *services.WooSyncService, logger *logrus.Logger) *WooOrderHandler {
	return &WooOrderHandler{
		service: service,
		logger:  logger.WithField("component", "woo_order_handler"),
	}
}

// ListWooOrders handles GET /api/woo-orders
func (h *WooOrderHandler) ListWooOrders(c *gin.Context) {
	page, _ := queryInt(c, "page", 1)
	perPage, _ := queryInt(c, "per_page", 20)

	list, err := h.service.ListWooOrders(c.Request.Context(), woocommerce.ListParams{
		Page:    page,
		PerPage: perPage,
		Status:  c.Query("status"),
		Search:  c.Query("search"),
	})
	if err != nil {
		respondError(c, "Failed to fetch WooCommerce orders", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

type syncRequest struct {
	Status string `json:"status"`
}

// Sync handles POST /api/woo-orders/sync
func (h *WooOrderHandler) Sync(c *gin.Context) {
	var req syncRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
	}

	result, err := h.service.Sync(c.Request.Context(), req.Status)
	if err != nil {
		h.logger.WithError(err).Error("Manual sync failed")
		respondError(c, "Failed to sync WooCommerce orders", err)
		return
	}
	c.JSON(http.StatusOK, result)
}
