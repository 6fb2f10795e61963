package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"storybook-service/internal/export"
	"storybook-service/internal/middleware"
	"storybook-service/internal/models"
	"storybook-service/internal/services"
)

// OrderHandler handles print order HTTP requests
type OrderHandler struct {
	service *services.OrderService
	logger  *logrus.Entry
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(service *services.OrderService, logger *logrus.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger.WithField("component", "order_handler"),
	}
}

// ListOrders lists print orders
// @Summary List print orders
// @Tags Orders
// @Produce json
// @Param stage query string false "Stage filter"
// @Param vendor_id query string false "Vendor filter"
// @Param search query string false "Order number, email or name"
// @Param page query int false "Page" default(1)
// @Param per_page query int false "Page size" default(20)
// @Success 200 {object} services.OrderList
// @Router /api/orders [get]
func (h *OrderHandler) ListOrders(c *gin.Context) {
	page, _ := queryInt(c, "page", 1)
	perPage, _ := queryInt(c, "per_page", 20)

	list, err := h.service.ListOrders(c.Request.Context(), models.OrderFilter{
		Stage:    models.Stage(c.Query("stage")),
		VendorID: c.Query("vendor_id"),
		StoryID:  c.Query("story_id"),
		Search:   c.Query("search"),
		Page:     page,
		PerPage:  perPage,
	})
	if err != nil {
		respondError(c, "Failed to fetch orders", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetOrder returns one order
// @Summary Get print order
// @Tags Orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} models.Order
// @Router /api/orders/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.service.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "Failed to fetch order", err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// CreateOrder creates a manual order
// @Summary Create print order
// @Tags Orders
// @Accept json
// @Produce json
// @Param request body models.CreateOrderRequest true "Order"
// @Success 201 {object} models.Order
// @Router /api/orders [post]
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "customer_email and order_number are required")
		return
	}

	order, err := h.service.CreateOrder(c.Request.Context(), req)
	if err != nil {
		respondError(c, "Failed to create order", err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// UpdateOrder handles PUT /api/orders/:id
func (h *OrderHandler) UpdateOrder(c *gin.Context) {
	var req models.UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	order, err := h.service.UpdateOrder(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, "Failed to update order", err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// DeleteOrder handles DELETE /api/orders/:id
func (h *OrderHandler) DeleteOrder(c *gin.Context) {
	if err := h.service.DeleteOrder(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, "Failed to delete order", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AssignVendor handles POST /api/orders/:id/assign
func (h *OrderHandler) AssignVendor(c *gin.Context) {
	var req models.AssignVendorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "vendor_id is required")
		return
	}

	order, err := h.service.AssignVendor(c.Request.Context(), c.Param("id"), req.VendorID, middleware.CurrentActor(c))
	if err != nil {
		respondError(c, "Failed to assign vendor", err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// UpdateStage handles PATCH /api/orders/:id/stage
func (h *OrderHandler) UpdateStage(c *gin.Context) {
	var req models.StageUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "stage is required")
		return
	}

	order, err := h.service.ChangeStage(c.Request.Context(), c.Param("id"), req.Stage, req.Note, middleware.CurrentActor(c))
	if err != nil {
		respondError(c, "Failed to update stage", err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// GetTransitions handles GET /api/orders/:id/transitions
func (h *OrderHandler) GetTransitions(c *gin.Context) {
	transitions, err := h.service.GetTransitions(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "Failed to fetch transitions", err)
		return
	}
	c.JSON(http.StatusOK, transitions)
}

// JobSheet handles GET /api/orders/:id/job-sheet
func (h *OrderHandler) JobSheet(c *gin.Context) {
	order, err := h.service.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "Failed to fetch order", err)
		return
	}
	h.writeJobSheet(c, order)
}

func (h *OrderHandler) writeJobSheet(c *gin.Context, order *models.Order) {
	sheet, err := h.service.BuildJobSheet(c.Request.Context(), order)
	if err != nil {
		respondError(c, "Failed to build job sheet", err)
		return
	}

	pdf, err := export.JobSheetPDF(sheet)
	if err != nil {
		h.logger.WithError(err).WithField("order_id", order.ID).Error("Failed to render job sheet")
		respondError(c, "Failed to render job sheet", err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="job-sheet-%s.pdf"`, order.OrderNumber))
	c.Data(http.StatusOK, "application/pdf", pdf)
}
