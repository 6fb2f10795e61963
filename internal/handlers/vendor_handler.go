package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"storybook-service/internal/middleware"
	"storybook-service/internal/models"
	"storybook-service/internal/services"
)

// VendorHandler serves the admin vendor list and the vendor portal.
type VendorHandler struct {
	orders *services.OrderService
	assets *services.AssetService
	sheets *OrderHandler
	logger *logrus.Entry
}

// NewVendorHandler creates a new vendor handler
func NewVendorHandler(orders *services.OrderService, assets *services.AssetService, logger *logrus.Logger) *VendorHandler {
	return &VendorHandler{
		orders: orders,
		assets: assets,
		sheets: NewOrderHandler(orders, logger),
		logger: logger.WithField("component", "vendor_handler"),
	}
}

// ListVendors handles GET /api/vendors
func (h *VendorHandler) ListVendors(c *gin.Context) {
	vendors, err := h.orders.ListVendors(c.Request.Context())
	if err != nil {
		respondError(c, "Failed to fetch vendors", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vendors": vendors})
}

// ListJobs handles GET /api/vendor/jobs
func (h *VendorHandler) ListJobs(c *gin.Context) {
	actor := middleware.CurrentActor(c)
	page, _ := queryInt(c, "page", 1)
	perPage, _ := queryInt(c, "per_page", 20)

	list, err := h.orders.ListVendorJobs(c.Request.Context(), actor.VendorID, models.Stage(c.Query("stage")), page, perPage)
	if err != nil {
		respondError(c, "Failed to fetch jobs", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetJob handles GET /api/vendor/jobs/:id
func (h *VendorHandler) GetJob(c *gin.Context) {
	order, err := h.orders.GetVendorJob(c.Request.Context(), middleware.CurrentActor(c).VendorID, c.Param("id"))
	if err != nil {
		respondError(c, "Failed to fetch job", err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// UpdateJobStage handles PATCH /api/vendor/jobs/:id/stage
func (h *VendorHandler) UpdateJobStage(c *gin.Context) {
	var req models.StageUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "stage is required")
		return
	}

	order, err := h.orders.ChangeStage(c.Request.Context(), c.Param("id"), req.Stage, req.Note, middleware.CurrentActor(c))
	if err != nil {
		respondError(c, "Failed to update stage", err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// DownloadJobZip handles GET /api/vendor/jobs/:id/download-zip
func (h *VendorHandler) DownloadJobZip(c *gin.Context) {
	order, err := h.orders.GetVendorJob(c.Request.Context(), middleware.CurrentActor(c).VendorID, c.Param("id"))
	if err != nil {
		respondError(c, "Failed to fetch job", err)
		return
	}
	streamOrderZip(c, h.assets, order, h.logger)
}

// JobSheet handles GET /api/vendor/jobs/:id/job-sheet
func (h *VendorHandler) JobSheet(c *gin.Context) {
	order, err := h.orders.GetVendorJob(c.Request.Context(), middleware.CurrentActor(c).VendorID, c.Param("id"))
	if err != nil {
		respondError(c, "Failed to fetch job", err)
		return
	}
	h.sheets.writeJobSheet(c, order)
}
