package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"storybook-service/internal/middleware"
	"storybook-service/internal/models"
	"storybook-service/internal/services"
)

// AssetHandler handles upload and download HTTP requests
type AssetHandler struct {
	assets *services.AssetService
	orders *services.OrderService
	logger *logrus.Entry
}

// NewAssetHandler creates a new asset handler
func NewAssetHandler(assets *services.AssetService, orders *services.OrderService, logger *logrus.Logger) *AssetHandler {
	return &AssetHandler{
		assets: assets,
		orders: orders,
		logger: logger.WithField("component", "asset_handler"),
	}
}

// UploadURL handles POST /api/upload-url
func (h *AssetHandler) UploadURL(c *gin.Context) {
	var req services.UploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "file_name and folder are required")
		return
	}

	presigned, err := h.assets.UploadURL(c.Request.Context(), req)
	if err != nil {
		respondError(c, "Failed to create upload URL", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"upload_url": presigned.URL,
		"key":        presigned.Key,
		"expires_in": presigned.ExpiresIn,
	})
}

// DownloadURL handles GET /api/download-url?key=
func (h *AssetHandler) DownloadURL(c *gin.Context) {
	key := c.Query("key")
	if key == "" {
		badRequest(c, "key is required")
		return
	}

	presigned, err := h.assets.DownloadURLFor(c.Request.Context(), middleware.CurrentActor(c), key)
	if err != nil {
		respondError(c, "Failed to create download URL", err)
		return
	}
	c.JSON(http.StatusOK, presigned)
}

// DownloadZip handles GET /api/download-zip?order_id=
func (h *AssetHandler) DownloadZip(c *gin.Context) {
	orderID := c.Query("order_id")
	if orderID == "" {
		badRequest(c, "order_id is required")
		return
	}

	order, err := h.orders.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, "Failed to fetch order", err)
		return
	}
	streamOrderZip(c, h.assets, order, h.logger)
}

// streamOrderZip writes all assets of an order as a zip attachment.
func streamOrderZip(c *gin.Context, assets *services.AssetService, order *models.Order, logger *logrus.Entry) {
	bundle, err := assets.CollectAssets(c.Request.Context(), order)
	if err != nil {
		respondError(c, "Failed to collect assets", err)
		return
	}

	c.Header("Content-Type", "application/zip")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, bundle.ArchiveName()))
	c.Status(http.StatusOK)

	// Headers are already sent, so a failure here can only be logged.
	if err := assets.WriteZip(c.Request.Context(), c.Writer, bundle); err != nil {
		logger.WithError(err).WithField("order_id", order.ID).Error("Failed to stream order zip")
	}
}
