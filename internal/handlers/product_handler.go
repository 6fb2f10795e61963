package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"storybook-service/internal/clients/woocommerce"
	"storybook-service/internal/services"
)

// ProductHandler handles WooCommerce catalog HTTP requests
type ProductHandler struct {
	service *services.ProductService
}

// NewProductHandler creates a new product handler
func NewProductHandler(service *services.ProductService) *ProductHandler {
	return &ProductHandler{service: service}
}

// ListProducts handles GET /api/products
func (h *ProductHandler) ListProducts(c *gin.Context) {
	page, _ := queryInt(c, "page", 1)
	perPage, _ := queryInt(c, "per_page", 20)

	list, err := h.service.ListProducts(c.Request.Context(), woocommerce.ListParams{
		Page:    page,
		PerPage: perPage,
		Search:  c.Query("search"),
	})
	if err != nil {
		respondError(c, "Failed to fetch products", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetProduct handles GET /api/products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid product ID")
		return
	}

	product, err := h.service.GetProduct(c.Request.Context(), id)
	if err != nil {
		if woocommerce.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Product not found"})
			return
		}
		respondError(c, "Failed to fetch product", err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// InvalidateCache handles POST /api/products/cache/invalidate
func (h *ProductHandler) InvalidateCache(c *gin.Context) {
	if err := h.service.InvalidateCache(c.Request.Context()); err != nil {
		respondError(c, "Failed to invalidate cache", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product cache invalidated"})
}
