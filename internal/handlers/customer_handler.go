package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"storybook-service/internal/export"
	"storybook-service/internal/services"
)

// CustomerHandler handles customer HTTP requests
type CustomerHandler struct {
	service *services.CustomerService
	logger  *logrus.Entry
}

// NewCustomerHandler creates a new customer handler
func NewCustomerHandler(service *services.CustomerService, logger *logrus.Logger) *CustomerHandler {
	return &CustomerHandler{
		service: service,
		logger:  logger.WithField("component", "customer_handler"),
	}
}

// parseCustomerQuery validates the shared query of the list and export endpoints.
func parseCustomerQuery(c *gin.Context) (services.ListCustomersRequest, error) {
	var req services.ListCustomersRequest

	customerType, err := services.ParseCustomerType(c.Query("type"))
	if err != nil {
		return req, err
	}
	sort, err := services.ParseCustomerSort(c.Query("sort"))
	if err != nil {
		return req, err
	}

	minOrders := 0
	if raw := c.Query("min_orders"); raw != "" {
		minOrders, err = strconv.Atoi(raw)
		if err != nil || minOrders < 0 {
			return req, fmt.Errorf("%w: min_orders must be a non-negative integer", services.ErrValidation)
		}
	}

	// Non-numeric paging falls back to the defaults.
	page, _ := strconv.Atoi(c.Query("page"))
	perPage, _ := strconv.Atoi(c.Query("per_page"))

	req.Search = c.Query("search")
	req.Type = customerType
	req.ListOptions = services.ListOptions{
		MinOrders: minOrders,
		Sort:      sort,
		Page:      page,
		PerPage:   perPage,
	}
	return req, nil
}

// ListCustomers returns the merged registered and guest customer list
// @Summary List merged customers
// @Tags Customers
// @Produce json
// @Param page query int false "Page" default(1)
// @Param per_page query int false "Page size" default(20)
// @Param search query string false "Search term forwarded to WooCommerce"
// @Param type query string false "all, registered or guest"
// @Param sort query string false "date_desc, spend_desc or orders_desc"
// @Param min_orders query int false "Minimum order count"
// @Success 200 {object} services.CustomerPage
// @Router /api/customers [get]
func (h *CustomerHandler) ListCustomers(c *gin.Context) {
	req, err := parseCustomerQuery(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	page, err := h.service.ListCustomers(c.Request.Context(), req)
	if err != nil {
		h.logger.WithError(err).Error("Failed to fetch customers")
		c.JSON(http.StatusInternalServerError, gin.H{
			"message": "Failed to fetch customers",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, page)
}

// ExportCustomers streams every matching customer as an XLSX workbook
// @Summary Export merged customers
// @Tags Customers
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Router /api/customers/export [get]
func (h *CustomerHandler) ExportCustomers(c *gin.Context) {
	req, err := parseCustomerQuery(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	customers, err := h.service.Merged(c.Request.Context(), req)
	if err != nil {
		h.logger.WithError(err).Error("Failed to fetch customers for export")
		c.JSON(http.StatusInternalServerError, gin.H{
			"message": "Failed to fetch customers",
			"error":   err.Error(),
		})
		return
	}

	filename := fmt.Sprintf("customers-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Type", export.XLSXContentType)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Status(http.StatusOK)
	if err := export.WriteCustomersXLSX(c.Writer, customers); err != nil {
		h.logger.WithError(err).Error("Failed to write customer export")
	}
}
