// Package woocommerce is a client for the WooCommerce REST API (wc/v3).
package woocommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"storybook-service/internal/clients"
	"storybook-service/internal/models"
	"golang.org/x/time/rate"
)

const apiPath = "/wp-json/wc/v3"

// APIError is a non-2xx WooCommerce response.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("woocommerce API error (status %d, %s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("woocommerce API error (status %d): %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a WooCommerce 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Config holds connection settings.
type Config struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	Timeout        time.Duration
	RequestsPerSec float64
	Retry          *clients.RetryConfig
}

// ListParams are the common collection query parameters.
type ListParams struct {
	Page    int
	PerPage int
	Search  string
	Status  string
	OrderBy string
	Order   string
}

func (p ListParams) values() url.Values {
	v := url.Values{}
	if p.Page > 0 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	if p.PerPage > 0 {
		v.Set("per_page", strconv.Itoa(p.PerPage))
	}
	if p.Search != "" {
		v.Set("search", p.Search)
	}
	if p.Status != "" {
		v.Set("status", p.Status)
	}
	if p.OrderBy != "" {
		v.Set("orderby", p.OrderBy)
	}
	if p.Order != "" {
		v.Set("order", p.Order)
	}
	return v
}

// Totals come from the X-WP-Total and X-WP-TotalPages headers.
type Totals struct {
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

func totalsFromHeaders(h http.Header) Totals {
	total, _ := strconv.Atoi(h.Get("X-WP-Total"))
	pages, _ := strconv.Atoi(h.Get("X-WP-TotalPages"))
	return Totals{Total: total, TotalPages: pages}
}

// Client implements the WooCommerce calls used by the back office.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	consumerKey    string
	consumerSecret string
	rateLimiter    *rate.Limiter
	retrier        *clients.Retrier
	breaker        *clients.CircuitBreaker
	logger         *logrus.Entry
}

// NewClient creates a WooCommerce client.
func NewClient(cfg Config, logger *logrus.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RequestsPerSec <= 0 {
		cfg.RequestsPerSec = 5
	}
	return &Client{
		httpClient:     &http.Client{Timeout: cfg.Timeout},
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		consumerKey:    cfg.ConsumerKey,
		consumerSecret: cfg.ConsumerSecret,
		rateLimiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), 2),
		retrier:        clients.NewRetrier(cfg.Retry),
		breaker:        clients.NewCircuitBreaker(5, 30*time.Second),
		logger:         logger.WithField("component", "woocommerce_client"),
	}
}

// Configured reports whether credentials are present.
func (c *Client) Configured() bool {
	return c.baseURL != "" && c.consumerKey != "" && c.consumerSecret != ""
}

// BreakerState exposes the circuit state for health reporting.
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}

// ListCustomers fetches one page of registered customers.
func (c *Client) ListCustomers(ctx context.Context, p ListParams) ([]models.WooCustomer, Totals, error) {
	var customers []models.WooCustomer
	h, err := c.do(ctx, http.MethodGet, "/customers", p.values(), nil, &customers)
	if err != nil {
		return nil, Totals{}, err
	}
	return customers, totalsFromHeaders(h), nil
}

// ListOrders fetches one page of orders.
func (c *Client) ListOrders(ctx context.Context, p ListParams) ([]models.WooOrder, Totals, error) {
	var orders []models.WooOrder
	h, err := c.do(ctx, http.MethodGet, "/orders", p.values(), nil, &orders)
	if err != nil {
		return nil, Totals{}, err
	}
	return orders, totalsFromHeaders(h), nil
}

// GetOrder fetches a single order.
func (c *Client) GetOrder(ctx context.Context, id int64) (*models.WooOrder, error) {
	var order models.WooOrder
	if _, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/orders/%d", id), nil, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateOrderStatus sets the WooCommerce status of an order (e.g. completed).
func (c *Client) UpdateOrderStatus(ctx context.Context, id int64, status string) (*models.WooOrder, error) {
	var order models.WooOrder
	body := map[string]string{"status": status}
	if _, err := c.do(ctx, http.MethodPut, fmt.Sprintf("/orders/%d", id), nil, body, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// ListProducts fetches one page of products.
func (c *Client) ListProducts(ctx context.Context, p ListParams) ([]models.WooProduct, Totals, error) {
	var products []models.WooProduct
	h, err := c.do(ctx, http.MethodGet, "/products", p.values(), nil, &products)
	if err != nil {
		return nil, Totals{}, err
	}
	return products, totalsFromHeaders(h), nil
}

// GetProduct fetches a single product.
func (c *Client) GetProduct(ctx context.Context, id int64) (*models.WooProduct, error) {
	var product models.WooProduct
	if _, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/products/%d", id), nil, nil, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// do performs an authenticated, rate limited, retried request and decodes
// the JSON response into out.
func (c *Client) do(ctx context.Context, method, path string, params url.Values, body, out interface{}) (http.Header, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("woocommerce client is not configured")
	}
	if !c.breaker.Allow() {
		return nil, clients.ErrCircuitOpen
	}

	fullURL := c.baseURL + apiPath + path
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, err
		}
	}

	resp, result := c.retrier.DoHTTP(ctx, func(ctx context.Context) (*http.Response, error) {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}
		var reqBody io.Reader
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
		if err != nil {
			return nil, err
		}
		req.SetBasicAuth(c.consumerKey, c.consumerSecret)
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		return c.httpClient.Do(req)
	})
	if resp == nil {
		if errors.Is(result.LastError, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
			c.breaker.RecordAbandoned()
		} else {
			c.breaker.RecordFailure()
		}
		c.logger.WithFields(logrus.Fields{
			"method":   method,
			"path":     path,
			"attempts": result.Attempts,
		}).WithError(result.LastError).Warn("WooCommerce request failed")
		return nil, fmt.Errorf("woocommerce %s %s: %w", method, path, result.LastError)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			c.breaker.RecordAbandoned()
		} else {
			c.breaker.RecordFailure()
		}
		return nil, fmt.Errorf("failed to read woocommerce response: %w", err)
	}

	if resp.StatusCode >= 400 {
		// Client errors mean the upstream is healthy
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			c.breaker.RecordFailure()
		} else {
			c.breaker.RecordSuccess()
		}
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if jsonErr := json.Unmarshal(respBody, apiErr); jsonErr != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(respBody))
		}
		return nil, apiErr
	}
	c.breaker.RecordSuccess()

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return nil, fmt.Errorf("failed to parse woocommerce %s response: %w", path, err)
		}
	}
	return resp.Header, nil
}
