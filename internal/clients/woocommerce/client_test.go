package woocommerce

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"storybook-service/internal/clients"
	"storybook-service/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return NewClient(Config{
		BaseURL:        srv.URL,
		ConsumerKey:    "ck_test",
		ConsumerSecret: "cs_test",
		RequestsPerSec: 1000,
		Retry: &clients.RetryConfig{
			MaxRetries:      2,
			InitialBackoff:  time.Millisecond,
			MaxBackoff:      time.Millisecond,
			BackoffFactor:   1,
			RetryableStatus: []int{http.StatusServiceUnavailable},
		},
	}, logger)
}

func TestListCustomers_SendsAuthAndParsesTotals(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "ck_test", user)
		assert.Equal(t, "cs_test", pass)
		assert.Equal(t, "/wp-json/wc/v3/customers", r.URL.Path)
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))
		assert.Equal(t, "ann", r.URL.Query().Get("search"))

		w.Header().Set("X-WP-Total", "1")
		w.Header().Set("X-WP-TotalPages", "1")
		json.NewEncoder(w).Encode([]models.WooCustomer{{ID: 7, Email: "ann@x.com", TotalSpent: "12.50"}})
	})

	customers, totals, err := client.ListCustomers(context.Background(), ListParams{PerPage: 100, Search: "ann"})

	require.NoError(t, err)
	require.Len(t, customers, 1)
	assert.Equal(t, int64(7), customers[0].ID)
	assert.Equal(t, Totals{Total: 1, TotalPages: 1}, totals)
}

func TestListOrders_RetriesUnavailable(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode([]models.WooOrder{{ID: 900, Billing: models.Address{Email: "g@x.com"}}})
	})

	orders, _, err := client.ListOrders(context.Background(), ListParams{Status: "processing"})

	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.True(t, orders[0].IsGuest())
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGetOrder_ReturnsAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"code":"woocommerce_rest_shop_order_invalid_id","message":"Invalid ID.","data":{"status":404}}`))
	})

	_, err := client.GetOrder(context.Background(), 1)

	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	apiErr := err.(*APIError)
	assert.Equal(t, "woocommerce_rest_shop_order_invalid_id", apiErr.Code)
	assert.Equal(t, "Invalid ID.", apiErr.Message)
}

func TestUpdateOrderStatus_SendsJSONBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/wp-json/wc/v3/orders/55", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "completed", body["status"])
		json.NewEncoder(w).Encode(models.WooOrder{ID: 55, Status: "completed"})
	})

	order, err := client.UpdateOrderStatus(context.Background(), 55, "completed")

	require.NoError(t, err)
	assert.Equal(t, "completed", order.Status)
}

func TestCircuitOpensAfterRepeatedFailures(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	for i := 0; i < 5; i++ {
		_, _, err := client.ListProducts(context.Background(), ListParams{})
		require.Error(t, err)
	}

	_, _, err := client.ListProducts(context.Background(), ListParams{})
	assert.ErrorIs(t, err, clients.ErrCircuitOpen)
	assert.Equal(t, "open", client.BreakerState())
}

func TestCancelledRequestsDoNotOpenCircuit(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte("[]"))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 10; i++ {
		_, _, err := client.ListProducts(ctx, ListParams{})
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, "closed", client.BreakerState())

	_, _, err := client.ListProducts(context.Background(), ListParams{})
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestUnconfiguredClientFails(t *testing.T) {
	client := NewClient(Config{}, logrus.New())

	_, _, err := client.ListCustomers(context.Background(), ListParams{})

	assert.Error(t, err)
	assert.False(t, client.Configured())
}
