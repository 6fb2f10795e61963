package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"storybook-service/internal/clients/woocommerce"
	"storybook-service/internal/middleware"
	"storybook-service/internal/models"
	"storybook-service/internal/repository"
	"storybook-service/internal/repository/memory"
	"storybook-service/internal/services"
	"storybook-service/internal/storage"
)

// MockWooCommerce is a mock implementation of WooCommerceAPI
type MockWooCommerce struct {
	mock.Mock
}

var _ services.WooCommerceAPI = (*MockWooCommerce)(nil)

func (m *MockWooCommerce) ListCustomers(ctx context.Context, p woocommerce.ListParams) ([]models.WooCustomer, woocommerce.Totals, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, woocommerce.Totals{}, args.Error(2)
	}
	return args.Get(0).([]models.WooCustomer), args.Get(1).(woocommerce.Totals), args.Error(2)
}

func (m *MockWooCommerce) ListOrders(ctx context.Context, p woocommerce.ListParams) ([]models.WooOrder, woocommerce.Totals, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, woocommerce.Totals{}, args.Error(2)
	}
	return args.Get(0).([]models.WooOrder), args.Get(1).(woocommerce.Totals), args.Error(2)
}

func (m *MockWooCommerce) GetOrder(ctx context.Context, id int64) (*models.WooOrder, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WooOrder), args.Error(1)
}

func (m *MockWooCommerce) UpdateOrderStatus(ctx context.Context, id int64, status string) (*models.WooOrder, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WooOrder), args.Error(1)
}

func (m *MockWooCommerce) ListProducts(ctx context.Context, p woocommerce.ListParams) ([]models.WooProduct, woocommerce.Totals, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, woocommerce.Totals{}, args.Error(2)
	}
	return args.Get(0).([]models.WooProduct), args.Get(1).(woocommerce.Totals), args.Error(2)
}

func (m *MockWooCommerce) GetProduct(ctx context.Context, id int64) (*models.WooProduct, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WooProduct), args.Error(1)
}

type testServer struct {
	router *gin.Engine
	store  *repository.Store
	woo    *MockWooCommerce
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// newTestServer wires every handler against the memory store, a local object
// store in a temp dir and a mocked WooCommerce. Auth uses the dev headers.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := testLogger()

	store, err := memory.NewStore("", logger)
	require.NoError(t, err)
	objects, err := storage.NewLocalStore(t.TempDir(), "http://localhost:8080")
	require.NoError(t, err)
	woo := new(MockWooCommerce)

	orderService := services.NewOrderService(store, nil, nil, nil, logger)
	assetService := services.NewAssetService(store, objects, logger)

	h := Handlers{
		Customers: NewCustomerHandler(services.NewCustomerService(woo, logger), logger),
		Orders:    NewOrderHandler(orderService, logger),
		WooOrders: NewWooOrderHandler(services.NewWooSyncService(woo, store.Orders, nil, logger), logger),
		Products:  NewProductHandler(services.NewProductService(woo, nil, logger)),
		Vendors:   NewVendorHandler(orderService, assetService, logger),
		Stories:   NewStoryHandler(services.NewStoryService(store, logger)),
		Invites:   NewInviteHandler(services.NewInviteService(store, nil, "test-secret", "http://app.local", logger)),
		Assets:    NewAssetHandler(assetService, orderService, logger),
		DevFiles:  NewDevFilesHandler(objects, logger),
	}

	router := gin.New()
	RegisterRoutes(router, h, middleware.AuthConfig{DevHeaders: true}, store.Users)
	return &testServer{router: router, store: store, woo: woo}
}

var adminHeaders = map[string]string{"X-User-ID": "admin-1", "X-User-Role": "admin"}

func vendorHeaders(vendorID string) map[string]string {
	return map[string]string{"X-User-ID": "vendor-" + vendorID, "X-User-Role": "vendor", "X-Vendor-ID": vendorID}
}

func (s *testServer) do(method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		reader = bytes.NewReader(b)
	default:
		data, _ := json.Marshal(b)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func seedVendor(t *testing.T, store *repository.Store, vendorID, name string) {
	t.Helper()
	require.NoError(t, store.Users.Create(context.Background(), &models.User{
		UID:        "vendor-" + vendorID,
		Email:      vendorID + "@print.example",
		Role:       models.RoleVendor,
		VendorID:   vendorID,
		VendorName: name,
	}))
}
