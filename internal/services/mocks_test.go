package services

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"storybook-service/internal/clients/woocommerce"
	"storybook-service/internal/models"
	"storybook-service/internal/repository"
	"storybook-service/internal/repository/memory"
)

// MockWooCommerce is a mock implementation of WooCommerceAPI
type MockWooCommerce struct {
	mock.Mock
}

var _ WooCommerceAPI = (*MockWooCommerce)(nil)

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

// recordingPublisher captures published events
type recordingPublisher struct {
	mu      sync.Mutex
	created []string
	vendor  []string
	stages  []string
}

var _ OrderEventPublisher = (*recordingPublisher)(nil)

func (p *recordingPublisher) PublishOrderCreated(ctx context.Context, order *models.Order) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, order.OrderNumber)
}

func (p *recordingPublisher) PublishVendorAssigned(ctx context.Context, order *models.Order) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.vendor = append(p.vendor, order.VendorID)
}

func (p *recordingPublisher) PublishStageChanged(ctx context.Context, order *models.Order, from models.Stage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stages = append(p.stages, string(from)+"->"+string(order.Stage))
}

// recordingNotifier captures notifications
type recordingNotifier struct {
	mu       sync.Mutex
	invites  []string
	assigned []string
}

var _ Notifier = (*recordingNotifier)(nil)

func (n *recordingNotifier) SendInvite(ctx context.Context, invite *models.Invite, acceptURL string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.invites = append(n.invites, invite.Email)
}

func (n *recordingNotifier) SendJobAssigned(ctx context.Context, vendor *models.User, order *models.Order) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.assigned = append(n.assigned, vendor.UID+":"+order.OrderNumber)
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestStore(t *testing.T) *repository.Store {
	t.Helper()
	store, err := memory.NewStore("", testLogger())
	require.NoError(t, err)
	return store
}

func seedVendor(t *testing.T, store *repository.Store, uid, vendorID, name string) *models.User {
	t.Helper()
	user := &models.User{UID: uid, Email: uid + "@print.example", Role: models.RoleVendor, VendorID: vendorID, VendorName: name}
	require.NoError(t, store.Users.Create(context.Background(), user))
	return user
}
