package services

import (
	"context"

	"storybook-service/internal/clients"
	"storybook-service/internal/clients/woocommerce"
	"storybook-service/internal/events"
	"storybook-service/internal/models"
)

// WooCommerceAPI is the subset of the WooCommerce client the services use.
type WooCommerceAPI interface {
	ListCustomers(ctx context.Context, p woocommerce.ListParams) ([]models.WooCustomer, woocommerce.Totals, error)
	ListOrders(ctx context.Context, p woocommerce.ListParams) ([]models.WooOrder, woocommerce.Totals, error)
	GetOrder(ctx context.Context, id int64) (*models.WooOrder, error)
	UpdateOrderStatus(ctx context.Context, id int64, status string) (*models.WooOrder, error)
	ListProducts(ctx context.Context, p woocommerce.ListParams) ([]models.WooProduct, woocommerce.Totals, error)
	GetProduct(ctx context.Context, id int64) (*models.WooProduct, error)
}

var _ WooCommerceAPI = (*woocommerce.Client)(nil)

// OrderEventPublisher publishes order lifecycle events. Implementations must
// not block the caller.
type OrderEventPublisher interface {
	PublishOrderCreated(ctx context.Context, order *models.Order)
	PublishVendorAssigned(ctx context.Context, order *models.Order)
	PublishStageChanged(ctx context.Context, order *models.Order, from models.Stage)
}

var _ OrderEventPublisher = (*events.Publisher)(nil)

// Notifier sends transactional emails. Failures are logged, never returned.
type Notifier interface {
	SendInvite(ctx context.Context, invite *models.Invite, acceptURL string)
	SendJobAssigned(ctx context.Context, vendor *models.User, order *models.Order)
}

var _ Notifier = (*clients.NotificationClient)(nil)

type noopPublisher struct{}

func (noopPublisher) PublishOrderCreated(context.Context, *models.Order)               {}
func (noopPublisher) PublishVendorAssigned(context.Context, *models.Order)             {}
func (noopPublisher) PublishStageChanged(context.Context, *models.Order, models.Stage) {}

type noopNotifier struct{}

func (noopNotifier) SendInvite(context.Context, *models.Invite, string)        {}
func (noopNotifier) SendJobAssigned(context.Context, *models.User, *models.Order) {}
