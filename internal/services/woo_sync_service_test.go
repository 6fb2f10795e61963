package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"storybook-service/internal/clients/woocommerce"
	"storybook-service/internal/models"
)

func wooOrder(id int64) models.WooOrder {
	return models.WooOrder{
		ID:          id,
		Status:      "processing",
		Total:       "29.99",
		DateCreated: "2024-03-01T10:00:00",
		Billing:     models.Address{FirstName: "Ann", LastName: "Lee", Email: "ann@x.com"},
		LineItems:   []models.WooLineItem{{ProductID: 7, Name: "Storybook", Quantity: 1, Total: "29.99"}},
	}
}

func TestSync_ImportsOnlyNewOrders(t *testing.T) {
	store := newTestStore(t)
	woo := new(MockWooCommerce)
	pub := &recordingPublisher{}
	svc := NewWooSyncService(woo, store.Orders, pub, testLogger())

	require.NoError(t, store.Orders.Create(context.Background(), models.OrderFromWoo(wooOrder(1), svc.now())))

	woo.On("ListOrders", mock.Anything, woocommerce.ListParams{
		Page: 1, PerPage: upstreamPageSize, Status: "processing", OrderBy: "date", Order: "asc",
	}).Return([]models.WooOrder{wooOrder(1), wooOrder(2), wooOrder(3)}, woocommerce.Totals{Total: 3, TotalPages: 1}, nil)

	result, err := svc.Sync(context.Background(), "")

	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, []string{"2", "3"}, pub.created)

	imported, err := store.Orders.GetByWooOrderID(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, models.StagePending, imported.Stage)
	assert.Equal(t, "Ann Lee", imported.CustomerName)
	woo.AssertExpectations(t)
}

func TestSync_IsIdempotent(t *testing.T) {
	store := newTestStore(t)
	woo := new(MockWooCommerce)
	svc := NewWooSyncService(woo, store.Orders, nil, testLogger())

	woo.On("ListOrders", mock.Anything, mock.Anything).
		Return([]models.WooOrder{wooOrder(10)}, woocommerce.Totals{Total: 1, TotalPages: 1}, nil)

	first, err := svc.Sync(context.Background(), "processing")
	require.NoError(t, err)
	second, err := svc.Sync(context.Background(), "processing")
	require.NoError(t, err)

	assert.Equal(t, 1, first.Imported)
	assert.Equal(t, 0, second.Imported)
	assert.Equal(t, 1, second.Skipped)
}

func TestSync_UpstreamFailure(t *testing.T) {
	woo := new(MockWooCommerce)
	svc := NewWooSyncService(woo, newTestStore(t).Orders, nil, testLogger())

	woo.On("ListOrders", mock.Anything, mock.Anything).
		Return(nil, woocommerce.Totals{}, errors.New("503"))

	_, err := svc.Sync(context.Background(), "")
	assert.Error(t, err)
}

func TestListWooOrders_MarksImported(t *testing.T) {
	store := newTestStore(t)
	woo := new(MockWooCommerce)
	svc := NewWooSyncService(woo, store.Orders, nil, testLogger())
	require.NoError(t, store.Orders.Create(context.Background(), models.OrderFromWoo(wooOrder(5), svc.now())))

	woo.On("ListOrders", mock.Anything, woocommerce.ListParams{Page: 1, PerPage: 20}).
		Return([]models.WooOrder{wooOrder(5), wooOrder(6)}, woocommerce.Totals{Total: 2, TotalPages: 1}, nil)

	list, err := svc.ListWooOrders(context.Background(), woocommerce.ListParams{Page: 1})

	require.NoError(t, err)
	require.Len(t, list.Orders, 2)
	assert.True(t, list.Orders[0].Imported)
	assert.False(t, list.Orders[1].Imported)
	assert.Equal(t, 2, list.Total)
}
