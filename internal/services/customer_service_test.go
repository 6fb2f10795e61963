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

func TestListCustomers_FetchesBothAndMerges(t *testing.T) {
	woo := new(MockWooCommerce)
	service := NewCustomerService(woo, testLogger())

	params := woocommerce.ListParams{PerPage: 100, Search: "x.com"}
	woo.On("ListCustomers", mock.Anything, params).
		Return([]models.WooCustomer{{ID: 1, Email: "a@x.com", OrdersCount: 3, DateCreated: "2024-01-01T00:00:00"}}, woocommerce.Totals{Total: 1}, nil)
	woo.On("ListOrders", mock.Anything, params).
		Return([]models.WooOrder{{ID: 900, Total: "20.00", DateCreated: "2024-02-01T00:00:00", Billing: models.Address{Email: "g@x.com"}}}, woocommerce.Totals{Total: 1}, nil)

	page, err := service.ListCustomers(context.Background(), ListCustomersRequest{
		Search:      "x.com",
		Type:        CustomerTypeAll,
		ListOptions: ListOptions{Page: 1, PerPage: 20},
	})

	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 1, page.TotalPages)
	assert.Equal(t, "g@x.com", page.Customers[0].Email)
	woo.AssertExpectations(t)
}

func TestListCustomers_UpstreamFailure(t *testing.T) {
	woo := new(MockWooCommerce)
	service := NewCustomerService(woo, testLogger())

	woo.On("ListCustomers", mock.Anything, mock.Anything).
		Return(nil, woocommerce.Totals{}, errors.New("connection refused"))
	woo.On("ListOrders", mock.Anything, mock.Anything).
		Return([]models.WooOrder{}, woocommerce.Totals{}, nil).Maybe()

	page, err := service.ListCustomers(context.Background(), ListCustomersRequest{})

	assert.Nil(t, page)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestMerged_ReturnsAllRowsSorted(t *testing.T) {
	woo := new(MockWooCommerce)
	service := NewCustomerService(woo, testLogger())

	customers := make([]models.WooCustomer, 0, 130)
	for i := 0; i < 130; i++ {
		customers = append(customers, models.WooCustomer{ID: int64(i + 1), Email: string(rune('a'+i%26)) + "@" + string(rune('a'+i/26)) + ".com", OrdersCount: i})
	}
	woo.On("ListCustomers", mock.Anything, mock.Anything).Return(customers, woocommerce.Totals{}, nil)
	woo.On("ListOrders", mock.Anything, mock.Anything).Return([]models.WooOrder{}, woocommerce.Totals{}, nil)

	all, err := service.Merged(context.Background(), ListCustomersRequest{
		ListOptions: ListOptions{Sort: SortOrdersDesc, MinOrders: 10},
	})

	require.NoError(t, err)
	assert.Len(t, all, 120)
	assert.Equal(t, 129, all[0].OrdersCount)
}
