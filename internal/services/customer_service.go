package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"storybook-service/internal/clients/woocommerce"
	"storybook-service/internal/models"
)

// upstreamPageSize is the page size used when pulling customers and orders.
const upstreamPageSize = 100

// CustomerService builds the merged customer view from WooCommerce.
type CustomerService struct {
	woo    WooCommerceAPI
	logger *logrus.Entry
}

// NewCustomerService creates a new customer service
func NewCustomerService(woo WooCommerceAPI, logger *logrus.Logger) *CustomerService {
	return &CustomerService{
		woo:    woo,
		logger: logger.WithField("component", "customer_service"),
	}
}

// ListCustomersRequest carries the validated query of GET /api/customers.
type ListCustomersRequest struct {
	Search string
	Type   CustomerType
	ListOptions
}

// FetchUpstream issues the customers and orders calls concurrently and joins them.
func (s *CustomerService) FetchUpstream(ctx context.Context, search string) ([]models.WooCustomer, []models.WooOrder, error) {
	var (
		customers []models.WooCustomer
		orders    []models.WooOrder
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		customers, _, err = s.woo.ListCustomers(gctx, woocommerce.ListParams{
			PerPage: upstreamPageSize,
			Search:  search,
		})
		if err != nil {
			return fmt.Errorf("failed to fetch customers: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		orders, _, err = s.woo.ListOrders(gctx, woocommerce.ListParams{
			PerPage: upstreamPageSize,
			Search:  search,
		})
		if err != nil {
			return fmt.Errorf("failed to fetch orders: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return customers, orders, nil
}

// Merged returns the full reconciled, filtered and sorted list without paging.
func (s *CustomerService) Merged(ctx context.Context, req ListCustomersRequest) ([]models.Customer, error) {
	customers, orders, err := s.FetchUpstream(ctx, req.Search)
	if err != nil {
		return nil, err
	}

	dropped := 0
	merged := Reconcile(customers, orders, ReconcileOptions{
		Type:   req.Type,
		OnDrop: func(DropReason, int64) { dropped++ },
	})

	s.logger.WithFields(logrus.Fields{
		"customers": len(customers),
		"orders":    len(orders),
		"merged":    len(merged),
		"dropped":   dropped,
	}).Debug("Reconciled customers")

	opts := req.ListOptions.Normalize()
	return FilterAndSort(merged, opts.MinOrders, opts.Sort), nil
}

// ListCustomers returns one page of the merged customer list.
func (s *CustomerService) ListCustomers(ctx context.Context, req ListCustomersRequest) (*CustomerPage, error) {
	customers, orders, err := s.FetchUpstream(ctx, req.Search)
	if err != nil {
		return nil, err
	}

	merged := Reconcile(customers, orders, ReconcileOptions{Type: req.Type})
	page := ApplyListOptions(merged, req.ListOptions)
	return &page, nil
}
