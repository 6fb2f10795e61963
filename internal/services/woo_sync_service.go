package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"storybook-service/internal/clients/woocommerce"
	"storybook-service/internal/models"
	"storybook-service/internal/repository"
)

// DefaultSyncStatus is the WooCommerce status imported when none is given.
const DefaultSyncStatus = "processing"

// maxSyncPages bounds one sync run.
const maxSyncPages = 50

// WooOrderView is a WooCommerce order annotated with its import state.
type WooOrderView struct {
	models.WooOrder
	Imported bool `json:"imported"`
}

// WooOrderList is a page of WooCommerce orders.
type WooOrderList struct {
	Orders     []WooOrderView `json:"orders"`
	Total      int            `json:"total"`
	TotalPages int            `json:"totalPages"`
}

// SyncResult summarises one import run.
type SyncResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}

// WooSyncService imports WooCommerce orders as print orders.
type WooSyncService struct {
	woo       WooCommerceAPI
	orders    repository.OrderRepository
	publisher OrderEventPublisher
	logger    *logrus.Entry
	now       func() time.Time
}

// NewWooSyncService creates a new sync service
func NewWooSyncService(woo WooCommerceAPI, orders repository.OrderRepository, publisher OrderEventPublisher, logger *logrus.Logger) *WooSyncService {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &WooSyncService{
		woo:       woo,
		orders:    orders,
		publisher: publisher,
		logger:    logger.WithField("component", "woo_sync"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ListWooOrders returns a page of WooCommerce orders with an imported flag
func (s *WooSyncService) ListWooOrders(ctx context.Context, p woocommerce.ListParams) (*WooOrderList, error) {
	if p.PerPage < 1 || p.PerPage > 100 {
		p.PerPage = 20
	}
	orders, totals, err := s.woo.ListOrders(ctx, p)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	imported, err := s.orders.ImportedWooIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]WooOrderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, WooOrderView{WooOrder: o, Imported: imported[o.ID]})
	}
	return &WooOrderList{Orders: views, Total: totals.Total, TotalPages: totals.TotalPages}, nil
}

// Sync imports every order of the given status that has no internal order yet.
func (s *WooSyncService) Sync(ctx context.Context, status string) (*SyncResult, error) {
	if status == "" {
		status = DefaultSyncStatus
	}
	result := &SyncResult{}

	for page := 1; page <= maxSyncPages; page++ {
		orders, totals, err := s.woo.ListOrders(ctx, woocommerce.ListParams{
			Page:    page,
			PerPage: upstreamPageSize,
			Status:  status,
			OrderBy: "date",
			Order:   "asc",
		})
		if err != nil {
			if page == 1 {
				return nil, fmt.Errorf("failed to fetch woocommerce orders: %w", err)
			}
			result.Errors = append(result.Errors, err.Error())
			break
		}

		s.importPage(ctx, orders, result)

		if len(orders) < upstreamPageSize || (totals.TotalPages > 0 && page >= totals.TotalPages) {
			break
		}
	}

	s.logger.WithFields(logrus.Fields{
		"status":   status,
		"imported": result.Imported,
		"skipped":  result.Skipped,
		"failed":   result.Failed,
	}).Info("WooCommerce sync finished")
	return result, nil
}

func (s *WooSyncService) importPage(ctx context.Context, orders []models.WooOrder, result *SyncResult) {
	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	imported, err := s.orders.ImportedWooIDs(ctx, ids)
	if err != nil {
		result.Failed += len(orders)
		result.Errors = append(result.Errors, err.Error())
		return
	}

	for _, w := range orders {
		if imported[w.ID] {
			result.Skipped++
			continue
		}
		order := models.OrderFromWoo(w, s.now())
		if err := s.orders.Create(ctx, order); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				result.Skipped++
				continue
			}
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("order %d: %v", w.ID, err))
			s.logger.WithError(err).WithField("woo_order_id", w.ID).Error("Failed to import order")
			continue
		}
		result.Imported++
		s.publisher.PublishOrderCreated(ctx, order)
	}
}
