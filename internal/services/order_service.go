package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"storybook-service/internal/export"
	"storybook-service/internal/models"
	"storybook-service/internal/repository"
	"storybook-service/internal/validation"
)

// Actor identifies who performs a change.
type Actor struct {
	UID      string
	Role     models.Role
	VendorID string
}

// OrderService handles print order business logic
type OrderService struct {
	store     *repository.Store
	woo       WooCommerceAPI
	publisher OrderEventPublisher
	notifier  Notifier
	logger    *logrus.Entry
	now       func() time.Time
}

// NewOrderService creates a new order service. woo, publisher and notifier may be nil.
func NewOrderService(store *repository.Store, woo WooCommerceAPI, publisher OrderEventPublisher, notifier Notifier, logger *logrus.Logger) *OrderService {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &OrderService{
		store:     store,
		woo:       woo,
		publisher: publisher,
		notifier:  notifier,
		logger:    logger.WithField("component", "order_service"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// OrderList is a page of orders.
type OrderList struct {
	Orders     []models.Order `json:"orders"`
	Total      int64          `json:"total"`
	TotalPages int            `json:"totalPages"`
	Page       int            `json:"page"`
}

// ListOrders retrieves orders with filters and pagination
func (s *OrderService) ListOrders(ctx context.Context, filter models.OrderFilter) (*OrderList, error) {
	if filter.Stage != "" && !filter.Stage.IsValid() {
		return nil, fmt.Errorf("%w: unknown stage %q", ErrValidation, filter.Stage)
	}
	page, perPage := repository.NormalizePaging(filter.Page, filter.PerPage)
	filter.Page, filter.PerPage = page, perPage

	orders, total, err := s.store.Orders.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return &OrderList{
		Orders:     orders,
		Total:      total,
		TotalPages: int((total + int64(perPage) - 1) / int64(perPage)),
		Page:       page,
	}, nil
}

// GetOrder retrieves an order by ID
func (s *OrderService) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	return s.store.Orders.GetByID(ctx, id)
}

// CreateOrder creates a manual order in the pending stage
func (s *OrderService) CreateOrder(ctx context.Context, req models.CreateOrderRequest) (*models.Order, error) {
	if strings.TrimSpace(req.OrderNumber) == "" || strings.TrimSpace(req.CustomerEmail) == "" {
		return nil, fmt.Errorf("%w: order_number and customer_email are required", ErrValidation)
	}
	if req.Shipping.Address1 != "" || req.Shipping.City != "" {
		validation.NormalizeAddress(&req.Shipping)
		if errs := validation.ValidateShippingAddress(&req.Shipping); errs.HasErrors() {
			return nil, fmt.Errorf("%w: %s", ErrValidation, errs.Error())
		}
	}

	now := s.now()
	order := &models.Order{
		WooOrderID:    req.WooOrderID,
		OrderNumber:   strings.TrimSpace(req.OrderNumber),
		CustomerEmail: strings.TrimSpace(req.CustomerEmail),
		CustomerName:  req.CustomerName,
		Billing:       req.Billing,
		Shipping:      req.Shipping,
		LineItems:     req.LineItems,
		Total:         req.Total,
		Currency:      req.Currency,
		Stage:         models.StagePending,
		StageHistory:  []models.StageChange{},
		Notes:         req.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if order.LineItems == nil {
		order.LineItems = []models.OrderLineItem{}
	}

	if err := s.store.Orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	s.publisher.PublishOrderCreated(ctx, order)
	s.logger.WithFields(logrus.Fields{"order_id": order.ID, "order_number": order.OrderNumber}).Info("Order created")
	return order, nil
}

// UpdateOrder applies the editable fields
func (s *OrderService) UpdateOrder(ctx context.Context, id string, req models.UpdateOrderRequest) (*models.Order, error) {
	order, err := s.store.Orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Shipping != nil {
		shipping := *req.Shipping
		validation.NormalizeAddress(&shipping)
		if errs := validation.ValidateShippingAddress(&shipping); errs.HasErrors() {
			return nil, fmt.Errorf("%w: %s", ErrValidation, errs.Error())
		}
		order.Shipping = shipping
	}
	if req.Notes != nil {
		order.Notes = *req.Notes
	}
	if req.TrackingNumber != nil {
		order.TrackingNumber = strings.TrimSpace(*req.TrackingNumber)
	}
	if req.Assets != nil {
		order.Assets = *req.Assets
	}
	if req.StoryID != nil && *req.StoryID != order.StoryID {
		if *req.StoryID != "" {
			if _, err := s.store.Stories.GetByID(ctx, *req.StoryID); err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return nil, fmt.Errorf("%w: story %s does not exist", ErrValidation, *req.StoryID)
				}
				return nil, err
			}
		}
		order.StoryID = *req.StoryID
	}

	if err := s.store.Orders.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to update order: %w", err)
	}
	return order, nil
}

// DeleteOrder removes an order
func (s *OrderService) DeleteOrder(ctx context.Context, id string) error {
	return s.store.Orders.Delete(ctx, id)
}

// AssignVendor assigns a pending or assigned order to a vendor
func (s *OrderService) AssignVendor(ctx context.Context, id, vendorID string, actor Actor) (*models.Order, error) {
	order, err := s.store.Orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Stage != models.StagePending && order.Stage != models.StageAssigned {
		return nil, fmt.Errorf("%w: cannot reassign an order in stage %s", ErrInvalidTransition, order.Stage)
	}

	vendor, err := s.findVendor(ctx, vendorID)
	if err != nil {
		return nil, err
	}

	previous := order.Stage
	order.VendorID = vendor.VendorID
	if previous == models.StagePending {
		order.Stage = models.StageAssigned
		order.StageHistory = append(order.StageHistory, models.StageChange{
			From: previous,
			To:   models.StageAssigned,
			By:   actor.UID,
			Note: "Assigned to " + vendor.VendorName,
			At:   s.now(),
		})
	}

	if err := s.store.Orders.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to assign vendor: %w", err)
	}

	s.publisher.PublishVendorAssigned(ctx, order)
	s.notifier.SendJobAssigned(ctx, vendor, order)
	s.logger.WithFields(logrus.Fields{
		"order_id":  order.ID,
		"vendor_id": vendor.VendorID,
	}).Info("Vendor assigned")
	return order, nil
}

func (s *OrderService) findVendor(ctx context.Context, vendorID string) (*models.User, error) {
	vendors, err := s.store.Users.ListByRole(ctx, models.RoleVendor)
	if err != nil {
		return nil, fmt.Errorf("failed to load vendors: %w", err)
	}
	for i := range vendors {
		if vendors[i].VendorID == vendorID {
			return &vendors[i], nil
		}
	}
	return nil, fmt.Errorf("%w: vendor %s does not exist", ErrValidation, vendorID)
}

// ChangeStage moves an order along the production flow. Vendors may only
// move their own jobs and only into vendor stages.
func (s *OrderService) ChangeStage(ctx context.Context, id string, to models.Stage, note string, actor Actor) (*models.Order, error) {
	if !to.IsValid() {
		return nil, fmt.Errorf("%w: unknown stage %q", ErrValidation, to)
	}

	order, err := s.store.Orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if actor.Role == models.RoleVendor {
		if actor.VendorID == "" || order.VendorID != actor.VendorID {
			return nil, fmt.Errorf("%w: order is not assigned to this vendor", ErrForbidden)
		}
		if !to.IsVendorStage() {
			return nil, fmt.Errorf("%w: vendors cannot set stage %s", ErrForbidden, to)
		}
	}

	if to == models.StageAssigned && order.VendorID == "" {
		return nil, fmt.Errorf("%w: assign a vendor first", ErrInvalidTransition)
	}
	if err := models.ValidateStageTransition(order.Stage, to); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTransition, err.Error())
	}

	from := order.Stage
	order.Stage = to
	order.StageHistory = append(order.StageHistory, models.StageChange{
		From: from,
		To:   to,
		By:   actor.UID,
		Note: note,
		At:   s.now(),
	})

	if err := s.store.Orders.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to update stage: %w", err)
	}

	s.publisher.PublishStageChanged(ctx, order, from)
	s.logger.WithFields(logrus.Fields{
		"order_id": order.ID,
		"from":     from,
		"to":       to,
		"by":       actor.UID,
	}).Info("Order stage changed")

	if to == models.StageShipped && order.WooOrderID != 0 && s.woo != nil {
		s.completeWooOrder(order.WooOrderID)
	}
	return order, nil
}

// completeWooOrder marks the storefront order completed once it ships.
func (s *OrderService) completeWooOrder(wooOrderID int64) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := s.woo.UpdateOrderStatus(ctx, wooOrderID, "completed"); err != nil {
			s.logger.WithError(err).WithField("woo_order_id", wooOrderID).Warn("Failed to complete WooCommerce order")
		}
	}()
}

// Transitions lists the stages an order can move to next.
type Transitions struct {
	Current models.Stage   `json:"current"`
	Next    []models.Stage `json:"next"`
	Label   string         `json:"label"`
}

// GetTransitions returns the valid next stages for an order
func (s *OrderService) GetTransitions(ctx context.Context, id string) (*Transitions, error) {
	order, err := s.store.Orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	next := models.GetNextValidStages(order.Stage)
	if next == nil {
		next = []models.Stage{}
	}
	return &Transitions{Current: order.Stage, Next: next, Label: order.Stage.DisplayName()}, nil
}

// ListVendorJobs returns orders assigned to a vendor
func (s *OrderService) ListVendorJobs(ctx context.Context, vendorID string, stage models.Stage, page, perPage int) (*OrderList, error) {
	if vendorID == "" {
		return nil, fmt.Errorf("%w: caller has no vendor id", ErrForbidden)
	}
	return s.ListOrders(ctx, models.OrderFilter{VendorID: vendorID, Stage: stage, Page: page, PerPage: perPage})
}

// GetVendorJob returns an order only if it belongs to the vendor
func (s *OrderService) GetVendorJob(ctx context.Context, vendorID, id string) (*models.Order, error) {
	order, err := s.store.Orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if vendorID == "" || order.VendorID != vendorID {
		return nil, fmt.Errorf("%w: order is not assigned to this vendor", ErrForbidden)
	}
	return order, nil
}

// ListVendors returns vendor users with their open job counts
func (s *OrderService) ListVendors(ctx context.Context) ([]models.Vendor, error) {
	users, err := s.store.Users.ListByRole(ctx, models.RoleVendor)
	if err != nil {
		return nil, fmt.Errorf("failed to list vendors: %w", err)
	}

	vendors := make([]models.Vendor, 0, len(users))
	for _, u := range users {
		open, err := s.countOpenJobs(ctx, u.VendorID)
		if err != nil {
			return nil, err
		}
		vendors = append(vendors, models.Vendor{
			VendorID:   u.VendorID,
			VendorName: u.VendorName,
			Email:      u.Email,
			UID:        u.UID,
			OpenJobs:   open,
		})
	}
	return vendors, nil
}

func (s *OrderService) countOpenJobs(ctx context.Context, vendorID string) (int, error) {
	if vendorID == "" {
		return 0, nil
	}
	open := 0
	for stage := range models.ValidStageTransitions {
		if models.IsTerminalStage(stage) || stage == models.StagePending {
			continue
		}
		_, total, err := s.store.Orders.List(ctx, models.OrderFilter{VendorID: vendorID, Stage: stage, PerPage: 1})
		if err != nil {
			return 0, fmt.Errorf("failed to count jobs: %w", err)
		}
		open += int(total)
	}
	return open, nil
}

// BuildJobSheet gathers what is printed on a vendor job sheet. A missing
// story or vendor record does not fail the sheet.
func (s *OrderService) BuildJobSheet(ctx context.Context, order *models.Order) (export.JobSheet, error) {
	sheet := export.JobSheet{Order: order, Generated: s.now()}

	if order.StoryID != "" {
		story, err := s.store.Stories.GetByID(ctx, order.StoryID)
		switch {
		case err == nil:
			sheet.Story = story
		case errors.Is(err, repository.ErrNotFound):
			s.logger.WithField("story_id", order.StoryID).Warn("Job sheet story not found")
		default:
			return sheet, fmt.Errorf("failed to load story: %w", err)
		}
	}

	if order.VendorID != "" {
		vendor, err := s.findVendor(ctx, order.VendorID)
		switch {
		case err == nil:
			sheet.VendorName = vendor.VendorName
		case errors.Is(err, ErrValidation):
			sheet.VendorName = order.VendorID
		default:
			return sheet, err
		}
	}
	return sheet, nil
}
