package events

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Tesseract-Nexus/go-shared/events"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"storybook-service/internal/models"
)

// Publisher wraps the go-shared events publisher for print order events
type Publisher struct {
	publisher *events.Publisher
	storeID   string
	logger    *logrus.Entry
}

// NewPublisher creates a new order events publisher
func NewPublisher(natsURL, storeID string, logger *logrus.Logger) (*Publisher, error) {
	config := events.DefaultPublisherConfig(natsURL)
	config.Name = "storybook-service"

	publisher, err := events.NewPublisher(config, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create events publisher: %w", err)
	}

	// Ensure the orders stream exists
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := publisher.EnsureStream(ctx, events.StreamOrders, []string{"order.>"}); err != nil {
		logger.WithError(err).Warn("Failed to ensure orders stream (may already exist)")
	}

	return &Publisher{
		publisher: publisher,
		storeID:   storeID,
		logger:    logger.WithField("component", "order-events"),
	}, nil
}

// Close closes the NATS connection
func (p *Publisher) Close() {
	if p.publisher != nil {
		p.publisher.Close()
	}
}

// PublishOrderCreated publishes an order.created event
func (p *Publisher) PublishOrderCreated(ctx context.Context, order *models.Order) {
	p.publish(p.buildOrderEvent(events.OrderCreated, order))
}

// PublishVendorAssigned publishes order.confirmed: the order is accepted for production.
func (p *Publisher) PublishVendorAssigned(ctx context.Context, order *models.Order) {
	event := p.buildOrderEvent(events.OrderConfirmed, order)
	event.Metadata = map[string]interface{}{
		"vendorId": order.VendorID,
	}
	p.publish(event)
}

// PublishStageChanged publishes the event matching the new stage. Internal
// production stages go out as order.status_changed.
func (p *Publisher) PublishStageChanged(ctx context.Context, order *models.Order, from models.Stage) {
	var event *events.OrderEvent
	switch order.Stage {
	case models.StageShipped:
		event = p.buildOrderEvent(events.OrderShipped, order)
	case models.StageDelivered:
		event = p.buildOrderEvent(events.OrderDelivered, order)
		event.DeliveryDate = time.Now().UTC().Format(time.RFC3339)
	case models.StageCancelled:
		event = p.buildOrderEvent(events.OrderCancelled, order)
		event.CancellationReason = lastNote(order)
		event.CancelledBy = "admin"
	default:
		event = p.buildOrderEvent("order.status_changed", order)
	}
	if event.Metadata == nil {
		event.Metadata = map[string]interface{}{}
	}
	event.Metadata["previousStage"] = string(from)
	event.Metadata["newStage"] = string(order.Stage)
	p.publish(event)
}

func lastNote(order *models.Order) string {
	if n := len(order.StageHistory); n > 0 {
		return order.StageHistory[n-1].Note
	}
	return ""
}

func amount(s string) float64 {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	return d.InexactFloat64()
}

// buildOrderEvent creates an OrderEvent from a print order
func (p *Publisher) buildOrderEvent(eventType string, order *models.Order) *events.OrderEvent {
	event := events.NewOrderEvent(eventType, p.storeID)
	event.SourceID = uuid.New().String()
	event.OrderID = order.ID
	event.OrderNumber = order.OrderNumber
	event.OrderDate = order.CreatedAt.Format(time.RFC3339)
	event.Status = string(order.Stage)
	event.TotalAmount = amount(order.Total)
	event.Currency = order.Currency
	event.CustomerEmail = order.CustomerEmail
	event.CustomerName = order.CustomerName
	if order.WooOrderID != 0 {
		event.CustomerID = "woo-order-" + strconv.FormatInt(order.WooOrderID, 10)
	}

	event.Items = make([]events.OrderItem, len(order.LineItems))
	for i, item := range order.LineItems {
		total := amount(item.Total)
		unit := total
		if item.Quantity > 0 {
			unit = total / float64(item.Quantity)
		}
		event.Items[i] = events.OrderItem{
			ProductID:  strconv.FormatInt(item.ProductID, 10),
			SKU:        item.SKU,
			Name:       item.Name,
			Quantity:   item.Quantity,
			UnitPrice:  unit,
			TotalPrice: total,
		}
	}
	event.ItemCount = len(order.LineItems)

	if order.Shipping.Address1 != "" {
		event.ShippingAddress = &events.Address{
			Name:       order.Shipping.FullName(),
			Line1:      order.Shipping.Address1,
			City:       order.Shipping.City,
			State:      order.Shipping.State,
			PostalCode: order.Shipping.Postcode,
			Country:    order.Shipping.Country,
		}
	}
	event.TrackingNumber = order.TrackingNumber

	return event
}

// publish is a helper that logs and publishes events asynchronously
func (p *Publisher) publish(event *events.OrderEvent) {
	go func() {
		pubCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := p.publisher.PublishOrder(pubCtx, event); err != nil {
			p.logger.WithFields(logrus.Fields{
				"eventType":   event.EventType,
				"orderNumber": event.OrderNumber,
			}).WithError(err).Error("Failed to publish order event")
		} else {
			p.logger.WithFields(logrus.Fields{
				"eventType":   event.EventType,
				"orderNumber": event.OrderNumber,
			}).Info("Order event published successfully")
		}
	}()
}
