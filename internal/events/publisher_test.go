package events

import (
	"testing"
	"time"

	"github.com/Tesseract-Nexus/go-shared/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"storybook-service/internal/models"
)

func TestBuildOrderEvent(t *testing.T) {
	p := &Publisher{storeID: "store-1"}
	order := &models.Order{
		ID:            "o1",
		WooOrderID:    42,
		OrderNumber:   "1042",
		CustomerEmail: "ann@x.com",
		CustomerName:  "Ann Lee",
		Total:         "59.98",
		Currency:      "EUR",
		Stage:         models.StageAssigned,
		LineItems:     []models.OrderLineItem{{ProductID: 7, Name: "Storybook", Quantity: 2, Total: "59.98"}},
		Shipping:      models.Address{FirstName: "Ann", LastName: "Lee", Address1: "1 Rue", City: "Paris", Postcode: "75001", Country: "FR"},
		CreatedAt:     time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}

	event := p.buildOrderEvent(events.OrderConfirmed, order)

	assert.Equal(t, events.OrderConfirmed, event.EventType)
	assert.Equal(t, "store-1", event.TenantID)
	assert.Equal(t, "1042", event.OrderNumber)
	assert.Equal(t, "assigned", event.Status)
	assert.InDelta(t, 59.98, event.TotalAmount, 0.001)
	assert.Equal(t, "woo-order-42", event.CustomerID)
	require.Len(t, event.Items, 1)
	assert.InDelta(t, 29.99, event.Items[0].UnitPrice, 0.001)
	require.NotNil(t, event.ShippingAddress)
	assert.Equal(t, "Paris", event.ShippingAddress.City)
}

func TestBuildOrderEvent_UnparseableTotal(t *testing.T) {
	p := &Publisher{storeID: "store-1"}

	event := p.buildOrderEvent(events.OrderCreated, &models.Order{Total: "n/a"})

	assert.Zero(t, event.TotalAmount)
	assert.Nil(t, event.ShippingAddress)
	assert.Empty(t, event.Items)
}
