package models

import (
	"time"
)

// Stage is the production stage of a print order.
type Stage string

const (
	StagePending      Stage = "pending"
	StageAssigned     Stage = "assigned"
	StagePrinting     Stage = "printing"
	StageBinding      Stage = "binding"
	StageQualityCheck Stage = "quality_check"
	StageShipped      Stage = "shipped"
	StageDelivered    Stage = "delivered"
	StageCancelled    Stage = "cancelled"
)

// OrderLineItem is a line copied from the WooCommerce order.
type OrderLineItem struct {
	ProductID int64  `json:"product_id" firestore:"product_id"`
	Name      string `json:"name" firestore:"name"`
	SKU       string `json:"sku" firestore:"sku"`
	Quantity  int    `json:"quantity" firestore:"quantity"`
	Total     string `json:"total" firestore:"total"`
}

// StageChange records a single transition.
type StageChange struct {
	From Stage     `json:"from" firestore:"from"`
	To   Stage     `json:"to" firestore:"to"`
	By   string    `json:"by" firestore:"by"`
	Note string    `json:"note,omitempty" firestore:"note,omitempty"`
	At   time.Time `json:"at" firestore:"at"`
}

// OrderAssets holds object storage keys for the printable files of an order.
type OrderAssets struct {
	PDFKey    string   `json:"pdf_key,omitempty" firestore:"pdf_key,omitempty"`
	CoverKey  string   `json:"cover_key,omitempty" firestore:"cover_key,omitempty"`
	VoiceKeys []string `json:"voice_keys,omitempty" firestore:"voice_keys,omitempty"`
}

// IsEmpty reports whether no asset has been attached.
func (a OrderAssets) IsEmpty() bool {
	return a.PDFKey == "" && a.CoverKey == "" && len(a.VoiceKeys) == 0
}

// Order is an internal print order, usually imported from WooCommerce.
type Order struct {
	ID             string          `json:"id" firestore:"-"`
	WooOrderID     int64           `json:"woo_order_id,omitempty" firestore:"woo_order_id"`
	OrderNumber    string          `json:"order_number" firestore:"order_number"`
	CustomerEmail  string          `json:"customer_email" firestore:"customer_email"`
	CustomerName   string          `json:"customer_name" firestore:"customer_name"`
	Billing        Address         `json:"billing" firestore:"billing"`
	Shipping       Address         `json:"shipping" firestore:"shipping"`
	LineItems      []OrderLineItem `json:"line_items" firestore:"line_items"`
	Total          string          `json:"total" firestore:"total"`
	Currency       string          `json:"currency" firestore:"currency"`
	StoryID        string          `json:"story_id,omitempty" firestore:"story_id"`
	VendorID       string          `json:"vendor_id,omitempty" firestore:"vendor_id"`
	Stage          Stage           `json:"stage" firestore:"stage"`
	StageHistory   []StageChange   `json:"stage_history" firestore:"stage_history"`
	Assets         OrderAssets     `json:"assets" firestore:"assets"`
	Notes          string          `json:"notes,omitempty" firestore:"notes"`
	TrackingNumber string          `json:"tracking_number,omitempty" firestore:"tracking_number"`
	CreatedAt      time.Time       `json:"created_at" firestore:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" firestore:"updated_at"`
}

// OrderFilter narrows order listings. Zero values match everything.
type OrderFilter struct {
	Stage    Stage
	VendorID string
	StoryID  string
	Search   string
	Page     int
	PerPage  int
}

// CreateOrderRequest is the body of a manual order creation.
type CreateOrderRequest struct {
	WooOrderID    int64           `json:"woo_order_id"`
	OrderNumber   string          `json:"order_number" binding:"required"`
	CustomerEmail string          `json:"customer_email" binding:"required,email"`
	CustomerName  string          `json:"customer_name"`
	Billing       Address         `json:"billing"`
	Shipping      Address         `json:"shipping"`
	LineItems     []OrderLineItem `json:"line_items"`
	Total         string          `json:"total"`
	Currency      string          `json:"currency"`
	Notes         string          `json:"notes"`
}

// UpdateOrderRequest carries the editable fields of an order. Nil fields are left unchanged.
type UpdateOrderRequest struct {
	Notes          *string      `json:"notes"`
	Shipping       *Address     `json:"shipping"`
	StoryID        *string      `json:"story_id"`
	Assets         *OrderAssets `json:"assets"`
	TrackingNumber *string      `json:"tracking_number"`
}

// StageUpdateRequest moves an order to another stage.
type StageUpdateRequest struct {
	Stage Stage  `json:"stage" binding:"required"`
	Note  string `json:"note"`
}

// AssignVendorRequest assigns an order to a print vendor.
type AssignVendorRequest struct {
	VendorID string `json:"vendor_id" binding:"required"`
}

// OrderFromWoo maps a WooCommerce order into a new pending print order.
func OrderFromWoo(w WooOrder, now time.Time) *Order {
	items := make([]OrderLineItem, 0, len(w.LineItems))
	for _, li := range w.LineItems {
		items = append(items, OrderLineItem{
			ProductID: li.ProductID,
			Name:      li.Name,
			SKU:       li.SKU,
			Quantity:  li.Quantity,
			Total:     li.Total,
		})
	}
	number := w.Number
	if number == "" {
		number = formatInt(w.ID)
	}
	return &Order{
		WooOrderID:    w.ID,
		OrderNumber:   number,
		CustomerEmail: w.Billing.Email,
		CustomerName:  w.Billing.FullName(),
		Billing:       w.Billing,
		Shipping:      w.Shipping,
		LineItems:     items,
		Total:         w.Total,
		Currency:      w.Currency,
		Stage:         StagePending,
		StageHistory:  []StageChange{},
		Notes:         w.CustomerNote,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
