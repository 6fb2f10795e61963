package models

import (
	"strings"
)

// Address is the WooCommerce billing/shipping address shape.
type Address struct {
	FirstName string `json:"first_name" firestore:"first_name"`
	LastName  string `json:"last_name" firestore:"last_name"`
	Company   string `json:"company" firestore:"company"`
	Address1  string `json:"address_1" firestore:"address_1"`
	Address2  string `json:"address_2" firestore:"address_2"`
	City      string `json:"city" firestore:"city"`
	State     string `json:"state" firestore:"state"`
	Postcode  string `json:"postcode" firestore:"postcode"`
	Country   string `json:"country" firestore:"country"`
	Email     string `json:"email,omitempty" firestore:"email,omitempty"`
	Phone     string `json:"phone,omitempty" firestore:"phone,omitempty"`
}

// HasName reports whether the address carries a first or last name.
func (a Address) HasName() bool {
	return strings.TrimSpace(a.FirstName) != "" || strings.TrimSpace(a.LastName) != ""
}

// FullName joins first and last name.
func (a Address) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// WooCustomer is a registered customer as returned by the WooCommerce REST API.
type WooCustomer struct {
	ID          int64   `json:"id"`
	Email       string  `json:"email"`
	FirstName   string  `json:"first_name"`
	LastName    string  `json:"last_name"`
	Username    string  `json:"username"`
	Role        string  `json:"role,omitempty"`
	DateCreated string  `json:"date_created"`
	TotalSpent  string  `json:"total_spent"`
	OrdersCount int     `json:"orders_count"`
	Billing     Address `json:"billing"`
	Shipping    Address `json:"shipping"`
	AvatarURL   string  `json:"avatar_url"`
}

// WooLineItem is a single order line.
type WooLineItem struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	ProductID int64   `json:"product_id"`
	SKU       string  `json:"sku"`
	Quantity  int     `json:"quantity"`
	Total     string  `json:"total"`
	Price     float64 `json:"price"`
}

// WooMeta is a meta_data entry. Values are kept raw since plugins store arbitrary JSON.
type WooMeta struct {
	ID    int64       `json:"id"`
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// WooOrder is an order as returned by the WooCommerce REST API.
// CustomerID is 0 for guest checkouts.
type WooOrder struct {
	ID            int64         `json:"id"`
	Number        string        `json:"number"`
	Status        string        `json:"status"`
	Currency      string        `json:"currency"`
	Total         string        `json:"total"`
	DateCreated   string        `json:"date_created"`
	CustomerID    int64         `json:"customer_id"`
	CustomerNote  string        `json:"customer_note,omitempty"`
	PaymentMethod string        `json:"payment_method_title,omitempty"`
	Billing       Address       `json:"billing"`
	Shipping      Address       `json:"shipping"`
	LineItems     []WooLineItem `json:"line_items"`
	MetaData      []WooMeta     `json:"meta_data,omitempty"`
}

// IsGuest reports whether the order was placed without a customer account.
func (o WooOrder) IsGuest() bool {
	return o.CustomerID == 0
}

// Meta returns the string value of a meta_data key, or "" if absent.
func (o WooOrder) Meta(key string) string {
	for _, m := range o.MetaData {
		if m.Key == key {
			if s, ok := m.Value.(string); ok {
				return s
			}
		}
	}
	return ""
}

// WooImage is a product image.
type WooImage struct {
	ID   int64  `json:"id"`
	Src  string `json:"src"`
	Name string `json:"name"`
	Alt  string `json:"alt"`
}

// WooProduct is a catalog product (storybook formats, add-ons).
type WooProduct struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Slug         string     `json:"slug"`
	Type         string     `json:"type"`
	Status       string     `json:"status"`
	SKU          string     `json:"sku"`
	Price        string     `json:"price"`
	RegularPrice string     `json:"regular_price"`
	SalePrice    string     `json:"sale_price"`
	StockStatus  string     `json:"stock_status"`
	Description  string     `json:"short_description"`
	Images       []WooImage `json:"images"`
	DateCreated  string     `json:"date_created"`
}
