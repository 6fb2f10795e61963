package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const guestIDPrefix = "guest-"

// CustomerID identifies a merged customer. Registered customers carry their
// WooCommerce id; guest customers are keyed by the first order seen for them
// and render as "guest-<orderId>".
type CustomerID struct {
	value int64
	guest bool
}

// RegisteredCustomerID returns the identity of a WooCommerce customer account.
func RegisteredCustomerID(id int64) CustomerID {
	return CustomerID{value: id}
}

// GuestCustomerID returns the synthetic identity derived from a guest order.
func GuestCustomerID(orderID int64) CustomerID {
	return CustomerID{value: orderID, guest: true}
}

// IsGuest reports whether the id is order-derived.
func (id CustomerID) IsGuest() bool {
	return id.guest
}

// Value returns the numeric part (customer id or order id).
func (id CustomerID) Value() int64 {
	return id.value
}

func (id CustomerID) String() string {
	if id.guest {
		return guestIDPrefix + strconv.FormatInt(id.value, 10)
	}
	return strconv.FormatInt(id.value, 10)
}

// MarshalJSON renders registered ids as numbers and guest ids as strings.
func (id CustomerID) MarshalJSON() ([]byte, error) {
	if id.guest {
		return json.Marshal(id.String())
	}
	return []byte(strconv.FormatInt(id.value, 10)), nil
}

// UnmarshalJSON accepts either form produced by MarshalJSON.
func (id *CustomerID) UnmarshalJSON(data []byte) error {
	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		*id = RegisteredCustomerID(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("customer id must be a number or string: %w", err)
	}
	parsed, err := ParseCustomerID(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseCustomerID parses "42" or "guest-900".
func ParseCustomerID(s string) (CustomerID, error) {
	if strings.HasPrefix(s, guestIDPrefix) {
		n, err := strconv.ParseInt(strings.TrimPrefix(s, guestIDPrefix), 10, 64)
		if err != nil {
			return CustomerID{}, fmt.Errorf("invalid guest customer id %q", s)
		}
		return GuestCustomerID(n), nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return CustomerID{}, fmt.Errorf("invalid customer id %q", s)
	}
	return RegisteredCustomerID(n), nil
}

// Customer is the merged, per-request view of a WooCommerce customer built
// from the registered customer list and the order list. It is never persisted.
type Customer struct {
	ID          CustomerID `json:"id"`
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	DateCreated string     `json:"date_created"`
	TotalSpent  string     `json:"total_spent"`
	OrdersCount int        `json:"orders_count"`
	Billing     Address    `json:"billing"`
	AvatarURL   string     `json:"avatar_url"`
	IsGuest     bool       `json:"is_guest"`
}

// CustomerFromRegistered converts a WooCommerce account into the merged view.
func CustomerFromRegistered(c WooCustomer) Customer {
	return Customer{
		ID:          RegisteredCustomerID(c.ID),
		Email:       c.Email,
		FirstName:   c.FirstName,
		LastName:    c.LastName,
		DateCreated: c.DateCreated,
		TotalSpent:  c.TotalSpent,
		OrdersCount: c.OrdersCount,
		Billing:     c.Billing,
		AvatarURL:   c.AvatarURL,
		IsGuest:     false,
	}
}

// CustomerFromOrder builds a merged record from the first order seen for an email.
func CustomerFromOrder(o WooOrder) Customer {
	id := RegisteredCustomerID(o.CustomerID)
	if o.IsGuest() {
		id = GuestCustomerID(o.ID)
	}
	return Customer{
		ID:          id,
		Email:       o.Billing.Email,
		FirstName:   o.Billing.FirstName,
		LastName:    o.Billing.LastName,
		DateCreated: o.DateCreated,
		TotalSpent:  o.Total,
		OrdersCount: 1,
		Billing:     o.Billing,
		IsGuest:     o.IsGuest(),
	}
}
