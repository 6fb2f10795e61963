package services

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"storybook-service/internal/models"
)

// CustomerType filters the merged list by account kind.
type CustomerType string

const (
	CustomerTypeAll        CustomerType = "all"
	CustomerTypeRegistered CustomerType = "registered"
	CustomerTypeGuest      CustomerType = "guest"
)

// CustomerSort is the ordering of the merged list.
type CustomerSort string

const (
	SortDateDesc   CustomerSort = "date_desc"
	SortSpendDesc  CustomerSort = "spend_desc"
	SortOrdersDesc CustomerSort = "orders_desc"
)

const (
	DefaultCustomersPerPage = 20
	MaxCustomersPerPage     = 100
)

// ParseCustomerType accepts "", all, registered and guest.
func ParseCustomerType(s string) (CustomerType, error) {
	switch CustomerType(strings.ToLower(strings.TrimSpace(s))) {
	case "", CustomerTypeAll:
		return CustomerTypeAll, nil
	case CustomerTypeRegistered:
		return CustomerTypeRegistered, nil
	case CustomerTypeGuest:
		return CustomerTypeGuest, nil
	}
	return "", fmt.Errorf("%w: invalid customer type %q", ErrValidation, s)
}

// ParseCustomerSort accepts "", date_desc, spend_desc and orders_desc.
func ParseCustomerSort(s string) (CustomerSort, error) {
	switch CustomerSort(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortDateDesc:
		return SortDateDesc, nil
	case SortSpendDesc:
		return SortSpendDesc, nil
	case SortOrdersDesc:
		return SortOrdersDesc, nil
	}
	return "", fmt.Errorf("%w: invalid sort %q", ErrValidation, s)
}

// DropReason explains why a record was left out of the merged list.
type DropReason string

const (
	DropMissingEmail      DropReason = "missing_email"
	DropOrderMissingEmail DropReason = "order_missing_email"
)

// ReconcileOptions configures Reconcile.
type ReconcileOptions struct {
	Type CustomerType
	// OnDrop is called for every input record excluded for lack of an email.
	// id is the WooCommerce customer or order id.
	OnDrop func(reason DropReason, id int64)
}

// Reconcile merges registered customers with the customers implied by orders
// into one record per lower-cased email. Registered customers are inserted
// first; later orders for a known email only fill fields that are still empty.
// The result keeps insertion order.
func Reconcile(customers []models.WooCustomer, orders []models.WooOrder, opts ReconcileOptions) []models.Customer {
	typ := opts.Type
	if typ == "" {
		typ = CustomerTypeAll
	}
	drop := opts.OnDrop
	if drop == nil {
		drop = func(DropReason, int64) {}
	}

	index := make(map[string]int, len(customers)+len(orders))
	merged := make([]models.Customer, 0, len(customers)+len(orders))

	if typ != CustomerTypeGuest {
		for _, c := range customers {
			key := emailKey(c.Email)
			if key == "" {
				drop(DropMissingEmail, c.ID)
				continue
			}
			if i, ok := index[key]; ok {
				backfill(&merged[i], c.FirstName, c.LastName, c.Billing)
				continue
			}
			index[key] = len(merged)
			merged = append(merged, models.CustomerFromRegistered(c))
		}
	}

	for _, o := range orders {
		key := emailKey(o.Billing.Email)
		if key == "" {
			drop(DropOrderMissingEmail, o.ID)
			continue
		}
		if typ == CustomerTypeGuest && !o.IsGuest() {
			continue
		}
		if typ == CustomerTypeRegistered && o.IsGuest() {
			continue
		}
		if i, ok := index[key]; ok {
			backfill(&merged[i], o.Billing.FirstName, o.Billing.LastName, o.Billing)
			continue
		}
		index[key] = len(merged)
		merged = append(merged, models.CustomerFromOrder(o))
	}

	return merged
}

// backfill fills empty name and address fields of an existing record.
// Populated fields are never replaced.
func backfill(existing *models.Customer, firstName, lastName string, billing models.Address) {
	if existing.FirstName == "" && existing.LastName == "" && (firstName != "" || lastName != "") {
		existing.FirstName = firstName
		existing.LastName = lastName
	}
	if existing.Billing.City == "" && billing.City != "" {
		existing.Billing = fillAddress(existing.Billing, billing)
	}
}

func fillAddress(dst, src models.Address) models.Address {
	fill := func(d *string, s string) {
		if *d == "" {
			*d = s
		}
	}
	fill(&dst.FirstName, src.FirstName)
	fill(&dst.LastName, src.LastName)
	fill(&dst.Company, src.Company)
	fill(&dst.Address1, src.Address1)
	fill(&dst.Address2, src.Address2)
	fill(&dst.City, src.City)
	fill(&dst.State, src.State)
	fill(&dst.Postcode, src.Postcode)
	fill(&dst.Country, src.Country)
	fill(&dst.Email, src.Email)
	fill(&dst.Phone, src.Phone)
	return dst
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ListOptions controls ApplyListOptions.
type ListOptions struct {
	MinOrders int
	Sort      CustomerSort
	Page      int
	PerPage   int
}

// Normalize clamps paging to sane values and fills defaults.
func (o ListOptions) Normalize() ListOptions {
	if o.Page < 1 {
		o.Page = 1
	}
	if o.PerPage < 1 {
		o.PerPage = DefaultCustomersPerPage
	}
	if o.PerPage > MaxCustomersPerPage {
		o.PerPage = MaxCustomersPerPage
	}
	if o.Sort == "" {
		o.Sort = SortDateDesc
	}
	if o.MinOrders < 0 {
		o.MinOrders = 0
	}
	return o
}

// CustomerPage is one page of the merged customer list.
type CustomerPage struct {
	Customers  []models.Customer `json:"customers"`
	Total      int               `json:"total"`
	TotalPages int               `json:"totalPages"`
}

// ApplyListOptions filters by order count, sorts, and slices out one page.
// Pages past the end yield an empty slice rather than an error.
func ApplyListOptions(list []models.Customer, opts ListOptions) CustomerPage {
	opts = opts.Normalize()
	filtered := FilterAndSort(list, opts.MinOrders, opts.Sort)

	total := len(filtered)
	totalPages := (total + opts.PerPage - 1) / opts.PerPage

	// Compare before multiplying so a huge page cannot overflow.
	start, end := total, total
	if opts.Page-1 <= total/opts.PerPage {
		start = (opts.Page - 1) * opts.PerPage
		end = start + opts.PerPage
		if start > total {
			start = total
		}
		if end > total {
			end = total
		}
	}

	page := make([]models.Customer, end-start)
	copy(page, filtered[start:end])

	return CustomerPage{
		Customers:  page,
		Total:      total,
		TotalPages: totalPages,
	}
}

// FilterAndSort keeps records with at least minOrders orders and sorts a copy.
func FilterAndSort(list []models.Customer, minOrders int, by CustomerSort) []models.Customer {
	filtered := make([]models.Customer, 0, len(list))
	for _, c := range list {
		if c.OrdersCount >= minOrders {
			filtered = append(filtered, c)
		}
	}
	sortCustomers(filtered, by)
	return filtered
}

func sortCustomers(list []models.Customer, by CustomerSort) {
	switch by {
	case SortSpendDesc:
		keys := make([]decimal.Decimal, len(list))
		for i, c := range list {
			keys[i] = parseSpend(c.TotalSpent)
		}
		sortStableBy(list, keys, func(a, b decimal.Decimal) bool { return a.GreaterThan(b) })
	case SortOrdersDesc:
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].OrdersCount > list[j].OrdersCount
		})
	default:
		keys := make([]time.Time, len(list))
		for i, c := range list {
			keys[i] = parseWooDate(c.DateCreated)
		}
		sortStableBy(list, keys, func(a, b time.Time) bool {
			if a.IsZero() || b.IsZero() {
				return !a.IsZero() && b.IsZero()
			}
			return a.After(b)
		})
	}
}

// sortStableBy sorts list by precomputed keys, keeping the two slices aligned.
func sortStableBy[K any](list []models.Customer, keys []K, less func(a, b K) bool) {
	idx := make([]int, len(list))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return less(keys[idx[i]], keys[idx[j]])
	})
	sorted := make([]models.Customer, len(list))
	for i, k := range idx {
		sorted[i] = list[k]
	}
	copy(list, sorted)
}

func parseSpend(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

var wooDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseWooDate parses WooCommerce dates, which come without a zone in the
// site's local time. Unparseable values yield the zero time.
func parseWooDate(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range wooDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
