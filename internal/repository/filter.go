package repository

import (
	"sort"
	"strings"

	"storybook-service/internal/models"
)

const (
	defaultOrdersPerPage = 20
	maxOrdersPerPage     = 100
)

// NormalizePaging clamps page and perPage for order listings.
func NormalizePaging(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultOrdersPerPage
	}
	if perPage > maxOrdersPerPage {
		perPage = maxOrdersPerPage
	}
	return page, perPage
}

// PastLastPage reports whether page starts at or beyond total items.
// It never multiplies page by perPage, so any page value is safe.
func PastLastPage(page, perPage int, total int64) bool {
	pages := (total + int64(perPage) - 1) / int64(perPage)
	return int64(page-1) >= pages
}

// MatchOrder applies an OrderFilter to a single order. Search is a
// case-insensitive substring match on order number, email and name.
func MatchOrder(o *models.Order, f models.OrderFilter) bool {
	if f.Stage != "" && o.Stage != f.Stage {
		return false
	}
	if f.VendorID != "" && o.VendorID != f.VendorID {
		return false
	}
	if f.StoryID != "" && o.StoryID != f.StoryID {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		if !strings.Contains(strings.ToLower(o.OrderNumber), q) &&
			!strings.Contains(strings.ToLower(o.CustomerEmail), q) &&
			!strings.Contains(strings.ToLower(o.CustomerName), q) {
			return false
		}
	}
	return true
}

// FilterOrders filters, sorts newest first and pages an in-memory order list.
// Backends without rich query support (Firestore, memory) share it.
func FilterOrders(all []models.Order, f models.OrderFilter) ([]models.Order, int64) {
	matched := make([]models.Order, 0, len(all))
	for i := range all {
		if MatchOrder(&all[i], f) {
			matched = append(matched, all[i])
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	page, perPage := NormalizePaging(f.Page, f.PerPage)
	if PastLastPage(page, perPage, total) {
		return []models.Order{}, total
	}
	start := (page - 1) * perPage
	end := start + perPage
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total
}

// MatchStory applies a StoryFilter to a single story.
func MatchStory(s *models.Story, f models.StoryFilter) bool {
	if f.OrderID != "" && s.OrderID != f.OrderID {
		return false
	}
	if f.Status != "" && s.Status != f.Status {
		return false
	}
	return true
}

// NormalizeEmail is the lookup key for invite and user emails.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
