package repository

import (
	"context"
	"errors"

	"storybook-service/internal/models"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

// OrderRepository persists print orders.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	GetByWooOrderID(ctx context.Context, wooOrderID int64) (*models.Order, error)
	// ImportedWooIDs returns which of the given WooCommerce ids already have an internal order.
	ImportedWooIDs(ctx context.Context, wooOrderIDs []int64) (map[int64]bool, error)
	List(ctx context.Context, filter models.OrderFilter) ([]models.Order, int64, error)
	Update(ctx context.Context, order *models.Order) error
	Delete(ctx context.Context, id string) error
}

// StoryRepository persists storybook content.
type StoryRepository interface {
	Create(ctx context.Context, story *models.Story) error
	GetByID(ctx context.Context, id string) (*models.Story, error)
	List(ctx context.Context, filter models.StoryFilter) ([]models.Story, error)
	Update(ctx context.Context, story *models.Story) error
	Delete(ctx context.Context, id string) error
}

// InviteRepository persists back-office invitations.
type InviteRepository interface {
	Create(ctx context.Context, invite *models.Invite) error
	GetByID(ctx context.Context, id string) (*models.Invite, error)
	FindPendingByEmail(ctx context.Context, email string) (*models.Invite, error)
	List(ctx context.Context) ([]models.Invite, error)
	Update(ctx context.Context, invite *models.Invite) error
	Delete(ctx context.Context, id string) error
}

// UserRepository persists back-office users keyed by auth uid.
type UserRepository interface {
	// Create fails with ErrConflict if the uid already exists.
	Create(ctx context.Context, user *models.User) error
	GetByUID(ctx context.Context, uid string) (*models.User, error)
	ListByRole(ctx context.Context, role models.Role) ([]models.User, error)
}

// Store groups the repositories of one storage backend.
type Store struct {
	Orders  OrderRepository
	Stories StoryRepository
	Invites InviteRepository
	Users   UserRepository

	// Ping reports backend health. Close releases connections. Both may be nil.
	Ping  func(ctx context.Context) error
	Close func() error
}

// Health pings the backend if it supports it.
func (s *Store) Health(ctx context.Context) error {
	if s.Ping == nil {
		return nil
	}
	return s.Ping(ctx)
}

// Shutdown closes the backend if it holds connections.
func (s *Store) Shutdown() error {
	if s.Close == nil {
		return nil
	}
	return s.Close()
}
