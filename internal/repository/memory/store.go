// Package memory provides an in-process repository.Store, optionally
// persisted to a JSON snapshot file for local development.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"storybook-service/internal/models"
	"storybook-service/internal/repository"
)

// collection is a thread-safe map that remembers insertion order.
type collection[T any] struct {
	items map[string]T
	order []string
}

func newCollection[T any]() *collection[T] {
	return &collection[T]{items: make(map[string]T)}
}

func (c *collection[T]) set(id string, item T) {
	if _, exists := c.items[id]; !exists {
		c.order = append(c.order, id)
	}
	c.items[id] = item
}

func (c *collection[T]) get(id string) (T, bool) {
	item, ok := c.items[id]
	return item, ok
}

func (c *collection[T]) delete(id string) bool {
	if _, exists := c.items[id]; !exists {
		return false
	}
	delete(c.items, id)
	for i, oid := range c.order {
		if oid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

func (c *collection[T]) list() []T {
	out := make([]T, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.items[id])
	}
	return out
}

// snapshot is the on-disk form of the store.
type snapshot struct {
	Orders  []models.Order  `json:"orders"`
	Stories []models.Story  `json:"stories"`
	Invites []models.Invite `json:"invites"`
	Users   []models.User   `json:"users"`
}

// DB holds all collections behind one lock.
type DB struct {
	mu      sync.RWMutex
	orders  *collection[models.Order]
	stories *collection[models.Story]
	invites *collection[models.Invite]
	users   *collection[models.User]

	path   string
	logger *logrus.Entry
}

// NewStore returns a Store backed by memory. If path is non-empty the
// snapshot at path is loaded and rewritten after every mutation.
func NewStore(path string, logger *logrus.Logger) (*repository.Store, error) {
	db := &DB{
		orders:  newCollection[models.Order](),
		stories: newCollection[models.Story](),
		invites: newCollection[models.Invite](),
		users:   newCollection[models.User](),
		path:    path,
		logger:  logger.WithField("component", "memory_store"),
	}
	if path != "" {
		if err := db.load(); err != nil {
			return nil, err
		}
	}
	return &repository.Store{
		Orders:  &orderRepo{db: db},
		Stories: &storyRepo{db: db},
		Invites: &inviteRepo{db: db},
		Users:   &userRepo{db: db},
	}, nil
}

func (db *DB) load() error {
	data, err := os.ReadFile(db.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("failed to parse snapshot %s: %w", db.path, err)
	}
	for _, o := range snap.Orders {
		db.orders.set(o.ID, o)
	}
	for _, s := range snap.Stories {
		db.stories.set(s.ID, s)
	}
	for _, i := range snap.Invites {
		db.invites.set(i.ID, i)
	}
	for _, u := range snap.Users {
		db.users.set(u.UID, u)
	}
	db.logger.WithFields(logrus.Fields{
		"orders":  len(snap.Orders),
		"stories": len(snap.Stories),
		"users":   len(snap.Users),
	}).Info("Loaded snapshot")
	return nil
}

// persist must be called with mu held.
func (db *DB) persist() {
	if db.path == "" {
		return
	}
	snap := snapshot{
		Orders:  db.orders.list(),
		Stories: db.stories.list(),
		Invites: db.invites.list(),
		Users:   db.users.list(),
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		db.logger.WithError(err).Error("Failed to encode snapshot")
		return
	}
	if err := os.MkdirAll(filepath.Dir(db.path), 0o755); err != nil {
		db.logger.WithError(err).Error("Failed to create snapshot directory")
		return
	}
	tmp := db.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		db.logger.WithError(err).Error("Failed to write snapshot")
		return
	}
	if err := os.Rename(tmp, db.path); err != nil {
		db.logger.WithError(err).Error("Failed to replace snapshot")
	}
}

// orderRepo

type orderRepo struct{ db *DB }

func (r *orderRepo) Create(ctx context.Context, order *models.Order) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if _, exists := r.db.orders.get(order.ID); exists {
		return repository.ErrConflict
	}
	if order.WooOrderID != 0 {
		for _, o := range r.db.orders.items {
			if o.WooOrderID == order.WooOrderID {
				return repository.ErrConflict
			}
		}
	}
	now := time.Now().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now
	r.db.orders.set(order.ID, *order)
	r.db.persist()
	return nil
}

func (r *orderRepo) GetByID(ctx context.Context, id string) (*models.Order, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	o, ok := r.db.orders.get(id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &o, nil
}

func (r *orderRepo) GetByWooOrderID(ctx context.Context, wooOrderID int64) (*models.Order, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	for _, o := range r.db.orders.items {
		if o.WooOrderID == wooOrderID {
			found := o
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *orderRepo) ImportedWooIDs(ctx context.Context, wooOrderIDs []int64) (map[int64]bool, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	want := make(map[int64]bool, len(wooOrderIDs))
	for _, id := range wooOrderIDs {
		want[id] = true
	}
	imported := make(map[int64]bool)
	for _, o := range r.db.orders.items {
		if o.WooOrderID != 0 && want[o.WooOrderID] {
			imported[o.WooOrderID] = true
		}
	}
	return imported, nil
}

func (r *orderRepo) List(ctx context.Context, filter models.OrderFilter) ([]models.Order, int64, error) {
	r.db.mu.RLock()
	all := r.db.orders.list()
	r.db.mu.RUnlock()
	orders, total := repository.FilterOrders(all, filter)
	return orders, total, nil
}

func (r *orderRepo) Update(ctx context.Context, order *models.Order) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.orders.get(order.ID); !ok {
		return repository.ErrNotFound
	}
	order.UpdatedAt = time.Now().UTC()
	r.db.orders.set(order.ID, *order)
	r.db.persist()
	return nil
}

func (r *orderRepo) Delete(ctx context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if !r.db.orders.delete(id) {
		return repository.ErrNotFound
	}
	r.db.persist()
	return nil
}

// storyRepo

type storyRepo struct{ db *DB }

func (r *storyRepo) Create(ctx context.Context, story *models.Story) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if story.ID == "" {
		story.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	story.CreatedAt = now
	story.UpdatedAt = now
	r.db.stories.set(story.ID, *story)
	r.db.persist()
	return nil
}

func (r *storyRepo) GetByID(ctx context.Context, id string) (*models.Story, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	s, ok := r.db.stories.get(id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (r *storyRepo) List(ctx context.Context, filter models.StoryFilter) ([]models.Story, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	out := make([]models.Story, 0)
	for _, s := range r.db.stories.list() {
		if repository.MatchStory(&s, filter) {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *storyRepo) Update(ctx context.Context, story *models.Story) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.stories.get(story.ID); !ok {
		return repository.ErrNotFound
	}
	story.UpdatedAt = time.Now().UTC()
	r.db.stories.set(story.ID, *story)
	r.db.persist()
	return nil
}

func (r *storyRepo) Delete(ctx context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if !r.db.stories.delete(id) {
		return repository.ErrNotFound
	}
	r.db.persist()
	return nil
}

// inviteRepo

type inviteRepo struct{ db *DB }

func (r *inviteRepo) Create(ctx context.Context, invite *models.Invite) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if invite.ID == "" {
		invite.ID = uuid.New().String()
	}
	if invite.CreatedAt.IsZero() {
		invite.CreatedAt = time.Now().UTC()
	}
	r.db.invites.set(invite.ID, *invite)
	r.db.persist()
	return nil
}

func (r *inviteRepo) GetByID(ctx context.Context, id string) (*models.Invite, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	inv, ok := r.db.invites.get(id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &inv, nil
}

func (r *inviteRepo) FindPendingByEmail(ctx context.Context, email string) (*models.Invite, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	key := repository.NormalizeEmail(email)
	for _, inv := range r.db.invites.list() {
		if inv.Status == models.InviteStatusPending && repository.NormalizeEmail(inv.Email) == key {
			found := inv
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *inviteRepo) List(ctx context.Context) ([]models.Invite, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	out := r.db.invites.list()
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *inviteRepo) Update(ctx context.Context, invite *models.Invite) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.invites.get(invite.ID); !ok {
		return repository.ErrNotFound
	}
	r.db.invites.set(invite.ID, *invite)
	r.db.persist()
	return nil
}

func (r *inviteRepo) Delete(ctx context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if !r.db.invites.delete(id) {
		return repository.ErrNotFound
	}
	r.db.persist()
	return nil
}

// userRepo

type userRepo struct{ db *DB }

func (r *userRepo) Create(ctx context.Context, user *models.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, exists := r.db.users.get(user.UID); exists {
		return repository.ErrConflict
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	r.db.users.set(user.UID, *user)
	r.db.persist()
	return nil
}

func (r *userRepo) GetByUID(ctx context.Context, uid string) (*models.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	u, ok := r.db.users.get(uid)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *userRepo) ListByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	out := make([]models.User, 0)
	for _, u := range r.db.users.list() {
		if role == "" || u.Role == role {
			out = append(out, u)
		}
	}
	return out, nil
}
