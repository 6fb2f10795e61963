// Package firestore implements repository.Store on Cloud Firestore, using
// the users, orders, invites and stories collections.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"storybook-service/internal/models"
	"storybook-service/internal/repository"
)

const (
	ordersCollection  = "orders"
	storiesCollection = "stories"
	invitesCollection = "invites"
	usersCollection   = "users"

	// Firestore caps "in" filters at 30 values.
	maxInValues = 30
)

// NewStore wraps a Firestore client.
func NewStore(client *firestore.Client) *repository.Store {
	return &repository.Store{
		Orders:  &orderRepo{client: client},
		Stories: &storyRepo{client: client},
		Invites: &inviteRepo{client: client},
		Users:   &userRepo{client: client},
		Close:   client.Close,
	}
}

func mapErr(err error) error {
	switch status.Code(err) {
	case codes.NotFound:
		return repository.ErrNotFound
	case codes.AlreadyExists:
		return repository.ErrConflict
	}
	return err
}

// getAll drains a query into typed values, setting ids through setID.
func getAll[T any](ctx context.Context, q firestore.Query, setID func(*T, string)) ([]T, error) {
	iter := q.Documents(ctx)
	defer iter.Stop()

	out := make([]T, 0)
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		var v T
		if err := doc.DataTo(&v); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", doc.Ref.ID, err)
		}
		setID(&v, doc.Ref.ID)
		out = append(out, v)
	}
	return out, nil
}

// ===========================================
// Orders
// ===========================================

type orderRepo struct {
	client *firestore.Client
}

func setOrderID(o *models.Order, id string) { o.ID = id }

func (r *orderRepo) col() *firestore.CollectionRef {
	return r.client.Collection(ordersCollection)
}

// orderDocID is the document id for a new order. Imported orders are keyed
// by their WooCommerce id so concurrent imports collide on Create.
func orderDocID(order *models.Order) string {
	if order.WooOrderID != 0 {
		return fmt.Sprintf("woo-%d", order.WooOrderID)
	}
	return order.ID
}

func (r *orderRepo) Create(ctx context.Context, order *models.Order) error {
	if order.WooOrderID != 0 {
		// Orders stored before woo-keyed ids still need the query lookup.
		_, err := r.GetByWooOrderID(ctx, order.WooOrderID)
		if err == nil {
			return repository.ErrConflict
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
	}
	ref := r.col().NewDoc()
	if id := orderDocID(order); id != "" {
		ref = r.col().Doc(id)
	}
	if _, err := ref.Create(ctx, order); err != nil {
		return mapErr(err)
	}
	order.ID = ref.ID
	return nil
}

func (r *orderRepo) GetByID(ctx context.Context, id string) (*models.Order, error) {
	snap, err := r.col().Doc(id).Get(ctx)
	if err != nil {
		return nil, mapErr(err)
	}
	var o models.Order
	if err := snap.DataTo(&o); err != nil {
		return nil, fmt.Errorf("failed to decode order %s: %w", id, err)
	}
	o.ID = snap.Ref.ID
	return &o, nil
}

func (r *orderRepo) GetByWooOrderID(ctx context.Context, wooOrderID int64) (*models.Order, error) {
	orders, err := getAll(ctx, r.col().Where("woo_order_id", "==", wooOrderID).Limit(1), setOrderID)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, repository.ErrNotFound
	}
	return &orders[0], nil
}

func (r *orderRepo) ImportedWooIDs(ctx context.Context, wooOrderIDs []int64) (map[int64]bool, error) {
	imported := make(map[int64]bool)
	for start := 0; start < len(wooOrderIDs); start += maxInValues {
		end := start + maxInValues
		if end > len(wooOrderIDs) {
			end = len(wooOrderIDs)
		}
		chunk := make([]interface{}, 0, end-start)
		for _, id := range wooOrderIDs[start:end] {
			chunk = append(chunk, id)
		}
		orders, err := getAll(ctx, r.col().Where("woo_order_id", "in", chunk), setOrderID)
		if err != nil {
			return nil, fmt.Errorf("failed to look up imported orders: %w", err)
		}
		for _, o := range orders {
			imported[o.WooOrderID] = true
		}
	}
	return imported, nil
}

// List pushes equality filters to Firestore and applies search and paging in memory.
func (r *orderRepo) List(ctx context.Context, filter models.OrderFilter) ([]models.Order, int64, error) {
	q := r.col().Query
	if filter.Stage != "" {
		q = q.Where("stage", "==", string(filter.Stage))
	}
	if filter.VendorID != "" {
		q = q.Where("vendor_id", "==", filter.VendorID)
	}
	all, err := getAll(ctx, q, setOrderID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	orders, total := repository.FilterOrders(all, filter)
	return orders, total, nil
}

func (r *orderRepo) Update(ctx context.Context, order *models.Order) error {
	ref := r.col().Doc(order.ID)
	if _, err := ref.Get(ctx); err != nil {
		return mapErr(err)
	}
	if _, err := ref.Set(ctx, order); err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	return nil
}

func (r *orderRepo) Delete(ctx context.Context, id string) error {
	ref := r.col().Doc(id)
	if _, err := ref.Delete(ctx, firestore.Exists); err != nil {
		return mapErr(err)
	}
	return nil
}

// ===========================================
// Stories
// ===========================================

type storyRepo struct {
	client *firestore.Client
}

func setStoryID(s *models.Story, id string) { s.ID = id }

func (r *storyRepo) col() *firestore.CollectionRef {
	return r.client.Collection(storiesCollection)
}

func (r *storyRepo) Create(ctx context.Context, story *models.Story) error {
	ref := r.col().NewDoc()
	if story.ID != "" {
		ref = r.col().Doc(story.ID)
	}
	if _, err := ref.Create(ctx, story); err != nil {
		return mapErr(err)
	}
	story.ID = ref.ID
	return nil
}

func (r *storyRepo) GetByID(ctx context.Context, id string) (*models.Story, error) {
	snap, err := r.col().Doc(id).Get(ctx)
	if err != nil {
		return nil, mapErr(err)
	}
	var s models.Story
	if err := snap.DataTo(&s); err != nil {
		return nil, fmt.Errorf("failed to decode story %s: %w", id, err)
	}
	s.ID = snap.Ref.ID
	return &s, nil
}

func (r *storyRepo) List(ctx context.Context, filter models.StoryFilter) ([]models.Story, error) {
	q := r.col().Query
	if filter.OrderID != "" {
		q = q.Where("order_id", "==", filter.OrderID)
	}
	if filter.Status != "" {
		q = q.Where("status", "==", string(filter.Status))
	}
	stories, err := getAll(ctx, q, setStoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}
	sort.SliceStable(stories, func(i, j int) bool { return stories[i].CreatedAt.After(stories[j].CreatedAt) })
	return stories, nil
}

func (r *storyRepo) Update(ctx context.Context, story *models.Story) error {
	ref := r.col().Doc(story.ID)
	if _, err := ref.Get(ctx); err != nil {
		return mapErr(err)
	}
	if _, err := ref.Set(ctx, story); err != nil {
		return fmt.Errorf("failed to update story: %w", err)
	}
	return nil
}

func (r *storyRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.col().Doc(id).Delete(ctx, firestore.Exists); err != nil {
		return mapErr(err)
	}
	return nil
}

// ===========================================
// Invites
// ===========================================

type inviteRepo struct {
	client *firestore.Client
}

func setInviteID(i *models.Invite, id string) { i.ID = id }

func (r *inviteRepo) col() *firestore.CollectionRef {
	return r.client.Collection(invitesCollection)
}

// Create stores the email lower-cased so pending lookups can use equality.
func (r *inviteRepo) Create(ctx context.Context, invite *models.Invite) error {
	invite.Email = repository.NormalizeEmail(invite.Email)
	ref := r.col().NewDoc()
	if invite.ID != "" {
		ref = r.col().Doc(invite.ID)
	}
	if _, err := ref.Create(ctx, invite); err != nil {
		return mapErr(err)
	}
	invite.ID = ref.ID
	return nil
}

func (r *inviteRepo) GetByID(ctx context.Context, id string) (*models.Invite, error) {
	snap, err := r.col().Doc(id).Get(ctx)
	if err != nil {
		return nil, mapErr(err)
	}
	var inv models.Invite
	if err := snap.DataTo(&inv); err != nil {
		return nil, fmt.Errorf("failed to decode invite %s: %w", id, err)
	}
	inv.ID = snap.Ref.ID
	return &inv, nil
}

func (r *inviteRepo) FindPendingByEmail(ctx context.Context, email string) (*models.Invite, error) {
	q := r.col().
		Where("email", "==", repository.NormalizeEmail(email)).
		Where("status", "==", string(models.InviteStatusPending)).
		Limit(1)
	invites, err := getAll(ctx, q, setInviteID)
	if err != nil {
		return nil, err
	}
	if len(invites) == 0 {
		return nil, repository.ErrNotFound
	}
	return &invites[0], nil
}

func (r *inviteRepo) List(ctx context.Context) ([]models.Invite, error) {
	invites, err := getAll(ctx, r.col().OrderBy("created_at", firestore.Desc), setInviteID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invites: %w", err)
	}
	return invites, nil
}

func (r *inviteRepo) Update(ctx context.Context, invite *models.Invite) error {
	ref := r.col().Doc(invite.ID)
	if _, err := ref.Get(ctx); err != nil {
		return mapErr(err)
	}
	if _, err := ref.Set(ctx, invite); err != nil {
		return fmt.Errorf("failed to update invite: %w", err)
	}
	return nil
}

func (r *inviteRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.col().Doc(id).Delete(ctx, firestore.Exists); err != nil {
		return mapErr(err)
	}
	return nil
}

// ===========================================
// Users
// ===========================================

type userRepo struct {
	client *firestore.Client
}

func setUserID(u *models.User, id string) { u.UID = id }

func (r *userRepo) col() *firestore.CollectionRef {
	return r.client.Collection(usersCollection)
}

func (r *userRepo) Create(ctx context.Context, user *models.User) error {
	if _, err := r.col().Doc(user.UID).Create(ctx, user); err != nil {
		return mapErr(err)
	}
	return nil
}

func (r *userRepo) GetByUID(ctx context.Context, uid string) (*models.User, error) {
	snap, err := r.col().Doc(uid).Get(ctx)
	if err != nil {
		return nil, mapErr(err)
	}
	var u models.User
	if err := snap.DataTo(&u); err != nil {
		return nil, fmt.Errorf("failed to decode user %s: %w", uid, err)
	}
	u.UID = snap.Ref.ID
	return &u, nil
}

func (r *userRepo) ListByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	q := r.col().Query
	if role != "" {
		q = q.Where("role", "==", string(role))
	}
	users, err := getAll(ctx, q, setUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}
