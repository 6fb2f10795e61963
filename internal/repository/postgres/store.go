// Package postgres implements repository.Store on PostgreSQL with gorm.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"storybook-service/internal/models"
	"storybook-service/internal/repository"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// OrderRow is the orders table. Nested structures are stored as JSONB.
type OrderRow struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey"`
	WooOrderID     *int64         `gorm:"uniqueIndex"`
	OrderNumber    string         `gorm:"index;not null"`
	CustomerEmail  string         `gorm:"index"`
	CustomerName   string
	Billing        datatypes.JSON `gorm:"type:jsonb"`
	Shipping       datatypes.JSON `gorm:"type:jsonb"`
	LineItems      datatypes.JSON `gorm:"type:jsonb"`
	Total          string
	Currency       string
	StoryID        string `gorm:"index"`
	VendorID       string `gorm:"index"`
	Stage          string `gorm:"index;not null;default:'pending'"`
	StageHistory   datatypes.JSON `gorm:"type:jsonb"`
	Assets         datatypes.JSON `gorm:"type:jsonb"`
	Notes          string
	TrackingNumber string
	CreatedAt      time.Time `gorm:"index"`
	UpdatedAt      time.Time
}

func (OrderRow) TableName() string { return "orders" }

// StoryRow is the stories table.
type StoryRow struct {
	ID                 uuid.UUID      `gorm:"type:uuid;primaryKey"`
	Title              string         `gorm:"not null"`
	ChildName          string
	OrderID            string         `gorm:"index"`
	Pages              datatypes.JSON `gorm:"type:jsonb"`
	CoverImageKey      string
	PDFKey             string
	VoiceRecordingKeys pq.StringArray `gorm:"type:text[]"`
	Status             string         `gorm:"index;default:'draft'"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (StoryRow) TableName() string { return "stories" }

// InviteRow is the invites table.
type InviteRow struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email      string    `gorm:"index;not null"`
	Role       string    `gorm:"not null"`
	VendorName string
	Status     string `gorm:"index;not null"`
	Token      string
	InvitedBy  string
	AcceptedBy string
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

func (InviteRow) TableName() string { return "invites" }

// UserRow is the users table.
type UserRow struct {
	UID         string `gorm:"primaryKey"`
	Email       string `gorm:"index"`
	DisplayName string
	Role        string `gorm:"index;not null"`
	VendorID    string `gorm:"index"`
	VendorName  string
	CreatedAt   time.Time
}

func (UserRow) TableName() string { return "users" }

// Open connects to PostgreSQL with the pool settings used across services.
func Open(databaseURL string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// AutoMigrate creates or updates the tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&OrderRow{}, &StoryRow{}, &InviteRow{}, &UserRow{})
}

// NewStore wraps a connected gorm DB.
func NewStore(db *gorm.DB) *repository.Store {
	return &repository.Store{
		Orders:  &OrderRepository{db: db},
		Stories: &StoryRepository{db: db},
		Invites: &InviteRepository{db: db},
		Users:   &UserRepository{db: db},
		Ping: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		Close: func() error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	}
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repository.ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return repository.ErrConflict
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return repository.ErrConflict
	}
	// pgx surfaces unique violations as text
	if strings.Contains(err.Error(), "SQLSTATE 23505") {
		return repository.ErrConflict
	}
	return err
}

func toJSON(v interface{}) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("null")
	}
	return datatypes.JSON(data)
}

func fromJSON(data datatypes.JSON, v interface{}) {
	if len(data) == 0 {
		return
	}
	_ = json.Unmarshal(data, v)
}

func parseID(id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, repository.ErrNotFound
	}
	return parsed, nil
}

// ===========================================
// Orders
// ===========================================

// OrderRepository handles order data operations
type OrderRepository struct {
	db *gorm.DB
}

func orderToRow(o *models.Order) (*OrderRow, error) {
	id := uuid.New()
	if o.ID != "" {
		parsed, err := uuid.Parse(o.ID)
		if err != nil {
			return nil, fmt.Errorf("invalid order id %q: %w", o.ID, err)
		}
		id = parsed
	}
	var wooID *int64
	if o.WooOrderID != 0 {
		w := o.WooOrderID
		wooID = &w
	}
	return &OrderRow{
		ID:             id,
		WooOrderID:     wooID,
		OrderNumber:    o.OrderNumber,
		CustomerEmail:  o.CustomerEmail,
		CustomerName:   o.CustomerName,
		Billing:        toJSON(o.Billing),
		Shipping:       toJSON(o.Shipping),
		LineItems:      toJSON(o.LineItems),
		Total:          o.Total,
		Currency:       o.Currency,
		StoryID:        o.StoryID,
		VendorID:       o.VendorID,
		Stage:          string(o.Stage),
		StageHistory:   toJSON(o.StageHistory),
		Assets:         toJSON(o.Assets),
		Notes:          o.Notes,
		TrackingNumber: o.TrackingNumber,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}, nil
}

func rowToOrder(r *OrderRow) models.Order {
	o := models.Order{
		ID:             r.ID.String(),
		OrderNumber:    r.OrderNumber,
		CustomerEmail:  r.CustomerEmail,
		CustomerName:   r.CustomerName,
		Total:          r.Total,
		Currency:       r.Currency,
		StoryID:        r.StoryID,
		VendorID:       r.VendorID,
		Stage:          models.Stage(r.Stage),
		Notes:          r.Notes,
		TrackingNumber: r.TrackingNumber,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
	if r.WooOrderID != nil {
		o.WooOrderID = *r.WooOrderID
	}
	fromJSON(r.Billing, &o.Billing)
	fromJSON(r.Shipping, &o.Shipping)
	fromJSON(r.LineItems, &o.LineItems)
	fromJSON(r.StageHistory, &o.StageHistory)
	fromJSON(r.Assets, &o.Assets)
	if o.StageHistory == nil {
		o.StageHistory = []models.StageChange{}
	}
	return o
}

// Create inserts an order and assigns its id.
func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	row, err := orderToRow(order)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return mapErr(err)
	}
	order.ID = row.ID.String()
	order.CreatedAt = row.CreatedAt
	order.UpdatedAt = row.UpdatedAt
	return nil
}

// GetByID retrieves an order by ID
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	orderID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	var row OrderRow
	if err := r.db.WithContext(ctx).Where("id = ?", orderID).First(&row).Error; err != nil {
		return nil, mapErr(err)
	}
	o := rowToOrder(&row)
	return &o, nil
}

// GetByWooOrderID retrieves the order imported from a WooCommerce order
func (r *OrderRepository) GetByWooOrderID(ctx context.Context, wooOrderID int64) (*models.Order, error) {
	var row OrderRow
	if err := r.db.WithContext(ctx).Where("woo_order_id = ?", wooOrderID).First(&row).Error; err != nil {
		return nil, mapErr(err)
	}
	o := rowToOrder(&row)
	return &o, nil
}

// ImportedWooIDs reports which WooCommerce ids are already imported in a single query
func (r *OrderRepository) ImportedWooIDs(ctx context.Context, wooOrderIDs []int64) (map[int64]bool, error) {
	imported := make(map[int64]bool)
	if len(wooOrderIDs) == 0 {
		return imported, nil
	}
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&OrderRow{}).
		Where("woo_order_id IN ?", wooOrderIDs).
		Pluck("woo_order_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to look up imported orders: %w", err)
	}
	for _, id := range ids {
		imported[id] = true
	}
	return imported, nil
}

// List retrieves orders with filters and pagination
func (r *OrderRepository) List(ctx context.Context, filter models.OrderFilter) ([]models.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&OrderRow{})

	if filter.Stage != "" {
		query = query.Where("stage = ?", string(filter.Stage))
	}
	if filter.VendorID != "" {
		query = query.Where("vendor_id = ?", filter.VendorID)
	}
	if filter.StoryID != "" {
		query = query.Where("story_id = ?", filter.StoryID)
	}
	if filter.Search != "" {
		search := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(order_number) LIKE ? OR LOWER(customer_email) LIKE ? OR LOWER(customer_name) LIKE ?",
			search, search, search)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	page, perPage := repository.NormalizePaging(filter.Page, filter.PerPage)
	if repository.PastLastPage(page, perPage, total) {
		return []models.Order{}, total, nil
	}
	var rows []OrderRow
	err := query.Order("created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&rows).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}

	orders := make([]models.Order, 0, len(rows))
	for i := range rows {
		orders = append(orders, rowToOrder(&rows[i]))
	}
	return orders, total, nil
}

// Update saves all fields of an existing order
func (r *OrderRepository) Update(ctx context.Context, order *models.Order) error {
	row, err := orderToRow(order)
	if err != nil {
		return err
	}
	row.UpdatedAt = time.Now().UTC()
	result := r.db.WithContext(ctx).Model(&OrderRow{}).Where("id = ?", row.ID).Select("*").Omit("created_at").Updates(row)
	if result.Error != nil {
		return mapErr(result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	order.UpdatedAt = row.UpdatedAt
	return nil
}

// Delete removes an order
func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	orderID, err := parseID(id)
	if err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Where("id = ?", orderID).Delete(&OrderRow{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ===========================================
// Stories
// ===========================================

// StoryRepository handles story data operations
type StoryRepository struct {
	db *gorm.DB
}

func storyToRow(s *models.Story) (*StoryRow, error) {
	id := uuid.New()
	if s.ID != "" {
		parsed, err := uuid.Parse(s.ID)
		if err != nil {
			return nil, fmt.Errorf("invalid story id %q: %w", s.ID, err)
		}
		id = parsed
	}
	return &StoryRow{
		ID:                 id,
		Title:              s.Title,
		ChildName:          s.ChildName,
		OrderID:            s.OrderID,
		Pages:              toJSON(s.Pages),
		CoverImageKey:      s.CoverImageKey,
		PDFKey:             s.PDFKey,
		VoiceRecordingKeys: pq.StringArray(s.VoiceRecordingKeys),
		Status:             string(s.Status),
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}, nil
}

func rowToStory(r *StoryRow) models.Story {
	s := models.Story{
		ID:                 r.ID.String(),
		Title:              r.Title,
		ChildName:          r.ChildName,
		OrderID:            r.OrderID,
		CoverImageKey:      r.CoverImageKey,
		PDFKey:             r.PDFKey,
		VoiceRecordingKeys: []string(r.VoiceRecordingKeys),
		Status:             models.StoryStatus(r.Status),
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
	fromJSON(r.Pages, &s.Pages)
	if s.Pages == nil {
		s.Pages = []models.StoryPage{}
	}
	if s.VoiceRecordingKeys == nil {
		s.VoiceRecordingKeys = []string{}
	}
	return s
}

func (r *StoryRepository) Create(ctx context.Context, story *models.Story) error {
	row, err := storyToRow(story)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return mapErr(err)
	}
	story.ID = row.ID.String()
	story.CreatedAt = row.CreatedAt
	story.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *StoryRepository) GetByID(ctx context.Context, id string) (*models.Story, error) {
	storyID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	var row StoryRow
	if err := r.db.WithContext(ctx).Where("id = ?", storyID).First(&row).Error; err != nil {
		return nil, mapErr(err)
	}
	s := rowToStory(&row)
	return &s, nil
}

func (r *StoryRepository) List(ctx context.Context, filter models.StoryFilter) ([]models.Story, error) {
	query := r.db.WithContext(ctx).Model(&StoryRow{})
	if filter.OrderID != "" {
		query = query.Where("order_id = ?", filter.OrderID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	var rows []StoryRow
	if err := query.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}
	stories := make([]models.Story, 0, len(rows))
	for i := range rows {
		stories = append(stories, rowToStory(&rows[i]))
	}
	return stories, nil
}

func (r *StoryRepository) Update(ctx context.Context, story *models.Story) error {
	row, err := storyToRow(story)
	if err != nil {
		return err
	}
	row.UpdatedAt = time.Now().UTC()
	result := r.db.WithContext(ctx).Model(&StoryRow{}).Where("id = ?", row.ID).Select("*").Omit("created_at").Updates(row)
	if result.Error != nil {
		return mapErr(result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	story.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *StoryRepository) Delete(ctx context.Context, id string) error {
	storyID, err := parseID(id)
	if err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Where("id = ?", storyID).Delete(&StoryRow{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ===========================================
// Invites
// ===========================================

// InviteRepository handles invite data operations
type InviteRepository struct {
	db *gorm.DB
}

func rowToInvite(r *InviteRow) models.Invite {
	return models.Invite{
		ID:         r.ID.String(),
		Email:      r.Email,
		Role:       models.Role(r.Role),
		VendorName: r.VendorName,
		Status:     models.InviteStatus(r.Status),
		Token:      r.Token,
		InvitedBy:  r.InvitedBy,
		AcceptedBy: r.AcceptedBy,
		ExpiresAt:  r.ExpiresAt,
		CreatedAt:  r.CreatedAt,
	}
}

func inviteToRow(inv *models.Invite) (*InviteRow, error) {
	id := uuid.New()
	if inv.ID != "" {
		parsed, err := uuid.Parse(inv.ID)
		if err != nil {
			return nil, fmt.Errorf("invalid invite id %q: %w", inv.ID, err)
		}
		id = parsed
	}
	return &InviteRow{
		ID:         id,
		Email:      inv.Email,
		Role:       string(inv.Role),
		VendorName: inv.VendorName,
		Status:     string(inv.Status),
		Token:      inv.Token,
		InvitedBy:  inv.InvitedBy,
		AcceptedBy: inv.AcceptedBy,
		ExpiresAt:  inv.ExpiresAt,
		CreatedAt:  inv.CreatedAt,
	}, nil
}

func (r *InviteRepository) Create(ctx context.Context, invite *models.Invite) error {
	row, err := inviteToRow(invite)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return mapErr(err)
	}
	invite.ID = row.ID.String()
	invite.CreatedAt = row.CreatedAt
	return nil
}

func (r *InviteRepository) GetByID(ctx context.Context, id string) (*models.Invite, error) {
	inviteID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	var row InviteRow
	if err := r.db.WithContext(ctx).Where("id = ?", inviteID).First(&row).Error; err != nil {
		return nil, mapErr(err)
	}
	inv := rowToInvite(&row)
	return &inv, nil
}

func (r *InviteRepository) FindPendingByEmail(ctx context.Context, email string) (*models.Invite, error) {
	var row InviteRow
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = ? AND status = ?", repository.NormalizeEmail(email), string(models.InviteStatusPending)).
		First(&row).Error
	if err != nil {
		return nil, mapErr(err)
	}
	inv := rowToInvite(&row)
	return &inv, nil
}

func (r *InviteRepository) List(ctx context.Context) ([]models.Invite, error) {
	var rows []InviteRow
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list invites: %w", err)
	}
	invites := make([]models.Invite, 0, len(rows))
	for i := range rows {
		invites = append(invites, rowToInvite(&rows[i]))
	}
	return invites, nil
}

func (r *InviteRepository) Update(ctx context.Context, invite *models.Invite) error {
	row, err := inviteToRow(invite)
	if err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Model(&InviteRow{}).Where("id = ?", row.ID).Select("*").Omit("created_at").Updates(row)
	if result.Error != nil {
		return mapErr(result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *InviteRepository) Delete(ctx context.Context, id string) error {
	inviteID, err := parseID(id)
	if err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Where("id = ?", inviteID).Delete(&InviteRow{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ===========================================
// Users
// ===========================================

// UserRepository handles user data operations
type UserRepository struct {
	db *gorm.DB
}

func rowToUser(r *UserRow) models.User {
	return models.User{
		UID:         r.UID,
		Email:       r.Email,
		DisplayName: r.DisplayName,
		Role:        models.Role(r.Role),
		VendorID:    r.VendorID,
		VendorName:  r.VendorName,
		CreatedAt:   r.CreatedAt,
	}
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	row := &UserRow{
		UID:         user.UID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Role:        string(user.Role),
		VendorID:    user.VendorID,
		VendorName:  user.VendorName,
		CreatedAt:   user.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return mapErr(err)
	}
	user.CreatedAt = row.CreatedAt
	return nil
}

func (r *UserRepository) GetByUID(ctx context.Context, uid string) (*models.User, error) {
	var row UserRow
	if err := r.db.WithContext(ctx).Where("uid = ?", uid).First(&row).Error; err != nil {
		return nil, mapErr(err)
	}
	u := rowToUser(&row)
	return &u, nil
}

func (r *UserRepository) ListByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	query := r.db.WithContext(ctx).Model(&UserRow{})
	if role != "" {
		query = query.Where("role = ?", string(role))
	}
	var rows []UserRow
	if err := query.Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	users := make([]models.User, 0, len(rows))
	for i := range rows {
		users = append(users, rowToUser(&rows[i]))
	}
	return users, nil
}
