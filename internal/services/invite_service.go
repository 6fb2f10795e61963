package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"storybook-service/internal/models"
	"storybook-service/internal/repository"
)

// InviteTTL is how long an invite token stays valid.
const InviteTTL = 7 * 24 * time.Hour

const inviteIssuer = "storybook-service"

// InviteClaims is the payload of an invite token.
type InviteClaims struct {
	InviteID string `json:"invite_id"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

// Identity is an authenticated caller that may not have a user record yet.
type Identity struct {
	UID   string
	Email string
}

// InviteService issues and redeems back-office invitations
type InviteService struct {
	store         *repository.Store
	notifier      Notifier
	secret        []byte
	publicBaseURL string
	logger        *logrus.Entry
	now           func() time.Time
}

// NewInviteService creates a new invite service. notifier may be nil.
func NewInviteService(store *repository.Store, notifier Notifier, secret, publicBaseURL string, logger *logrus.Logger) *InviteService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &InviteService{
		store:         store,
		notifier:      notifier,
		secret:        []byte(secret),
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:        logger.WithField("component", "invite_service"),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// CreateInvite issues a signed invite for an email address
func (s *InviteService) CreateInvite(ctx context.Context, req models.CreateInviteRequest, invitedBy string) (*models.Invite, error) {
	email := repository.NormalizeEmail(req.Email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrValidation)
	}
	if !req.Role.IsValid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, req.Role)
	}
	if req.Role == models.RoleVendor && strings.TrimSpace(req.VendorName) == "" {
		return nil, fmt.Errorf("%w: vendor_name is required for vendor invites", ErrValidation)
	}

	now := s.now()
	existing, err := s.store.Invites.FindPendingByEmail(ctx, email)
	switch {
	case err == nil && existing.ExpiresAt.After(now):
		return nil, fmt.Errorf("%w: a pending invite for %s already exists", ErrConflict, email)
	case err == nil:
		existing.Status = models.InviteStatusRevoked
		if err := s.store.Invites.Update(ctx, existing); err != nil {
			return nil, fmt.Errorf("failed to revoke expired invite: %w", err)
		}
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("failed to check existing invites: %w", err)
	}

	invite := &models.Invite{
		ID:         uuid.New().String(),
		Email:      email,
		Role:       req.Role,
		VendorName: strings.TrimSpace(req.VendorName),
		Status:     models.InviteStatusPending,
		InvitedBy:  invitedBy,
		ExpiresAt:  now.Add(InviteTTL),
		CreatedAt:  now,
	}
	token, err := s.signToken(invite)
	if err != nil {
		return nil, fmt.Errorf("failed to sign invite token: %w", err)
	}
	invite.Token = token

	if err := s.store.Invites.Create(ctx, invite); err != nil {
		return nil, fmt.Errorf("failed to create invite: %w", err)
	}

	s.notifier.SendInvite(ctx, invite, s.AcceptURL(token))
	s.logger.WithFields(logrus.Fields{
		"invite_id": invite.ID,
		"role":      invite.Role,
	}).Info("Invite created")
	return invite, nil
}

// AcceptURL is the link sent to the invitee.
func (s *InviteService) AcceptURL(token string) string {
	return s.publicBaseURL + "/accept-invite?token=" + url.QueryEscape(token)
}

// ListInvites returns all invites
func (s *InviteService) ListInvites(ctx context.Context) ([]models.Invite, error) {
	invites, err := s.store.Invites.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list invites: %w", err)
	}
	if invites == nil {
		invites = []models.Invite{}
	}
	return invites, nil
}

// DeleteInvite removes an invite
func (s *InviteService) DeleteInvite(ctx context.Context, id string) error {
	return s.store.Invites.Delete(ctx, id)
}

// AcceptInvite redeems a token for the calling identity and creates its user record.
func (s *InviteService) AcceptInvite(ctx context.Context, identity Identity, req models.AcceptInviteRequest) (*models.User, error) {
	claims, err := s.parseToken(req.Token)
	if err != nil {
		return nil, err
	}

	invite, err := s.store.Invites.GetByID(ctx, claims.InviteID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInviteInvalid
		}
		return nil, err
	}
	if invite.Status != models.InviteStatusPending {
		return nil, fmt.Errorf("%w: invite is %s", ErrInviteInvalid, invite.Status)
	}
	if !invite.ExpiresAt.After(s.now()) {
		return nil, ErrInviteExpired
	}
	if !strings.EqualFold(strings.TrimSpace(identity.Email), invite.Email) {
		return nil, fmt.Errorf("%w: invite was issued to a different email", ErrForbidden)
	}

	user := &models.User{
		UID:         identity.UID,
		Email:       invite.Email,
		DisplayName: strings.TrimSpace(req.DisplayName),
		Role:        invite.Role,
		CreatedAt:   s.now(),
	}
	if invite.Role == models.RoleVendor {
		user.VendorID = uuid.New().String()
		user.VendorName = invite.VendorName
	}
	if err := s.store.Users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	invite.Status = models.InviteStatusAccepted
	invite.AcceptedBy = identity.UID
	if err := s.store.Invites.Update(ctx, invite); err != nil {
		return nil, fmt.Errorf("failed to mark invite accepted: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"invite_id": invite.ID,
		"uid":       user.UID,
		"role":      user.Role,
	}).Info("Invite accepted")
	return user, nil
}

// Me returns the caller's user record
func (s *InviteService) Me(ctx context.Context, uid string) (*models.User, error) {
	return s.store.Users.GetByUID(ctx, uid)
}

func (s *InviteService) signToken(invite *models.Invite) (string, error) {
	claims := InviteClaims{
		InviteID: invite.ID,
		Email:    invite.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        invite.ID,
			Subject:   invite.Email,
			Issuer:    inviteIssuer,
			IssuedAt:  jwt.NewNumericDate(invite.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(invite.ExpiresAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *InviteService) parseToken(tokenString string) (*InviteClaims, error) {
	claims := &InviteClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(inviteIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrInviteExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInviteInvalid, err)
	}
	if !token.Valid || claims.InviteID == "" {
		return nil, ErrInviteInvalid
	}
	return claims, nil
}
