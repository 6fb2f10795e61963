package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"storybook-service/internal/models"
	"storybook-service/internal/repository"
	"storybook-service/internal/services"
)

// Context keys set by the auth middleware.
const (
	ContextUserID    = "user_id"
	ContextUserEmail = "user_email"
	ContextUser      = "user"

	contextDevRole     = "dev_role"
	contextDevVendorID = "dev_vendor_id"
)

// TokenVerifier verifies Firebase ID tokens. *auth.Client satisfies it.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

var _ TokenVerifier = (*auth.Client)(nil)

// AuthConfig configures RequireUser.
type AuthConfig struct {
	// Verifier may be nil when Firebase is not configured.
	Verifier TokenVerifier
	// DevHeaders accepts X-User-* headers in place of a token.
	DevHeaders bool
	Logger     *logrus.Logger
}

// RequireUser authenticates the caller from a Firebase ID token, or from the
// dev headers when enabled. It does not require a user record.
func RequireUser(cfg AuthConfig) gin.HandlerFunc {
	var logger *logrus.Entry
	if cfg.Logger != nil {
		logger = cfg.Logger.WithField("component", "auth")
	}

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" && cfg.Verifier != nil {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
				abortUnauthorized(c, "Invalid authorization header format")
				return
			}

			token, err := cfg.Verifier.VerifyIDToken(c.Request.Context(), parts[1])
			if err != nil {
				if logger != nil {
					logger.WithError(err).Debug("ID token rejected")
				}
				abortUnauthorized(c, "Invalid or expired token")
				return
			}

			email, _ := token.Claims["email"].(string)
			c.Set(ContextUserID, token.UID)
			c.Set(ContextUserEmail, email)
			c.Next()
			return
		}

		if cfg.DevHeaders {
			if userID := c.GetHeader("X-User-ID"); userID != "" {
				c.Set(ContextUserID, userID)
				c.Set(ContextUserEmail, c.GetHeader("X-User-Email"))
				if role := c.GetHeader("X-User-Role"); role != "" {
					c.Set(contextDevRole, role)
					c.Set(contextDevVendorID, c.GetHeader("X-Vendor-ID"))
				}
				c.Next()
				return
			}
		}

		abortUnauthorized(c, "Authorization required")
	}
}

// RequireRoles loads the caller's user record and checks its role.
// Must be used after RequireUser.
func RequireRoles(users repository.UserRepository, roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := c.GetString(ContextUserID)
		if uid == "" {
			abortUnauthorized(c, "Authorization required")
			return
		}

		user, err := loadUser(c, users, uid)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "No back-office access for this account"})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Failed to load user", "error": err.Error()})
			return
		}

		if !hasRole(user.Role, roles) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Insufficient permissions"})
			return
		}

		c.Set(ContextUser, user)
		c.Next()
	}
}

// loadUser prefers a dev role header over the stored record.
func loadUser(c *gin.Context, users repository.UserRepository, uid string) (*models.User, error) {
	if role := c.GetString(contextDevRole); role != "" {
		return &models.User{
			UID:      uid,
			Email:    c.GetString(ContextUserEmail),
			Role:     models.Role(role),
			VendorID: c.GetString(contextDevVendorID),
		}, nil
	}
	return users.GetByUID(c.Request.Context(), uid)
}

func hasRole(role models.Role, allowed []models.Role) bool {
	if len(allowed) == 0 {
		return role.IsValid()
	}
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": message})
}

// CurrentUser returns the user set by RequireRoles.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(ContextUser)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok && user != nil
}

// CurrentIdentity returns the authenticated caller.
func CurrentIdentity(c *gin.Context) services.Identity {
	return services.Identity{
		UID:   c.GetString(ContextUserID),
		Email: c.GetString(ContextUserEmail),
	}
}

// CurrentActor returns the caller as an order actor.
func CurrentActor(c *gin.Context) services.Actor {
	user, ok := CurrentUser(c)
	if !ok {
		return services.Actor{UID: c.GetString(ContextUserID)}
	}
	return services.Actor{UID: user.UID, Role: user.Role, VendorID: user.VendorID}
}
