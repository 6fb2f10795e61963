// Package clients provides HTTP clients for the services this one talks to.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"storybook-service/internal/models"
)

// NotificationClient sends transactional emails via the notification-service API.
// With no base URL configured it only logs what it would have sent.
type NotificationClient struct {
	baseURL       string
	publicBaseURL string
	httpClient    *http.Client
	logger        *logrus.Entry
}

// notificationRequest is the payload sent to notification-service API.
type notificationRequest struct {
	Channel        string                 `json:"channel"`
	RecipientEmail string                 `json:"recipientEmail"`
	Subject        string                 `json:"subject"`
	TemplateName   string                 `json:"templateName"`
	Variables      map[string]interface{} `json:"variables"`
	UserID         string                 `json:"userId,omitempty"`
}

// NewNotificationClient creates a new notification client.
func NewNotificationClient(baseURL, publicBaseURL string, logger *logrus.Logger) *NotificationClient {
	return &NotificationClient{
		baseURL:       strings.TrimRight(baseURL, "/"),
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger.WithField("component", "notifications"),
	}
}

// SendInvite emails an invite link to the invitee.
func (c *NotificationClient) SendInvite(ctx context.Context, invite *models.Invite, acceptURL string) {
	subject := "You're invited to the Storybook back office"
	if invite.Role == models.RoleVendor {
		subject = "You're invited to join Storybook as a print partner"
	}
	c.dispatch(ctx, notificationRequest{
		Channel:        "EMAIL",
		RecipientEmail: invite.Email,
		Subject:        subject,
		TemplateName:   "storybook_invite",
		Variables: map[string]interface{}{
			"role":       string(invite.Role),
			"vendorName": invite.VendorName,
			"acceptUrl":  acceptURL,
			"expiresAt":  invite.ExpiresAt.Format(time.RFC1123),
		},
	})
}

// SendJobAssigned tells a vendor a new print job is waiting.
func (c *NotificationClient) SendJobAssigned(ctx context.Context, vendor *models.User, order *models.Order) {
	c.dispatch(ctx, notificationRequest{
		Channel:        "EMAIL",
		RecipientEmail: vendor.Email,
		Subject:        fmt.Sprintf("New print job: order #%s", order.OrderNumber),
		TemplateName:   "storybook_job_assigned",
		UserID:         vendor.UID,
		Variables: map[string]interface{}{
			"vendorName":  vendor.VendorName,
			"orderNumber": order.OrderNumber,
			"jobUrl":      c.publicBaseURL + "/vendor/jobs/" + order.ID,
			"shipCountry": order.Shipping.Country,
		},
	})
}

// dispatch sends in the background so request handlers never wait on email.
func (c *NotificationClient) dispatch(ctx context.Context, req notificationRequest) {
	log := c.logger.WithFields(logrus.Fields{
		"template": req.TemplateName,
	})
	if c.baseURL == "" {
		log.Info("Notification service not configured, skipping email")
		return
	}
	go func() {
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
		defer cancel()
		if err := c.sendNotification(sendCtx, req); err != nil {
			log.WithError(err).Warn("Failed to send notification")
		}
	}()
}

// sendNotification sends a notification request to the notification-service.
func (c *NotificationClient) sendNotification(ctx context.Context, req notificationRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal notification request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/notifications/send", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Internal-Service", "storybook-service")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("notification service returned status %d", resp.StatusCode)
	}

	return nil
}
