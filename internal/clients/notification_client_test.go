package clients

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"storybook-service/internal/models"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestNotificationClient_SendJobAssigned(t *testing.T) {
	received := make(chan notificationRequest, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/notifications/send", r.URL.Path)
		assert.Equal(t, "storybook-service", r.Header.Get("X-Internal-Service"))
		var req notificationRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		received <- req
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client := NewNotificationClient(server.URL, "https://ops.example", quietLogger())
	client.SendJobAssigned(context.Background(),
		&models.User{UID: "v1", Email: "print@acme.example", VendorName: "Acme"},
		&models.Order{ID: "o1", OrderNumber: "1001"})

	select {
	case req := <-received:
		assert.Equal(t, "print@acme.example", req.RecipientEmail)
		assert.Equal(t, "storybook_job_assigned", req.TemplateName)
		assert.Equal(t, "https://ops.example/vendor/jobs/o1", req.Variables["jobUrl"])
	case <-time.After(2 * time.Second):
		t.Fatal("notification was not sent")
	}
}

func TestNotificationClient_Unconfigured(t *testing.T) {
	client := NewNotificationClient("", "", quietLogger())

	assert.NotPanics(t, func() {
		client.SendInvite(context.Background(), &models.Invite{Email: "a@x.com", Role: models.RoleAdmin}, "https://x")
	})
}

func TestSendNotification_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewNotificationClient(server.URL, "", quietLogger())
	err := client.sendNotification(context.Background(), notificationRequest{RecipientEmail: "a@x.com"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
