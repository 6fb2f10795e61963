package handlers

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"storybook-service/internal/models"
)

func createOrder(t *testing.T, s *testServer, number string) models.Order {
	t.Helper()
	w := s.do(http.MethodPost, "/api/orders", obj{
		"order_number":   number,
		"customer_email": "ann@example.com",
		"customer_name":  "Ann Lee",
	}, adminHeaders)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[models.Order](t, w)
}

type obj = map[string]interface{}

func TestCreateOrder(t *testing.T) {
	s := newTestServer(t)

	order := createOrder(t, s, "1001")
	assert.NotEmpty(t, order.ID)
	assert.Equal(t, models.StagePending, order.Stage)

	w := s.do(http.MethodPost, "/api/orders", obj{"order_number": "1002"}, adminHeaders)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/orders", obj{"customer_email": "a@b.com"}, adminHeaders)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetOrder_NotFound(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/api/orders/missing", nil, adminHeaders)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOrderLifecycle(t *testing.T) {
	s := newTestServer(t)
	seedVendor(t, s.store, "v-1", "Acme Print")
	order := createOrder(t, s, "1001")

	// Cannot skip straight to printing
	w := s.do(http.MethodPatch, "/api/orders/"+order.ID+"/stage", obj{"stage": "printing"}, adminHeaders)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodPost, "/api/orders/"+order.ID+"/assign", obj{"vendor_id": "nope"}, adminHeaders)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/orders/"+order.ID+"/assign", obj{"vendor_id": "v-1"}, adminHeaders)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assigned := decode[models.Order](t, w)
	assert.Equal(t, models.StageAssigned, assigned.Stage)
	assert.Equal(t, "v-1", assigned.VendorID)

	w = s.do(http.MethodGet, "/api/orders/"+order.ID+"/transitions", nil, adminHeaders)
	require.Equal(t, http.StatusOK, w.Code)
	transitions := decode[map[string]interface{}](t, w)
	assert.Equal(t, "assigned", transitions["current"])
	assert.ElementsMatch(t, []interface{}{"printing", "cancelled"}, transitions["next"])

	w = s.do(http.MethodPatch, "/api/orders/"+order.ID+"/stage", obj{"stage": "bogus"}, adminHeaders)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPatch, "/api/orders/"+order.ID+"/stage", obj{"stage": "cancelled", "note": "customer request"}, adminHeaders)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.StageCancelled, decode[models.Order](t, w).Stage)

	w = s.do(http.MethodPatch, "/api/orders/"+order.ID+"/stage", obj{"stage": "pending"}, adminHeaders)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestUpdateAndDeleteOrder(t *testing.T) {
	s := newTestServer(t)
	order := createOrder(t, s, "1001")

	w := s.do(http.MethodPut, "/api/orders/"+order.ID, obj{"notes": "gift wrap", "tracking_number": " TRK1 "}, adminHeaders)
	require.Equal(t, http.StatusOK, w.Code)
	updated := decode[models.Order](t, w)
	assert.Equal(t, "gift wrap", updated.Notes)
	assert.Equal(t, "TRK1", updated.TrackingNumber)

	w = s.do(http.MethodPut, "/api/orders/"+order.ID, obj{"story_id": "missing"}, adminHeaders)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodDelete, "/api/orders/"+order.ID, nil, adminHeaders)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(http.MethodDelete, "/api/orders/"+order.ID, nil, adminHeaders)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListOrders(t *testing.T) {
	s := newTestServer(t)
	createOrder(t, s, "1001")
	createOrder(t, s, "1002")

	w := s.do(http.MethodGet, "/api/orders?per_page=1", nil, adminHeaders)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]interface{}](t, w)
	assert.Equal(t, float64(2), body["total"])
	assert.Equal(t, float64(2), body["totalPages"])
	assert.Len(t, body["orders"], 1)

	w = s.do(http.MethodGet, "/api/orders?page=461168601842738792&per_page=20", nil, adminHeaders)
	require.Equal(t, http.StatusOK, w.Code)
	body = decode[map[string]interface{}](t, w)
	assert.Equal(t, float64(2), body["total"])
	assert.Len(t, body["orders"], 0)

	w = s.do(http.MethodGet, "/api/orders?stage=nonsense", nil, adminHeaders)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestJobSheet(t *testing.T) {
	s := newTestServer(t)
	order := createOrder(t, s, "1001")

	w := s.do(http.MethodGet, "/api/orders/"+order.ID+"/job-sheet", nil, adminHeaders)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))
}

func TestVendorPortal(t *testing.T) {
	s := newTestServer(t)
	seedVendor(t, s.store, "v-1", "Acme Print")
	seedVendor(t, s.store, "v-2", "Other Print")
	order := createOrder(t, s, "1001")

	w := s.do(http.MethodPost, "/api/orders/"+order.ID+"/assign", obj{"vendor_id": "v-1"}, adminHeaders)
	require.Equal(t, http.StatusOK, w.Code)

	// Vendors cannot use admin routes
	w = s.do(http.MethodGet, "/api/orders", nil, vendorHeaders("v-1"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodGet, "/api/vendor/jobs", nil, vendorHeaders("v-1"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode[map[string]interface{}](t, w)["total"])

	w = s.do(http.MethodGet, "/api/vendor/jobs", nil, vendorHeaders("v-2"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), decode[map[string]interface{}](t, w)["total"])

	w = s.do(http.MethodPatch, "/api/vendor/jobs/"+order.ID+"/stage", obj{"stage": "printing"}, vendorHeaders("v-2"))
	assert.Equal(t, http.StatusForbidden, w.Code, "other vendor's job")

	w = s.do(http.MethodPatch, "/api/vendor/jobs/"+order.ID+"/stage", obj{"stage": "cancelled"}, vendorHeaders("v-1"))
	assert.Equal(t, http.StatusForbidden, w.Code, "not a vendor stage")

	w = s.do(http.MethodPatch, "/api/vendor/jobs/"+order.ID+"/stage", obj{"stage": "printing"}, vendorHeaders("v-1"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.StagePrinting, decode[models.Order](t, w).Stage)

	w = s.do(http.MethodGet, "/api/vendor/jobs/"+order.ID+"/job-sheet", nil, vendorHeaders("v-1"))
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/api/vendors", nil, adminHeaders)
	require.Equal(t, http.StatusOK, w.Code)
	vendors := decode[map[string][]models.Vendor](t, w)["vendors"]
	require.Len(t, vendors, 2)
	for _, v := range vendors {
		if v.VendorID == "v-1" {
			assert.Equal(t, 1, v.OpenJobs)
		} else {
			assert.Equal(t, 0, v.OpenJobs)
		}
	}
}
