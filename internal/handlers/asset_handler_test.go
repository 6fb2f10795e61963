package handlers

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"storybook-service/internal/clients/woocommerce"
	"storybook-service/internal/models"
)

// uploadViaPresignedURL requests an upload URL and PUTs content to it.
func uploadViaPresignedURL(t *testing.T, s *testServer, folder, name, content string) string {
	t.Helper()
	w := s.do(http.MethodPost, "/api/upload-url", obj{"file_name": name, "folder": folder, "content_type": "application/pdf"}, adminHeaders)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode[map[string]interface{}](t, w)

	u, err := url.Parse(body["upload_url"].(string))
	require.NoError(t, err)
	w = s.do(http.MethodPut, u.RequestURI(), []byte(content), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return body["key"].(string)
}

func TestUploadURL_Validation(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/api/upload-url", obj{"file_name": "a.pdf"}, adminHeaders)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/upload-url", obj{"file_name": "a.pdf", "folder": "secrets"}, adminHeaders)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/upload-url", obj{"file_name": "a.pdf", "folder": "pdfs"}, vendorHeaders("v-1"))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUploadAndDownloadRoundTrip(t *testing.T) {
	s := newTestServer(t)

	key := uploadViaPresignedURL(t, s, "pdfs", "My Book.pdf", "%PDF-1.4 book")
	assert.Regexp(t, `^pdfs/[0-9a-f-]{36}-My-Book\.pdf$`, key)

	w := s.do(http.MethodGet, "/api/download-url?key="+url.QueryEscape(key), nil, adminHeaders)
	require.Equal(t, http.StatusOK, w.Code)
	download := decode[map[string]interface{}](t, w)

	u, err := url.Parse(download["url"].(string))
	require.NoError(t, err)
	w = s.do(http.MethodGet, u.RequestURI(), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "%PDF-1.4 book", w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))

	w = s.do(http.MethodGet, "/api/download-url?key=../etc/passwd", nil, adminHeaders)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDownloadURL_VendorLimitedToOwnJobs(t *testing.T) {
	s := newTestServer(t)
	seedVendor(t, s.store, "v-1", "Acme")
	seedVendor(t, s.store, "v-2", "Other Print")
	order := createOrder(t, s, "1001")

	pdfKey := uploadViaPresignedURL(t, s, "pdfs", "book.pdf", "pdf-bytes")
	w := s.do(http.MethodPut, "/api/orders/"+order.ID, obj{"assets": obj{"pdf_key": pdfKey}}, adminHeaders)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	downloadPath := "/api/download-url?key=" + url.QueryEscape(pdfKey)

	w = s.do(http.MethodGet, downloadPath, nil, vendorHeaders("v-1"))
	assert.Equal(t, http.StatusForbidden, w.Code, "not assigned yet")

	w = s.do(http.MethodPost, "/api/orders/"+order.ID+"/assign", obj{"vendor_id": "v-1"}, adminHeaders)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, downloadPath, nil, vendorHeaders("v-2"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodGet, downloadPath, nil, vendorHeaders("v-1"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, pdfKey, decode[map[string]interface{}](t, w)["key"])

	w = s.do(http.MethodGet, "/api/download-url?key=pdfs/unattached.pdf", nil, vendorHeaders("v-1"))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestDevFiles_ExpiredAndMissing(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/dev-files/pdfs/x.pdf?expires=1", nil, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodGet, "/dev-files/pdfs/missing.pdf", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDownloadZip(t *testing.T) {
	s := newTestServer(t)
	seedVendor(t, s.store, "v-1", "Acme")
	order := createOrder(t, s, "1001")

	w := s.do(http.MethodGet, "/api/download-zip?order_id="+order.ID, nil, adminHeaders)
	assert.Equal(t, http.StatusNotFound, w.Code, "no assets yet")

	w = s.do(http.MethodGet, "/api/download-zip", nil, adminHeaders)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	pdfKey := uploadViaPresignedURL(t, s, "pdfs", "book.pdf", "pdf-bytes")
	voiceKey := uploadViaPresignedURL(t, s, "voice", "hello.m4a", "voice-bytes")
	w = s.do(http.MethodPut, "/api/orders/"+order.ID, obj{"assets": obj{"pdf_key": pdfKey, "voice_keys": []string{voiceKey, "voice/gone.m4a"}}}, adminHeaders)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/api/download-zip?order_id="+order.ID, nil, adminHeaders)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/zip", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "order-1001.zip")

	zr, err := zip.NewReader(bytes.NewReader(w.Body.Bytes()), int64(w.Body.Len()))
	require.NoError(t, err)
	names := []string{}
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{
		"order-1001/" + pdfKey[len("pdfs/"):],
		"order-1001/voice/" + voiceKey[len("voice/"):],
	}, names)

	// Vendor zip is limited to own jobs
	w = s.do(http.MethodGet, "/api/vendor/jobs/"+order.ID+"/download-zip", nil, vendorHeaders("v-1"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPost, "/api/orders/"+order.ID+"/assign", obj{"vendor_id": "v-1"}, adminHeaders)
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(http.MethodGet, "/api/vendor/jobs/"+order.ID+"/download-zip", nil, vendorHeaders("v-1"))
	assert.Equal(t, http.StatusOK, w.Code)
}

// ===========================================
// WooCommerce orders and products
// ===========================================

func TestWooOrders_ListAndSync(t *testing.T) {
	s := newTestServer(t)
	wooOrders := []models.WooOrder{
		{ID: 11, Number: "11", Status: "processing", Total: "20.00", Billing: models.Address{Email: "a@x.com", FirstName: "A"}},
		{ID: 12, Number: "12", Status: "processing", Total: "25.00", Billing: models.Address{Email: "b@x.com", FirstName: "B"}},
	}
	s.woo.On("ListOrders", mock.Anything, mock.Anything).Return(wooOrders, woocommerce.Totals{Total: 2, TotalPages: 1}, nil)

	w := s.do(http.MethodPost, "/api/woo-orders/sync", nil, adminHeaders)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"imported":2,"skipped":0,"failed":0}`, w.Body.String())

	w = s.do(http.MethodPost, "/api/woo-orders/sync", obj{"status": "processing"}, adminHeaders)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"imported":0,"skipped":2,"failed":0}`, w.Body.String())

	w = s.do(http.MethodGet, "/api/woo-orders", nil, adminHeaders)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[struct {
		Orders []map[string]interface{} `json:"orders"`
		Total  int                      `json:"total"`
	}](t, w)
	require.Len(t, body.Orders, 2)
	assert.Equal(t, 2, body.Total)
	assert.Equal(t, true, body.Orders[0]["imported"])

	orders, total, err := s.store.Orders.List(context.Background(), models.OrderFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, models.StagePending, orders[0].Stage)
}

func TestWooOrders_UpstreamFailure(t *testing.T) {
	s := newTestServer(t)
	s.woo.On("ListOrders", mock.Anything, mock.Anything).Return(nil, woocommerce.Totals{}, errors.New("timeout"))

	w := s.do(http.MethodPost, "/api/woo-orders/sync", nil, adminHeaders)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "timeout")
}

func TestProducts(t *testing.T) {
	s := newTestServer(t)
	s.woo.On("ListProducts", mock.Anything, mock.Anything).Return([]models.WooProduct{{ID: 5, Name: "Storybook"}}, woocommerce.Totals{Total: 1, TotalPages: 1}, nil)
	s.woo.On("GetProduct", mock.Anything, int64(5)).Return(&models.WooProduct{ID: 5, Name: "Storybook"}, nil)
	s.woo.On("GetProduct", mock.Anything, int64(6)).Return(nil, &woocommerce.APIError{StatusCode: http.StatusNotFound, Code: "woocommerce_rest_product_invalid_id"})

	w := s.do(http.MethodGet, "/api/products", nil, adminHeaders)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode[map[string]interface{}](t, w)["total"])

	w = s.do(http.MethodGet, "/api/products/5", nil, adminHeaders)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/api/products/6", nil, adminHeaders)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, "/api/products/abc", nil, adminHeaders)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
