package services

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"storybook-service/internal/models"
	"storybook-service/internal/storage"
)

func newAssetService(t *testing.T) (*AssetService, *storage.LocalStore, *OrderService) {
	t.Helper()
	store := newTestStore(t)
	objects, err := storage.NewLocalStore(t.TempDir(), "http://localhost:8080")
	require.NoError(t, err)
	return NewAssetService(store, objects, testLogger()), objects, NewOrderService(store, nil, nil, nil, testLogger())
}

func TestUploadURL(t *testing.T) {
	svc, _, _ := newAssetService(t)

	res, err := svc.UploadURL(context.Background(), UploadURLRequest{FileName: "book.pdf", Folder: storage.FolderPDFs})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Key, "pdfs/"))
	assert.Contains(t, res.URL, "/dev-files/pdfs/")
	assert.Equal(t, 900, res.ExpiresIn)

	_, err = svc.UploadURL(context.Background(), UploadURLRequest{FileName: "x", Folder: "tmp"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDownloadURL_RejectsTraversal(t *testing.T) {
	svc, _, _ := newAssetService(t)

	_, err := svc.DownloadURL(context.Background(), "../../etc/passwd")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDownloadURLFor_VendorStoryKeys(t *testing.T) {
	ctx := context.Background()
	svc, _, orders := newAssetService(t)
	order := createTestOrder(t, orders, "4003")

	story := &models.Story{Title: "x", Pages: []models.StoryPage{{Number: 1, ImageKey: "pages/p1.png"}}}
	require.NoError(t, svc.store.Stories.Create(ctx, story))
	order.StoryID = story.ID
	order.VendorID = "v-1"
	require.NoError(t, svc.store.Orders.Update(ctx, order))

	res, err := svc.DownloadURLFor(ctx, Actor{Role: models.RoleVendor, VendorID: "v-1"}, "pages/p1.png")
	require.NoError(t, err)
	assert.Equal(t, "pages/p1.png", res.Key)

	_, err = svc.DownloadURLFor(ctx, Actor{Role: models.RoleVendor, VendorID: "v-2"}, "pages/p1.png")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.DownloadURLFor(ctx, Actor{Role: models.RoleVendor}, "pages/p1.png")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.DownloadURLFor(ctx, Actor{Role: models.RoleAdmin}, "pdfs/anything.pdf")
	assert.NoError(t, err)
}

func TestCollectAssets_NoAssets(t *testing.T) {
	svc, _, orders := newAssetService(t)
	order := createTestOrder(t, orders, "4001")

	_, err := svc.CollectAssets(context.Background(), order)
	assert.ErrorIs(t, err, ErrNoAssets)
}

func TestWriteZip_BundlesOrderAndStoryAssets(t *testing.T) {
	ctx := context.Background()
	svc, objects, orders := newAssetService(t)
	order := createTestOrder(t, orders, "4002")

	for key, body := range map[string]string{
		"pdfs/book.pdf":    "pdf",
		"covers/cover.png": "cover",
		"voice/mum.m4a":    "voice",
		"pages/p1.png":     "page",
	} {
		require.NoError(t, objects.Put(ctx, key, strings.NewReader(body), ""))
	}

	story := &models.Story{
		Title:         "x",
		CoverImageKey: "covers/cover.png",
		Pages:         []models.StoryPage{{Number: 1, ImageKey: "pages/p1.png"}, {Number: 2, ImageKey: "pages/missing.png"}},
	}
	require.NoError(t, svc.store.Stories.Create(ctx, story))

	order.StoryID = story.ID
	order.Assets = models.OrderAssets{PDFKey: "pdfs/book.pdf", VoiceKeys: []string{"voice/mum.m4a"}}
	require.NoError(t, svc.store.Orders.Update(ctx, order))

	bundle, err := svc.CollectAssets(ctx, order)
	require.NoError(t, err)
	assert.Equal(t, "order-4002.zip", bundle.ArchiveName())

	var buf bytes.Buffer
	require.NoError(t, svc.WriteZip(ctx, &buf, bundle))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	assert.Equal(t, []string{
		"order-4002/book.pdf",
		"order-4002/cover.png",
		"order-4002/pages/p1.png",
		"order-4002/voice/mum.m4a",
	}, names)

	f, err := zr.Open("order-4002/book.pdf")
	require.NoError(t, err)
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "pdf", string(data))
}
