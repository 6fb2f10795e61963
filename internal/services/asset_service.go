package services

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/sirupsen/logrus"
	"storybook-service/internal/models"
	"storybook-service/internal/repository"
	"storybook-service/internal/storage"
)

// UploadURLRequest is the body of POST /api/upload-url.
type UploadURLRequest struct {
	FileName    string `json:"file_name" binding:"required"`
	ContentType string `json:"content_type"`
	Folder      string `json:"folder" binding:"required"`
}

// PresignedURL is a time-limited object URL.
type PresignedURL struct {
	URL       string `json:"url"`
	Key       string `json:"key"`
	ExpiresIn int    `json:"expires_in"`
}

// AssetEntry is one file of an order bundle.
type AssetEntry struct {
	Key  string
	Name string // path inside the archive
}

// AssetBundle is the set of files to zip for one order.
type AssetBundle struct {
	Order   *models.Order
	Entries []AssetEntry
}

// ArchiveName is the download file name of the bundle.
func (b *AssetBundle) ArchiveName() string {
	return "order-" + b.Order.OrderNumber + ".zip"
}

// AssetService hands out upload/download URLs and bundles order assets
type AssetService struct {
	store   *repository.Store
	objects storage.ObjectStore
	expiry  time.Duration
	logger  *logrus.Entry
}

// NewAssetService creates a new asset service
func NewAssetService(store *repository.Store, objects storage.ObjectStore, logger *logrus.Logger) *AssetService {
	return &AssetService{
		store:   store,
		objects: objects,
		expiry:  storage.DefaultURLExpiry,
		logger:  logger.WithField("component", "asset_service"),
	}
}

// UploadURL creates a key in the requested folder and presigns a PUT for it.
func (s *AssetService) UploadURL(ctx context.Context, req UploadURLRequest) (*PresignedURL, error) {
	key, err := storage.NewObjectKey(req.Folder, req.FileName)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}
	u, err := s.objects.PresignPut(ctx, key, req.ContentType, s.expiry)
	if err != nil {
		return nil, err
	}
	return &PresignedURL{URL: u, Key: key, ExpiresIn: int(s.expiry.Seconds())}, nil
}

// DownloadURL presigns a GET for an existing key.
func (s *AssetService) DownloadURL(ctx context.Context, key string) (*PresignedURL, error) {
	cleaned, err := storage.CleanKey(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}
	u, err := s.objects.PresignGet(ctx, cleaned, s.expiry)
	if err != nil {
		return nil, err
	}
	return &PresignedURL{URL: u, Key: cleaned, ExpiresIn: int(s.expiry.Seconds())}, nil
}

// DownloadURLFor presigns a GET on behalf of actor. Admins may fetch any
// key; vendors only keys attached to one of their jobs or its story.
func (s *AssetService) DownloadURLFor(ctx context.Context, actor Actor, key string) (*PresignedURL, error) {
	if actor.Role != models.RoleAdmin {
		cleaned, err := storage.CleanKey(key)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrValidation, err.Error())
		}
		owned, err := s.vendorOwnsKey(ctx, actor.VendorID, cleaned)
		if err != nil {
			return nil, err
		}
		if !owned {
			return nil, fmt.Errorf("%w: key is not attached to any of your jobs", ErrForbidden)
		}
	}
	return s.DownloadURL(ctx, key)
}

func (s *AssetService) vendorOwnsKey(ctx context.Context, vendorID, key string) (bool, error) {
	if vendorID == "" {
		return false, nil
	}
	filter := models.OrderFilter{VendorID: vendorID, PerPage: 100}
	for page := 1; ; page++ {
		filter.Page = page
		orders, total, err := s.store.Orders.List(ctx, filter)
		if err != nil {
			return false, err
		}
		for i := range orders {
			bundle, err := s.CollectAssets(ctx, &orders[i])
			if errors.Is(err, ErrNoAssets) {
				continue
			}
			if err != nil {
				return false, err
			}
			for _, e := range bundle.Entries {
				if e.Key == key {
					return true, nil
				}
			}
		}
		if len(orders) == 0 || repository.PastLastPage(page+1, filter.PerPage, total) {
			return false, nil
		}
	}
}

// CollectAssets gathers the order's files and those of its story.
// Returns ErrNoAssets when there is nothing to download.
func (s *AssetService) CollectAssets(ctx context.Context, order *models.Order) (*AssetBundle, error) {
	root := "order-" + order.OrderNumber
	bundle := &AssetBundle{Order: order}
	seen := map[string]bool{}
	add := func(key, folder string) {
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		bundle.Entries = append(bundle.Entries, AssetEntry{
			Key:  key,
			Name: path.Join(root, folder, path.Base(key)),
		})
	}

	add(order.Assets.PDFKey, "")
	add(order.Assets.CoverKey, "")
	for _, k := range order.Assets.VoiceKeys {
		add(k, "voice")
	}

	if order.StoryID != "" {
		story, err := s.store.Stories.GetByID(ctx, order.StoryID)
		switch {
		case err == nil:
			add(story.PDFKey, "")
			add(story.CoverImageKey, "")
			for _, k := range story.VoiceRecordingKeys {
				add(k, "voice")
			}
			for _, p := range story.Pages {
				add(p.ImageKey, "pages")
			}
		case errors.Is(err, repository.ErrNotFound):
			s.logger.WithField("story_id", order.StoryID).Warn("Order references a missing story")
		default:
			return nil, err
		}
	}

	if len(bundle.Entries) == 0 {
		return nil, ErrNoAssets
	}
	return bundle, nil
}

// WriteZip streams the bundle as a zip archive. Objects missing from the
// store are skipped so one bad key does not break the download.
func (s *AssetService) WriteZip(ctx context.Context, w io.Writer, bundle *AssetBundle) error {
	zw := zip.NewWriter(w)
	for _, entry := range bundle.Entries {
		if err := ctx.Err(); err != nil {
			zw.Close()
			return err
		}
		if err := s.addToZip(ctx, zw, entry); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				s.logger.WithField("key", entry.Key).Warn("Skipping missing asset")
				continue
			}
			zw.Close()
			return err
		}
	}
	return zw.Close()
}

func (s *AssetService) addToZip(ctx context.Context, zw *zip.Writer, entry AssetEntry) error {
	rc, err := s.objects.Open(ctx, entry.Key)
	if err != nil {
		return err
	}
	defer rc.Close()

	fw, err := zw.CreateHeader(&zip.FileHeader{
		Name:     entry.Name,
		Method:   zip.Deflate,
		Modified: time.Now(),
	})
	if err != nil {
		return err
	}
	if _, err := io.Copy(fw, rc); err != nil {
		return fmt.Errorf("failed to copy %s: %w", entry.Key, err)
	}
	return nil
}
