package handlers

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"storybook-service/internal/storage"
)

// maxDevUploadBytes caps a single development upload.
const maxDevUploadBytes = 100 << 20

// DevFilesHandler serves the local object store behind its presigned URLs.
// Only mounted when the local store is in use.
type DevFilesHandler struct {
	objects storage.ObjectStore
	logger  *logrus.Entry
	now     func() time.Time
}

// NewDevFilesHandler creates a new dev files handler
func NewDevFilesHandler(objects storage.ObjectStore, logger *logrus.Logger) *DevFilesHandler {
	return &DevFilesHandler{
		objects: objects,
		logger:  logger.WithField("component", "dev_files"),
		now:     time.Now,
	}
}

func (h *DevFilesHandler) key(c *gin.Context) (string, bool) {
	if raw := c.Query("expires"); raw != "" {
		expires, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || h.now().Unix() > expires {
			c.JSON(http.StatusForbidden, gin.H{"message": "URL has expired"})
			return "", false
		}
	}

	key, err := storage.CleanKey(strings.TrimPrefix(c.Param("key"), "/"))
	if err != nil {
		badRequest(c, err.Error())
		return "", false
	}
	return key, true
}

// Upload handles PUT /dev-files/*key
func (h *DevFilesHandler) Upload(c *gin.Context) {
	key, ok := h.key(c)
	if !ok {
		return
	}

	body := http.MaxBytesReader(c.Writer, c.Request.Body, maxDevUploadBytes)
	if err := h.objects.Put(c.Request.Context(), key, body, c.ContentType()); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"message": "File too large"})
			return
		}
		h.logger.WithError(err).WithField("key", key).Error("Failed to store upload")
		respondError(c, "Failed to store file", err)
		return
	}
	c.Status(http.StatusOK)
}

// Download handles GET /dev-files/*key
func (h *DevFilesHandler) Download(c *gin.Context) {
	key, ok := h.key(c)
	if !ok {
		return
	}

	rc, err := h.objects.Open(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "File not found"})
			return
		}
		respondError(c, "Failed to open file", err)
		return
	}
	defer rc.Close()

	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		h.logger.WithError(err).WithField("key", key).Warn("Failed to stream file")
	}
}
