package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound   = errors.New("object not found")
	ErrInvalidKey = errors.New("invalid object key")
)

// Folders an upload may target.
const (
	FolderPDFs   = "pdfs"
	FolderCovers = "covers"
	FolderVoice  = "voice"
	FolderPages  = "pages"
)

// DefaultURLExpiry is the lifetime of presigned URLs.
const DefaultURLExpiry = 15 * time.Minute

var allowedFolders = map[string]bool{
	FolderPDFs:   true,
	FolderCovers: true,
	FolderVoice:  true,
	FolderPages:  true,
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ObjectStore stores order assets and hands out presigned URLs.
type ObjectStore interface {
	PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (string, error)
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Put(ctx context.Context, key string, body io.Reader, contentType string) error
	Name() string
}

// IsAllowedFolder reports whether uploads may go to folder.
func IsAllowedFolder(folder string) bool {
	return allowedFolders[folder]
}

// SanitizeFileName strips directories and replaces unsafe characters.
func SanitizeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	name = unsafeNameChars.ReplaceAllString(name, "-")
	name = strings.Trim(name, "-.")
	if name == "" {
		return "file"
	}
	if len(name) > 120 {
		name = name[len(name)-120:]
	}
	return name
}

// NewObjectKey builds "<folder>/<uuid>-<name>".
func NewObjectKey(folder, fileName string) (string, error) {
	if !IsAllowedFolder(folder) {
		return "", fmt.Errorf("%w: folder %q is not allowed", ErrInvalidKey, folder)
	}
	if strings.TrimSpace(fileName) == "" {
		return "", fmt.Errorf("%w: file name is required", ErrInvalidKey)
	}
	return folder + "/" + uuid.New().String() + "-" + SanitizeFileName(fileName), nil
}

// CleanKey validates a key supplied by a client.
func CleanKey(key string) (string, error) {
	key = strings.TrimPrefix(strings.TrimSpace(key), "/")
	if key == "" {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean(key)
	if cleaned != key || strings.HasPrefix(cleaned, "..") || strings.Contains(cleaned, "/../") {
		return "", fmt.Errorf("%w: %s", ErrInvalidKey, key)
	}
	return cleaned, nil
}
