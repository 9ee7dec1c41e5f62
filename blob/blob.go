// Package blob stores relayed binary payloads on any afs backed storage (mem://, file://, s3://, gs://)
// and maps stored objects to public URLs.
package blob

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"path"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/url"
)

const (
	DefaultBaseURL = "mem://localhost/mcpchat-images"
	fileMode       = 0o644
)

// Store persists blobs under a base URL.
type Store struct {
	fs        afs.Service
	baseURL   string
	publicURL string
}

// Upload writes data at path, replacing any existing object, and returns its public URL.
func (s *Store) Upload(ctx context.Context, data []byte, contentType, objectPath string) (string, error) {
	objectPath, err := cleanPath(objectPath)
	if err != nil {
		return "", err
	}
	URL := url.Join(s.baseURL, objectPath)
	if err = s.fs.Upload(ctx, URL, fileMode, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("failed to upload %s (%s): %w", objectPath, contentType, err)
	}
	return s.PublicURL(objectPath), nil
}

// Download reads the object at path.
func (s *Store) Download(ctx context.Context, objectPath string) ([]byte, error) {
	objectPath, err := cleanPath(objectPath)
	if err != nil {
		return nil, err
	}
	return s.fs.DownloadWithURL(ctx, url.Join(s.baseURL, objectPath))
}

// Exists reports whether an object is stored at path.
func (s *Store) Exists(ctx context.Context, objectPath string) (bool, error) {
	objectPath, err := cleanPath(objectPath)
	if err != nil {
		return false, err
	}
	return s.fs.Exists(ctx, url.Join(s.baseURL, objectPath))
}

// PublicURL returns the URL under which path is retrievable.
func (s *Store) PublicURL(objectPath string) string {
	if s.publicURL == "" {
		return url.Join(s.baseURL, objectPath)
	}
	return strings.TrimRight(s.publicURL, "/") + "/" + strings.TrimLeft(objectPath, "/")
}

// ContentType returns the content type implied by the path extension.
func ContentType(objectPath string) string {
	if ret := mime.TypeByExtension(path.Ext(objectPath)); ret != "" {
		return ret
	}
	return "application/octet-stream"
}

func cleanPath(objectPath string) (string, error) {
	cleaned := path.Clean("/" + objectPath)
	if cleaned == "/" || strings.Contains(objectPath, "..") {
		return "", fmt.Errorf("invalid blob path: %q", objectPath)
	}
	return strings.TrimPrefix(cleaned, "/"), nil
}

// New creates a store rooted at baseURL; publicURL, when set, is the HTTP prefix serving the objects.
func New(baseURL, publicURL string) *Store {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Store{fs: afs.New(), baseURL: baseURL, publicURL: publicURL}
}
