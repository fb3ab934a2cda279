// Package storage keeps uploaded ticket files (fault photos, before/after repair
// videos) and hands back public URLs for them.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Bucket prefixes used for ticket uploads.
const (
	PrefixAttachments  = "attachments"
	PrefixBeforeVideos = "before-videos"
	PrefixRepairVideos = "repair-videos"
)

// ErrTooLarge is returned when an upload exceeds the configured limit.
var ErrTooLarge = errors.New("upload exceeds size limit")

// Object describes a stored file.
type Object struct {
	Key         string
	URL         string
	ContentType string
	Size        int64
}

// Store persists uploaded files.
type Store interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) (*Object, error)
	Delete(ctx context.Context, key string) error
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// BuildKey returns prefix/<unix-millis>_<short-id>_<sanitized name>.
func BuildKey(prefix, filename string, now time.Time) string {
	name := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	name = unsafeChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = "upload"
	}
	short := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return path.Join(prefix, fmt.Sprintf("%d_%s_%s", now.UnixMilli(), short, name))
}

// LocalStore writes files under a directory that the HTTP server exposes.
type LocalStore struct {
	dir      string
	baseURL  string
	maxBytes int64
}

// NewLocalStore creates the root directory if needed.
func NewLocalStore(dir, baseURL string, maxBytes int64) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &LocalStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/"), maxBytes: maxBytes}, nil
}

// Dir returns the root directory.
func (s *LocalStore) Dir() string {
	return s.dir
}

// Put writes body to key. A partially written file is removed on failure.
func (s *LocalStore) Put(ctx context.Context, key string, body io.Reader, contentType string) (*Object, error) {
	full, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return nil, fmt.Errorf("create object dir: %w", err)
	}

	f, err := os.Create(full)
	if err != nil {
		return nil, fmt.Errorf("create object: %w", err)
	}

	reader := body
	if s.maxBytes > 0 {
		reader = io.LimitReader(body, s.maxBytes+1)
	}
	n, copyErr := io.Copy(f, reader)
	closeErr := f.Close()
	switch {
	case copyErr != nil:
		_ = os.Remove(full)
		return nil, fmt.Errorf("write object: %w", copyErr)
	case closeErr != nil:
		_ = os.Remove(full)
		return nil, fmt.Errorf("close object: %w", closeErr)
	case s.maxBytes > 0 && n > s.maxBytes:
		_ = os.Remove(full)
		return nil, ErrTooLarge
	}

	return &Object{
		Key:         key,
		URL:         s.baseURL + "/" + key,
		ContentType: contentType,
		Size:        n,
	}, nil
}

// Delete removes key; a missing file is not an error.
func (s *LocalStore) Delete(_ context.Context, key string) error {
	full, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *LocalStore) resolve(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(s.dir, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}
