// Package storage keeps uploaded profile photos and meeting documents on a
// pluggable backend (local disk or S3-compatible object storage).
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RootPrefix is the first segment of every stored path.
const RootPrefix = "uploads"

// Common storage errors.
var (
	ErrNotFound        = errors.New("file not found")
	ErrEmptyFile       = errors.New("file is empty")
	ErrTooLarge        = errors.New("file exceeds the upload limit")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrInvalidPath     = errors.New("invalid file path")
)

// Kind selects the folder an upload lands in.
type Kind string

const (
	KindProfile  Kind = "profile"
	KindDocument Kind = "document"
)

var photoExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// Store is a flat key/value blob backend. Keys use forward slashes.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// Files applies upload rules on top of a Store.
type Files struct {
	store   Store
	maxSize int64
	now     func() time.Time
}

// NewFiles creates a Files service. maxSize is the per-file byte limit.
func NewFiles(store Store, maxSize int64) *Files {
	return &Files{store: store, maxSize: maxSize, now: time.Now}
}

// MaxSize returns the per-file byte limit.
func (f *Files) MaxSize() int64 {
	return f.maxSize
}

// Save stores an upload and returns its relative path,
// uploads/<kind>/<yyyymmdd>/<uuid><ext>.
func (f *Files) Save(ctx context.Context, kind Kind, filename string, r io.Reader, size int64) (string, error) {
	if size == 0 {
		return "", ErrEmptyFile
	}
	if size > f.maxSize {
		return "", ErrTooLarge
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if kind == KindProfile && !photoExtensions[ext] {
		return "", ErrUnsupportedType
	}

	key := path.Join(RootPrefix, string(kind), f.now().Format("20060102"), uuid.NewString()+ext)
	if err := f.store.Put(ctx, key, r, size, ContentType(key)); err != nil {
		return "", fmt.Errorf("store %s upload: %w", kind, err)
	}
	return key, nil
}

// Open returns the content of a stored file after validating the path.
func (f *Files) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	key, err := CleanPath(p)
	if err != nil {
		return nil, err
	}
	return f.store.Get(ctx, key)
}

// CleanPath normalizes a client-supplied path and rejects anything outside
// the upload tree.
func CleanPath(p string) (string, error) {
	p = strings.ReplaceAll(strings.TrimSpace(p), "\\", "/")
	if p == "" || strings.HasPrefix(p, "/") {
		return "", ErrInvalidPath
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", ErrInvalidPath
		}
	}

	clean := path.Clean(p)
	parts := strings.Split(clean, "/")
	if len(parts) < 2 || !strings.EqualFold(parts[0], RootPrefix) {
		return "", ErrInvalidPath
	}
	parts[0] = RootPrefix
	return strings.Join(parts, "/"), nil
}

// ContentType guesses a MIME type from the key's extension.
func ContentType(key string) string {
	if ct := mime.TypeByExtension(strings.ToLower(path.Ext(key))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
