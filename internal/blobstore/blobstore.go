// Package blobstore abstracts upload and retrieval of capture artifacts
// (video and sensor recordings).
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Artifact kinds a submission uploads.
const (
	KindVideo  = "video"
	KindSensor = "sensor"
)

// ErrBlobNotFound is returned when the blob id is unknown.
var ErrBlobNotFound = errors.New("blob not found")

// Upload is a one-time upload grant for one artifact.
type Upload struct {
	BlobID    string
	UploadURL string
}

// Store issues upload grants and resolves stored blobs to fetchable URLs.
type Store interface {
	// CreateUpload issues an upload grant for one artifact of a jump.
	CreateUpload(ctx context.Context, jumpID, kind string) (Upload, error)

	// SignedURL resolves a stored blob to a short-lived fetch URL for the
	// analysis service.
	SignedURL(ctx context.Context, blobID string) (string, error)
}

// InMemoryStore implements Store with synthetic URLs, standing in for an
// object storage bucket in tests and single-node deployments.
type InMemoryStore struct {
	mu      sync.Mutex
	blobs   map[string]string // blob id -> object path
	baseURL string
}

// NewInMemoryStore creates an in-memory blob store.
func NewInMemoryStore(baseURL string) *InMemoryStore {
	return &InMemoryStore{
		blobs:   make(map[string]string),
		baseURL: baseURL,
	}
}

// CreateUpload issues a grant and records the blob immediately; the in-memory
// store has no separate upload completion step.
func (s *InMemoryStore) CreateUpload(_ context.Context, jumpID, kind string) (Upload, error) {
	if kind != KindVideo && kind != KindSensor {
		return Upload{}, fmt.Errorf("unknown artifact kind %q", kind)
	}

	id := "blob_" + uuid.NewString()
	path := fmt.Sprintf("%s/%s/%s", jumpID, kind, id)

	s.mu.Lock()
	s.blobs[id] = path
	s.mu.Unlock()

	return Upload{
		BlobID:    id,
		UploadURL: fmt.Sprintf("%s/upload/%s", s.baseURL, id),
	}, nil
}

// SignedURL resolves a blob to a synthetic fetch URL.
func (s *InMemoryStore) SignedURL(_ context.Context, blobID string) (string, error) {
	s.mu.Lock()
	path, ok := s.blobs[blobID]
	s.mu.Unlock()
	if !ok {
		return "", ErrBlobNotFound
	}
	return fmt.Sprintf("%s/fetch/%s", s.baseURL, path), nil
}
