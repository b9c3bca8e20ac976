package blobsvc

import (
	"context"
	"sync"

	"github.com/iamthanushgowdap/apsconnect/core"
)

// DummyStore keeps blobs in memory; used in DEV and tests.
type DummyStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte

	// FailUploads makes every Upload fail; for failure-path tests.
	FailUploads bool
}

var _ core.BlobStore = (*DummyStore)(nil)

func NewDummyStore() *DummyStore {
	return &DummyStore{blobs: make(map[string][]byte)}
}

func (s *DummyStore) Upload(ctx context.Context, key string, data []byte) (string, error) {
	if s.FailUploads {
		return "", context.DeadlineExceeded
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = data
	return "memory://" + key, nil
}

func (s *DummyStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
	return nil
}

// Has reports whether a blob exists; test helper.
func (s *DummyStore) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.blobs[key]
	return ok
}
