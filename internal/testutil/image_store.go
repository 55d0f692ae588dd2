package testutil

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
)

// ImageStoreStub is an in-memory object store.
type ImageStoreStub struct {
	mu        sync.Mutex
	Objects   map[string][]byte
	PutErr    error
	DeleteErr error
	Deleted   []string
}

// NewImageStoreStub returns an empty stub.
func NewImageStoreStub() *ImageStoreStub {
	return &ImageStoreStub{Objects: make(map[string][]byte)}
}

// PutImage stores the object and returns a fake public URL.
func (s *ImageStoreStub) PutImage(_ context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	if s.PutErr != nil {
		return "", s.PutErr
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Objects[key] = buf.Bytes()
	return "http://images.test/" + key, nil
}

// DeleteImage removes the object. Missing objects are not an error.
func (s *ImageStoreStub) DeleteImage(_ context.Context, key string) error {
	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.Objects, key)
	s.Deleted = append(s.Deleted, key)
	return nil
}

// Has reports whether key is stored.
func (s *ImageStoreStub) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.Objects[key]
	return ok
}

// ErrStoreDown is a canned object-store failure.
var ErrStoreDown = errors.New("object store down")
