package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
)

// MemoryStore is an in-memory BlobStore used for local development and
// tests. Objects live for the lifetime of the process.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject

	// failures, when positive, makes the next N puts fail with failErr.
	failures int
	failErr  error
}

type memoryObject struct {
	data        []byte
	contentType string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]memoryObject)}
}

// Put stores an object in memory.
func (m *MemoryStore) Put(ctx context.Context, key, contentType string, body io.ReadSeeker, size int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	if m.failures > 0 {
		m.failures--
		err := m.failErr
		m.mu.Unlock()
		return err
	}
	m.mu.Unlock()

	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = memoryObject{data: data, contentType: contentType}
	return nil
}

// Delete removes an object. Deleting a missing key is a no-op.
func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

// PublicURL returns a synthetic URL for a stored object.
func (m *MemoryStore) PublicURL(key string) string {
	return fmt.Sprintf("memory://media/%s", key)
}

// Get streams a stored object's bytes.
func (m *MemoryStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, _, ok := m.Object(key)
	if !ok {
		return nil, ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Object returns a stored object's bytes and content type.
func (m *MemoryStore) Object(key string) ([]byte, string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, "", false
	}
	data := make([]byte, len(obj.data))
	copy(data, obj.data)
	return data, obj.contentType, true
}

// Len returns the number of stored objects.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

// FailNext makes the next n Put calls fail with err. Used to exercise the
// retry path.
func (m *MemoryStore) FailNext(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = n
	m.failErr = err
}
