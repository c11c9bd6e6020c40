package blobstore

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/hupe1980/clusterkit/resource"
)

// ErrStoreFull is returned by MemoryStore.Put when the blob does not fit in
// the memory budget of the store's resource controller.
var ErrStoreFull = errors.New("blobstore: memory store full")

// MemoryStore is an in-memory BlobStore for tests and ephemeral servers.
//
// Stored bytes are charged to an optional resource.Controller, so an
// ephemeral server holding uploaded datasets and results shares one memory
// budget with its fits.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
	rc    *resource.Controller
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithMemoryController charges stored bytes to rc.
func WithMemoryController(rc *resource.Controller) MemoryOption {
	return func(m *MemoryStore) { m.rc = rc }
}

// NewMemoryStore creates a new in-memory blob store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	m := &MemoryStore{
		blobs: make(map[string][]byte),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Open opens a blob for reading.
func (m *MemoryStore) Open(_ context.Context, name string) (Blob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.blobs[name]
	if !ok {
		return nil, ErrNotFound
	}
	// Stored slices are never mutated in place, so readers can share them.
	return &memoryBlob{data: data}, nil
}

// Put writes a blob atomically.
func (m *MemoryStore) Put(_ context.Context, name string, data []byte) error {
	if !ValidName(name) {
		return ErrInvalidName
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.rc.TryAcquireMemory(int64(len(data))) {
		return ErrStoreFull
	}
	if old, ok := m.blobs[name]; ok {
		m.rc.ReleaseMemory(int64(len(old)))
	}
	m.blobs[name] = append([]byte(nil), data...)
	return nil
}

// Delete removes a blob.
func (m *MemoryStore) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.blobs[name]; ok {
		m.rc.ReleaseMemory(int64(len(old)))
		delete(m.blobs, name)
	}
	return nil
}

// List returns all blobs matching the prefix.
func (m *MemoryStore) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var names []string
	for name := range m.blobs {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// memoryBlob implements Blob over a byte slice.
type memoryBlob struct {
	data []byte
}

func (b *memoryBlob) ReadAt(_ context.Context, p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(b.data)) {
		return 0, io.EOF
	}
	n := copy(p, b.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (b *memoryBlob) Close() error {
	return nil
}

func (b *memoryBlob) Size() int64 {
	return int64(len(b.data))
}

func (b *memoryBlob) Bytes() ([]byte, error) {
	return b.data, nil
}
