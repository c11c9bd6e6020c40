package blobstore

import (
	"context"
	"path"

	"github.com/hupe1980/clusterkit/internal/cache"
)

// CachingStore wraps a BlobStore and keeps whole blobs in a cache, so
// remote datasets are fetched once per process. Pointer blobs named
// CURRENT can change under other writers and are never cached.
type CachingStore struct {
	inner BlobStore
	cache cache.BlockCache
}

// NewCachingStore creates a new CachingStore.
func NewCachingStore(inner BlobStore, c cache.BlockCache) *CachingStore {
	return &CachingStore{
		inner: inner,
		cache: c,
	}
}

const pointerName = "CURRENT"

func blobKey(name string) cache.Key {
	return cache.Key{Kind: cache.KindBlob, Path: name}
}

// Open serves the blob from the cache, reading it through on a miss.
func (s *CachingStore) Open(ctx context.Context, name string) (Blob, error) {
	if path.Base(name) == pointerName {
		return s.inner.Open(ctx, name)
	}
	if data, ok := s.cache.Get(ctx, blobKey(name)); ok {
		return &memoryBlob{data: data}, nil
	}

	data, err := ReadAll(ctx, s.inner, name)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, blobKey(name), data)
	return &memoryBlob{data: data}, nil
}

func (s *CachingStore) Put(ctx context.Context, name string, data []byte) error {
	s.invalidate(name)
	return s.inner.Put(ctx, name, data)
}

func (s *CachingStore) Delete(ctx context.Context, name string) error {
	s.invalidate(name)
	return s.inner.Delete(ctx, name)
}

func (s *CachingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

func (s *CachingStore) invalidate(name string) {
	s.cache.Invalidate(func(key cache.Key) bool {
		return key.Kind == cache.KindBlob && key.Path == name
	})
}
