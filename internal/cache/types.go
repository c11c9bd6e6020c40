package cache

import "context"

// Kind separates key spaces that share one cache.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindBlob         // raw blob contents
	KindDataset      // decoded point matrices
)

// Key identifies a cached value. Values are immutable per key; a changed
// source must be invalidated before it is cached again.
type Key struct {
	Kind Kind
	Path string
}

// BlockCache is a byte-oriented cache for immutable values.
// Returned slices must be treated as read-only.
type BlockCache interface {
	// Get returns a cached value. ok=false if missing.
	Get(ctx context.Context, key Key) (b []byte, ok bool)
	// Set caches a value. The cache retains b; callers must not modify it.
	Set(ctx context.Context, key Key, b []byte)
	// Invalidate removes entries matching the predicate.
	Invalidate(predicate func(key Key) bool)
	// Close releases any resources.
	Close() error
	// Stats returns cache statistics.
	Stats() (hits, misses int64)
}
