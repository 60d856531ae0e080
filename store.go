package buildcache

import (
	"context"
	"io"
)

// ObjectStore is the remote side of the cache.
//
// An entry is addressed by the cache key and the archive name. Implementations
// live under the store/ directory.
type ObjectStore interface {
	// HeadObject reports whether an entry exists. It returns false and a nil
	// error when the entry is absent.
	HeadObject(ctx context.Context, key, name string) (bool, error)

	// PutObject uploads size bytes read from body under (key, name).
	PutObject(ctx context.Context, key, name string, body io.Reader, size int64) error
}

// Builder writes the archive for spec to dst and returns its size.
//
// [archive.Builder] is the default implementation.
type Builder interface {
	Build(ctx context.Context, spec []string, dst string) (int64, error)
}
