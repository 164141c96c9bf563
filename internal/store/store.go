// Package store persists the calendar cache between runs.
//
// Two backends are provided. FileStore writes one pretty-printed JSON document
// and replaces it atomically on every save. BoltStore keeps the same sections
// in a bbolt database, whose exclusive file lock keeps two processes from
// writing the same cache.
//
// A cache that cannot be parsed is not fatal: Load returns an empty cache and
// a Warning wrapping ErrCorruptCache so the caller can report the data loss.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/teemow/talendar/internal/cache"
)

var (
	// ErrCorruptCache is wrapped by LoadResult.Warning when persisted state was discarded.
	ErrCorruptCache = errors.New("cache file is corrupt")

	// ErrCacheLocked is returned when another process holds the cache database.
	ErrCacheLocked = errors.New("cache is locked by another process")
)

// Backend names accepted by New.
const (
	BackendJSON = "json"
	BackendBolt = "bolt"
)

// LoadResult is the outcome of loading a cache.
type LoadResult struct {
	// Cache is never nil.
	Cache *cache.Cache

	// Warning is set when persisted state existed but had to be discarded.
	Warning error
}

// Store loads and saves a cache.
type Store interface {
	Load(ctx context.Context) (LoadResult, error)
	Save(ctx context.Context, c *cache.Cache) error
	Path() string
}

// New returns the store for the named backend.
func New(backend, path string) (Store, error) {
	switch backend {
	case "", BackendJSON:
		return NewFileStore(path), nil
	case BackendBolt:
		return NewBoltStore(path), nil
	default:
		return nil, fmt.Errorf("unsupported cache backend: %s", backend)
	}
}
