package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/teemow/talendar/internal/cache"
)

const (
	rootBucket = "cache"

	keySyncTokens = "sync_tokens"
	keyEvents     = "events"
	keyCalendars  = "calendars"
	keyColors     = "colors"

	corruptSuffix = ".corrupt"

	// DefaultLockTimeout bounds how long Load and Save wait for another process' lock.
	DefaultLockTimeout = time.Second
)

// BoltStore persists the cache in a bbolt database. Each section of the cache
// document is stored as a JSON value under the root bucket.
type BoltStore struct {
	path        string
	lockTimeout time.Duration
}

// NewBoltStore returns a BoltStore for the database at path.
func NewBoltStore(path string) *BoltStore {
	return &BoltStore{path: path, lockTimeout: DefaultLockTimeout}
}

// Path returns the database path.
func (s *BoltStore) Path() string {
	return s.path
}

func (s *BoltStore) open() (*bolt.DB, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	db, err := bolt.Open(s.path, 0o600, &bolt.Options{Timeout: s.lockTimeout})
	if err != nil {
		if errors.Is(err, bolt.ErrTimeout) {
			return nil, fmt.Errorf("%w: %s", ErrCacheLocked, s.path)
		}
		return nil, fmt.Errorf("could not open db %s: %w", s.path, err)
	}
	return db, nil
}

// reopenAside moves an unopenable database to <path>.corrupt and opens a
// fresh one in its place.
func (s *BoltStore) reopenAside(cause error) (*bolt.DB, error) {
	if err := os.Rename(s.path, s.path+corruptSuffix); err != nil {
		return nil, fmt.Errorf("%w (moving it aside failed: %v)", cause, err)
	}
	return s.open()
}

// Load reads all sections. A missing database yields an empty cache; an
// unreadable section yields an empty cache and a warning.
func (s *BoltStore) Load(_ context.Context) (LoadResult, error) {
	if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		return LoadResult{Cache: cache.New()}, nil
	}

	db, err := s.open()
	if err != nil {
		if errors.Is(err, ErrCacheLocked) {
			return LoadResult{}, err
		}
		return LoadResult{
			Cache:   cache.New(),
			Warning: fmt.Errorf("%w: %v", ErrCorruptCache, err),
		}, nil
	}
	defer db.Close()

	doc := cache.NewDocument()
	err = db.View(func(tx *bolt.Tx) error {
		root := tx.Bucket([]byte(rootBucket))
		if root == nil {
			return nil
		}
		sections := map[string]any{
			keySyncTokens: &doc.SyncTokens,
			keyEvents:     &doc.Events,
			keyCalendars:  &doc.Calendars,
			keyColors:     &doc.Colors,
		}
		for key, dst := range sections {
			raw := root.Get([]byte(key))
			if raw == nil {
				continue
			}
			if err := json.Unmarshal(raw, dst); err != nil {
				return fmt.Errorf("section %s: %w", key, err)
			}
		}
		return nil
	})
	if err != nil {
		return LoadResult{
			Cache:   cache.New(),
			Warning: fmt.Errorf("%w: %s: %v", ErrCorruptCache, s.path, err),
		}, nil
	}
	return LoadResult{Cache: cache.FromDocument(doc)}, nil
}

// Save writes every section in one transaction. A database that cannot be
// opened for a reason other than locking is moved aside first.
func (s *BoltStore) Save(_ context.Context, c *cache.Cache) error {
	doc := c.Document()

	sections := map[string]any{
		keySyncTokens: doc.SyncTokens,
		keyEvents:     doc.Events,
		keyCalendars:  doc.Calendars,
		keyColors:     doc.Colors,
	}
	encoded := make(map[string][]byte, len(sections))
	for key, v := range sections {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode cache section %s: %w", key, err)
		}
		encoded[key] = raw
	}

	db, err := s.open()
	if err != nil && !errors.Is(err, ErrCacheLocked) {
		db, err = s.reopenAside(err)
	}
	if err != nil {
		return err
	}
	defer db.Close()

	return db.Update(func(tx *bolt.Tx) error {
		root, err := tx.CreateBucketIfNotExists([]byte(rootBucket))
		if err != nil {
			return fmt.Errorf("unable to create root bucket %s: %w", rootBucket, err)
		}
		for key, raw := range encoded {
			if err := root.Put([]byte(key), raw); err != nil {
				return fmt.Errorf("failed to store cache section %s: %w", key, err)
			}
		}
		return nil
	})
}
