package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sgdevreal/stimmo/internal/model"
	"github.com/sgdevreal/stimmo/internal/store"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL is how long a fetched dataset is reused.
const DefaultTTL = time.Hour

// Clock returns the current time.
type Clock func() time.Time

// Fetcher reads a full table from the remote datastore.
type Fetcher interface {
	FetchTable(ctx context.Context, table string) (*model.Dataset, error)
}

// SnapshotStore persists datasets across process runs.
type SnapshotStore interface {
	SaveSnapshot(ds *model.Dataset) error
	LoadSnapshot(table, partition string) (*model.Dataset, error)
	DeleteSnapshot(table, partition string) error
}

// PartitionKey is the cache partition for t: its calendar day. A new day
// always starts a new partition even inside the TTL.
func PartitionKey(t time.Time) string {
	return t.Format(time.DateOnly)
}

type cacheEntry struct {
	ds        *model.Dataset
	fetchedAt time.Time
}

// DatasetCache keeps one dataset per table@partition key for at most ttl.
type DatasetCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     Clock
	entries map[string]cacheEntry
}

// NewDatasetCache returns an empty cache.
func NewDatasetCache(ttl time.Duration, clock Clock) *DatasetCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clock == nil {
		clock = time.Now
	}
	return &DatasetCache{ttl: ttl, now: clock, entries: make(map[string]cacheEntry)}
}

// Get returns the dataset under key if it is still inside its window.
// Expired entries are evicted, never returned.
func (c *DatasetCache) Get(key string) (*model.Dataset, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !c.fresh(e.fetchedAt) {
		delete(c.entries, key)
		return nil, false
	}
	return e.ds, true
}

// Put stores ds under key, stamped with ds.FetchedAt.
func (c *DatasetCache) Put(key string, ds *model.Dataset) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{ds: ds, fetchedAt: ds.FetchedAt}
}

// Invalidate drops every entry for table, or everything when table is empty.
func (c *DatasetCache) Invalidate(table string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if table == "" || strings.HasPrefix(k, table+"@") {
			delete(c.entries, k)
		}
	}
}

// Len returns the number of entries, fresh or not.
func (c *DatasetCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *DatasetCache) fresh(fetchedAt time.Time) bool {
	return c.now().Sub(fetchedAt) < c.ttl
}

// LoaderOptions configure a Loader.
type LoaderOptions struct {
	TTL   time.Duration
	Clock Clock
	Store SnapshotStore // optional on-disk tier
	Logf  func(format string, args ...any)
}

// Loader returns the dataset of a table for the current partition, reading
// through an in-process cache, an optional snapshot store, and finally the
// remote datastore. Concurrent loads of one key share a single fetch.
type Loader struct {
	fetcher Fetcher
	store   SnapshotStore
	cache   *DatasetCache
	now     Clock
	logf    func(format string, args ...any)
	group   singleflight.Group
}

// NewLoader returns a Loader over f.
func NewLoader(f Fetcher, opts LoaderOptions) *Loader {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logf == nil {
		opts.Logf = func(string, ...any) {}
	}
	return &Loader{
		fetcher: f,
		store:   opts.Store,
		cache:   NewDatasetCache(opts.TTL, opts.Clock),
		now:     opts.Clock,
		logf:    opts.Logf,
	}
}

// Load returns the dataset for table. A failed fetch is returned as an
// error; data from an expired window is never served in its place.
func (l *Loader) Load(ctx context.Context, table string) (*model.Dataset, error) {
	partition := PartitionKey(l.now())
	key := table + "@" + partition

	if ds, ok := l.cache.Get(key); ok {
		return ds, nil
	}

	// The shared fetch outlives any one caller; each caller still stops
	// waiting when its own ctx is done.
	fetchCtx := context.WithoutCancel(ctx)
	ch := l.group.DoChan(key, func() (any, error) {
		if ds, ok := l.cache.Get(key); ok {
			return ds, nil
		}

		if l.store != nil {
			ds, err := l.store.LoadSnapshot(table, partition)
			switch {
			case err == nil && l.cache.fresh(ds.FetchedAt):
				l.logf("loaded %s from snapshot %s", table, ds.ID)
				l.cache.Put(key, ds)
				return ds, nil
			case err != nil && !errors.Is(err, store.ErrNoSnapshot):
				l.logf("snapshot store unavailable: %v", err)
			}
		}

		ds, err := l.fetcher.FetchTable(fetchCtx, table)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", table, err)
		}
		ds.ID = uuid.NewString()
		ds.Table = table
		ds.Partition = partition
		ds.FetchedAt = l.now()
		l.logf("fetched %s (%d rows)", table, len(ds.Records))

		l.cache.Put(key, ds)
		if l.store != nil {
			if err := l.store.SaveSnapshot(ds); err != nil {
				l.logf("saving snapshot of %s: %v", table, err)
			}
		}
		return ds, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*model.Dataset), nil
	}
}

// Invalidate forgets the current partition of table in every tier, or of
// every cached table when table is empty.
func (l *Loader) Invalidate(tables ...string) {
	partition := PartitionKey(l.now())
	if len(tables) == 0 {
		l.cache.Invalidate("")
		return
	}
	for _, t := range tables {
		l.cache.Invalidate(t)
		if l.store != nil {
			if err := l.store.DeleteSnapshot(t, partition); err != nil {
				l.logf("deleting snapshot of %s: %v", t, err)
			}
		}
	}
}

// CacheDir returns the platform-appropriate cache directory.
func CacheDir() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "stimmo")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cache", "stimmo")
}

// CachePath returns the full path to the snapshot database.
func CachePath() string {
	return filepath.Join(CacheDir(), "snapshots.db")
}
