package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sgdevreal/stimmo/internal/model"
	"github.com/sgdevreal/stimmo/internal/source"
	"github.com/sgdevreal/stimmo/internal/store"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeFetcher struct {
	calls atomic.Int64
	delay time.Duration
	err   error
	build func() *model.Dataset
}

func (f *fakeFetcher) FetchTable(_ context.Context, table string) (*model.Dataset, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.build != nil {
		return f.build(), nil
	}
	return &model.Dataset{Table: table}, nil
}

func TestLoader_ReusesWithinWindow(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	f := &fakeFetcher{}
	l := NewLoader(f, LoaderOptions{TTL: time.Hour, Clock: clock.Now})
	ctx := context.Background()

	first, err := l.Load(ctx, "aggregated_table")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if first.ID == "" || first.Partition != "2024-03-01" {
		t.Fatalf("dataset metadata = (%q, %q)", first.ID, first.Partition)
	}

	clock.Advance(59 * time.Minute)
	second, err := l.Load(ctx, "aggregated_table")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if second != first {
		t.Fatal("dataset refetched inside the cache window")
	}
	if n := f.calls.Load(); n != 1 {
		t.Fatalf("fetches = %d, want 1", n)
	}

	clock.Advance(2 * time.Minute)
	third, err := l.Load(ctx, "aggregated_table")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if third == first || f.calls.Load() != 2 {
		t.Fatalf("expired dataset served; fetches = %d", f.calls.Load())
	}
}

func TestLoader_NewDayIsNewPartition(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 3, 1, 23, 50, 0, 0, time.UTC)}
	f := &fakeFetcher{}
	l := NewLoader(f, LoaderOptions{TTL: time.Hour, Clock: clock.Now})

	a, _ := l.Load(context.Background(), "t")
	clock.Advance(15 * time.Minute)
	b, _ := l.Load(context.Background(), "t")

	if a.Partition == b.Partition || f.calls.Load() != 2 {
		t.Fatalf("partitions (%s, %s) with %d fetches, want two partitions", a.Partition, b.Partition, f.calls.Load())
	}
}

func TestLoader_TablesAreSeparateKeys(t *testing.T) {
	f := &fakeFetcher{}
	l := NewLoader(f, LoaderOptions{})
	_, _ = l.Load(context.Background(), "aggregated_table")
	_, _ = l.Load(context.Background(), "V2aggregated_table")
	if f.calls.Load() != 2 {
		t.Fatalf("fetches = %d, want 2", f.calls.Load())
	}
}

func TestLoader_ConcurrentLoadsShareOneFetch(t *testing.T) {
	f := &fakeFetcher{delay: 50 * time.Millisecond}
	l := NewLoader(f, LoaderOptions{})

	var wg sync.WaitGroup
	results := make([]*model.Dataset, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ds, err := l.Load(context.Background(), "aggregated_table")
			if err != nil {
				t.Errorf("Load: %v", err)
				return
			}
			results[i] = ds
		}(i)
	}
	wg.Wait()

	if n := f.calls.Load(); n != 1 {
		t.Fatalf("fetches = %d, want 1", n)
	}
	for i, ds := range results {
		if ds != results[0] {
			t.Fatalf("result %d is a different dataset", i)
		}
	}
}

// gatedFetcher blocks inside FetchTable until release is closed.
type gatedFetcher struct {
	calls    atomic.Int64
	started  chan struct{}
	release  chan struct{}
	fetchErr error
}

func (f *gatedFetcher) FetchTable(ctx context.Context, table string) (*model.Dataset, error) {
	if f.calls.Add(1) == 1 {
		close(f.started)
	}
	<-f.release
	f.fetchErr = ctx.Err()
	return &model.Dataset{Table: table}, nil
}

func TestLoader_CanceledCallerDoesNotFailOthers(t *testing.T) {
	f := &gatedFetcher{started: make(chan struct{}), release: make(chan struct{})}
	l := NewLoader(f, LoaderOptions{})

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := l.Load(ctxA, "aggregated_table")
		errA <- err
	}()
	<-f.started

	cancelA()
	if err := <-errA; !errors.Is(err, context.Canceled) {
		t.Fatalf("canceled caller err = %v, want context.Canceled", err)
	}

	type result struct {
		ds  *model.Dataset
		err error
	}
	resB := make(chan result, 1)
	go func() {
		ds, err := l.Load(context.Background(), "aggregated_table")
		resB <- result{ds, err}
	}()
	time.Sleep(20 * time.Millisecond)
	close(f.release)

	got := <-resB
	if got.err != nil || got.ds == nil {
		t.Fatalf("second caller = (%v, %v), want dataset", got.ds, got.err)
	}
	if f.fetchErr != nil {
		t.Fatalf("fetch ran with a canceled context: %v", f.fetchErr)
	}
	if n := f.calls.Load(); n != 1 {
		t.Fatalf("fetches = %d, want 1", n)
	}
}

func TestLoader_FailureNeverServesStaleData(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	f := &fakeFetcher{}
	l := NewLoader(f, LoaderOptions{TTL: time.Hour, Clock: clock.Now})

	if _, err := l.Load(context.Background(), "t"); err != nil {
		t.Fatalf("Load: %v", err)
	}

	clock.Advance(2 * time.Hour)
	f.err = source.ErrUnavailable
	ds, err := l.Load(context.Background(), "t")
	if !errors.Is(err, source.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if ds != nil {
		t.Fatal("stale dataset returned alongside the error")
	}
}

func TestLoader_SnapshotStoreTier(t *testing.T) {
	cache, err := store.Open(filepath.Join(t.TempDir(), "snapshots.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer func() { _ = cache.Close() }()

	clock := &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	f := &fakeFetcher{build: func() *model.Dataset {
		return &model.Dataset{
			Columns: []model.Column{{Name: "v", Kind: model.KindNumeric}},
			Records: []model.Record{{Nums: map[string]float64{"v": 42}}},
		}
	}}

	first := NewLoader(f, LoaderOptions{TTL: time.Hour, Clock: clock.Now, Store: cache})
	ds, err := first.Load(context.Background(), "t")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// A second process inside the window reads the snapshot.
	clock.Advance(30 * time.Minute)
	second := NewLoader(f, LoaderOptions{TTL: time.Hour, Clock: clock.Now, Store: cache})
	again, err := second.Load(context.Background(), "t")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if f.calls.Load() != 1 {
		t.Fatalf("fetches = %d, want 1", f.calls.Load())
	}
	if again.ID != ds.ID || len(again.Records) != 1 {
		t.Fatalf("snapshot = %s with %d rows, want %s with 1", again.ID, len(again.Records), ds.ID)
	}

	// Past the window the snapshot is ignored.
	clock.Advance(31 * time.Minute)
	third := NewLoader(f, LoaderOptions{TTL: time.Hour, Clock: clock.Now, Store: cache})
	if _, err := third.Load(context.Background(), "t"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if f.calls.Load() != 2 {
		t.Fatalf("fetches = %d, want 2 after expiry", f.calls.Load())
	}

	third.Invalidate("t")
	if _, err := cache.LoadSnapshot("t", "2024-03-01"); !errors.Is(err, store.ErrNoSnapshot) {
		t.Fatalf("snapshot after Invalidate: err = %v, want ErrNoSnapshot", err)
	}
}
