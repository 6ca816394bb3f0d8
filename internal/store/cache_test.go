package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/sgdevreal/stimmo/internal/model"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "cache", "stimmo.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func sampleDataset(partition string) *model.Dataset {
	return &model.Dataset{
		ID:        "8f14e45f-ceea-467f-a0e6-1b2c3d4e5f60",
		Table:     "aggregated_table",
		Partition: partition,
		FetchedAt: time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
		Columns: []model.Column{
			{Name: "extractDate", Kind: model.KindDate},
			{Name: "property.type", Kind: model.KindCategorical},
			{Name: "sum_value", Kind: model.KindNumeric},
		},
		Records: []model.Record{
			{
				Cats:  map[string]string{"property.type": "HOUSE"},
				Nums:  map[string]float64{"sum_value": 425000.5},
				Dates: map[string]time.Time{"extractDate": time.Date(2023, 6, 25, 0, 0, 0, 0, time.UTC)},
			},
		},
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	c := openTestCache(t)
	ds := sampleDataset("2024-03-01")

	if err := c.SaveSnapshot(ds); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	got, err := c.LoadSnapshot("aggregated_table", "2024-03-01")
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if got.ID != ds.ID || !got.FetchedAt.Equal(ds.FetchedAt) {
		t.Errorf("metadata = (%s, %v), want (%s, %v)", got.ID, got.FetchedAt, ds.ID, ds.FetchedAt)
	}
	if len(got.Columns) != 3 || got.Columns[2].Kind != model.KindNumeric {
		t.Errorf("columns = %+v", got.Columns)
	}
	if v, _ := got.Records[0].Number("sum_value"); v != 425000.5 {
		t.Errorf("sum_value = %v, want 425000.5", v)
	}
	if d, _ := got.Records[0].Date("extractDate"); !d.Equal(time.Date(2023, 6, 25, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("extractDate = %v", d)
	}
}

func TestLoadSnapshot_Missing(t *testing.T) {
	c := openTestCache(t)
	if _, err := c.LoadSnapshot("aggregated_table", "2024-03-01"); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("err = %v, want ErrNoSnapshot", err)
	}
}

func TestPurgeExcept(t *testing.T) {
	c := openTestCache(t)
	for _, p := range []string{"2024-02-28", "2024-02-29", "2024-03-01"} {
		if err := c.SaveSnapshot(sampleDataset(p)); err != nil {
			t.Fatalf("SaveSnapshot(%s): %v", p, err)
		}
	}

	n, err := c.PurgeExcept("2024-03-01")
	if err != nil {
		t.Fatalf("PurgeExcept: %v", err)
	}
	if n != 2 {
		t.Errorf("purged = %d, want 2", n)
	}

	infos, err := c.Snapshots()
	if err != nil {
		t.Fatalf("Snapshots: %v", err)
	}
	if len(infos) != 1 || infos[0].Partition != "2024-03-01" || infos[0].Rows != 1 {
		t.Fatalf("snapshots = %+v", infos)
	}

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	infos, _ = c.Snapshots()
	if len(infos) != 0 {
		t.Fatalf("snapshots after Clear = %d, want 0", len(infos))
	}
}
