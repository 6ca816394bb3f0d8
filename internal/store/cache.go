// Package store provides a SQLite-backed cache of fetched table snapshots,
// so separate runs inside one cache window share a single remote fetch.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sgdevreal/stimmo/internal/model"

	_ "modernc.org/sqlite" // register sqlite driver
)

// ErrNoSnapshot is returned when no snapshot exists for a table/partition.
var ErrNoSnapshot = errors.New("no cached snapshot")

// Cache provides SQLite-backed snapshot caching.
type Cache struct {
	db *sql.DB
}

// Open opens or creates the cache database at the given path.
func Open(dbPath string) (*Cache, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening cache db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Cache{db: db}, nil
}

// Close closes the cache database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// SnapshotInfo describes one cached snapshot without its rows.
type SnapshotInfo struct {
	Table     string
	Partition string
	ID        string
	FetchedAt time.Time
	Rows      int
}

// SaveSnapshot stores ds, replacing any snapshot of the same table and
// partition.
func (c *Cache) SaveSnapshot(ds *model.Dataset) error {
	cols, err := json.Marshal(ds.Columns)
	if err != nil {
		return fmt.Errorf("encoding columns: %w", err)
	}
	rows, err := json.Marshal(ds.Records)
	if err != nil {
		return fmt.Errorf("encoding rows: %w", err)
	}

	_, err = c.db.Exec(`INSERT OR REPLACE INTO snapshots
		(table_name, partition_key, snapshot_id, fetched_at, row_count, columns_json, rows_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ds.Table, ds.Partition, ds.ID, ds.FetchedAt.UTC().Format(time.RFC3339Nano),
		len(ds.Records), string(cols), rows,
	)
	if err != nil {
		return fmt.Errorf("saving snapshot %s@%s: %w", ds.Table, ds.Partition, err)
	}
	return nil
}

// LoadSnapshot reads the snapshot for table and partition.
func (c *Cache) LoadSnapshot(table, partition string) (*model.Dataset, error) {
	var (
		id, fetched string
		cols        string
		rows        []byte
	)
	err := c.db.QueryRow(`SELECT snapshot_id, fetched_at, columns_json, rows_json
		FROM snapshots WHERE table_name = ? AND partition_key = ?`, table, partition).
		Scan(&id, &fetched, &cols, &rows)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot %s@%s: %w", table, partition, err)
	}

	ds := &model.Dataset{ID: id, Table: table, Partition: partition}
	ds.FetchedAt, err = time.Parse(time.RFC3339Nano, fetched)
	if err != nil {
		return nil, fmt.Errorf("parsing snapshot time: %w", err)
	}
	if err := json.Unmarshal([]byte(cols), &ds.Columns); err != nil {
		return nil, fmt.Errorf("decoding columns: %w", err)
	}
	if err := json.Unmarshal(rows, &ds.Records); err != nil {
		return nil, fmt.Errorf("decoding rows: %w", err)
	}
	return ds, nil
}

// DeleteSnapshot removes one snapshot.
func (c *Cache) DeleteSnapshot(table, partition string) error {
	_, err := c.db.Exec("DELETE FROM snapshots WHERE table_name = ? AND partition_key = ?", table, partition)
	return err
}

// PurgeExcept removes every snapshot not in partition, returning the number
// of rows deleted.
func (c *Cache) PurgeExcept(partition string) (int64, error) {
	res, err := c.db.Exec("DELETE FROM snapshots WHERE partition_key <> ?", partition)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Clear removes every snapshot.
func (c *Cache) Clear() error {
	_, err := c.db.Exec("DELETE FROM snapshots")
	return err
}

// Snapshots lists cached snapshots, newest first.
func (c *Cache) Snapshots() ([]SnapshotInfo, error) {
	rows, err := c.db.Query(`SELECT table_name, partition_key, snapshot_id, fetched_at, row_count
		FROM snapshots ORDER BY fetched_at DESC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []SnapshotInfo
	for rows.Next() {
		var si SnapshotInfo
		var fetched string
		if err := rows.Scan(&si.Table, &si.Partition, &si.ID, &fetched, &si.Rows); err != nil {
			return nil, err
		}
		si.FetchedAt, _ = time.Parse(time.RFC3339Nano, fetched)
		out = append(out, si)
	}
	return out, rows.Err()
}
