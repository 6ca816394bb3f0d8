// Package source reads table snapshots and listing samples from the
// analytical datastore over database/sql.
package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/sgdevreal/stimmo/internal/model"
	"github.com/sgdevreal/stimmo/internal/query"

	_ "github.com/lib/pq"  // register postgres driver
	_ "modernc.org/sqlite" // register sqlite driver
)

// ErrUnavailable marks a datastore that could not be reached or rejected
// the configured credentials.
var ErrUnavailable = errors.New("datastore unavailable")

// Options configures a Warehouse.
type Options struct {
	Driver string // "postgres" or "sqlite"
	DSN    string

	// CategoricalColumns are always loaded as labels, whatever their stored
	// type. Postal codes belong here.
	CategoricalColumns []string
	DateColumns        []string

	ConnectTimeout time.Duration
}

// Warehouse is a lazily connected, read-only handle on the datastore.
type Warehouse struct {
	opts Options

	mu sync.Mutex
	db *sql.DB
}

// New returns a Warehouse; no connection is made until the first query.
func New(opts Options) *Warehouse {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	return &Warehouse{opts: opts}
}

// Close releases the underlying connection pool.
func (w *Warehouse) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.db == nil {
		return nil
	}
	err := w.db.Close()
	w.db = nil
	return err
}

func driverName(driver string) (string, error) {
	switch strings.ToLower(driver) {
	case "postgres", "postgresql", "pq", "":
		return "postgres", nil
	case "sqlite", "sqlite3":
		return "sqlite", nil
	default:
		return "", fmt.Errorf("unsupported datastore driver %q", driver)
	}
}

func (w *Warehouse) placeholder() query.Placeholder {
	if name, _ := driverName(w.opts.Driver); name == "sqlite" {
		return query.Question
	}
	return query.Dollar
}

func (w *Warehouse) conn(ctx context.Context) (*sql.DB, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.db != nil {
		return w.db, nil
	}
	name, err := driverName(w.opts.Driver)
	if err != nil {
		return nil, err
	}
	if w.opts.DSN == "" {
		return nil, fmt.Errorf("%w: no connection string configured", ErrUnavailable)
	}

	db, err := sql.Open(name, w.opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %w", ErrUnavailable, name, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, w.opts.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)
	w.db = db
	return db, nil
}

// FetchTable reads every row of table and resolves each column to a kind
// once, up front.
func (w *Warehouse) FetchTable(ctx context.Context, table string) (*model.Dataset, error) {
	db, err := w.conn(ctx)
	if err != nil {
		return nil, err
	}

	stmt, args, err := query.Select{Table: table}.Build(w.placeholder())
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("reading columns of %s: %w", table, err)
	}

	var raw [][]any
	for rows.Next() {
		vals := make([]any, len(types))
		ptrs := make([]any, len(types))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", table, err)
		}
		raw = append(raw, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", table, err)
	}

	cols := w.classify(types, raw)
	records := make([]model.Record, len(raw))
	for i, row := range raw {
		records[i] = toRecord(cols, row)
	}

	return &model.Dataset{
		Table:   table,
		Columns: cols,
		Records: records,
	}, nil
}

func (w *Warehouse) classify(types []*sql.ColumnType, raw [][]any) []model.Column {
	cols := make([]model.Column, len(types))
	for i, ct := range types {
		name := ct.Name()
		var kind model.ColumnKind
		switch {
		case slices.Contains(w.opts.CategoricalColumns, name):
			kind = model.KindCategorical
		case slices.Contains(w.opts.DateColumns, name):
			kind = model.KindDate
		default:
			var ok bool
			if kind, ok = kindFromType(ct.DatabaseTypeName()); !ok {
				kind = kindFromValues(raw, i)
			}
		}
		cols[i] = model.Column{Name: name, Kind: kind}
	}
	return cols
}

func toRecord(cols []model.Column, row []any) model.Record {
	rec := model.Record{
		Cats:  make(map[string]string),
		Nums:  make(map[string]float64),
		Dates: make(map[string]time.Time),
	}
	for i, c := range cols {
		v := row[i]
		if v == nil {
			continue
		}
		switch c.Kind {
		case model.KindNumeric:
			if f, ok := toFloat(v); ok {
				rec.Nums[c.Name] = f
			}
		case model.KindDate:
			if t, ok := toTime(v); ok {
				rec.Dates[c.Name] = t
			}
		default:
			if s, ok := toText(v); ok {
				rec.Cats[c.Name] = s
			}
		}
	}
	return rec
}
