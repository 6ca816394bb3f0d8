package source

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/sgdevreal/stimmo/internal/model"
	"github.com/sgdevreal/stimmo/internal/query"
)

// ListingColumns names the fact-table columns read for the listing sample.
type ListingColumns struct {
	ID           string `toml:"id"`
	PropertyType string `toml:"property_type"`
	Bedrooms     string `toml:"bedrooms"`
	Surface      string `toml:"surface"`
	PostalCode   string `toml:"postal_code"`
	Price        string `toml:"price"`
	ExtractDate  string `toml:"extract_date"`
}

func (c ListingColumns) list() []string {
	return []string{c.ID, c.PropertyType, c.Bedrooms, c.Surface, c.PostalCode, c.Price, c.ExtractDate}
}

// ListingQuery is an on-demand, bounded read of the listing fact table.
type ListingQuery struct {
	Table     string
	Columns   ListingColumns
	Where     query.Predicate
	Limit     int
	URLPrefix string
}

// SampleListings returns at most q.Limit listings matching q.Where, newest
// extract date first.
func (w *Warehouse) SampleListings(ctx context.Context, q ListingQuery) ([]model.Listing, error) {
	db, err := w.conn(ctx)
	if err != nil {
		return nil, err
	}

	stmt, args, err := query.Select{
		Table:   q.Table,
		Columns: q.Columns.list(),
		Where:   q.Where,
		OrderBy: q.Columns.ExtractDate,
		Desc:    true,
		Limit:   q.Limit,
	}.Build(w.placeholder())
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("querying listings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Listing
	for rows.Next() {
		var id, ptype, beds, surface, postal, price, extracted any
		if err := rows.Scan(&id, &ptype, &beds, &surface, &postal, &price, &extracted); err != nil {
			return nil, fmt.Errorf("scanning listing: %w", err)
		}

		var l model.Listing
		l.ID, _ = toText(id)
		l.PropertyType, _ = toText(ptype)
		l.PostalCode, _ = toText(postal)
		l.Bedrooms = floatPtr(beds)
		l.Surface = floatPtr(surface)
		l.Price = floatPtr(price)
		l.ExtractDate, _ = toTime(extracted)
		l.URL = q.URLPrefix + l.ID
		out = append(out, l)
	}
	return out, rows.Err()
}

func floatPtr(v any) *float64 {
	if v == nil {
		return nil
	}
	f, ok := toFloat(v)
	if !ok {
		return nil
	}
	return &f
}

// Predicate translates a selection into a WHERE tree with the same
// semantics as the in-memory row filter: categorical filters become IN,
// ranges become BETWEEN, and the cutoff becomes dateColumn >= cutoff.
// Filters on ignored columns are dropped.
func Predicate(sel model.Selection, dateColumn string, cutoff time.Time, ignore []string) query.Predicate {
	var ps []query.Predicate
	for _, f := range sel.Filters {
		if slices.Contains(ignore, f.Column) {
			continue
		}
		switch f.Kind {
		case model.FilterRange:
			ps = append(ps, query.Between(f.Column, f.Min, f.Max))
		default:
			vals := make([]any, len(f.Values))
			for i, v := range f.Values {
				vals[i] = v
			}
			ps = append(ps, query.In(f.Column, vals...))
		}
	}
	if sel.Cutoff && dateColumn != "" {
		ps = append(ps, query.Gte(dateColumn, cutoff.Format(time.DateOnly)))
	}
	return query.And(ps...)
}
