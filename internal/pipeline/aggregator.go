// Package pipeline loads cached table snapshots and turns user selections
// into filtered, grouped and averaged trend data.
package pipeline

import (
	"sort"
	"time"

	"github.com/sgdevreal/stimmo/internal/model"

	"github.com/shopspring/decimal"
)

// AggregateSpec names the columns Aggregate reads.
type AggregateSpec struct {
	DateColumn  string
	GroupColumn string // empty aggregates by date only
	ValueColumn string
	CountColumn string
}

type cell struct {
	date  string
	group string
	value decimal.Decimal
	count decimal.Decimal
}

// Aggregate groups records by (extract day, group label), sums the value and
// count measures, and derives average = value sum / count sum. The average
// is nil when the count sum is zero.
//
// Rows without a date, or without a group label when grouping, are dropped.
// A missing measure contributes nothing to its sum. Sums are accumulated in
// decimal so that totals match the source exactly. Points are sorted by date,
// then group.
func Aggregate(records []model.Record, spec AggregateSpec) []model.TrendPoint {
	cells := make(map[[2]string]*cell)

	for _, r := range records {
		d, ok := r.Date(spec.DateColumn)
		if !ok {
			continue
		}
		group := ""
		if spec.GroupColumn != "" {
			if group, ok = r.Label(spec.GroupColumn); !ok {
				continue
			}
		}

		k := [2]string{d.Format(time.DateOnly), group}
		c, ok := cells[k]
		if !ok {
			c = &cell{date: k[0], group: group}
			cells[k] = c
		}
		if v, ok := r.Number(spec.ValueColumn); ok {
			c.value = c.value.Add(decimal.NewFromFloat(v))
		}
		if v, ok := r.Number(spec.CountColumn); ok {
			c.count = c.count.Add(decimal.NewFromFloat(v))
		}
	}

	points := make([]model.TrendPoint, 0, len(cells))
	for _, c := range cells {
		day, _ := time.Parse(time.DateOnly, c.date)
		p := model.TrendPoint{
			Date:     day,
			Group:    c.group,
			ValueSum: c.value.InexactFloat64(),
			CountSum: c.count.InexactFloat64(),
		}
		if !c.count.IsZero() {
			avg := c.value.Div(c.count).InexactFloat64()
			p.Average = &avg
		}
		points = append(points, p)
	}

	sort.Slice(points, func(i, j int) bool {
		if !points[i].Date.Equal(points[j].Date) {
			return points[i].Date.Before(points[j].Date)
		}
		return points[i].Group < points[j].Group
	})
	return points
}

// Totals sums the value and count measures across points.
func Totals(points []model.TrendPoint) (value, count float64) {
	var v, c decimal.Decimal
	for _, p := range points {
		v = v.Add(decimal.NewFromFloat(p.ValueSum))
		c = c.Add(decimal.NewFromFloat(p.CountSum))
	}
	return v.InexactFloat64(), c.InexactFloat64()
}

// SumColumn sums col over records, skipping missing values.
func SumColumn(records []model.Record, col string) float64 {
	var total decimal.Decimal
	for _, r := range records {
		if v, ok := r.Number(col); ok {
			total = total.Add(decimal.NewFromFloat(v))
		}
	}
	return total.InexactFloat64()
}

// Average divides value by count, returning nil for a zero count.
func Average(value, count float64) *float64 {
	if count == 0 {
		return nil
	}
	avg := value / count
	return &avg
}
