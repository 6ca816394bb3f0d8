package pipeline

import (
	"sort"
	"time"

	"github.com/sgdevreal/stimmo/internal/model"
)

// Measure selects which aggregate a series plots.
type Measure int

const (
	MeasureAverage Measure = iota
	MeasureCount
	MeasureValue
)

func (m Measure) pick(p model.TrendPoint) *float64 {
	switch m {
	case MeasureCount:
		v := p.CountSum
		return &v
	case MeasureValue:
		v := p.ValueSum
		return &v
	default:
		return p.Average
	}
}

// PivotSeries lays points out as one series per group on a shared, sorted
// date axis. Dates a group has no point for, and undefined averages, are nil.
func PivotSeries(points []model.TrendPoint, m Measure) ([]time.Time, []model.Series) {
	dateIdx := make(map[time.Time]int)
	var dates []time.Time
	groups := make(map[string]struct{})
	for _, p := range points {
		if _, ok := dateIdx[p.Date]; !ok {
			dateIdx[p.Date] = 0
			dates = append(dates, p.Date)
		}
		groups[p.Group] = struct{}{}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	for i, d := range dates {
		dateIdx[d] = i
	}

	names := make([]string, 0, len(groups))
	for g := range groups {
		names = append(names, g)
	}
	sortLabels(names)

	byName := make(map[string]*model.Series, len(names))
	series := make([]model.Series, len(names))
	for i, n := range names {
		series[i] = model.Series{Name: n, Values: make([]*float64, len(dates))}
		byName[n] = &series[i]
	}
	for _, p := range points {
		byName[p.Group].Values[dateIdx[p.Date]] = m.pick(p)
	}
	return dates, series
}
