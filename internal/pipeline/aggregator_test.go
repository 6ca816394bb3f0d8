package pipeline

import (
	"math"
	"testing"

	"github.com/sgdevreal/stimmo/internal/model"
)

func TestGroupingKey(t *testing.T) {
	tests := []struct {
		name    string
		filters []model.Filter
		want    string
	}{
		{"nothing selected", nil, colType},
		{"one postal code", []model.Filter{model.Categorical(colPostal, "1170")}, colType},
		{"one bedroom count", []model.Filter{model.Categorical(colBeds, "2")}, colType},
		{"two bedroom counts", []model.Filter{model.Categorical(colBeds, "2", "3")}, colBeds},
		{"two postal codes", []model.Filter{model.Categorical(colPostal, "1170", "1000")}, colPostal},
		{"postal beats bedrooms", []model.Filter{
			model.Categorical(colBeds, "1", "2", "3"),
			model.Categorical(colPostal, "1170", "1000"),
			model.Categorical(colType, "HOUSE", "APARTMENT"),
		}, colPostal},
		{"one postal code falls through to bedrooms", []model.Filter{
			model.Categorical(colPostal, "1170"),
			model.Categorical(colBeds, "1", "2"),
		}, colBeds},
		{"range on bedrooms does not group", []model.Filter{model.Range(colBeds, 1, 4)}, colType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GroupingKey(model.Selection{Filters: tt.filters}, testGrouping)
			if got != tt.want {
				t.Fatalf("GroupingKey = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAggregate_SumsAndAverages(t *testing.T) {
	points := Aggregate(fixtureRecords(t), AggregateSpec{
		DateColumn:  colDate,
		GroupColumn: colType,
		ValueColumn: colValue,
		CountColumn: colCount,
	})

	type key struct{ date, group string }
	got := make(map[key]model.TrendPoint)
	for _, p := range points {
		got[key{p.Date.Format("2006-01-02"), p.Group}] = p
	}

	apt := got[key{"2023-06-25", "APARTMENT"}]
	if apt.ValueSum != 720 || apt.CountSum != 4 {
		t.Fatalf("APARTMENT 06-25 sums = (%v, %v), want (720, 4)", apt.ValueSum, apt.CountSum)
	}
	if apt.Average == nil || *apt.Average != 180 {
		t.Fatalf("APARTMENT 06-25 average = %v, want 180", apt.Average)
	}

	if len(points) != 5 {
		t.Fatalf("points = %d, want 5", len(points))
	}
	for i := 1; i < len(points); i++ {
		prev, cur := points[i-1], points[i]
		if cur.Date.Before(prev.Date) || (cur.Date.Equal(prev.Date) && cur.Group < prev.Group) {
			t.Fatalf("points not sorted at %d: %v/%s after %v/%s", i, cur.Date, cur.Group, prev.Date, prev.Group)
		}
	}
}

func TestAggregate_ZeroCountAverageUndefined(t *testing.T) {
	points := Aggregate(fixtureRecords(t), AggregateSpec{
		DateColumn:  colDate,
		GroupColumn: colPostal,
		ValueColumn: colValue,
		CountColumn: colCount,
	})

	var found bool
	for _, p := range points {
		if p.Group == "1050" {
			found = true
			if p.Average != nil {
				t.Fatalf("average with zero count = %v, want nil", *p.Average)
			}
			if p.CountSum != 0 {
				t.Fatalf("count sum = %v, want 0", p.CountSum)
			}
		} else if p.Average == nil {
			t.Fatalf("group %s on %v has nil average with count %v", p.Group, p.Date, p.CountSum)
		}
	}
	if !found {
		t.Fatal("zero-count group missing from output")
	}
}

func TestAggregate_GroupSumsMatchFilteredTotal(t *testing.T) {
	records := append(fixtureRecords(t),
		row(t, "2023-06-30", "HOUSE", 2, "1000", 0.1, 1),
		row(t, "2023-06-30", "HOUSE", 2, "1000", 0.2, 1),
	)
	for _, group := range []string{"", colType, colBeds, colPostal} {
		points := Aggregate(records, AggregateSpec{
			DateColumn:  colDate,
			GroupColumn: group,
			ValueColumn: colValue,
			CountColumn: colCount,
		})
		value, count := Totals(points)
		if want := SumColumn(records, colValue); math.Abs(value-want) > 1e-9 {
			t.Errorf("group %q: value total = %v, want %v", group, value, want)
		}
		if want := SumColumn(records, colCount); count != want {
			t.Errorf("group %q: count total = %v, want %v", group, count, want)
		}
	}
}

func TestAggregate_DropsRowsWithoutDateOrGroup(t *testing.T) {
	records := []model.Record{
		{Cats: map[string]string{colType: "HOUSE"}, Nums: map[string]float64{colValue: 1, colCount: 1}},
		row(t, "2023-06-25", "HOUSE", 2, "1170", 10, 1),
	}
	delete(records[1].Cats, colPostal)

	points := Aggregate(records, AggregateSpec{DateColumn: colDate, GroupColumn: colPostal, ValueColumn: colValue, CountColumn: colCount})
	if len(points) != 0 {
		t.Fatalf("points = %+v, want none", points)
	}
}

// Two rows, cutoff 2023-06-24: only the second survives, averaging 300/2.
func TestTrendEndToEnd(t *testing.T) {
	records := []model.Record{
		row(t, "2023-06-20", "A", 1, "1170", 100, 1),
		row(t, "2023-06-25", "A", 1, "1170", 300, 2),
	}
	sel := model.Selection{Cutoff: true}

	filtered := ApplyFilters(records, sel, FilterOptions{DateColumn: colDate, Cutoff: day(t, "2023-06-24")})
	if len(filtered) != 1 {
		t.Fatalf("filtered = %d rows, want 1", len(filtered))
	}
	if d, _ := filtered[0].Date(colDate); !d.Equal(day(t, "2023-06-25")) {
		t.Fatalf("surviving row dated %v, want 2023-06-25", d)
	}

	points := Aggregate(filtered, AggregateSpec{
		DateColumn:  colDate,
		GroupColumn: GroupingKey(sel, testGrouping),
		ValueColumn: colValue,
		CountColumn: colCount,
	})
	if len(points) != 1 {
		t.Fatalf("points = %d, want 1", len(points))
	}
	p := points[0]
	if p.Group != "A" || p.Average == nil || *p.Average != 150 {
		t.Fatalf("point = %+v, want group A average 150", p)
	}
}

func TestPivotSeries(t *testing.T) {
	points := Aggregate(fixtureRecords(t), AggregateSpec{
		DateColumn:  colDate,
		GroupColumn: colPostal,
		ValueColumn: colValue,
		CountColumn: colCount,
	})
	dates, series := PivotSeries(points, MeasureAverage)

	if len(dates) != 3 {
		t.Fatalf("dates = %d, want 3", len(dates))
	}
	wantNames := []string{"1000", "1050", "1170"}
	if len(series) != len(wantNames) {
		t.Fatalf("series = %d, want %d", len(series), len(wantNames))
	}
	for i, s := range series {
		if s.Name != wantNames[i] {
			t.Errorf("series[%d] = %q, want %q", i, s.Name, wantNames[i])
		}
		if len(s.Values) != len(dates) {
			t.Errorf("series %q has %d values, want %d", s.Name, len(s.Values), len(dates))
		}
	}

	// 1050 only has a zero-count row on the last date.
	for i, v := range series[1].Values {
		if v != nil {
			t.Errorf("1050 value at %v = %v, want gap", dates[i], *v)
		}
	}
	// 1170 on 2023-06-20 is 100/1.
	if v := series[2].Values[0]; v == nil || *v != 100 {
		t.Errorf("1170 first value = %v, want 100", v)
	}

	_, counts := PivotSeries(points, MeasureCount)
	if v := counts[1].Values[2]; v == nil || *v != 0 {
		t.Errorf("1050 count on last date = %v, want 0", v)
	}
}
