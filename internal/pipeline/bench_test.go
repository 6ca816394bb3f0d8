package pipeline

import (
	"fmt"
	"testing"
	"time"

	"github.com/sgdevreal/stimmo/internal/model"
)

func syntheticRecords(n int) []model.Record {
	types := []string{"APARTMENT", "HOUSE"}
	postals := []string{"1000", "1050", "1170", "1180", "1200"}
	start := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)

	records := make([]model.Record, n)
	for i := range records {
		records[i] = model.Record{
			Cats: map[string]string{
				colType:   types[i%len(types)],
				colPostal: postals[i%len(postals)],
			},
			Nums: map[string]float64{
				colBeds:  float64(i%5 + 1),
				colValue: float64(250000 + i%997*100),
				colCount: float64(i%3 + 1),
			},
			Dates: map[string]time.Time{colDate: start.AddDate(0, 0, i%90)},
		}
	}
	return records
}

func BenchmarkApplyFilters(b *testing.B) {
	records := syntheticRecords(50_000)
	sel := model.Selection{
		Filters: []model.Filter{
			model.Categorical(colType, "APARTMENT", "HOUSE"),
			model.Categorical(colBeds, "2", "3", "4"),
			model.Categorical(colPostal, "1170", "1000"),
		},
		Cutoff: true,
	}
	opts := FilterOptions{DateColumn: colDate, Cutoff: time.Date(2023, 6, 24, 0, 0, 0, 0, time.UTC)}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = ApplyFilters(records, sel, opts)
	}
}

func BenchmarkAggregate(b *testing.B) {
	records := syntheticRecords(50_000)
	for _, group := range []string{colType, colPostal} {
		b.Run(fmt.Sprintf("group=%s", group), func(b *testing.B) {
			spec := AggregateSpec{DateColumn: colDate, GroupColumn: group, ValueColumn: colValue, CountColumn: colCount}
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = Aggregate(records, spec)
			}
		})
	}
}
