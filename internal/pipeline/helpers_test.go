package pipeline

import (
	"testing"
	"time"

	"github.com/sgdevreal/stimmo/internal/model"
)

const (
	colDate   = "extractDate"
	colType   = "property.type"
	colBeds   = "property.bedroomCount"
	colPostal = "property.location.postalCode"
	colValue  = "sum_value"
	colCount  = "count_id"
)

var testGrouping = GroupingColumns{
	PostalCode:   colPostal,
	Bedrooms:     colBeds,
	PropertyType: colType,
}

var testColumns = []model.Column{
	{Name: colDate, Kind: model.KindDate},
	{Name: colType, Kind: model.KindCategorical},
	{Name: colBeds, Kind: model.KindNumeric},
	{Name: colPostal, Kind: model.KindCategorical},
	{Name: colValue, Kind: model.KindNumeric},
	{Name: colCount, Kind: model.KindNumeric},
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}

func row(t *testing.T, date, ptype string, beds float64, postal string, value, count float64) model.Record {
	t.Helper()
	return model.Record{
		Cats:  map[string]string{colType: ptype, colPostal: postal},
		Nums:  map[string]float64{colBeds: beds, colValue: value, colCount: count},
		Dates: map[string]time.Time{colDate: day(t, date)},
	}
}

func fixtureRecords(t *testing.T) []model.Record {
	t.Helper()
	return []model.Record{
		row(t, "2023-06-20", "APARTMENT", 1, "1170", 100, 1),
		row(t, "2023-06-25", "APARTMENT", 2, "1170", 300, 2),
		row(t, "2023-06-25", "HOUSE", 3, "1170", 900, 2),
		row(t, "2023-06-25", "APARTMENT", 2, "1000", 420, 2),
		row(t, "2023-06-30", "HOUSE", 4, "1000", 1500, 3),
		row(t, "2023-06-30", "APARTMENT", 1, "1050", 0, 0),
	}
}

func fixtureDataset(t *testing.T) *model.Dataset {
	t.Helper()
	return &model.Dataset{
		Table:   "aggregated_table",
		Columns: testColumns,
		Records: fixtureRecords(t),
	}
}
