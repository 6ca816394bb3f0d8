// Package model defines domain types for stimmo datasets, selections and trends.
package model

import (
	"strconv"
	"time"
)

// ColumnKind is the value type a column was resolved to at load time.
type ColumnKind int

const (
	KindCategorical ColumnKind = iota
	KindNumeric
	KindDate
)

func (k ColumnKind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindDate:
		return "date"
	default:
		return "categorical"
	}
}

// Column describes one dataset column.
type Column struct {
	Name string     `json:"name" yaml:"name"`
	Kind ColumnKind `json:"kind" yaml:"kind"`
}

// Record is one row of a raw dataset. A column missing from every map is
// a missing value, never a zero.
type Record struct {
	Cats  map[string]string    `json:"cats,omitempty"`
	Nums  map[string]float64   `json:"nums,omitempty"`
	Dates map[string]time.Time `json:"dates,omitempty"`
}

// Text returns the categorical value stored for col.
func (r Record) Text(col string) (string, bool) {
	v, ok := r.Cats[col]
	return v, ok
}

// Number returns the numeric value stored for col.
func (r Record) Number(col string) (float64, bool) {
	v, ok := r.Nums[col]
	return v, ok
}

// Date returns the date value stored for col.
func (r Record) Date(col string) (time.Time, bool) {
	v, ok := r.Dates[col]
	return v, ok
}

// Label returns the display form of col regardless of its kind, so numeric
// columns such as bedroom counts can be matched and grouped as labels.
func (r Record) Label(col string) (string, bool) {
	if v, ok := r.Cats[col]; ok {
		return v, true
	}
	if v, ok := r.Nums[col]; ok {
		return FormatNumber(v), true
	}
	if v, ok := r.Dates[col]; ok {
		return v.Format(time.DateOnly), true
	}
	return "", false
}

// FormatNumber renders a float without trailing zeros ("2", "2.5").
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Dataset is a fully loaded table snapshot. It is shared between callers
// and must never be mutated after loading.
type Dataset struct {
	ID        string
	Table     string
	Partition string
	FetchedAt time.Time
	Columns   []Column
	Records   []Record
}

// Column looks up a column by name.
func (d *Dataset) Column(name string) (Column, bool) {
	for _, c := range d.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}
