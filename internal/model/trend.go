package model

import "time"

// TrendPoint is one aggregated (extract date, group) cell.
type TrendPoint struct {
	Date     time.Time `json:"date" yaml:"date"`
	Group    string    `json:"group" yaml:"group"`
	ValueSum float64   `json:"value_sum" yaml:"value_sum"`
	CountSum float64   `json:"count_sum" yaml:"count_sum"`
	// Average is nil when CountSum is zero.
	Average *float64 `json:"average" yaml:"average"`
}

// Series is one chart line aligned on a shared date axis. Nil entries are
// gaps where the average is undefined or the group has no data.
type Series struct {
	Name   string     `json:"name" yaml:"name"`
	Values []*float64 `json:"values" yaml:"values"`
}

// Listing is one row of the listing sample table.
type Listing struct {
	ID           string    `json:"id" yaml:"id"`
	PropertyType string    `json:"property_type" yaml:"property_type"`
	Bedrooms     *float64  `json:"bedrooms" yaml:"bedrooms"`
	Surface      *float64  `json:"surface" yaml:"surface"`
	PostalCode   string    `json:"postal_code" yaml:"postal_code"`
	Price        *float64  `json:"price" yaml:"price"`
	ExtractDate  time.Time `json:"extract_date" yaml:"extract_date"`
	URL          string    `json:"url" yaml:"url"`
}
