package pipeline

import "github.com/sgdevreal/stimmo/internal/model"

// GroupingColumns names the three candidate columns for splitting the trend
// chart into lines.
type GroupingColumns struct {
	PostalCode   string
	Bedrooms     string
	PropertyType string
}

// GroupingKey picks the single column the trend chart is split by. Postal
// code wins over bedroom count, which wins over property type; the first two
// only qualify once their filter selects more than one value. Narrowing to a
// single value does not switch the split.
func GroupingKey(sel model.Selection, cols GroupingColumns) string {
	switch {
	case sel.Count(cols.PostalCode) > 1:
		return cols.PostalCode
	case sel.Count(cols.Bedrooms) > 1:
		return cols.Bedrooms
	default:
		return cols.PropertyType
	}
}
