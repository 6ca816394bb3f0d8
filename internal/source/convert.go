package source

import (
	"strconv"
	"strings"
	"time"

	"github.com/sgdevreal/stimmo/internal/model"
)

var dateLayouts = []string{
	time.DateOnly,
	time.RFC3339Nano,
	time.DateTime,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05.999999999-07:00",
}

// kindFromType maps a driver-reported type name. Unknown or empty names
// (sqlite expressions, untyped columns) report !ok.
func kindFromType(name string) (model.ColumnKind, bool) {
	name = strings.ToUpper(name)
	switch {
	case name == "":
		return model.KindCategorical, false
	case strings.Contains(name, "INT"),
		strings.Contains(name, "REAL"),
		strings.Contains(name, "FLOAT"),
		strings.Contains(name, "DOUBLE"),
		strings.Contains(name, "NUMERIC"),
		strings.Contains(name, "DECIMAL"):
		return model.KindNumeric, true
	case strings.Contains(name, "DATE"), strings.Contains(name, "TIME"):
		return model.KindDate, true
	case strings.Contains(name, "CHAR"),
		strings.Contains(name, "TEXT"),
		strings.Contains(name, "UUID"),
		strings.Contains(name, "BOOL"):
		return model.KindCategorical, true
	default:
		return model.KindCategorical, false
	}
}

// kindFromValues inspects the first non-null value of column i.
func kindFromValues(raw [][]any, i int) model.ColumnKind {
	for _, row := range raw {
		switch v := row[i].(type) {
		case nil:
			continue
		case int64, int32, float64, float32:
			return model.KindNumeric
		case time.Time:
			return model.KindDate
		case []byte:
			return kindFromString(string(v))
		case string:
			return kindFromString(v)
		default:
			return model.KindCategorical
		}
	}
	return model.KindCategorical
}

func kindFromString(s string) model.ColumnKind {
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return model.KindNumeric
	}
	if _, ok := parseTime(s); ok {
		return model.KindDate
	}
	return model.KindCategorical
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case []byte:
		f, err := strconv.ParseFloat(string(x), 64)
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func toTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case []byte:
		return parseTime(string(x))
	case string:
		return parseTime(x)
	default:
		return time.Time{}, false
	}
}

func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func toText(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case []byte:
		return string(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case float64:
		return model.FormatNumber(x), true
	case bool:
		return strconv.FormatBool(x), true
	case time.Time:
		return x.Format(time.DateOnly), true
	default:
		return "", false
	}
}
