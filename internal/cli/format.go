// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// FormatNumber adds comma separators to an integer.
// e.g., 1234567 -> "1,234,567"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}

	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if result.Len() > 0 {
			result.WriteByte(',')
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

// FormatCount formats a summed listing count. Fractional counts keep one
// decimal.
func FormatCount(f float64) string {
	if f == math.Trunc(f) {
		return FormatNumber(int64(f))
	}
	return fmt.Sprintf("%.1f", f)
}

// FormatPrice formats a price in euros, rounded to the unit.
func FormatPrice(p float64) string {
	return "€" + FormatNumber(int64(math.Round(p)))
}

// FormatCompactPrice formats a price with a K/M suffix for narrow columns.
// e.g., 1234 -> "€1.2K", 315000 -> "€315K", 1250000 -> "€1.25M"
func FormatCompactPrice(p float64) string {
	abs := math.Abs(p)
	switch {
	case abs >= 1_000_000:
		return fmt.Sprintf("€%.2fM", p/1_000_000)
	case abs >= 100_000:
		return fmt.Sprintf("€%.0fK", p/1_000)
	case abs >= 1_000:
		return fmt.Sprintf("€%.1fK", p/1_000)
	default:
		return fmt.Sprintf("€%.0f", p)
	}
}

// FormatAverage formats an optional average price. An undefined average
// (zero listings) renders as "n/a", never as zero.
func FormatAverage(avg *float64) string {
	if avg == nil {
		return "n/a"
	}
	return FormatPrice(*avg)
}

// FormatOptional formats an optional measure such as a surface or bedroom
// count, with "-" for missing values.
func FormatOptional(v *float64, suffix string) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64) + suffix
}

// FormatAge formats how long ago t was, e.g. "12 minutes ago".
func FormatAge(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.Time(t)
}

// FormatDate formats a calendar day as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(time.DateOnly)
}

// FormatPercent formats a 0-1 float as a percentage string.
func FormatPercent(f float64) string {
	return fmt.Sprintf("%.1f%%", f*100)
}
