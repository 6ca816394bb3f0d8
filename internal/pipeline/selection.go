package pipeline

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sgdevreal/stimmo/internal/model"
)

// ErrBadFilter is returned for filter expressions that cannot be parsed.
var ErrBadFilter = errors.New("malformed filter")

// ParseCategorical parses "column=v1,v2" into a categorical filter. Blank
// values are dropped.
func ParseCategorical(expr string) (model.Filter, error) {
	col, rest, ok := strings.Cut(expr, "=")
	col = strings.TrimSpace(col)
	if !ok || col == "" {
		return model.Filter{}, fmt.Errorf("%w: %q (want column=v1,v2)", ErrBadFilter, expr)
	}
	return model.Categorical(col, SplitValues(rest)...), nil
}

// ParseRange parses "column=min:max" into a range filter. Either bound may
// be omitted ("price=:300000") only when a domain is supplied to fill it.
func ParseRange(expr string, domain *model.Domain) (model.Filter, error) {
	col, rest, ok := strings.Cut(expr, "=")
	col = strings.TrimSpace(col)
	if !ok || col == "" {
		return model.Filter{}, fmt.Errorf("%w: %q (want column=min:max)", ErrBadFilter, expr)
	}
	loStr, hiStr, ok := strings.Cut(rest, ":")
	if !ok {
		return model.Filter{}, fmt.Errorf("%w: %q (want column=min:max)", ErrBadFilter, expr)
	}

	bound := func(s string, fallback func() (float64, bool)) (float64, error) {
		s = strings.TrimSpace(s)
		if s == "" {
			if v, ok := fallback(); ok {
				return v, nil
			}
			return 0, fmt.Errorf("%w: %q has an open bound and no known domain", ErrBadFilter, expr)
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q: %v", ErrBadFilter, expr, err)
		}
		return v, nil
	}

	lo, err := bound(loStr, func() (float64, bool) {
		return domainMin(domain)
	})
	if err != nil {
		return model.Filter{}, err
	}
	hi, err := bound(hiStr, func() (float64, bool) {
		return domainMax(domain)
	})
	if err != nil {
		return model.Filter{}, err
	}
	return model.Range(col, lo, hi), nil
}

func domainMin(d *model.Domain) (float64, bool) {
	if d == nil || d.Kind != model.KindNumeric {
		return 0, false
	}
	return d.Min, true
}

func domainMax(d *model.Domain) (float64, bool) {
	if d == nil || d.Kind != model.KindNumeric {
		return 0, false
	}
	return d.Max, true
}

// SplitValues splits a comma separated list, trimming blanks.
func SplitValues(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
