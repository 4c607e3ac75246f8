package api

import (
	"strconv"
	"time"
)

// parseDate accepts RFC 3339 timestamps or bare YYYY-MM-DD dates. An empty
// value is the zero time, not an error.
func parseDate(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", v)
}

func parseAmount(v string) (float64, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.ParseFloat(v, 64)
}
