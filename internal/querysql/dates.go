package querysql

import (
	"fmt"
	"regexp"
	"time"

	"github.com/spf13/cast"

	"github.com/roach88/cubesql/internal/queryspec"
)

// TimestampLayout is the serialization of every bound date value. Dialect
// cast hooks parse exactly this format.
const TimestampLayout = "2006-01-02T15:04:05.000"

const dateOnlyLayout = "2006-01-02"

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
}

// tzPattern restricts timezone names to characters safe to inline.
var tzPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_+\-/]{0,63}$`)

// ValidateTimezone rejects timezone names that cannot be inlined safely.
func ValidateTimezone(tz string) error {
	if tz == "" || tzPattern.MatchString(tz) {
		return nil
	}
	return queryspec.NewConfigurationError("invalid timezone %q", tz)
}

// FormatFromDate serializes the lower bound of a date value. Date-only
// values start at midnight.
func FormatFromDate(value any) (string, error) {
	return formatDate(value, false)
}

// FormatToDate serializes the upper bound of a date value. Date-only values
// extend to the last millisecond of the day.
func FormatToDate(value any) (string, error) {
	return formatDate(value, true)
}

func formatDate(value any, endOfDay bool) (string, error) {
	s, err := cast.ToStringE(value)
	if err != nil || s == "" {
		return "", queryspec.NewConfigurationError("invalid date value %v", value)
	}
	if d, err := time.Parse(dateOnlyLayout, s); err == nil {
		if endOfDay {
			d = d.Add(24*time.Hour - time.Millisecond)
		}
		return d.Format(TimestampLayout), nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Format(TimestampLayout), nil
		}
	}
	return "", queryspec.NewConfigurationError("invalid date value %q: expected %s or an ISO 8601 timestamp", s, dateOnlyLayout)
}

// parseRelativeRange parses a relative range like "7 day".
func parseRelativeRange(last string) (queryspec.Interval, error) {
	iv, err := queryspec.ParseInterval(last)
	if err != nil {
		return queryspec.Interval{}, fmt.Errorf("relative date range: %w", err)
	}
	return iv, nil
}
