package queryspec

import (
	"strconv"
	"strings"
)

// Granularity is a calendar truncation unit. The set is closed: every
// dialect maps each value exhaustively and anything else is rejected by
// ParseGranularity.
type Granularity string

const (
	GranularitySecond  Granularity = "second"
	GranularityMinute  Granularity = "minute"
	GranularityHour    Granularity = "hour"
	GranularityDay     Granularity = "day"
	GranularityWeek    Granularity = "week"
	GranularityMonth   Granularity = "month"
	GranularityQuarter Granularity = "quarter"
	GranularityYear    Granularity = "year"
)

// Granularities lists every supported unit from finest to coarsest.
var Granularities = []Granularity{
	GranularitySecond,
	GranularityMinute,
	GranularityHour,
	GranularityDay,
	GranularityWeek,
	GranularityMonth,
	GranularityQuarter,
	GranularityYear,
}

// ParseGranularity maps a tag to a Granularity.
// Unknown tags are a configuration error, never a silent fallback.
func ParseGranularity(tag string) (Granularity, error) {
	switch g := Granularity(strings.ToLower(strings.TrimSpace(tag))); g {
	case GranularitySecond, GranularityMinute, GranularityHour, GranularityDay,
		GranularityWeek, GranularityMonth, GranularityQuarter, GranularityYear:
		return g, nil
	}
	return "", NewConfigurationError("unknown granularity %q: must be one of %v", tag, Granularities)
}

// Valid reports whether g is one of the closed set.
func (g Granularity) Valid() bool {
	_, err := ParseGranularity(string(g))
	return err == nil
}

// Interval is a count of calendar units, e.g. "7 day".
type Interval struct {
	Count int
	Unit  Granularity
}

// ParseInterval parses "<count> <unit>" where unit may be plural
// ("3 months"). Count must be a positive integer.
func ParseInterval(s string) (Interval, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return Interval{}, NewConfigurationError("invalid interval %q: expected \"<count> <unit>\"", s)
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil || n <= 0 {
		return Interval{}, NewConfigurationError("invalid interval %q: count must be a positive integer", s)
	}
	unit, err := ParseGranularity(strings.TrimSuffix(strings.ToLower(fields[1]), "s"))
	if err != nil {
		return Interval{}, err
	}
	return Interval{Count: n, Unit: unit}, nil
}

// String renders the interval as "<count> <unit>" (singular unit).
func (iv Interval) String() string {
	return strconv.Itoa(iv.Count) + " " + string(iv.Unit)
}
