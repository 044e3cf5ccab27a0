package model

import (
	"fmt"
	"time"

	"github.com/spf13/cast"

	"github.com/roach88/cubesql/internal/queryspec"
)

// DefaultRefreshEvery applies to rollups without refresh_every.
const DefaultRefreshEvery = time.Hour

// Rollup is a resolved pre-aggregation definition.
type Rollup struct {
	Cube         string
	Name         string
	Query        *Query
	RefreshEvery time.Duration
}

// Rollup looks up a pre-aggregation and builds the query that fills it.
// Member names in the definition may omit the cube prefix.
func (s *Schema) Rollup(cube, name string) (*Rollup, error) {
	c, ok := s.Cubes[cube]
	if !ok {
		return nil, queryspec.NewConfigurationError("unknown cube %q", cube)
	}
	p, ok := c.PreAggregations[name]
	if !ok {
		return nil, queryspec.NewConfigurationError("cube %q has no pre-aggregation %q", cube, name)
	}

	qualify := func(member string) string {
		if cubeOf(member) == member {
			return cube + "." + member
		}
		return member
	}

	q := &Query{}
	for _, m := range p.Measures {
		q.Measures = append(q.Measures, MeasureEntry{Member: qualify(m)})
	}
	for _, d := range p.Dimensions {
		q.Dimensions = append(q.Dimensions, qualify(d))
	}
	if p.TimeDimension != "" {
		if p.Granularity == "" {
			return nil, queryspec.NewConfigurationError("pre-aggregation %s.%s has a time dimension but no granularity", cube, name)
		}
		q.TimeDimensions = []TimeDimensionItem{{Dimension: qualify(p.TimeDimension), Granularity: string(p.Granularity)}}
	}

	every := DefaultRefreshEvery
	if p.RefreshEvery != "" {
		d, err := parseRefreshEvery(p.RefreshEvery)
		if err != nil {
			return nil, queryspec.NewConfigurationError("pre-aggregation %s.%s: %v", cube, name, err)
		}
		every = d
	}
	return &Rollup{Cube: cube, Name: name, Query: q, RefreshEvery: every}, nil
}

// parseRefreshEvery accepts Go durations ("30m") and "<n> <unit>" intervals
// up to days ("1 day").
func parseRefreshEvery(s string) (time.Duration, error) {
	if d, err := cast.ToDurationE(s); err == nil && d > 0 {
		return d, nil
	}
	iv, err := queryspec.ParseInterval(s)
	if err != nil {
		return 0, err
	}
	unit := map[queryspec.Granularity]time.Duration{
		queryspec.GranularitySecond: time.Second,
		queryspec.GranularityMinute: time.Minute,
		queryspec.GranularityHour:   time.Hour,
		queryspec.GranularityDay:    24 * time.Hour,
		queryspec.GranularityWeek:   7 * 24 * time.Hour,
	}[iv.Unit]
	if unit == 0 {
		return 0, fmt.Errorf("refresh interval %q must be at most weekly", s)
	}
	return time.Duration(iv.Count) * unit, nil
}
