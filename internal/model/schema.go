package model

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/roach88/cubesql/internal/queryspec"
	"github.com/roach88/cubesql/internal/querysql"
)

// Schema is a loaded set of cube definitions.
type Schema struct {
	Cubes map[string]*Cube
}

// Cube is one logical table of the semantic model.
type Cube struct {
	Name            string
	SQLTable        string
	SQL             string
	SQLAlias        string
	Measures        map[string]Measure
	Dimensions      map[string]Dimension
	Segments        map[string]string
	Joins           map[string]Join
	PreAggregations map[string]PreAggregation
}

// Measure is an aggregate over the cube.
type Measure struct {
	SQL  string
	Type string // count | count_distinct | sum | avg | min | max | number
}

// Dimension is a groupable column expression.
type Dimension struct {
	SQL        string
	Type       queryspec.ValueType
	PrimaryKey bool
}

// Join links a cube to the cube named by the map key.
type Join struct {
	Relationship string
	SQL          string
}

// PreAggregation is a rollup definition.
type PreAggregation struct {
	Measures      []string
	Dimensions    []string
	TimeDimension string
	Granularity   queryspec.Granularity
	RefreshEvery  string
}

// refPattern matches {CUBE} and {other_cube} references in member SQL.
var refPattern = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Alias returns the relation alias used for the cube in FROM and JOIN.
func (c *Cube) Alias() string {
	if c.SQLAlias != "" {
		return c.SQLAlias
	}
	return querysql.SnakeCase(c.Name)
}

// Relation returns the cube's FROM source.
func (c *Cube) Relation() queryspec.Source {
	if c.SQL != "" {
		return queryspec.Source{SQL: "(" + c.SQL + ")", Alias: c.Alias()}
	}
	return queryspec.Source{SQL: c.SQLTable, Alias: c.Alias()}
}

// CubeNames returns cube names in sorted order.
func (s *Schema) CubeNames() []string {
	names := make([]string, 0, len(s.Cubes))
	for name := range s.Cubes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Cube returns the cube named name.
func (s *Schema) Cube(name string) (*Cube, bool) {
	c, ok := s.Cubes[name]
	return c, ok
}

// render substitutes {CUBE} and {cube_name} references with relation
// aliases. Unknown references are left untouched.
func (s *Schema) render(c *Cube, sql string) string {
	return refPattern.ReplaceAllStringFunc(sql, func(ref string) string {
		name := ref[1 : len(ref)-1]
		if name == "CUBE" {
			return c.Alias()
		}
		if other, ok := s.Cubes[name]; ok {
			return other.Alias()
		}
		return ref
	})
}

// column renders a member SQL: bare column names are qualified with the
// cube alias, anything else goes through render.
func (s *Schema) column(c *Cube, sql string) string {
	if queryspec.IsPlainIdentifier(sql) {
		return c.Alias() + "." + sql
	}
	return s.render(c, sql)
}

func (s *Schema) measureSQL(c *Cube, m Measure) string {
	var base string
	if m.SQL != "" {
		base = s.column(c, m.SQL)
	}
	switch m.Type {
	case "count":
		if base == "" {
			return "count(*)"
		}
		return "count(" + base + ")"
	case "count_distinct":
		return "count(DISTINCT " + base + ")"
	case "number":
		return base
	}
	return fmt.Sprintf("%s(%s)", m.Type, base)
}

// Catalog resolves every member of every cube to a queryspec binding
// keyed "cube.member".
func (s *Schema) Catalog() queryspec.Catalog {
	cat := make(queryspec.Catalog)
	for _, c := range s.Cubes {
		prefix := querysql.SnakeCase(c.Alias()) + "__"
		for name, m := range c.Measures {
			ref := c.Name + "." + name
			cat[ref] = queryspec.Member{
				Name:  ref,
				SQL:   s.measureSQL(c, m),
				Alias: prefix + querysql.SnakeCase(name),
				Type:  queryspec.TypeNumber,
				Kind:  queryspec.KindMeasure,
			}
		}
		for name, d := range c.Dimensions {
			ref := c.Name + "." + name
			cat[ref] = queryspec.Member{
				Name:  ref,
				SQL:   s.column(c, d.SQL),
				Alias: prefix + querysql.SnakeCase(name),
				Type:  d.Type,
				Kind:  queryspec.KindDimension,
			}
		}
		for name, sql := range c.Segments {
			ref := c.Name + "." + name
			cat[ref] = queryspec.Member{
				Name: ref,
				SQL:  s.render(c, sql),
				Kind: queryspec.KindSegment,
			}
		}
	}
	return cat
}

// joinPath returns the joins needed to reach every cube in targets from
// root, breadth-first over join definitions in name order.
func (s *Schema) joinPath(root string, targets []string) ([]queryspec.Join, error) {
	type edge struct {
		from string
		join Join
	}
	parent := map[string]edge{root: {}}
	queue := []string{root}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		c := s.Cubes[name]
		joinNames := make([]string, 0, len(c.Joins))
		for target := range c.Joins {
			joinNames = append(joinNames, target)
		}
		sort.Strings(joinNames)
		for _, target := range joinNames {
			if _, seen := parent[target]; seen {
				continue
			}
			if _, ok := s.Cubes[target]; !ok {
				continue
			}
			parent[target] = edge{from: name, join: c.Joins[target]}
			queue = append(queue, target)
		}
	}

	var joins []queryspec.Join
	added := map[string]bool{root: true}
	for _, target := range targets {
		if _, ok := parent[target]; !ok {
			return nil, queryspec.NewConfigurationError("cube %q can not be joined from %q", target, root)
		}
		var chain []string
		for n := target; !added[n]; n = parent[n].from {
			chain = append(chain, n)
		}
		for i := len(chain) - 1; i >= 0; i-- {
			n := chain[i]
			e := parent[n]
			joins = append(joins, queryspec.Join{
				Kind:   queryspec.JoinLeft,
				Source: s.Cubes[n].Relation(),
				On:     s.render(s.Cubes[e.from], e.join.SQL),
			})
			added[n] = true
		}
	}
	return joins, nil
}

// cubeOf returns the cube part of a "cube.member" reference.
func cubeOf(member string) string {
	cube, _, _ := strings.Cut(member, ".")
	return cube
}
