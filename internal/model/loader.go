package model

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/cubesql/internal/queryspec"
)

//go:embed schema.cue
var cubeSchema string

// cubeFile mirrors #Cube for decoding.
type cubeFile struct {
	SQLTable        string                        `json:"sql_table"`
	SQL             string                        `json:"sql"`
	SQLAlias        string                        `json:"sql_alias"`
	Measures        map[string]measureFile        `json:"measures"`
	Dimensions      map[string]dimensionFile      `json:"dimensions"`
	Segments        map[string]segmentFile        `json:"segments"`
	Joins           map[string]joinFile           `json:"joins"`
	PreAggregations map[string]preAggregationFile `json:"pre_aggregations"`
}

type measureFile struct {
	SQL  string `json:"sql"`
	Type string `json:"type"`
}

type dimensionFile struct {
	SQL        string `json:"sql"`
	Type       string `json:"type"`
	PrimaryKey bool   `json:"primary_key"`
}

type segmentFile struct {
	SQL string `json:"sql"`
}

type joinFile struct {
	Relationship string `json:"relationship"`
	SQL          string `json:"sql"`
}

type preAggregationFile struct {
	Measures      []string `json:"measures"`
	Dimensions    []string `json:"dimensions"`
	TimeDimension string   `json:"time_dimension"`
	Granularity   string   `json:"granularity"`
	RefreshEvery  string   `json:"refresh_every"`
}

// LoadDir loads every cube from the CUE package in dir.
//
// Cubes are declared under the top-level "cube" field:
//
//	cube: orders: {
//	    sql_table: "public.orders"
//	    measures: count: type: "count"
//	    dimensions: status: {sql: "status", type: "string"}
//	}
func LoadDir(dir string) (*Schema, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("schema directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing schema directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.cue"))
	if err != nil || len(files) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, fromCUEError(ErrCodeLoadFailed, inst.Err)
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, fromCUEError(ErrCodeBuildFailed, err)
	}
	return decodeSchema(ctx, value)
}

// LoadString loads cubes from CUE source text.
func LoadString(src string) (*Schema, error) {
	ctx := cuecontext.New()
	value := ctx.CompileString(src, cue.Filename("schema.cue"))
	if err := value.Err(); err != nil {
		return nil, fromCUEError(ErrCodeBuildFailed, err)
	}
	return decodeSchema(ctx, value)
}

func decodeSchema(ctx *cue.Context, value cue.Value) (*Schema, error) {
	def := ctx.CompileString(cubeSchema, cue.Filename("cubesql/schema.cue")).LookupPath(cue.ParsePath("#Cube"))
	if err := def.Err(); err != nil {
		return nil, fromCUEError(ErrCodeGeneric, err)
	}

	cubesVal := value.LookupPath(cue.ParsePath("cube"))
	if !cubesVal.Exists() {
		return nil, &LoadError{Code: ErrCodeInvalidCube, Message: "no cubes found (expected a top-level \"cube\" field)"}
	}
	iter, err := cubesVal.Fields()
	if err != nil {
		return nil, fromCUEError(ErrCodeInvalidCube, err)
	}

	schema := &Schema{Cubes: make(map[string]*Cube)}
	for iter.Next() {
		name := iter.Selector().Unquoted()
		raw := iter.Value()
		if !queryspec.IsPlainIdentifier(name) {
			return nil, &LoadError{Code: ErrCodeInvalidCube, Message: fmt.Sprintf("cube name %q is not a plain identifier", name), Pos: raw.Pos()}
		}

		unified := def.Unify(raw)
		if err := unified.Validate(cue.Concrete(true)); err != nil {
			return nil, fromCUEError(ErrCodeInvalidCube, err)
		}
		var f cubeFile
		if err := unified.Decode(&f); err != nil {
			return nil, fromCUEError(ErrCodeInvalidCube, err)
		}

		c, err := newCube(name, f)
		if err != nil {
			err.Pos = raw.Pos()
			return nil, err
		}
		schema.Cubes[name] = c
	}

	for _, name := range schema.CubeNames() {
		for target := range schema.Cubes[name].Joins {
			if _, ok := schema.Cubes[target]; !ok {
				return nil, &LoadError{Code: ErrCodeInvalidRef, Message: fmt.Sprintf("cube %q joins unknown cube %q", name, target)}
			}
		}
	}
	return schema, nil
}

func newCube(name string, f cubeFile) (*Cube, *LoadError) {
	if (f.SQLTable == "") == (f.SQL == "") {
		return nil, &LoadError{Code: ErrCodeInvalidCube, Message: fmt.Sprintf("cube %q needs exactly one of sql_table or sql", name)}
	}
	if f.SQLAlias != "" && !queryspec.IsPlainIdentifier(f.SQLAlias) {
		return nil, &LoadError{Code: ErrCodeInvalidCube, Message: fmt.Sprintf("cube %q sql_alias %q is not a plain identifier", name, f.SQLAlias)}
	}

	c := &Cube{
		Name:            name,
		SQLTable:        f.SQLTable,
		SQL:             f.SQL,
		SQLAlias:        f.SQLAlias,
		Measures:        make(map[string]Measure, len(f.Measures)),
		Dimensions:      make(map[string]Dimension, len(f.Dimensions)),
		Segments:        make(map[string]string, len(f.Segments)),
		Joins:           make(map[string]Join, len(f.Joins)),
		PreAggregations: make(map[string]PreAggregation, len(f.PreAggregations)),
	}
	for n, m := range f.Measures {
		if m.SQL == "" && m.Type != "count" {
			return nil, &LoadError{Code: ErrCodeInvalidCube, Message: fmt.Sprintf("measure %s.%s of type %s needs sql", name, n, m.Type)}
		}
		c.Measures[n] = Measure(m)
	}
	for n, d := range f.Dimensions {
		c.Dimensions[n] = Dimension{SQL: d.SQL, Type: queryspec.ValueType(d.Type), PrimaryKey: d.PrimaryKey}
	}
	for n, s := range f.Segments {
		c.Segments[n] = s.SQL
	}
	for n, j := range f.Joins {
		c.Joins[n] = Join(j)
	}
	for n, p := range f.PreAggregations {
		c.PreAggregations[n] = PreAggregation{
			Measures:      p.Measures,
			Dimensions:    p.Dimensions,
			TimeDimension: p.TimeDimension,
			Granularity:   queryspec.Granularity(p.Granularity),
			RefreshEvery:  p.RefreshEvery,
		}
	}
	return c, nil
}
