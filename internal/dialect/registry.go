package dialect

import (
	"sort"
	"strings"

	"github.com/roach88/cubesql/internal/queryspec"
	"github.com/roach88/cubesql/internal/querysql"
)

// Dialect names.
const (
	ANSI          = "ansi"
	Elasticsearch = "elasticsearch"
	MySQL         = "mysql"
	Oracle        = "oracle"
	Postgres      = "postgres"
	SQLite        = "sqlite"
)

// registry holds the built-in adapters. Dialects are immutable, so one
// instance per name is shared by every compilation.
var registry = map[string]*querysql.Dialect{
	ANSI:          querysql.NewDialect(ANSI),
	Elasticsearch: NewElasticsearch(),
	MySQL:         NewMySQL(),
	Oracle:        NewOracle(),
	Postgres:      NewPostgres(),
	SQLite:        NewSQLite(),
}

var aliases = map[string]string{
	"generic":    ANSI,
	"sql":        ANSI,
	"es":         Elasticsearch,
	"elastic":    Elasticsearch,
	"mariadb":    MySQL,
	"postgresql": Postgres,
	"pg":         Postgres,
	"sqlite3":    SQLite,
}

// Get returns the adapter registered under name. Matching is
// case-insensitive and accepts common aliases ("postgresql", "es").
func Get(name string) (*querysql.Dialect, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if d, ok := registry[key]; ok {
		return d, nil
	}
	if canonical, ok := aliases[key]; ok {
		return registry[canonical], nil
	}
	return nil, queryspec.NewConfigurationError("unknown dialect %q (available: %s)", name, strings.Join(Names(), ", "))
}

// Names returns the registered dialect names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Capabilities summarizes what an adapter can express.
type Capabilities struct {
	Name                string `json:"name"`
	Placeholder         string `json:"placeholder"`
	Intervals           bool   `json:"intervals"`
	Offset              bool   `json:"offset"`
	MaxIdentifierLength int    `json:"max_identifier_length"`
}

// Describe reports the capabilities of d.
func Describe(d *querysql.Dialect) Capabilities {
	hooks := d.Hooks()
	_, offsetErr := hooks.PaginationClause(nil, 1)
	return Capabilities{
		Name:                d.Name(),
		Placeholder:         hooks.Placeholder(1),
		Intervals:           d.SupportsIntervals(),
		Offset:              offsetErr == nil,
		MaxIdentifierLength: d.MaxIdentifierLength(),
	}
}
