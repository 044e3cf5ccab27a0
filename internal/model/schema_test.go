package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cubesql/internal/queryspec"
)

const shopSchema = `
cube: Orders: {
	sql_table: "public.orders"
	measures: {
		count: type: "count"
		paidCount: {sql: "paid_at", type: "count"}
		buyers: {sql: "user_id", type: "count_distinct"}
		avgAmount: {sql: "amount", type: "avg"}
		margin: {sql: "sum({CUBE}.amount) - sum({CUBE}.cost)", type: "number"}
	}
	dimensions: {
		status: {sql: "status", type: "string"}
		city: {sql: "{users}.city", type: "string"}
	}
	segments: large: sql: "{CUBE}.amount > 1000"
	joins: users: {relationship: "belongs_to", sql: "{CUBE}.user_id = {users}.id"}
}

cube: users: {
	sql: "SELECT * FROM accounts WHERE deleted_at IS NULL"
	sql_alias: "u"
	dimensions: name: {sql: "name", type: "string"}
	joins: companies: {relationship: "belongs_to", sql: "{CUBE}.company_id = {companies}.id"}
}

cube: companies: {
	sql_table: "companies"
	dimensions: name: {sql: "name", type: "string"}
}

cube: audit: {
	sql_table: "audit"
	dimensions: action: {sql: "action", type: "string"}
}
`

func loadShop(t *testing.T) *Schema {
	t.Helper()
	s, err := LoadString(shopSchema)
	require.NoError(t, err)
	return s
}

func TestCubeRelation(t *testing.T) {
	s := loadShop(t)

	assert.Equal(t, queryspec.Source{SQL: "public.orders", Alias: "orders"}, s.Cubes["Orders"].Relation())
	assert.Equal(t, queryspec.Source{SQL: "(SELECT * FROM accounts WHERE deleted_at IS NULL)", Alias: "u"}, s.Cubes["users"].Relation())
}

func TestCatalog(t *testing.T) {
	cat := loadShop(t).Catalog()

	tests := []struct {
		ref  string
		want queryspec.Member
	}{
		{"Orders.count", queryspec.Member{Name: "Orders.count", SQL: "count(*)", Alias: "orders__count", Type: queryspec.TypeNumber, Kind: queryspec.KindMeasure}},
		{"Orders.paidCount", queryspec.Member{Name: "Orders.paidCount", SQL: "count(orders.paid_at)", Alias: "orders__paid_count", Type: queryspec.TypeNumber, Kind: queryspec.KindMeasure}},
		{"Orders.buyers", queryspec.Member{Name: "Orders.buyers", SQL: "count(DISTINCT orders.user_id)", Alias: "orders__buyers", Type: queryspec.TypeNumber, Kind: queryspec.KindMeasure}},
		{"Orders.avgAmount", queryspec.Member{Name: "Orders.avgAmount", SQL: "avg(orders.amount)", Alias: "orders__avg_amount", Type: queryspec.TypeNumber, Kind: queryspec.KindMeasure}},
		{"Orders.margin", queryspec.Member{Name: "Orders.margin", SQL: "sum(orders.amount) - sum(orders.cost)", Alias: "orders__margin", Type: queryspec.TypeNumber, Kind: queryspec.KindMeasure}},
		{"Orders.city", queryspec.Member{Name: "Orders.city", SQL: "u.city", Alias: "orders__city", Type: queryspec.TypeString, Kind: queryspec.KindDimension}},
		{"Orders.large", queryspec.Member{Name: "Orders.large", SQL: "orders.amount > 1000", Kind: queryspec.KindSegment}},
		{"users.name", queryspec.Member{Name: "users.name", SQL: "u.name", Alias: "u__name", Type: queryspec.TypeString, Kind: queryspec.KindDimension}},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, ok := cat.Lookup(tt.ref)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestJoinPath(t *testing.T) {
	s := loadShop(t)

	joins, err := s.joinPath("Orders", []string{"companies"})
	require.NoError(t, err)
	require.Len(t, joins, 2)
	assert.Equal(t, queryspec.Join{
		Kind:   queryspec.JoinLeft,
		Source: queryspec.Source{SQL: "(SELECT * FROM accounts WHERE deleted_at IS NULL)", Alias: "u"},
		On:     "orders.user_id = u.id",
	}, joins[0])
	assert.Equal(t, "companies", joins[1].Source.Alias)
	assert.Equal(t, "u.company_id = companies.id", joins[1].On)

	joins, err = s.joinPath("Orders", []string{"users", "companies", "users"})
	require.NoError(t, err)
	assert.Len(t, joins, 2, "each cube is joined once")
}

func TestJoinPathUnreachable(t *testing.T) {
	s := loadShop(t)

	_, err := s.joinPath("Orders", []string{"audit"})
	require.Error(t, err)
	assert.True(t, queryspec.IsConfigurationError(err))

	_, err = s.joinPath("users", []string{"Orders"})
	require.Error(t, err, "joins are directed")
}
