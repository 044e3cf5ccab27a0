package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cubesql/internal/config"
)

func executePreagg(t *testing.T, opts *RootOptions, args ...string) (*bytes.Buffer, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := NewPreaggCommand(opts)
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	return out, cmd.Execute()
}

func TestPreaggJSON(t *testing.T) {
	out, err := executePreagg(t, &RootOptions{Format: "json"}, "orders", "daily", "--schema", cubesDir, "--dialect", "postgres")
	require.NoError(t, err)

	var resp struct {
		Data PreaggResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, "stb_pre_aggregations.orders_daily", resp.Data.Table)
	assert.Equal(t, "SELECT FLOOR((EXTRACT(EPOCH FROM CURRENT_TIMESTAMP)) / 3600)", resp.Data.RefreshKey)
	assert.Contains(t, resp.Data.SQL, "date_trunc('day', orders.created_at)")
	assert.Empty(t, resp.Data.Params)
}

func TestPreaggConfiguredSchema(t *testing.T) {
	opts := &RootOptions{Format: "json", Config: &config.Config{Dialect: "mysql", SchemaDir: cubesDir, PreAggregationSchema: "rollups"}}

	out, err := executePreagg(t, opts, "orders", "daily", "--every", "15m")
	require.NoError(t, err)

	var resp struct {
		Data PreaggResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, "mysql", resp.Data.Dialect)
	assert.Equal(t, "rollups.orders_daily", resp.Data.Table)
	assert.Contains(t, resp.Data.RefreshKey, "/ 900)")
}

func TestPreaggSkipSchemaText(t *testing.T) {
	opts := &RootOptions{Format: "text", Config: &config.Config{Dialect: "ansi", SchemaDir: cubesDir, PreAggregationSchema: "rollups"}}

	out, err := executePreagg(t, opts, "orders", "daily", "--skip-schema")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Table:       orders_daily\n")
	assert.Contains(t, out.String(), "(every 1h0m0s)")
}

func TestPreaggErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code string
	}{
		{"unknown rollup", []string{"orders", "hourly", "--schema", cubesDir}, "CONFIGURATION"},
		{"sub-second refresh", []string{"orders", "daily", "--schema", cubesDir, "--every", "500ms"}, "CONFIGURATION"},
		{"missing schema", []string{"orders", "daily", "--schema", "/nonexistent"}, "E005"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := executePreagg(t, &RootOptions{Format: "json"}, tt.args...)
			require.Error(t, err)

			var resp CLIResponse
			require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}
