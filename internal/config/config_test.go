package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, &Config{
		Dialect:              "ansi",
		SchemaDir:            "cubes",
		PreAggregationSchema: "stb_pre_aggregations",
	}, cfg)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".cubesql.yaml", `
dialect: postgres
schema_dir: model/cubes
pre_aggregation_schema: rollups
timezone: Europe/Berlin
verbose: true
`)

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, &Config{
		Dialect:              "postgres",
		SchemaDir:            "model/cubes",
		PreAggregationSchema: "rollups",
		Timezone:             "Europe/Berlin",
		Verbose:              true,
	}, cfg)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".cubesql.yaml", "dialect: postgres\ntimezone: UTC\nschema_dir: from-file\n")
	writeFile(t, dir, ".env", "CUBESQL_DIALECT=mysql\nCUBESQL_TIMEZONE=Asia/Tokyo\nCUBESQL_SCHEMA_DIR=from-dotenv\nOTHER=ignored\n")
	writeFile(t, dir, ".env.local", "CUBESQL_TIMEZONE=America/New_York\n")
	t.Setenv("CUBESQL_SCHEMA_DIR", "from-env")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "mysql", cfg.Dialect, ".env beats the config file")
	assert.Equal(t, "America/New_York", cfg.Timezone, ".env.local beats .env")
	assert.Equal(t, "from-env", cfg.SchemaDir, "process environment beats .env")
}

func TestLoadMalformedConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".cubesql.yaml", "dialect: [unterminated\n")

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config")
}
