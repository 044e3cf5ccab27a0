// Package config resolves CLI defaults from .cubesql.yaml, CUBESQL_*
// environment variables and .env files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/roach88/cubesql/internal/querysql"
)

// EnvPrefix prefixes every environment variable the CLI reads.
const EnvPrefix = "CUBESQL"

// Config holds the CLI configuration.
type Config struct {
	Dialect              string
	SchemaDir            string
	PreAggregationSchema string
	Timezone             string
	Verbose              bool
}

// Load reads configuration rooted at dir. Sources, highest priority first:
//
//	CUBESQL_* environment variables
//	.env.local, then .env (never override the process environment)
//	.cubesql.yaml
//	built-in defaults
func Load(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(".cubesql")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	v.SetDefault("dialect", "ansi")
	v.SetDefault("schema_dir", "cubes")
	v.SetDefault("pre_aggregation_schema", querysql.DefaultPreAggregationSchema)
	v.SetDefault("timezone", "")
	v.SetDefault("verbose", false)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// .env.local is applied first so it wins over .env.
	applied := make(map[string]bool)
	for _, name := range []string{".env.local", ".env"} {
		if err := applyDotenv(v, filepath.Join(dir, name), applied); err != nil {
			return nil, err
		}
	}

	return &Config{
		Dialect:              v.GetString("dialect"),
		SchemaDir:            v.GetString("schema_dir"),
		PreAggregationSchema: v.GetString("pre_aggregation_schema"),
		Timezone:             v.GetString("timezone"),
		Verbose:              v.GetBool("verbose"),
	}, nil
}

func applyDotenv(v *viper.Viper, path string, applied map[string]bool) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	env, err := godotenv.Read(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	for k, val := range env {
		key, ok := strings.CutPrefix(k, EnvPrefix+"_")
		if !ok {
			continue
		}
		if _, set := os.LookupEnv(k); set || applied[k] {
			continue
		}
		v.Set(strings.ToLower(key), val)
		applied[k] = true
	}
	return nil
}
