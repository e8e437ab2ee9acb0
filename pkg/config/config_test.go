package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWithComments(t *testing.T) {
	cfg, err := Parse([]byte(`{
		// local development
		"listen_address": ":9000",
		"query_timeout": "750ms",
		"cache_ttl": 30,
		"facet_concurrency": 2,
	}`))
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.ListenAddress)
	assert.Equal(t, 750*time.Millisecond, cfg.QueryTimeout.Std())
	assert.Equal(t, 30*time.Second, cfg.CacheTTL.Std())
	assert.Equal(t, 2, cfg.FacetConcurrency)
	assert.Equal(t, "se", cfg.Country, "defaults are kept for missing keys")
}

func TestParseInvalid(t *testing.T) {
	_, err := Parse([]byte(`{"facet_concurrency": 0}`))
	assert.True(t, errors.Is(err, ErrInvalid))

	_, err = Parse([]byte(`{"listen_address": `))
	assert.True(t, errors.Is(err, ErrInvalid))
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"REDIS_URL":         "redis:6379",
		"FACET_CONCURRENCY": "not a number",
		"QUERY_TIMEOUT":     "5s",
		"BATCH_SIZE":        "50",
	}
	cfg := ApplyEnv(Default(), func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	})
	assert.Equal(t, "redis:6379", cfg.RedisUrl)
	assert.Equal(t, 4, cfg.FacetConcurrency)
	assert.Equal(t, 5*time.Second, cfg.QueryTimeout.Std())
	assert.Equal(t, 50, cfg.BatchSize)
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.jsonc"))
	require.NoError(t, err)
	assert.Equal(t, Default().DataDir, cfg.DataDir)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inventory.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(`{"country": "no" /* norway */}`), 0o644))
	t.Setenv("COUNTRY", "")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "no", cfg.Country)
}
