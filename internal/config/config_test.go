package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, LedgerMemory, cfg.Ledger.Backend)
	assert.Equal(t, CacheMemory, cfg.Cache.Backend)
	assert.Equal(t, 300, cfg.Cache.TTLSeconds)
	assert.Equal(t, "finance_agent", cfg.Cache.Namespace)
	assert.Equal(t, 1000, cfg.Query.MaxCachedRows)
	assert.Equal(t, 5, cfg.Agent.MaxIterations)
	assert.Equal(t, 12, cfg.Agent.MaxBuckets)
	assert.Equal(t, 10, cfg.Agent.MemoryHistory)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CACHE_BACKEND", "redis")
	t.Setenv("CACHE_REDIS_ADDR", "cache:6379")
	t.Setenv("AGENT_MAX_ITERATIONS", "7")
	t.Setenv("AUTH_JWT_SECRET", "s3cret")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, CacheRedis, cfg.Cache.Backend)
	assert.Equal(t, "cache:6379", cfg.Cache.Redis.Addr)
	assert.Equal(t, 7, cfg.Agent.MaxIterations)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
ledger:
  backend: mongo
  mongo:
    uri: mongodb://localhost:27017
cache:
  ttl_seconds: 60
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, LedgerMongo, cfg.Ledger.Backend)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Ledger.Mongo.URI)
	assert.Equal(t, "transactions", cfg.Ledger.Mongo.Collection)
	assert.Equal(t, 60, cfg.Cache.TTLSeconds)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base, err := Load("")
	require.NoError(t, err)

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"bigquery without project", func(c *Config) { c.Ledger.Backend = LedgerBigQuery }, "ledger.project"},
		{"mongo without uri", func(c *Config) { c.Ledger.Backend = LedgerMongo }, "ledger.mongo.uri"},
		{"unknown ledger", func(c *Config) { c.Ledger.Backend = "sqlite" }, "unknown ledger.backend"},
		{"gcs without bucket", func(c *Config) { c.Cache.Backend = CacheGCS }, "cache.gcs.bucket"},
		{"dynamo without table", func(c *Config) { c.Cache.Backend = CacheDynamo; c.Cache.Dynamo.Table = "" }, "cache.dynamo.table"},
		{"unknown cache", func(c *Config) { c.Cache.Backend = "memcached" }, "unknown cache.backend"},
		{"zero ttl", func(c *Config) { c.Cache.TTLSeconds = 0 }, "ttl_seconds"},
		{"one bucket", func(c *Config) { c.Agent.MaxBuckets = 1 }, "max_buckets"},
		{"zero iterations", func(c *Config) { c.Agent.MaxIterations = 0 }, "agent.max_iterations must be at least 5"},
		{"iterations below plan", func(c *Config) { c.Agent.MaxIterations = 4 }, "agent.max_iterations must be at least 5"},
		{"iterations at plan", func(c *Config) { c.Agent.MaxIterations = 5 }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
