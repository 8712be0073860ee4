// Package config loads service settings from a .env file, an optional
// config file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/paarshan4800/fin-advisor/internal/pipeline"
)

// Backends.
const (
	LedgerMemory   = "memory"
	LedgerBigQuery = "bigquery"
	LedgerMongo    = "mongo"

	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheDynamo = "dynamo"
	CacheGCS    = "gcs"
)

// Config is the full service configuration.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Auth   AuthConfig   `mapstructure:"auth"`
	LLM    LLMConfig    `mapstructure:"llm"`
	Ledger LedgerConfig `mapstructure:"ledger"`
	Cache  CacheConfig  `mapstructure:"cache"`
	Query  QueryConfig  `mapstructure:"query"`
	Agent  AgentConfig  `mapstructure:"agent"`
	Log    LogConfig    `mapstructure:"log"`
}

type ServerConfig struct {
	Addr            string  `mapstructure:"addr"`
	ShutdownSeconds int     `mapstructure:"shutdown_seconds"`
	RateLimit       float64 `mapstructure:"rate_limit"`
	RateBurst       int     `mapstructure:"rate_burst"`
}

// AuthConfig holds the HS256 secret. An empty secret trusts X-User-ID.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type LLMConfig struct {
	Model    string `mapstructure:"model"`
	APIKey   string `mapstructure:"api_key"`
	Project  string `mapstructure:"project"`
	Location string `mapstructure:"location"`
	VertexAI bool   `mapstructure:"vertex_ai"`
}

type LedgerConfig struct {
	Backend  string      `mapstructure:"backend"`
	Project  string      `mapstructure:"project"`
	Dataset  string      `mapstructure:"dataset"`
	Table    string      `mapstructure:"table"`
	Mongo    MongoConfig `mapstructure:"mongo"`
	SeedSize int         `mapstructure:"seed_size"`
}

type MongoConfig struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

type CacheConfig struct {
	Backend    string       `mapstructure:"backend"`
	TTLSeconds int          `mapstructure:"ttl_seconds"`
	Namespace  string       `mapstructure:"namespace"`
	Redis      RedisConfig  `mapstructure:"redis"`
	Dynamo     DynamoConfig `mapstructure:"dynamo"`
	GCS        GCSConfig    `mapstructure:"gcs"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type DynamoConfig struct {
	Table    string `mapstructure:"table"`
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"`
}

type GCSConfig struct {
	Bucket string `mapstructure:"bucket"`
	Prefix string `mapstructure:"prefix"`
}

type QueryConfig struct {
	MaxCachedRows int `mapstructure:"max_cached_rows"`
	SampleSize    int `mapstructure:"sample_size"`
}

type AgentConfig struct {
	MaxIterations int `mapstructure:"max_iterations"`
	MaxBuckets    int `mapstructure:"max_buckets"`
	FallbackRows  int `mapstructure:"fallback_rows"`
	MemoryHistory int `mapstructure:"memory_history"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

var defaults = map[string]any{
	"server.addr":             ":8080",
	"server.shutdown_seconds": 10,
	"server.rate_limit":       5.0,
	"server.rate_burst":       10,
	"auth.jwt_secret":         "",
	"llm.model":               "gemini-2.5-flash",
	"llm.api_key":             "",
	"llm.project":             "",
	"llm.location":            "",
	"llm.vertex_ai":           false,
	"ledger.backend":          LedgerMemory,
	"ledger.project":          "",
	"ledger.dataset":          "finance",
	"ledger.table":            "transactions",
	"ledger.mongo.uri":        "",
	"ledger.mongo.database":   "finance",
	"ledger.mongo.collection": "transactions",
	"ledger.seed_size":        1000,
	"cache.backend":           CacheMemory,
	"cache.ttl_seconds":       300,
	"cache.namespace":         "finance_agent",
	"cache.redis.addr":        "localhost:6379",
	"cache.redis.password":    "",
	"cache.redis.db":          0,
	"cache.dynamo.table":      "query_cache",
	"cache.dynamo.region":     "",
	"cache.dynamo.endpoint":   "",
	"cache.gcs.bucket":        "",
	"cache.gcs.prefix":        "query-cache/",
	"query.max_cached_rows":   1000,
	"query.sample_size":       3,
	"agent.max_iterations":    pipeline.DefaultMaxIterations,
	"agent.max_buckets":       12,
	"agent.fallback_rows":     20,
	"agent.memory_history":    10,
	"log.level":               "info",
	"log.json":                false,
}

// Load reads .env (if present), then path (if non-empty), then the
// environment. LEDGER_BACKEND overrides ledger.backend and so on.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("Load: read .env: %w", err)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("Load: read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("Load: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings the selected backends need.
func (c Config) Validate() error {
	var problems []string

	switch c.Ledger.Backend {
	case LedgerMemory:
	case LedgerBigQuery:
		if c.Ledger.Project == "" {
			problems = append(problems, "ledger.project is required for bigquery")
		}
	case LedgerMongo:
		if c.Ledger.Mongo.URI == "" {
			problems = append(problems, "ledger.mongo.uri is required for mongo")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown ledger.backend %q", c.Ledger.Backend))
	}

	switch c.Cache.Backend {
	case CacheMemory:
	case CacheRedis:
		if c.Cache.Redis.Addr == "" {
			problems = append(problems, "cache.redis.addr is required for redis")
		}
	case CacheDynamo:
		if c.Cache.Dynamo.Table == "" {
			problems = append(problems, "cache.dynamo.table is required for dynamo")
		}
	case CacheGCS:
		if c.Cache.GCS.Bucket == "" {
			problems = append(problems, "cache.gcs.bucket is required for gcs")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown cache.backend %q", c.Cache.Backend))
	}

	if c.Cache.TTLSeconds <= 0 {
		problems = append(problems, "cache.ttl_seconds must be positive")
	}
	if c.Agent.MaxIterations < pipeline.MaxStages {
		problems = append(problems, fmt.Sprintf("agent.max_iterations must be at least %d", pipeline.MaxStages))
	}
	if c.Agent.MaxBuckets < 2 {
		problems = append(problems, "agent.max_buckets must be at least 2")
	}

	if len(problems) > 0 {
		return fmt.Errorf("Validate: invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}
