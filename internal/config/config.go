package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
// It is the single source of truth for runtime parameters.
type Config struct {
	Port             string
	Env              string
	JWTSecret        string
	CORSAllowedHosts []string
	SeedTemplates    bool

	Store   StoreConfig
	DB      DatabaseConfig
	Mongo   MongoConfig
	Redis   RedisConfig
	S3      S3Config
	Catalog CatalogConfig
	Worker  WorkerConfig
}

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

// StoreConfig selects the document store and file storage backends.
type StoreConfig struct {
	Driver      string
	FileStorage string // s3 | memory
}

// DatabaseConfig contains PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// MongoConfig contains MongoDB connection parameters.
type MongoConfig struct {
	URI      string
	Database string
}

// RedisConfig contains Redis connection parameters.
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

// S3Config contains AWS S3 configuration
type S3Config struct {
	Region          string
	Bucket          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// CatalogConfig holds limits and timeouts of the variant engine.
type CatalogConfig struct {
	MaxCombinations   int
	AttributeQueryCap int
	AutoSKU           bool
	StoreCallTimeout  time.Duration
	OperationTimeout  time.Duration
	RollbackTimeout   time.Duration
	FilterCacheTTL    time.Duration
	WriteLockTTL      time.Duration
	IdempotencyTTL    time.Duration
}

// WorkerConfig contains interval configuration for background workers.
type WorkerConfig struct {
	UsageSyncInterval   time.Duration
	OrphanReapInterval  time.Duration
	OrphanGracePeriod   time.Duration
	OrphanReapBatchSize int
}

// Load reads configuration from environment variables. If a .env file exists
// in the working directory, it will be loaded first. It returns a populated
// Config or an error with a human-friendly message.
func Load() (*Config, error) {
	// Missing .env is fine; production sets real environment variables.
	_ = godotenv.Load()

	cfg := &Config{}

	// Server
	cfg.Port = getEnv("PORT", "8080")
	cfg.Env = getEnv("ENV", "development")
	cfg.JWTSecret = getEnv("JWT_SECRET", "")
	cfg.CORSAllowedHosts = getEnvList("CORS_ALLOWED_HOSTS", "localhost:3000,127.0.0.1:3000")
	cfg.SeedTemplates = getEnvBool("SEED_TEMPLATES", true)

	cfg.Store = StoreConfig{
		Driver:      strings.ToLower(getEnv("STORE_DRIVER", DriverPostgres)),
		FileStorage: strings.ToLower(getEnv("FILE_STORAGE", "s3")),
	}

	// Database
	cfg.DB = DatabaseConfig{
		Host:     getEnv("DB_HOST", ""),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", ""),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", ""),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}

	cfg.Mongo = MongoConfig{
		URI:      getEnv("MONGO_URI", ""),
		Database: getEnv("MONGO_DATABASE", "catalog"),
	}

	// Redis
	cfg.Redis = RedisConfig{
		Enabled:  getEnvBool("REDIS_ENABLED", true),
		Host:     getEnv("REDIS_HOST", "redis"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 0),
	}

	cfg.S3 = S3Config{
		Region:          getEnv("S3_REGION", "ap-southeast-3"),
		Bucket:          getEnv("S3_BUCKET", ""),
		Endpoint:        getEnv("S3_ENDPOINT", ""),
		AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		UsePathStyle:    getEnvBool("S3_USE_PATH_STYLE", false),
	}

	cfg.Catalog = CatalogConfig{
		MaxCombinations:   getEnvInt("MAX_COMBINATIONS", 10000),
		AttributeQueryCap: getEnvInt("ATTRIBUTE_QUERY_CAP", 1000),
		AutoSKU:           getEnvBool("AUTO_SKU", true),
	}

	// Durations
	var err error
	durations := []struct {
		dst *time.Duration
		key string
		def string
	}{
		{&cfg.Catalog.StoreCallTimeout, "STORE_CALL_TIMEOUT", "5s"},
		{&cfg.Catalog.OperationTimeout, "OPERATION_TIMEOUT", "60s"},
		{&cfg.Catalog.RollbackTimeout, "ROLLBACK_TIMEOUT", "30s"},
		{&cfg.Catalog.FilterCacheTTL, "FILTER_CACHE_TTL", "5m"},
		{&cfg.Catalog.WriteLockTTL, "WRITE_LOCK_TTL", "2m"},
		{&cfg.Catalog.IdempotencyTTL, "IDEMPOTENCY_TTL", "24h"},
		{&cfg.Worker.UsageSyncInterval, "USAGE_SYNC_INTERVAL", "1h"},
		{&cfg.Worker.OrphanReapInterval, "ORPHAN_REAP_INTERVAL", "30m"},
		{&cfg.Worker.OrphanGracePeriod, "ORPHAN_GRACE_PERIOD", "10m"},
	}
	for _, d := range durations {
		if *d.dst, err = parseDurationEnv(d.key, d.def); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
	}
	cfg.Worker.OrphanReapBatchSize = getEnvInt("ORPHAN_REAP_BATCH_SIZE", 500)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case DriverPostgres:
		if c.DB.Host == "" || c.DB.User == "" || c.DB.Name == "" {
			return errors.New("database configuration incomplete: ensure DB_HOST, DB_USER, and DB_NAME are set")
		}
	case DriverMongo:
		if c.Mongo.URI == "" {
			return errors.New("mongo configuration incomplete: ensure MONGO_URI is set")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q (want postgres, mongo or memory)", c.Store.Driver)
	}

	switch c.Store.FileStorage {
	case "s3":
		if c.S3.Bucket == "" {
			return errors.New("S3_BUCKET must be set when FILE_STORAGE=s3")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown FILE_STORAGE %q (want s3 or memory)", c.Store.FileStorage)
	}

	if c.Catalog.MaxCombinations <= 0 {
		return errors.New("MAX_COMBINATIONS must be positive")
	}
	if c.Catalog.AttributeQueryCap <= 0 {
		return errors.New("ATTRIBUTE_QUERY_CAP must be positive")
	}

	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set for authentication")
	}
	return nil
}

// getEnv returns the value of an environment variable or a default if empty.
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvList splits a comma-separated environment variable, dropping empty items.
func getEnvList(key, def string) []string {
	var out []string
	for _, item := range strings.Split(getEnv(key, def), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, strings.ToLower(item))
		}
	}
	return out
}

// getEnvInt returns the value of an environment variable as an integer or a default if empty/invalid.
func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// getEnvBool returns the value of an environment variable as a bool or a default if empty/invalid.
func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// parseDurationEnv reads an environment variable and parses it as time.Duration.
// If the variable is empty, it falls back to the provided default value.
func parseDurationEnv(key, def string) (time.Duration, error) {
	raw := getEnv(key, def)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must be >= 0")
	}
	return d, nil
}
