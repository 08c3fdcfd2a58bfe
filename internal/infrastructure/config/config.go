package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App           AppConfig
	Log           LogConfig
	HTTP          HTTPConfig
	Storage       StorageConfig
	Persistence   PersistenceConfig
	Images        ImageConfig
	ObjectStorage ObjectStorageConfig
	Inventory     InventoryConfig
	Telemetry     TelemetryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxHeaderBytes  int
	MaxBodySize     int64
	TrustedProxies  []string
	CORSOrigins     []string
	RateLimit       int // requests per minute per client, 0 disables
}

// Storage backends
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// StorageConfig selects and configures the key/value store holding the collections
type StorageConfig struct {
	Backend    string // memory, redis, sqlite, postgres
	KeyPrefix  string
	QuotaBytes int64 // total capacity of the store, 0 = unbounded
	Redis      RedisConfig
	Database   DatabaseConfig
	SQLitePath string
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns the host:port address of the Redis server
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// PersistenceConfig holds the size-degradation policy of the persistence manager
type PersistenceConfig struct {
	CeilingBytes        int // per collection
	SoftKeep            int // records kept by non-product collections on soft overflow
	HardKeepProducts    int // products kept after a quota rejection
	HardKeepAdjustments int // adjustments kept after a quota rejection
	OptimizeThreshold   int // images above this size are replaced by a placeholder when persisted
}

// ImageConfig holds image compression settings
type ImageConfig struct {
	CompressThreshold int // images above this size are compressed on upload
	MaxWidth          int
	Quality           int // JPEG quality 1-100
	MaxPixels         int // larger images are stored uncompressed without being decoded
}

// ObjectStorageConfig holds S3-compatible storage settings for archived images
type ObjectStorageConfig struct {
	Enabled         bool
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	KeyPrefix       string
}

// InventoryConfig holds domain settings
type InventoryConfig struct {
	SeedDefaults        bool
	DefaultReorderLevel int
	DefaultUser         string
	InvoiceReplayTTL    time.Duration // how long applied invoice ids are remembered
	ResolutionPolicy    []string      // invoice line matchers in order: id, name, sku
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	MetricsEnabled    bool
	MetricsInterval   time.Duration
	DBTraceEnabled    bool          // Enable database query tracing (otelgorm)
	DBSlowQueryThresh time.Duration // Slow query threshold for warnings
}

// Load loads configuration from .env, TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with INV_ prefix (e.g., INV_STORAGE_BACKEND)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	// A missing .env file is normal outside development
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("INV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:     v.GetDuration("http.read_timeout"),
			WriteTimeout:    v.GetDuration("http.write_timeout"),
			IdleTimeout:     v.GetDuration("http.idle_timeout"),
			ShutdownTimeout: v.GetDuration("http.shutdown_timeout"),
			MaxHeaderBytes:  v.GetInt("http.max_header_bytes"),
			MaxBodySize:     v.GetInt64("http.max_body_size"),
			TrustedProxies:  v.GetStringSlice("http.trusted_proxies"),
			CORSOrigins:     v.GetStringSlice("http.cors_origins"),
			RateLimit:       v.GetInt("http.rate_limit"),
		},
		Storage: StorageConfig{
			Backend:    v.GetString("storage.backend"),
			KeyPrefix:  v.GetString("storage.key_prefix"),
			QuotaBytes: v.GetInt64("storage.quota_bytes"),
			SQLitePath: v.GetString("storage.sqlite_path"),
			Redis: RedisConfig{
				Host:     v.GetString("storage.redis.host"),
				Port:     v.GetInt("storage.redis.port"),
				Password: v.GetString("storage.redis.password"),
				DB:       v.GetInt("storage.redis.db"),
			},
			Database: DatabaseConfig{
				Host:            v.GetString("storage.database.host"),
				Port:            v.GetInt("storage.database.port"),
				User:            v.GetString("storage.database.user"),
				Password:        v.GetString("storage.database.password"),
				DBName:          v.GetString("storage.database.dbname"),
				SSLMode:         v.GetString("storage.database.sslmode"),
				MaxOpenConns:    v.GetInt("storage.database.max_open_conns"),
				MaxIdleConns:    v.GetInt("storage.database.max_idle_conns"),
				ConnMaxLifetime: v.GetInt("storage.database.conn_max_lifetime"),
				ConnMaxIdleTime: v.GetInt("storage.database.conn_max_idle_time"),
			},
		},
		Persistence: PersistenceConfig{
			CeilingBytes:        v.GetInt("persistence.ceiling_bytes"),
			SoftKeep:            v.GetInt("persistence.soft_keep"),
			HardKeepProducts:    v.GetInt("persistence.hard_keep_products"),
			HardKeepAdjustments: v.GetInt("persistence.hard_keep_adjustments"),
			OptimizeThreshold:   v.GetInt("persistence.optimize_threshold"),
		},
		Images: ImageConfig{
			CompressThreshold: v.GetInt("images.compress_threshold"),
			MaxWidth:          v.GetInt("images.max_width"),
			Quality:           v.GetInt("images.quality"),
			MaxPixels:         v.GetInt("images.max_pixels"),
		},
		ObjectStorage: ObjectStorageConfig{
			Enabled:         v.GetBool("object_storage.enabled"),
			Endpoint:        v.GetString("object_storage.endpoint"),
			Region:          v.GetString("object_storage.region"),
			Bucket:          v.GetString("object_storage.bucket"),
			AccessKeyID:     v.GetString("object_storage.access_key_id"),
			SecretAccessKey: v.GetString("object_storage.secret_access_key"),
			UsePathStyle:    v.GetBool("object_storage.use_path_style"),
			KeyPrefix:       v.GetString("object_storage.key_prefix"),
		},
		Inventory: InventoryConfig{
			SeedDefaults:        v.GetBool("inventory.seed_defaults"),
			DefaultReorderLevel: v.GetInt("inventory.default_reorder_level"),
			DefaultUser:         v.GetString("inventory.default_user"),
			InvoiceReplayTTL:    v.GetDuration("inventory.invoice_replay_ttl"),
			ResolutionPolicy:    splitList(v.GetStringSlice("inventory.resolution_policy")),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
		},
	}

	// Unset keys read as zero; a reorder level of 0 is still meaningful
	if !v.IsSet("inventory.default_reorder_level") {
		cfg.Inventory.DefaultReorderLevel = -1
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "stock-ledger"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 30 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 10 << 20 // 10MB, product images travel inline
	}

	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = BackendMemory
	}
	if cfg.Storage.KeyPrefix == "" {
		cfg.Storage.KeyPrefix = "inventory:"
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = "stockledger.db"
	}
	if cfg.Storage.Redis.Host == "" {
		cfg.Storage.Redis.Host = "localhost"
	}
	if cfg.Storage.Redis.Port == 0 {
		cfg.Storage.Redis.Port = 6379
	}
	db := &cfg.Storage.Database
	if db.Host == "" {
		db.Host = "localhost"
	}
	if db.Port == 0 {
		db.Port = 5432
	}
	if db.User == "" {
		db.User = "postgres"
	}
	if db.DBName == "" {
		db.DBName = "stockledger"
	}
	if db.SSLMode == "" {
		db.SSLMode = "disable"
	}
	if db.MaxOpenConns == 0 {
		db.MaxOpenConns = 10
	}
	if db.MaxIdleConns == 0 {
		db.MaxIdleConns = 2
	}
	if db.ConnMaxLifetime == 0 {
		db.ConnMaxLifetime = 60
	}
	if db.ConnMaxIdleTime == 0 {
		db.ConnMaxIdleTime = 30
	}

	if cfg.Persistence.CeilingBytes == 0 {
		cfg.Persistence.CeilingBytes = 4_718_592 // 4.5MB
	}
	if cfg.Persistence.SoftKeep == 0 {
		cfg.Persistence.SoftKeep = 50
	}
	if cfg.Persistence.HardKeepProducts == 0 {
		cfg.Persistence.HardKeepProducts = 100
	}
	if cfg.Persistence.HardKeepAdjustments == 0 {
		cfg.Persistence.HardKeepAdjustments = 200
	}
	if cfg.Persistence.OptimizeThreshold == 0 {
		cfg.Persistence.OptimizeThreshold = 100 * 1024
	}

	if cfg.Images.CompressThreshold == 0 {
		cfg.Images.CompressThreshold = 50 * 1024
	}
	if cfg.Images.MaxWidth == 0 {
		cfg.Images.MaxWidth = 400
	}
	if cfg.Images.Quality == 0 {
		cfg.Images.Quality = 70
	}
	if cfg.Images.MaxPixels == 0 {
		cfg.Images.MaxPixels = 25_000_000
	}

	if cfg.ObjectStorage.Region == "" {
		cfg.ObjectStorage.Region = "us-east-1"
	}
	if cfg.ObjectStorage.Bucket == "" {
		cfg.ObjectStorage.Bucket = "stockledger-images"
	}
	if cfg.ObjectStorage.KeyPrefix == "" {
		cfg.ObjectStorage.KeyPrefix = "products/"
	}

	if cfg.Inventory.DefaultReorderLevel < 0 {
		cfg.Inventory.DefaultReorderLevel = 10
	}
	if cfg.Inventory.DefaultUser == "" {
		cfg.Inventory.DefaultUser = "system"
	}
	if len(cfg.Inventory.ResolutionPolicy) == 0 {
		cfg.Inventory.ResolutionPolicy = []string{"id", "name", "sku"}
	}
	if cfg.Inventory.InvoiceReplayTTL == 0 {
		cfg.Inventory.InvoiceReplayTTL = 30 * 24 * time.Hour
	}

	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317" // Default gRPC endpoint
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 60 * time.Second
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	switch c.Storage.Backend {
	case BackendMemory, BackendRedis, BackendSQLite, BackendPostgres:
	default:
		return fmt.Errorf("storage.backend must be one of memory, redis, sqlite, postgres, got %q", c.Storage.Backend)
	}
	if c.Storage.QuotaBytes < 0 {
		return fmt.Errorf("storage.quota_bytes cannot be negative")
	}
	if c.Storage.Database.MaxIdleConns > c.Storage.Database.MaxOpenConns {
		return fmt.Errorf("storage.database.max_idle_conns (%d) cannot exceed storage.database.max_open_conns (%d)",
			c.Storage.Database.MaxIdleConns, c.Storage.Database.MaxOpenConns)
	}

	p := c.Persistence
	if p.CeilingBytes < 0 || p.SoftKeep < 0 || p.HardKeepProducts < 0 || p.HardKeepAdjustments < 0 || p.OptimizeThreshold < 0 {
		return fmt.Errorf("persistence limits cannot be negative")
	}

	if c.Images.Quality < 1 || c.Images.Quality > 100 {
		return fmt.Errorf("images.quality must be between 1 and 100, got %d", c.Images.Quality)
	}
	if c.Images.MaxWidth < 0 || c.Images.CompressThreshold < 0 || c.Images.MaxPixels < 0 {
		return fmt.Errorf("images limits cannot be negative")
	}

	if c.ObjectStorage.Enabled && c.ObjectStorage.Bucket == "" {
		return fmt.Errorf("object_storage.bucket is required when object storage is enabled")
	}

	if c.App.Env == "production" {
		if c.Storage.Backend == BackendMemory {
			return fmt.Errorf("storage.backend cannot be 'memory' in production")
		}
		if c.Storage.Backend == BackendPostgres && c.Storage.Database.SSLMode == "disable" {
			return fmt.Errorf("storage.database.sslmode cannot be 'disable' in production")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// splitList flattens comma separated entries, as environment variables carry
// lists in a single value
func splitList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
