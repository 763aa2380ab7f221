// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Storage backends.
const (
	BackendLocal = "local"
	BackendMinIO = "minio"
	BackendGCS   = "gcs"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Storage  StorageConfig
	Ingest   IngestConfig
	Server   ServerConfig
	Database DatabaseConfig
	Logging  LoggingConfig
}

// StorageConfig selects and configures the object store.
type StorageConfig struct {
	// Backend is one of local, minio, gcs (default: local)
	Backend string `env:"STORAGE_BACKEND" default:"local"`

	// Bucket is the destination container for every artifact (required)
	// GCS_BUCKET is accepted for compatibility with older deployments
	Bucket string `env:"STORAGE_BUCKET" envAlt:"GCS_BUCKET" required:"true"`

	// LocalRoot is the directory holding buckets for the local backend
	LocalRoot string `env:"STORAGE_LOCAL_ROOT" default:"/tmp/ecommerce_store"`

	MinIO MinIOConfig
	GCS   GCSConfig
}

// MinIOConfig holds S3-compatible endpoint settings.
type MinIOConfig struct {
	// Endpoint is host:port or a URL (default: localhost:9000)
	Endpoint string `env:"MINIO_ENDPOINT" default:"localhost:9000"`

	AccessKey string `env:"MINIO_ACCESS_KEY"`
	SecretKey string `env:"MINIO_SECRET_KEY"`

	// UseSSL forces https (default: false)
	UseSSL bool `env:"MINIO_USE_SSL" default:"false"`

	Region string `env:"MINIO_REGION"`

	// CreateBucket creates the bucket on startup when missing (default: false)
	CreateBucket bool `env:"MINIO_CREATE_BUCKET" default:"false"`
}

// GCSConfig holds Google Cloud Storage client settings.
type GCSConfig struct {
	// CredentialsFile is a service account key; empty uses application default credentials
	CredentialsFile string `env:"GCS_CREDENTIALS_FILE" envAlt:"GOOGLE_APPLICATION_CREDENTIALS"`

	// Endpoint overrides the API endpoint, e.g. for an emulator
	Endpoint string `env:"GCS_ENDPOINT"`
}

// IngestConfig holds run settings.
type IngestConfig struct {
	// DataDir holds one folder of raw CSVs per run date (default: /tmp/ecommerce_data)
	DataDir string `env:"ECOMMERCE_DATA_DIR" default:"/tmp/ecommerce_data"`

	// MaxParallel is the number of entities processed at once (default: 5)
	MaxParallel int `env:"INGEST_MAX_PARALLEL" default:"5"`

	// UploadRaw copies each raw file to the store before validation (default: true)
	UploadRaw bool `env:"INGEST_UPLOAD_RAW" default:"true"`

	// RawPrefix is the key prefix for raw file copies (default: raw/ecommerce)
	RawPrefix string `env:"INGEST_RAW_PREFIX" default:"raw/ecommerce"`

	// Entities restricts runs to a comma-separated subset; empty runs every registered entity
	Entities []string `env:"INGEST_ENTITIES"`

	// Timeout bounds one whole run (default: 30m)
	Timeout time.Duration `env:"INGEST_TIMEOUT" default:"30m"`
}

// ServerConfig holds status server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 0, runs are synchronous)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// APIKeys guard the run trigger endpoint; empty leaves it open
	APIKeys []string `env:"API_KEYS"`

	// TrustedProxies are CIDRs whose X-Real-IP / X-Forwarded-For headers are honored
	TrustedProxies []string `env:"TRUSTED_PROXIES"`
}

// RequireAPIKey reports whether the trigger endpoint needs an X-API-Key header.
func (c *ServerConfig) RequireAPIKey() bool {
	return len(c.APIKeys) > 0
}

// DatabaseConfig holds run ledger connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string; empty disables the run ledger
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 4)
	MaxConns int `env:"DB_MAX_CONNS" default:"4"`

	// MinConns is the minimum number of connections to keep open (default: 0)
	MinConns int `env:"DB_MIN_CONNS" default:"0"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// LedgerEnabled reports whether run outcomes are recorded in Postgres.
func (c *DatabaseConfig) LedgerEnabled() bool {
	return c.URL != ""
}
