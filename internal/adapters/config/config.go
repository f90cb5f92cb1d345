package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"edinsights/pkg/errors"
)

type Config struct {
	App           AppConfig
	Server        ServerConfig
	Warehouse     WarehouseConfig
	AI            AIConfig
	Agents        AgentsConfig
	Maps          MapsConfig
	Attachments   AttachmentsConfig
	ErrorTracking ErrorTrackingConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"edinsights"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
}

type ServerConfig struct {
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"90s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"15s"`
	StaticDir       string        `envconfig:"SERVER_STATIC_DIR" default:"web/static"`
}

// WarehouseConfig describes the PostgreSQL education data warehouse.
type WarehouseConfig struct {
	Host         string        `envconfig:"WAREHOUSE_HOST" required:"true"`
	Port         int           `envconfig:"WAREHOUSE_PORT" default:"5432"`
	User         string        `envconfig:"WAREHOUSE_USER" required:"true"`
	Password     string        `envconfig:"WAREHOUSE_PASSWORD" required:"true"`
	Database     string        `envconfig:"WAREHOUSE_DB" required:"true"`
	SSLMode      string        `envconfig:"WAREHOUSE_SSL_MODE" default:"disable"`
	MaxConns     int           `envconfig:"WAREHOUSE_MAX_CONNS" default:"25"`
	QueryTimeout time.Duration `envconfig:"WAREHOUSE_QUERY_TIMEOUT" default:"30s"`
}

func (c WarehouseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

type AIConfig struct {
	GeminiKey       string        `envconfig:"GEMINI_API_KEY"`
	DefaultProvider string        `envconfig:"DEFAULT_AI_PROVIDER" default:"gemini"`
	DefaultModel    string        `envconfig:"DEFAULT_AI_MODEL" default:"gemini-2.0-flash-exp"`
	RequestTimeout  time.Duration `envconfig:"AI_REQUEST_TIMEOUT" default:"60s"`
	ReqPerMinute    float64       `envconfig:"AI_REQ_PER_MINUTE" default:"60"`
	RateLimitBurst  int           `envconfig:"AI_RATE_LIMIT_BURST" default:"10"`
}

// AgentsConfig carries runtime limits for agent execution.
type AgentsConfig struct {
	ExecutionTimeout  time.Duration `envconfig:"AGENTS_EXECUTION_TIMEOUT" default:"90s"`
	MaxTokens         int           `envconfig:"AGENTS_MAX_TOKENS" default:"50000"`
	ModelRetries      int           `envconfig:"AGENTS_MODEL_RETRIES" default:"1"`
	RetryBackoff      time.Duration `envconfig:"AGENTS_RETRY_BACKOFF" default:"2s"`
	EnableCompression bool          `envconfig:"AGENTS_ENABLE_COMPRESSION" default:"true"`
}

// MapsConfig gates map marker emission. Markers are a soft capability: an
// empty key disables them without failing requests.
type MapsConfig struct {
	APIKey string `envconfig:"MAPS_API_KEY"`
}

// Enabled reports whether map markers may be included in responses.
func (c MapsConfig) Enabled() bool {
	return c.APIKey != ""
}

// AttachmentsConfig caps uploaded file sizes. Files are read fully into
// memory, so the caps bound per-request memory use.
type AttachmentsConfig struct {
	MaxImageBytes    int64 `envconfig:"ATTACHMENTS_MAX_IMAGE_BYTES" default:"4194304"`
	MaxDocumentBytes int64 `envconfig:"ATTACHMENTS_MAX_DOCUMENT_BYTES" default:"10485760"`
	MaxPerRequest    int   `envconfig:"ATTACHMENTS_MAX_PER_REQUEST" default:"5"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"true"`
	Provider    string `envconfig:"ERROR_TRACKING_PROVIDER" default:"sentry"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not exists)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	return &cfg, nil
}
