// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"net"
	"strconv"
	"time"

	"github.com/JonMunkholm/dataflow/internal/core"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Backend  BackendConfig
	Data     DataConfig
	Upload   UploadConfig
	Export   ExportConfig
	Session  SessionConfig
	Refresh  RefreshConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds settings for the local browser UI.
type ServerConfig struct {
	// Host is the interface to bind to (default: 127.0.0.1, local only)
	Host string `env:"SERVER_HOST" default:"127.0.0.1"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading a request, upload bodies included (default: 60s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"60s"`

	// WriteTimeout is the maximum duration for writing a response, exports included (default: 120s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"120s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 15s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"15s"`

	// RequestTimeout is the middleware timeout for requests (default: 90s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"90s"`
}

// BackendConfig holds settings for the collaborator backend and record source.
type BackendConfig struct {
	// URL is the collaborator API base URL (required)
	// Supports both DATAFLOW_BACKEND_URL and BACKEND_URL env vars
	URL string `env:"DATAFLOW_BACKEND_URL" envAlt:"BACKEND_URL" required:"true"`

	// Timeout bounds a single API request (default: 30s)
	Timeout time.Duration `env:"BACKEND_TIMEOUT" default:"30s"`

	// Source selects where records are read from: http or postgres (default: http)
	Source string `env:"RECORD_SOURCE" default:"http"`

	// DatabaseURL is the PostgreSQL connection string, required when Source is postgres
	DatabaseURL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// Table is the table read by the postgres source (default: music_data)
	Table string `env:"SOURCE_TABLE" default:"music_data"`

	// OrderBy is the column the postgres source orders by (default: id)
	OrderBy string `env:"SOURCE_ORDER_BY" default:"id"`

	// MaxConns is the maximum number of pooled database connections (default: 4)
	MaxConns int `env:"DB_MAX_CONNS" default:"4"`
}

// DataConfig selects the record schema and presentation locale.
type DataConfig struct {
	// Schema is the registered record schema: catalog or person (default: catalog)
	Schema string `env:"DATAFLOW_SCHEMA" default:"catalog"`

	// Locale is the BCP 47 tag used to order text columns (default: en)
	Locale string `env:"DATAFLOW_LOCALE" default:"en"`
}

// UploadConfig holds upload validation and submission settings.
type UploadConfig struct {
	// AllowedExtensions is a comma-separated list of accepted file extensions
	AllowedExtensions []string `env:"UPLOAD_ALLOWED_EXTENSIONS" default:".csv,.xlsx,.xls,.ods"`

	// MaxFileSize is the maximum allowed file size in bytes (default: 10MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"10485760"`

	// Timeout is the maximum duration for a single upload request (default: 2m)
	Timeout time.Duration `env:"UPLOAD_TIMEOUT" default:"2m"`

	// RedirectDelay is how long the success message shows before the data view (default: 1s)
	RedirectDelay time.Duration `env:"UPLOAD_REDIRECT_DELAY" default:"1s"`

	// DropDir is a folder watched for files to upload; empty disables the watcher
	DropDir string `env:"UPLOAD_DROP_DIR"`

	// DropDebounce is how long a dropped file must be quiet before it is uploaded (default: 500ms)
	DropDebounce time.Duration `env:"UPLOAD_DROP_DEBOUNCE" default:"500ms"`
}

// ExportConfig holds export settings.
type ExportConfig struct {
	// OutputDir is where exported files are saved (default: current directory)
	OutputDir string `env:"EXPORT_OUTPUT_DIR" default:"."`

	// DateLayout is the Go time layout for date cells (default: 1/2/2006)
	DateLayout string `env:"EXPORT_DATE_LAYOUT" default:"1/2/2006"`

	// MaxConcurrent is the maximum number of exports encoding at once (default: 2)
	MaxConcurrent int `env:"EXPORT_MAX_CONCURRENT" default:"2"`

	// MaxWaitTime is how long an export waits for a slot (default: 30s)
	MaxWaitTime time.Duration `env:"EXPORT_MAX_WAIT_TIME" default:"30s"`

	// Optimize runs PDF output through the optimizer (default: true)
	Optimize bool `env:"EXPORT_OPTIMIZE_PDF" default:"true"`
}

// SessionConfig holds local state settings.
type SessionConfig struct {
	// StatePath is the SQLite file holding the session and record snapshots
	StatePath string `env:"DATAFLOW_STATE_PATH" default:".dataflow/state.db"`
}

// RefreshConfig holds background refresh settings.
type RefreshConfig struct {
	// Schedule is a cron expression for periodic refresh; empty disables it
	Schedule string `env:"REFRESH_SCHEDULE"`

	// OnStart refreshes once when the server starts (default: true)
	OnStart bool `env:"REFRESH_ON_START" default:"true"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 300)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"300"`

	// UploadLimit is requests per minute for the upload endpoint (default: 10)
	UploadLimit int `env:"RATE_LIMIT_UPLOAD" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`
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
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Policy returns the upload policy described by the config.
func (c *UploadConfig) Policy() core.UploadPolicy {
	return core.UploadPolicy{
		AllowedExtensions: core.NormalizeExtensions(c.AllowedExtensions),
		MaxSizeBytes:      c.MaxFileSize,
	}
}
