package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
	"golang.org/x/text/language"

	"github.com/JonMunkholm/dataflow/internal/core"
)

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Backend validation
	if u, err := url.Parse(c.Backend.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Sprintf("DATAFLOW_BACKEND_URL (%q) must be an http(s) URL", c.Backend.URL))
	}
	if c.Backend.Timeout <= 0 {
		errs = append(errs, "BACKEND_TIMEOUT must be positive")
	}
	switch strings.ToLower(c.Backend.Source) {
	case "http":
	case "postgres":
		if c.Backend.DatabaseURL == "" {
			errs = append(errs, "DATABASE_URL is required when RECORD_SOURCE is postgres")
		}
		if c.Backend.Table == "" {
			errs = append(errs, "SOURCE_TABLE is required when RECORD_SOURCE is postgres")
		}
		if c.Backend.MaxConns <= 0 {
			errs = append(errs, "DB_MAX_CONNS must be positive")
		}
	default:
		errs = append(errs, fmt.Sprintf("RECORD_SOURCE (%q) must be one of: http, postgres", c.Backend.Source))
	}

	// Data validation
	if _, ok := core.Get(c.Data.Schema); !ok {
		errs = append(errs, fmt.Sprintf("DATAFLOW_SCHEMA (%q) must be one of: %s",
			c.Data.Schema, strings.Join(core.Names(), ", ")))
	}
	if _, err := language.Parse(c.Data.Locale); err != nil {
		errs = append(errs, fmt.Sprintf("DATAFLOW_LOCALE (%q) is not a valid language tag", c.Data.Locale))
	}

	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}
	if c.Server.RequestTimeout <= 0 {
		errs = append(errs, "SERVER_REQUEST_TIMEOUT must be positive")
	}

	// Upload validation
	if len(c.Upload.AllowedExtensions) == 0 {
		errs = append(errs, "UPLOAD_ALLOWED_EXTENSIONS must list at least one extension")
	}
	if c.Upload.MaxFileSize <= 0 {
		errs = append(errs, "UPLOAD_MAX_FILE_SIZE must be positive")
	}
	if c.Upload.Timeout <= 0 {
		errs = append(errs, "UPLOAD_TIMEOUT must be positive")
	}
	if c.Upload.RedirectDelay < 0 {
		errs = append(errs, "UPLOAD_REDIRECT_DELAY must be non-negative")
	}
	if c.Upload.DropDebounce <= 0 {
		errs = append(errs, "UPLOAD_DROP_DEBOUNCE must be positive")
	}

	// Export validation
	if c.Export.MaxConcurrent <= 0 {
		errs = append(errs, "EXPORT_MAX_CONCURRENT must be positive")
	}
	if c.Export.MaxWaitTime <= 0 {
		errs = append(errs, "EXPORT_MAX_WAIT_TIME must be positive")
	}
	if c.Export.DateLayout == "" {
		errs = append(errs, "EXPORT_DATE_LAYOUT must not be empty")
	}

	// Session validation
	if c.Session.StatePath == "" {
		errs = append(errs, "DATAFLOW_STATE_PATH must not be empty")
	}

	// Refresh validation
	if c.Refresh.Schedule != "" {
		if _, err := cron.ParseStandard(c.Refresh.Schedule); err != nil {
			errs = append(errs, fmt.Sprintf("REFRESH_SCHEDULE (%q) is not a valid cron expression: %v", c.Refresh.Schedule, err))
		}
	}

	// Rate limit validation
	if c.Rate.Enabled && c.Rate.RequestsPerMinute <= 0 {
		errs = append(errs, "RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	}
	if c.Rate.Enabled && c.Rate.UploadLimit <= 0 {
		errs = append(errs, "RATE_LIMIT_UPLOAD must be positive when rate limiting is enabled")
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// String returns a safe string representation of the config for logging.
// The database URL is masked.
func (c *Config) String() string {
	dbURL := ""
	if c.Backend.DatabaseURL != "" {
		dbURL = "[MASKED]"
	}

	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Server: {Addr: %q}, ", c.Server.Addr())
	fmt.Fprintf(&b, "Backend: {URL: %q, Source: %q, DatabaseURL: %s, Table: %q}, ",
		c.Backend.URL, c.Backend.Source, dbURL, c.Backend.Table)
	fmt.Fprintf(&b, "Data: {Schema: %q, Locale: %q}, ", c.Data.Schema, c.Data.Locale)
	fmt.Fprintf(&b, "Upload: {MaxFileSize: %d, Extensions: %v, DropDir: %q}, ",
		c.Upload.MaxFileSize, c.Upload.AllowedExtensions, c.Upload.DropDir)
	fmt.Fprintf(&b, "Export: {OutputDir: %q, MaxConcurrent: %d}, ", c.Export.OutputDir, c.Export.MaxConcurrent)
	fmt.Fprintf(&b, "Refresh: {Schedule: %q}, ", c.Refresh.Schedule)
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}", c.Logging.Level, c.Logging.Format)
	b.WriteString("}")
	return b.String()
}
