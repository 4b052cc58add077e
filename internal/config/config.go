package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config represents the full application configuration surface.
type Config struct {
	Server  ServerConfig
	Backend BackendConfig
	Log     LogConfig
	Catalog CatalogConfig
	MongoDB MongoDBConfig
	Sheets  SheetsConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port           string
	MCPPath        string
	MetricsEnabled bool
}

// BackendConfig points at the feed formulation API. Credentials are optional at
// process level; callers may supply an API key per request instead.
type BackendConfig struct {
	BaseURL string
	APIKey  string
	Email   string
	PIN     string
}

// HasCredentials reports whether process-level credentials are configured.
func (b BackendConfig) HasCredentials() bool {
	return b.APIKey != "" || (b.Email != "" && b.PIN != "")
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string
	Format string
}

// CatalogConfig holds the country catalog refresh schedule.
type CatalogConfig struct {
	RefreshCron string
}

// MongoDBConfig holds settings for the optional invocation audit store.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// Enabled reports whether a MongoDB URI was supplied.
func (m MongoDBConfig) Enabled() bool { return m.URI != "" }

// SheetsConfig contains configuration required to mirror invocations into Google Sheets.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
}

// Enabled reports whether the audit sheet is configured.
func (s SheetsConfig) Enabled() bool { return s.CredentialsPath != "" && s.SpreadsheetID != "" }

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Ignore the returned error here; missing .env files are acceptable when
		// configuration comes from the environment directly.
		_ = godotenv.Load()
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           getenvWithDefault("APP_PORT", "8080"),
			MCPPath:        getenvWithDefault("MCP_PATH", "/mcp"),
			MetricsEnabled: getenvBool("METRICS_ENABLED", true),
		},
		Backend: BackendConfig{
			BaseURL: getenvWithDefault("FEED_API_BASE_URL", "http://localhost:8000"),
			APIKey:  strings.TrimSpace(os.Getenv("FEED_API_KEY")),
			Email:   strings.TrimSpace(os.Getenv("FEED_API_EMAIL")),
			PIN:     strings.TrimSpace(os.Getenv("FEED_API_PIN")),
		},
		Log: LogConfig{
			Level:  getenvWithDefault("LOG_LEVEL", "info"),
			Format: getenvWithDefault("LOG_FORMAT", "json"),
		},
		Catalog: CatalogConfig{
			RefreshCron: getenvWithDefault("COUNTRY_REFRESH_CRON", "0 */6 * * *"),
		},
		MongoDB: MongoDBConfig{
			URI:    os.Getenv("MONGODB_URI"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "dairy_mcp"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_AUDIT_ID"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated and consistent.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	if !strings.HasPrefix(c.Server.MCPPath, "/") {
		return errors.New("MCP_PATH must start with /")
	}

	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("FEED_API_BASE_URL must be an absolute http(s) url, got %q", c.Backend.BaseURL)
	}

	if (c.Backend.Email == "") != (c.Backend.PIN == "") {
		return errors.New("FEED_API_EMAIL and FEED_API_PIN must be provided together")
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Log.Format)
	}

	if _, err := cron.ParseStandard(c.Catalog.RefreshCron); err != nil {
		return fmt.Errorf("COUNTRY_REFRESH_CRON is invalid: %w", err)
	}

	if (c.Sheets.CredentialsPath == "") != (c.Sheets.SpreadsheetID == "") {
		return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH and GOOGLE_SHEET_AUDIT_ID must be provided together")
	}

	if c.MongoDB.Enabled() && c.MongoDB.DBName == "" {
		return errors.New("MONGODB_DB_NAME must not be empty when MONGODB_URI is set")
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
