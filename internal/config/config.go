package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port           string
	UploadDir      string
	MaxUploadBytes int64
	// Requests per minute per client on write endpoints; 0 disables.
	RateLimitPerMinute int

	// Backend selection
	DataBackend string

	// Database
	SQLiteDBPath string

	// Memory backend seed directory
	DataDirectory string

	// AMQP (optional; empty URL disables events)
	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string

	// Category cache
	CategoryCacheSize          int
	CategoryCacheTTL           time.Duration
	CategoryCacheCleanInterval time.Duration

	// Google Sheets import source
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string
	GoogleOAuthClientFile    string
	GoogleOAuthTokenFile     string

	LogLevel string
}

func Load() *Config {
	cfg := &Config{
		Port:           getEnv("PORT", "8081"),
		UploadDir:      getEnv("UPLOAD_DIR", "./data/uploads"),
		MaxUploadBytes: getEnvInt64("MAX_UPLOAD_BYTES", 10<<20),

		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),

		DataBackend:   getEnv("DATA_BACKEND", "sqlite"),
		SQLiteDBPath:  getEnv("SQLITE_DB_PATH", "./data/finances.db"),
		DataDirectory: getEnv("DATA_DIRECTORY", "data"),

		AMQPURL:        getEnv("AMQP_URL", ""),
		AMQPExchange:   getEnv("AMQP_EXCHANGE", "finances"),
		AMQPRoutingKey: getEnv("AMQP_ROUTING_KEY", "ledger_events"),

		CategoryCacheSize:          getEnvInt("CATEGORY_CACHE_SIZE", 256),
		CategoryCacheTTL:           getEnvDuration("CATEGORY_CACHE_TTL", 10*time.Minute),
		CategoryCacheCleanInterval: getEnvDuration("CATEGORY_CACHE_CLEAN_INTERVAL", time.Minute),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Transactions"),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleOAuthClientFile:    getEnv("GOOGLE_OAUTH_CLIENT_FILE", ""),
		GoogleOAuthTokenFile:     getEnv("GOOGLE_OAUTH_TOKEN_FILE", "token.json"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{"memory", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPRoutingKey == "" {
			errors = append(errors, "AMQP routing key cannot be empty when AMQP URL is provided")
		}
	}

	if c.UploadDir == "" {
		errors = append(errors, "upload directory cannot be empty")
	}
	if c.MaxUploadBytes < 1 {
		errors = append(errors, fmt.Sprintf("invalid max upload size %d: must be positive", c.MaxUploadBytes))
	}

	if c.RateLimitPerMinute < 0 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must not be negative", c.RateLimitPerMinute))
	}

	if c.CategoryCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid category cache size %d: must be at least 1", c.CategoryCacheSize))
	} else if c.CategoryCacheSize > 100000 {
		errors = append(errors, fmt.Sprintf("invalid category cache size %d: must be at most 100000", c.CategoryCacheSize))
	}
	if c.CategoryCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid category cache TTL %v: must be at least 1 second", c.CategoryCacheTTL))
	}
	if c.CategoryCacheCleanInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid category cache clean interval %v: must be at least 1 second", c.CategoryCacheCleanInterval))
	} else if c.CategoryCacheCleanInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid category cache clean interval %v: must be at most 24 hours", c.CategoryCacheCleanInterval))
	}

	if c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ValidateSheets reports what is missing to import from Google Sheets.
func (c *Config) ValidateSheets() error {
	var errors []string
	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, "GOOGLE_SPREADSHEET_ID is required for sheet imports")
	}
	if c.GoogleServiceAccountFile == "" && c.GoogleServiceAccountJSON == "" &&
		(c.GoogleOAuthClientFile == "" || c.GoogleOAuthTokenFile == "") {
		errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE, GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_OAUTH_CLIENT_FILE with GOOGLE_OAUTH_TOKEN_FILE must be provided for sheet imports")
	}
	if len(errors) > 0 {
		return fmt.Errorf("sheets configuration invalid:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
