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
	Port string

	// Database
	SQLiteDBPath string

	// External OCR service
	OCRServiceURL string
	OCRTimeout    time.Duration

	// AMQP (optional; import events are published when configured)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Gmail statement fetch (statement-worker)
	GmailLabel            string
	GmailQuery            string
	GoogleOAuthClientFile string
	GoogleOAuthTokenFile  string
	FetchSchedule         string
	FetchBankCode         string
	FetchAccountID        int64
	StatementPassword     string

	// Upload limits
	MaxUploadBytes int64
}

func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "8080"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/fintrack.db"),

		OCRServiceURL: getEnv("OCR_SERVICE_URL", ""),
		OCRTimeout:    getEnvDuration("OCR_TIMEOUT", 60*time.Second),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "fintrack"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "import_events"),

		GmailLabel:            getEnv("GMAIL_LABEL", ""),
		GmailQuery:            getEnv("GMAIL_QUERY", "has:attachment filename:pdf"),
		GoogleOAuthClientFile: getEnv("GOOGLE_OAUTH_CLIENT_FILE", ""),
		GoogleOAuthTokenFile:  getEnv("GOOGLE_OAUTH_TOKEN_FILE", ""),
		FetchSchedule:         getEnv("FETCH_SCHEDULE", "@daily"),
		FetchBankCode:         getEnv("FETCH_BANK_CODE", "700"),
		FetchAccountID:        getEnvInt64("FETCH_ACCOUNT_ID", 0),
		StatementPassword:     getEnv("STATEMENT_PASSWORD", ""),

		MaxUploadBytes: getEnvInt64("MAX_UPLOAD_BYTES", 16<<20),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SQLiteDBPath == "" {
		errs = append(errs, "SQLite database path cannot be empty")
	} else {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errs = append(errs, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.OCRServiceURL != "" {
		if u, err := url.Parse(c.OCRServiceURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errs = append(errs, fmt.Sprintf("invalid OCR service URL '%s': must be an http(s) URL", c.OCRServiceURL))
		}
	}
	if c.OCRTimeout < time.Second {
		errs = append(errs, fmt.Sprintf("invalid OCR timeout %v: must be at least 1 second", c.OCRTimeout))
	}

	if c.AMQPURL != "" {
		if u, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", u.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.MaxUploadBytes < 1<<10 {
		errs = append(errs, fmt.Sprintf("invalid max upload size %d: must be at least 1KiB", c.MaxUploadBytes))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// ValidateWorker checks the additional settings the statement-worker needs.
func (c *Config) ValidateWorker() error {
	var errs []string

	if c.GoogleOAuthClientFile == "" {
		errs = append(errs, "GOOGLE_OAUTH_CLIENT_FILE is required for the statement worker")
	} else if _, err := os.Stat(c.GoogleOAuthClientFile); os.IsNotExist(err) {
		errs = append(errs, fmt.Sprintf("Google OAuth client file does not exist: %s", c.GoogleOAuthClientFile))
	}
	if c.GoogleOAuthTokenFile == "" {
		errs = append(errs, "GOOGLE_OAUTH_TOKEN_FILE is required for the statement worker")
	}
	if c.FetchAccountID == 0 {
		errs = append(errs, "FETCH_ACCOUNT_ID must name the account statements are imported into")
	}
	if c.FetchSchedule == "" {
		errs = append(errs, "FETCH_SCHEDULE cannot be empty")
	}

	if len(errs) > 0 {
		return fmt.Errorf("worker configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
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
