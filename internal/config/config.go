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

	// AMQP
	AMQPURL        string
	AMQPExchange   string
	AMQPAlertQueue string

	// Household profile and categorization rules
	ProfileFile string
	RulesFile   string

	// Reports and notifications
	ReportsDir        string
	NotifyChannels    []string
	NotifyFile        string
	NotifyMinSeverity string

	// Google Sheets export
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string

	// Worker
	ExpansionInterval time.Duration
}

func Load() *Config {
	cfg := &Config{
		Port:         getEnv("PORT", "8081"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/financas.db"),

		AMQPURL:        getEnv("AMQP_URL", ""),
		AMQPExchange:   getEnv("AMQP_EXCHANGE", "financas"),
		AMQPAlertQueue: getEnv("AMQP_ALERT_QUEUE", "budget_alerts"),

		ProfileFile: getEnv("PROFILE_FILE", ""),
		RulesFile:   getEnv("RULES_FILE", ""),

		ReportsDir:        getEnv("REPORTS_DIR", "./reports"),
		NotifyChannels:    getEnvList("NOTIFY_CHANNELS", []string{"console"}),
		NotifyFile:        getEnv("NOTIFY_FILE", "./data/alerts.jsonl"),
		NotifyMinSeverity: getEnv("NOTIFY_MIN_SEVERITY", "info"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Resumo"),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),

		ExpansionInterval: getEnvDuration("EXPANSION_INTERVAL", 6*time.Hour),
	}

	return cfg
}

// SheetsEnabled reports whether a spreadsheet export target is configured.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
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

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPAlertQueue == "" {
			errors = append(errors, "AMQP alert queue name cannot be empty when AMQP URL is provided")
		}
	}

	for _, file := range []struct{ name, path string }{
		{"profile file", c.ProfileFile},
		{"rules file", c.RulesFile},
		{"Google service account file", c.GoogleServiceAccountFile},
	} {
		if file.path == "" {
			continue
		}
		if _, err := os.Stat(file.path); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("%s does not exist: %s", file.name, file.path))
		}
	}

	validChannels := map[string]bool{"console": true, "file": true}
	for _, ch := range c.NotifyChannels {
		if !validChannels[ch] {
			errors = append(errors, fmt.Sprintf("invalid notify channel '%s': must be one of console, file", ch))
		}
	}

	switch c.NotifyMinSeverity {
	case "info", "warning", "critical":
	default:
		errors = append(errors, fmt.Sprintf("invalid notify severity '%s': must be info, warning or critical", c.NotifyMinSeverity))
	}

	if c.SheetsEnabled() && c.GoogleServiceAccountFile == "" && c.GoogleServiceAccountJSON == "" {
		errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided for sheets export")
	}

	if c.ExpansionInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid expansion interval %v: must be at least 1 minute", c.ExpansionInterval))
	} else if c.ExpansionInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid expansion interval %v: must be at most 24 hours", c.ExpansionInterval))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
