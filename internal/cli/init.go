// Package cli holds the startup steps shared by every command.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"financas/internal/categorize"
	"financas/internal/config"
	"financas/internal/core"
	applog "financas/internal/log"
	"financas/internal/notify"
	"financas/internal/sheets/google"
	"financas/internal/storage"

	"github.com/joho/godotenv"
)

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default.
func SetupLogger(component string) *applog.Logger {
	cfg := applog.DefaultConfig()
	cfg.Component = component
	logger := applog.New(cfg)
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads .env for local development. A missing file is fine.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration or exits the process.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// LoadProfile reads the household profile or exits the process.
func LoadProfile(logger *applog.Logger, cfg *config.Config) config.Profile {
	profile, err := config.LoadProfile(cfg.ProfileFile)
	if err != nil {
		logger.Error("Failed to load profile", "error", err, "path", cfg.ProfileFile)
		os.Exit(1)
	}
	logger.Info("Profile loaded",
		"income", profile.MonthlyIncome.String(),
		"savings_target", profile.SavingsTarget,
		"anchor_day", profile.AnchorDay)
	return profile
}

// LoadCategorizer reads the rules file, falling back to the built-in rules
// when none is configured.
func LoadCategorizer(logger *applog.Logger, cfg *config.Config) *categorize.Categorizer {
	if cfg.RulesFile == "" {
		return categorize.Default()
	}
	c, err := categorize.LoadRules(cfg.RulesFile)
	if err != nil {
		logger.Error("Failed to load categorization rules", "error", err, "path", cfg.RulesFile)
		os.Exit(1)
	}
	logger.Info("Categorization rules loaded", "path", cfg.RulesFile, "categories", c.Categories())
	return c
}

// InitSQLite opens the ledger or exits the process.
func InitSQLite(logger *applog.Logger, dbPath string) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", dbPath)
		os.Exit(1)
	}
	return repo
}

// BuildDispatcher wires the configured notification channels.
func BuildDispatcher(cfg *config.Config) (*notify.Dispatcher, error) {
	var channels []notify.Channel
	for _, name := range cfg.NotifyChannels {
		switch name {
		case "console":
			channels = append(channels, notify.NewConsoleChannel(os.Stdout))
		case "file":
			channels = append(channels, notify.NewFileChannel(cfg.NotifyFile))
		default:
			return nil, fmt.Errorf("unknown notify channel %q", name)
		}
	}
	return notify.NewDispatcher(core.Severity(cfg.NotifyMinSeverity), channels...), nil
}

// OpenSheets connects to the spreadsheet export target. It returns nil when
// no spreadsheet is configured.
func OpenSheets(ctx context.Context, cfg *config.Config) (*google.Client, error) {
	if !cfg.SheetsEnabled() {
		return nil, nil
	}
	return google.New(ctx, google.Options{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		SummarySheet:       cfg.GoogleSheetName,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
	})
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext(logger *applog.Logger) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received")
	}()
	return ctx, stop
}
