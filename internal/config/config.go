// Package config loads application configuration from environment variables.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	SpreadsheetID         string
	SheetRange            string
	GoogleAPIKey          string
	GoogleCredentialsFile string
	SyncInterval          time.Duration
	SyncSchedule          string // Optional cron spec for additional scheduled syncs.
	ListenAddr            string
	DBPath                string
	SecretKey             []byte // 32-byte AES key for the credential store; nil disables it.
	CostOfEquity          float64
	TaxRate               float64
}

// HasGoogleCredentials returns true when the spreadsheet ID plus either an API
// key or a service-account file are configured. Used by the composition root
// to decide whether to create a real Sheets client at startup or start with a
// nil client in the provider.
func (c *Config) HasGoogleCredentials() bool {
	return c.SpreadsheetID != "" && (c.GoogleAPIKey != "" || c.GoogleCredentialsFile != "")
}

// Load reads configuration from environment variables and returns a validated Config.
// Google credentials (DHANARJAN_GOOGLE_API_KEY or DHANARJAN_GOOGLE_CREDENTIALS_FILE,
// plus DHANARJAN_SPREADSHEET_ID) are optional; if absent, the app starts but syncing
// is inactive until credentials are provided via the API.
// Optional variables with defaults: DHANARJAN_SHEET_RANGE (Investment),
// DHANARJAN_SYNC_INTERVAL (15m), DHANARJAN_LISTEN_ADDR (127.0.0.1:8080),
// DHANARJAN_DB_PATH (dhanarjan.db), DHANARJAN_COST_OF_EQUITY (0.10),
// DHANARJAN_TAX_RATE (0.22).
func Load() (*Config, error) {
	spreadsheetID := os.Getenv("DHANARJAN_SPREADSHEET_ID")
	apiKey := os.Getenv("DHANARJAN_GOOGLE_API_KEY")
	credentialsFile := os.Getenv("DHANARJAN_GOOGLE_CREDENTIALS_FILE")

	sheetRange := "Investment"
	if v, ok := os.LookupEnv("DHANARJAN_SHEET_RANGE"); ok && v != "" {
		sheetRange = v
	}

	syncInterval := 15 * time.Minute
	if v, ok := os.LookupEnv("DHANARJAN_SYNC_INTERVAL"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("DHANARJAN_SYNC_INTERVAL has invalid duration %q: %w", v, err)
		}
		syncInterval = parsed
	}

	syncSchedule := os.Getenv("DHANARJAN_SYNC_SCHEDULE")
	if syncSchedule != "" {
		if _, err := cron.ParseStandard(syncSchedule); err != nil {
			return nil, fmt.Errorf("DHANARJAN_SYNC_SCHEDULE has invalid cron spec %q: %w", syncSchedule, err)
		}
	}

	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("DHANARJAN_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := "dhanarjan.db"
	if v, ok := os.LookupEnv("DHANARJAN_DB_PATH"); ok {
		dbPath = v
	}

	var secretKey []byte
	if v, ok := os.LookupEnv("DHANARJAN_SECRET_KEY"); ok && v != "" {
		decoded, err := hex.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("DHANARJAN_SECRET_KEY is not valid hex: %w", err)
		}
		if len(decoded) != 32 {
			return nil, fmt.Errorf("DHANARJAN_SECRET_KEY must decode to 32 bytes, got %d", len(decoded))
		}
		secretKey = decoded
	}

	costOfEquity := 0.10
	if v, ok := os.LookupEnv("DHANARJAN_COST_OF_EQUITY"); ok && v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("DHANARJAN_COST_OF_EQUITY has invalid value %q: %w", v, err)
		}
		costOfEquity = parsed
	}

	taxRate := 0.22
	if v, ok := os.LookupEnv("DHANARJAN_TAX_RATE"); ok && v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("DHANARJAN_TAX_RATE has invalid value %q: %w", v, err)
		}
		taxRate = parsed
	}

	return &Config{
		SpreadsheetID:         spreadsheetID,
		SheetRange:            sheetRange,
		GoogleAPIKey:          apiKey,
		GoogleCredentialsFile: credentialsFile,
		SyncInterval:          syncInterval,
		SyncSchedule:          syncSchedule,
		ListenAddr:            listenAddr,
		DBPath:                dbPath,
		SecretKey:             secretKey,
		CostOfEquity:          costOfEquity,
		TaxRate:               taxRate,
	}, nil
}
