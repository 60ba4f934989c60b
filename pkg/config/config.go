package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/japaniel/wordmedia/pkg/ingest"
	"github.com/japaniel/wordmedia/pkg/search"
)

// Config is everything a run needs, resolved once at startup.
type Config struct {
	InputPath   string // vocabulary CSV
	DBPath      string // SQLite file, or a postgres:// URL
	MediaDir    string
	Limit       int // rows to examine; <= 0 means all
	PerQuery    int
	SearchURL   string
	APIKey      string
	HTTPTimeout time.Duration
	LogMode     string // "dev" or "prod"
}

// Default mirrors the fixed paths the tool has always used.
func Default() Config {
	return Config{
		InputPath:   "./hebrewLetterPlan.csv",
		DBPath:      "db/database.db",
		MediaDir:    "media",
		Limit:       0,
		PerQuery:    ingest.DefaultPerQuery,
		SearchURL:   search.DefaultEndpoint,
		HTTPTimeout: 30 * time.Second,
		LogMode:     "dev",
	}
}

// ErrMissingAPIKey is returned by Validate when no search credential is configured.
var ErrMissingAPIKey = errors.New("search API key is required (set PEXELS_API_KEY or --api-key)")

// Validate checks the values that would otherwise fail late, mid-run.
func (c Config) Validate() error {
	if strings.TrimSpace(c.InputPath) == "" {
		return fmt.Errorf("input path must be non-empty")
	}
	if strings.TrimSpace(c.DBPath) == "" {
		return fmt.Errorf("database path must be non-empty")
	}
	if strings.TrimSpace(c.MediaDir) == "" {
		return fmt.Errorf("media directory must be non-empty")
	}
	if c.PerQuery < 1 {
		return fmt.Errorf("per-query must be positive, got %d", c.PerQuery)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.HTTPTimeout)
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return ErrMissingAPIKey
	}
	return nil
}
