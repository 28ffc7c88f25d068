package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultStorageKey is the key the ledger snapshot is stored under
const DefaultStorageKey = "dose-storage"

// Config holds runtime settings read from the environment
type Config struct {
	Driver      string
	DBPath      string
	DatabaseURL string
	Timezone    string
	Addr        string
	StorageKey  string

	LogLevel  string
	LogFormat string
}

// Load reads an optional .env file, then the process environment
func Load() *Config {
	// A missing .env is the normal case; real env vars still apply.
	_ = godotenv.Load()

	return &Config{
		Driver:      getEnv("DOSELOG_DRIVER", "sqlite3"),
		DBPath:      getEnv("DOSELOG_DB", defaultDBPath()),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		Timezone:    getEnv("TZ", ""),
		Addr:        getEnv("DOSELOG_ADDR", ":8080"),
		StorageKey:  getEnv("DOSELOG_KEY", DefaultStorageKey),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "text"),
	}
}

// IsMemory reports whether state should live only for the process lifetime
func (c *Config) IsMemory() bool {
	return strings.EqualFold(strings.TrimSpace(c.Driver), "memory")
}

// IsPostgres reports whether the configured driver targets PostgreSQL
func (c *Config) IsPostgres() bool {
	switch strings.ToLower(strings.TrimSpace(c.Driver)) {
	case "pgx", "postgres", "postgresql":
		return true
	}
	return false
}

// DSN returns the connection string for the configured driver
func (c *Config) DSN() string {
	if c.IsPostgres() {
		return c.DatabaseURL
	}
	return c.DBPath
}

// DSNForLog hides credentials embedded in a database URL
func (c *Config) DSNForLog() string {
	dsn := c.DSN()
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	return u.Redacted()
}

// Location resolves Timezone, falling back to the host's local zone
func (c *Config) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.Timezone)
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return loc, nil
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".doselog", "doselog.db")
	}
	return filepath.Join(home, ".doselog", "doselog.db")
}

func getEnv(key string, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
