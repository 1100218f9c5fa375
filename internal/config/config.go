package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

const defaultServerDSN = "host=localhost user=postgres password=postgres dbname=kasir port=5432 sslmode=disable"

// ServerConfig configures the reference sync server.
type ServerConfig struct {
	HTTPPort       string
	DatabaseDriver string // postgres | sqlite
	DatabaseDSN    string
	JWTSecret      string
	CORSOrigins    string
	LogLevel       string
}

// POSConfig configures a point-of-sale terminal.
type POSConfig struct {
	HTTPPort     string // local API for the presentation layer
	ServerURL    string
	LocalDBPath  string
	SyncInterval time.Duration
	MaxBackoff   time.Duration
	HTTPTimeout  time.Duration
	StrictStock  bool // refuse sales that would drive stock below zero
	LogLevel     string
}

var (
	ErrMissingJWTSecret = errors.New("JWT_SECRET is not set")
	ErrWeakJWTSecret    = errors.New("JWT_SECRET must be at least 32 characters")
)

// LoadServer reads the server configuration from the environment.
func LoadServer() (*ServerConfig, error) {
	cfg := &ServerConfig{
		HTTPPort:       getEnv("HTTP_PORT", "8080"),
		DatabaseDriver: strings.ToLower(getEnv("DATABASE_DRIVER", "postgres")),
		DatabaseDSN:    getEnv("DATABASE_DSN", defaultServerDSN),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		CORSOrigins:    getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
	}

	if cfg.JWTSecret == "" {
		return nil, ErrMissingJWTSecret
	}
	if len(cfg.JWTSecret) < 32 {
		return nil, ErrWeakJWTSecret
	}
	return cfg, nil
}

// UsesDefaultDSN reports whether the server is about to connect with the development DSN.
func (c *ServerConfig) UsesDefaultDSN() bool {
	return c.DatabaseDSN == defaultServerDSN
}

// LoadPOS reads the terminal configuration from the environment.
func LoadPOS() *POSConfig {
	return &POSConfig{
		HTTPPort:     getEnv("POS_HTTP_PORT", "8090"),
		ServerURL:    strings.TrimRight(getEnv("SERVER_URL", "http://localhost:8080/api"), "/"),
		LocalDBPath:  getEnv("LOCAL_DB_PATH", "file:kasir.db?_foreign_keys=on&_busy_timeout=5000"),
		SyncInterval: durEnvMs("SYNC_INTERVAL_MS", 30_000),
		MaxBackoff:   durEnvMs("SYNC_MAX_BACKOFF_MS", 5*60_000),
		HTTPTimeout:  durEnvMs("HTTP_TIMEOUT_MS", 10_000),
		StrictStock:  boolEnv("STRICT_STOCK", false),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoiEnv(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func durEnvMs(key string, defMs int) time.Duration {
	return time.Duration(atoiEnv(key, defMs)) * time.Millisecond
}

func boolEnv(key string, def bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
