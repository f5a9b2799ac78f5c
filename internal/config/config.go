// internal/config/config.go
//
// Process configuration read from the environment (and .env in development).
//
// Environment variables:
//   PORT=5175                  HTTP listen port
//   LOG_LEVEL=info             zerolog level
//   DB_PATH=./data/app.db      SQLite file
//   CLIENT_ORIGIN=...          CORS / WebSocket origin (http://localhost:5173)
//   JWT_SECRET=...             HS256 signing key
//   JWT_EXPIRES_DAYS=14        token lifetime
//   COOKIE_NAME=devmemory_token
//   NODE_ENV=production        enables Secure / SameSite=None cookies
//   DAILY_SALT=...             seed salt for the daily board
//   CATALOG_FILE=              optional symbol catalog override
//   SESSION_IDLE_TTL=30m       idle games are stopped after this long

package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port           string
	LogLevel       string
	DBPath         string
	ClientOrigin   string
	JWTSecret      string
	JWTExpiry      time.Duration
	CookieName     string
	Production     bool
	DailySalt      string
	CatalogFile    string
	SessionIdleTTL time.Duration
}

// Load reads .env (if present) and the environment.
func Load() Config {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads the environment only.
func FromEnv() Config {
	c := Config{
		Port:           Getenv("PORT", "5175"),
		LogLevel:       Getenv("LOG_LEVEL", "info"),
		DBPath:         Getenv("DB_PATH", "./data/app.db"),
		ClientOrigin:   Getenv("CLIENT_ORIGIN", "http://localhost:5173"),
		JWTSecret:      Getenv("JWT_SECRET", "dev_secret_change_me"),
		JWTExpiry:      time.Duration(getInt("JWT_EXPIRES_DAYS", 14)) * 24 * time.Hour,
		CookieName:     Getenv("COOKIE_NAME", "devmemory_token"),
		Production:     os.Getenv("NODE_ENV") == "production",
		DailySalt:      Getenv("DAILY_SALT", "local_dev_salt"),
		CatalogFile:    os.Getenv("CATALOG_FILE"),
		SessionIdleTTL: getDuration("SESSION_IDLE_TTL", 30*time.Minute),
	}
	if c.JWTSecret == "dev_secret_change_me" && c.Production {
		log.Warn().Msg("JWT_SECRET not set in production")
	}
	return c
}

// Getenv returns the value of k or def if unset/empty.
func Getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", k).Str("value", v).Msg("invalid integer, using default")
		return def
	}
	return n
}

func getDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Warn().Str("key", k).Str("value", v).Msg("invalid duration, using default")
		return def
	}
	return d
}
