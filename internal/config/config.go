package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Storage backends.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// Password storage modes.
const (
	PasswordsPlain  = "plain"
	PasswordsBcrypt = "bcrypt"
)

// Config holds runtime configuration sourced from env vars.
type Config struct {
	Port           string
	ArchiveDir     string
	AuthEnabled    bool
	StorageBackend string
	DatabaseURL    string
	TokenSecret    string
	TokenIssuer    string
	PasswordMode   string
	CORSOrigins    []string
	LogLevel       slog.Level
}

// Load reads configuration from the environment and performs minimal validation.
func Load() (Config, error) {
	cfg := Config{
		Port:           fallback(os.Getenv("PORT"), "8080"),
		ArchiveDir:     fallback(os.Getenv("ARCHIVE_DIR"), "./Archive"),
		AuthEnabled:    parseBool(os.Getenv("AUTH_ENABLED")),
		StorageBackend: strings.ToLower(fallback(os.Getenv("STORAGE_BACKEND"), BackendFile)),
		DatabaseURL:    strings.TrimSpace(os.Getenv("DATABASE_URL")),
		TokenSecret:    strings.TrimSpace(os.Getenv("TOKEN_SECRET")),
		TokenIssuer:    fallback(os.Getenv("TOKEN_ISSUER"), "record-archive"),
		PasswordMode:   strings.ToLower(fallback(os.Getenv("PASSWORD_HASHING"), PasswordsPlain)),
		CORSOrigins:    parseCSV(fallback(os.Getenv("CORS_ALLOWED_ORIGINS"), "*")),
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(fallback(os.Getenv("LOG_LEVEL"), "info"))); err != nil {
		return Config{}, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	switch cfg.StorageBackend {
	case BackendFile:
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, errors.New("DATABASE_URL is required when STORAGE_BACKEND=postgres")
		}
	default:
		return Config{}, fmt.Errorf("STORAGE_BACKEND must be %q or %q, got %q", BackendFile, BackendPostgres, cfg.StorageBackend)
	}

	if cfg.PasswordMode != PasswordsPlain && cfg.PasswordMode != PasswordsBcrypt {
		return Config{}, fmt.Errorf("PASSWORD_HASHING must be %q or %q, got %q", PasswordsPlain, PasswordsBcrypt, cfg.PasswordMode)
	}

	return cfg, nil
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	var out []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
