package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	CipherKey      string // Required: key material for token channel encryption
	EnvelopeSecret string // Required: HMAC secret sealing the token envelope
	SessionSecret  string // Optional: HMAC secret for share-login sessions (default: EnvelopeSecret)
	SessionIssuer  string // Optional: issuer claim on session tokens (default: vizboard-share)

	DatabaseFile string // Optional: path to SQLite database file (default: ./share.db)
	CSVDir       string // Optional: directory for CSV exports (default: ./exports)
	BaseURL      string // Optional: public address used in invite mails (default: http://localhost:8080)

	SMTPHost     string // Optional: SMTP host; when empty, invite mails are logged only
	SMTPPort     int    // Optional: SMTP port (default: 587)
	SMTPFrom     string // Optional: From address on invite mails
	SMTPUsername string // Optional
	SMTPPassword string // Optional

	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	SessionTTL          time.Duration // Share-login session lifetime (default: 30m)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
}

func LoadConfig() Config {
	cfg := Config{
		CipherKey:      os.Getenv("SHARE_CIPHER_KEY"),
		EnvelopeSecret: os.Getenv("SHARE_ENVELOPE_SECRET"),
		SessionSecret:  os.Getenv("SHARE_SESSION_SECRET"),
		SessionIssuer:  getEnvOrDefault("SHARE_SESSION_ISSUER", "vizboard-share"),

		DatabaseFile: getEnvOrDefault("SHARE_DATABASE_FILE", "share.db"),
		CSVDir:       getEnvOrDefault("SHARE_CSV_DIR", "exports"),
		BaseURL:      getEnvOrDefault("SHARE_BASE_URL", "http://localhost:8080"),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getEnvIntOrDefault("SMTP_PORT", 587),
		SMTPFrom:     getEnvOrDefault("SMTP_FROM", "noreply@vizboard.local"),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),

		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		SessionTTL:          getEnvDurationOrDefault("SHARE_SESSION_TTL", 30*time.Minute),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}

	// A single secret deployment is acceptable; the session signer and
	// the envelope never validate each other's tokens.
	if cfg.SessionSecret == "" {
		cfg.SessionSecret = cfg.EnvelopeSecret
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	return defaultValue
}
