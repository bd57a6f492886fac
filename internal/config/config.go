// Package config loads and validates the environment-variable surface the
// rest of the system is built from: listener ports, the storage DSN, the
// recipient domain, optional TLS material, retention policy, and optional
// global auth.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration for the application.
type Config struct {
	// Storage
	DatabaseURL string

	// Domain
	DomainName            string
	RejectNonDomainEmails bool

	// Ports
	APIPort          int
	SMTPPort         int
	SMTPStartTLSPort int
	SMTPSSLPort      int
	IMAPEnabled      bool
	IMAPPort         int
	MCPEnabled       bool
	MCPPort          int

	// TLS
	SMTPSSLEnabled bool
	SMTPSSLCert    string
	SMTPSSLKey     string

	// Retention. Zero means disabled.
	EmailRetentionHours int64

	// Auth
	AuthEnabled bool
	AuthDomain  string
	AuthSecret  string

	// Logging
	LogLevel string
	AppEnv   string

	// Message size ceiling enforced by the SMTP listeners.
	MaxMessageBytes int64

	// CORS / rate limiting, carried from the teacher's ambient stack.
	AllowedOrigins    string
	RateLimitRequests float64
	RateLimitBurst    int
}

// Load reads configuration from environment variables, applying the
// defaults listed in spec.md §6.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "sqlite:emails.db"
	}

	cfg.DomainName = os.Getenv("DOMAIN_NAME")
	if cfg.DomainName == "" {
		cfg.DomainName = "tempmail.local"
	}
	cfg.DomainName = strings.ToLower(cfg.DomainName)

	var err error
	if cfg.RejectNonDomainEmails, err = getBool("REJECT_NON_DOMAIN_EMAILS", false); err != nil {
		return nil, err
	}

	if cfg.APIPort, err = getInt("API_PORT", 3000); err != nil {
		return nil, err
	}
	if cfg.SMTPPort, err = getInt("SMTP_PORT", 2525); err != nil {
		return nil, err
	}
	if cfg.SMTPStartTLSPort, err = getInt("SMTP_STARTTLS_PORT", 587); err != nil {
		return nil, err
	}
	if cfg.SMTPSSLPort, err = getInt("SMTP_SSL_PORT", 465); err != nil {
		return nil, err
	}
	if cfg.IMAPEnabled, err = getBool("IMAP_ENABLED", false); err != nil {
		return nil, err
	}
	if cfg.IMAPPort, err = getInt("IMAP_PORT", 143); err != nil {
		return nil, err
	}
	if cfg.MCPEnabled, err = getBool("MCP_ENABLED", false); err != nil {
		return nil, err
	}
	if cfg.MCPPort, err = getInt("MCP_PORT", 3001); err != nil {
		return nil, err
	}

	if cfg.SMTPSSLEnabled, err = getBool("SMTP_SSL_ENABLED", false); err != nil {
		return nil, err
	}
	cfg.SMTPSSLCert = os.Getenv("SMTP_SSL_CERT_PATH")
	cfg.SMTPSSLKey = os.Getenv("SMTP_SSL_KEY_PATH")

	if hours := os.Getenv("EMAIL_RETENTION_HOURS"); hours != "" {
		v, err := strconv.ParseInt(hours, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("EMAIL_RETENTION_HOURS must be a valid integer: %w", err)
		}
		cfg.EmailRetentionHours = v
	}

	if cfg.AuthEnabled, err = getBool("AUTH_ENABLED", false); err != nil {
		return nil, err
	}
	cfg.AuthDomain = strings.ToLower(os.Getenv("AUTH_DOMAIN"))
	cfg.AuthSecret = os.Getenv("AUTH_SECRET")

	cfg.LogLevel = os.Getenv("LOG_LEVEL")
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	cfg.AppEnv = os.Getenv("APP_ENV")
	if cfg.AppEnv == "" {
		cfg.AppEnv = "development"
	}

	if cfg.MaxMessageBytes, err = getInt64("MAX_MESSAGE_BYTES", 25*1024*1024); err != nil {
		return nil, err
	}

	cfg.AllowedOrigins = os.Getenv("ALLOWED_ORIGINS")

	if cfg.RateLimitRequests, err = getFloat("RATE_LIMIT_REQUESTS", 10.0); err != nil {
		return nil, err
	}
	if cfg.RateLimitBurst, err = getInt("RATE_LIMIT_BURST", 20); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadWithValidation loads and validates configuration, failing fast on
// configuration errors the way the original spec's exit-code contract
// requires (non-zero exit on config_invalid).
func LoadWithValidation() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.AppEnv == "production" {
		if err := cfg.ValidateProduction(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// Validate checks structural validity: bad ports, a missing cert when SSL
// is enabled, and a missing AUTH_SECRET when auth is enabled.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("config_invalid: DATABASE_URL cannot be empty")
	}
	for name, port := range map[string]int{
		"API_PORT": c.APIPort, "SMTP_PORT": c.SMTPPort,
		"SMTP_STARTTLS_PORT": c.SMTPStartTLSPort, "SMTP_SSL_PORT": c.SMTPSSLPort,
		"IMAP_PORT": c.IMAPPort, "MCP_PORT": c.MCPPort,
	} {
		if port <= 0 || port > 65535 {
			return fmt.Errorf("config_invalid: %s must be between 1 and 65535, got %d", name, port)
		}
	}
	if c.DomainName == "" {
		return fmt.Errorf("config_invalid: DOMAIN_NAME cannot be empty")
	}
	if c.SMTPSSLEnabled {
		if c.SMTPSSLCert == "" || c.SMTPSSLKey == "" {
			return fmt.Errorf("config_invalid: SMTP_SSL_CERT_PATH and SMTP_SSL_KEY_PATH are required when SMTP_SSL_ENABLED=true")
		}
		if _, err := os.Stat(c.SMTPSSLCert); err != nil {
			return fmt.Errorf("config_invalid: cannot read SMTP_SSL_CERT_PATH %q: %w", c.SMTPSSLCert, err)
		}
		if _, err := os.Stat(c.SMTPSSLKey); err != nil {
			return fmt.Errorf("config_invalid: cannot read SMTP_SSL_KEY_PATH %q: %w", c.SMTPSSLKey, err)
		}
	}
	if c.AuthEnabled && c.AuthSecret == "" {
		return fmt.Errorf("config_invalid: AUTH_SECRET is required when AUTH_ENABLED=true")
	}
	if c.EmailRetentionHours < 0 {
		return fmt.Errorf("config_invalid: EMAIL_RETENTION_HOURS cannot be negative")
	}
	return nil
}

// ValidateProduction performs additional validation gated on APP_ENV=production.
func (c *Config) ValidateProduction() error {
	if c.AllowedOrigins == "" {
		return fmt.Errorf("config_invalid: ALLOWED_ORIGINS is required in production")
	}
	if strings.Contains(c.AllowedOrigins, "*") {
		return fmt.Errorf("config_invalid: wildcard (*) origins are not allowed in production")
	}
	if strings.Contains(c.DatabaseURL, "sslmode=disable") {
		return fmt.Errorf("config_invalid: sslmode=disable is not allowed in production")
	}
	return nil
}

// RetentionEnabled reports whether the periodic retention task should run.
func (c *Config) RetentionEnabled() bool {
	return c.EmailRetentionHours > 0
}

// LogConfig logs the resolved configuration at startup with secrets
// redacted.
func (c *Config) LogConfig(logger *slog.Logger) {
	logger.Info("configuration loaded",
		slog.String("domain_name", c.DomainName),
		slog.Bool("reject_non_domain_emails", c.RejectNonDomainEmails),
		slog.Int("api_port", c.APIPort),
		slog.Int("smtp_port", c.SMTPPort),
		slog.Int("smtp_starttls_port", c.SMTPStartTLSPort),
		slog.Int("smtp_ssl_port", c.SMTPSSLPort),
		slog.Bool("smtp_ssl_enabled", c.SMTPSSLEnabled),
		slog.Bool("imap_enabled", c.IMAPEnabled),
		slog.Int("imap_port", c.IMAPPort),
		slog.Bool("mcp_enabled", c.MCPEnabled),
		slog.Int("mcp_port", c.MCPPort),
		slog.Int64("email_retention_hours", c.EmailRetentionHours),
		slog.Bool("auth_enabled", c.AuthEnabled),
		slog.Bool("auth_secret_set", c.AuthSecret != ""),
		slog.String("log_level", c.LogLevel),
		slog.String("app_env", c.AppEnv),
		slog.Int64("max_message_bytes", c.MaxMessageBytes),
	)
}

func getBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be a valid boolean: %w", key, err)
	}
	return parsed, nil
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return parsed, nil
}

func getInt64(key string, def int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	parsed, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return parsed, nil
}

func getFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid number: %w", key, err)
	}
	return parsed, nil
}
