package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

var knownWeakSecrets = []string{
	"change-me", "dev-secret-change-me", "secret", "admin", "password",
}

type Config struct {
	Port               int    `env:"PORT" envDefault:"8080"`
	CouchDBURL         string `env:"COUCHDB_URL,required"`
	CouchDBAdmin       string `env:"COUCHDB_ADMIN,required"`
	CouchDBAdminSecret string `env:"COUCHDB_ADMIN_PASSWORD,required"`
	RedisURL           string `env:"REDIS_URL,required"`
	SessionSecret      string `env:"SESSION_SECRET"`
	SessionTTLSeconds  int    `env:"SESSION_TTL_SECONDS" envDefault:"86400"`
	FitbitClientID     string `env:"FITBIT_CLIENT_ID"`
	FitbitClientSecret string `env:"FITBIT_CLIENT_SECRET"`
	FitbitRedirectURI  string `env:"FITBIT_REDIRECT_URI"`
	MaxAttachmentBytes int64  `env:"MAX_ATTACHMENT_BYTES" envDefault:"16777216"`
	CORSOrigins        string `env:"CORS_ORIGINS" envDefault:"*"`
	LogLevel           string `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLSeconds) * time.Second
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) AllowedOrigins() []string {
	origins := strings.Split(c.CORSOrigins, ",")
	for i, origin := range origins {
		origins[i] = strings.TrimSpace(origin)
	}
	return origins
}

func (c *Config) FitbitConfigured() bool {
	return c.FitbitClientID != "" && c.FitbitClientSecret != ""
}

func (c *Config) Validate(isProduction bool) error {
	if isProduction {
		if err := validateSecret("SESSION_SECRET", c.SessionSecret); err != nil {
			return err
		}
		if strings.HasPrefix(c.CouchDBURL, "http://") {
			log.Warn().Msg("COUCHDB_URL uses http:// (not TLS) in production: consider using https://")
		}
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
		if !c.FitbitConfigured() {
			log.Warn().Msg("FITBIT_CLIENT_ID/FITBIT_CLIENT_SECRET are empty: fitbit endpoints disabled")
		}
	}

	return nil
}

func validateSecret(name, value string) error {
	if len(value) < 32 {
		return fmt.Errorf("%s must be at least 32 characters in production (generate with: openssl rand -base64 32)", name)
	}
	for _, weak := range knownWeakSecrets {
		if value == weak {
			return fmt.Errorf("%s is a known weak default; set a strong secret in production", name)
		}
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
