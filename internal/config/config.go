// Package config loads the service configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/joeshaw/envdecode"
)

// Config aggregates every tunable of the service. All values have defaults so
// a bare environment still yields a runnable configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Mailer    MailerConfig
	CORS      CORSConfig
	Logging   LoggingConfig
	RateLimit RateLimitConfig
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host            string        `env:"HOST,default=0.0.0.0"`
	Port            int           `env:"PORT,default=3000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
}

// DatabaseConfig controls the demande store. Store selects the backing
// implementation: "postgres" (default) or "memory" for local development.
type DatabaseConfig struct {
	Store           string        `env:"STORE,default=postgres"`
	Host            string        `env:"DB_HOST,default=localhost"`
	Port            int           `env:"DB_PORT,default=5432"`
	User            string        `env:"DB_USER,default=app_user"`
	Password        string        `env:"DB_PASS,default=app_password"`
	Name            string        `env:"DB_NAME,default=acv_demande"`
	SSLMode         string        `env:"DB_SSLMODE,default=disable"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS,default=10"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS,default=5"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME,default=30m"`
}

// MailerConfig controls the outbound mail relay client.
type MailerConfig struct {
	URL        string        `env:"MAILER_API_URL,default=https://svrapi.agglo.local/mailer"`
	AdminEmail string        `env:"VALIDATOR_EMAIL,default=maric.ursulet@cacem-mq.com"`
	SuiviURL   string        `env:"SUIVI_URL,default=http://localhost:5173/suivi"`
	Timeout    time.Duration `env:"MAILER_TIMEOUT,default=10s"`
	// The relay lives on an internal host with a self-signed certificate;
	// verification stays disabled for that endpoint only.
	InsecureSkipVerify bool `env:"MAILER_INSECURE_SKIP_VERIFY,default=true"`
}

// CORSConfig controls cross-origin access. "*" allows any origin.
type CORSConfig struct {
	Origin string `env:"CORS_ORIGIN,default=*"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level      string `env:"LOG_LEVEL,default=info"`
	Format     string `env:"LOG_FORMAT,default=json"`
	Output     string `env:"LOG_OUTPUT,default=stdout"`
	FilePrefix string `env:"LOG_FILE_PREFIX,default=demande-service"`
}

// RateLimitConfig controls the per-client API rate limiter.
type RateLimitConfig struct {
	Enabled           bool `env:"RATE_LIMIT_ENABLED,default=true"`
	RequestsPerSecond int  `env:"RATE_LIMIT_RPS,default=20"`
	Burst             int  `env:"RATE_LIMIT_BURST,default=40"`
}

// Load decodes the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	return &cfg, nil
}

// DSN renders the lib/pq connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Addr renders the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
