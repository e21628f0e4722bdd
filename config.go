package postgresql

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/v2"
)

// SSL modes accepted by Config.SSLMode, mirroring libpq semantics.
var sslModes = map[string]bool{
	"disable":     true,
	"prefer":      true,
	"require":     true,
	"verify-ca":   true,
	"verify-full": true,
}

// Config controls connection establishment and pool behavior.
//
// Either DSN or the individual connection fields may be set; DSN wins when
// both are present.
type Config struct {
	// DSN is the full connection string in libpq URI or key=value form.
	DSN string `koanf:"dsn"`

	// Host is the database host address.
	Host string `koanf:"host"`

	// Port is the port number to connect to.
	Port int `koanf:"port"`

	// User is the database role used for authentication.
	User string `koanf:"user"`

	// Password is used for authentication.
	Password string `koanf:"password"`

	// Passfile is the name of the file used to store passwords.
	Passfile string `koanf:"passfile"`

	// Database is the name of the database to connect to.
	Database string `koanf:"database"`

	// SSLMode is one of disable, prefer, require, verify-ca, verify-full.
	SSLMode string `koanf:"sslmode"`

	// DirectURL is used for migrations/session-level operations. It defaults
	// to the assembled connection string.
	DirectURL string `koanf:"direct_url"`

	// ConnectTimeout defaults to 10s.
	ConnectTimeout time.Duration `koanf:"connect_timeout"`

	// MaxConns defaults to 10.
	MaxConns int32 `koanf:"max_conns"`

	// MinConns defaults to 0.
	MinConns int32 `koanf:"min_conns"`

	// HealthChecksDisabled disables idle-connection health checks.
	HealthChecksDisabled bool `koanf:"health_checks_disabled"`

	// HealthCheckPeriod defaults to 30s when health checks are enabled.
	HealthCheckPeriod time.Duration `koanf:"health_check_period"`

	// MaxConnLifetime defaults to 30m.
	MaxConnLifetime time.Duration `koanf:"max_conn_lifetime"`

	// MaxConnIdleTime defaults to 5m.
	MaxConnIdleTime time.Duration `koanf:"max_conn_idle_time"`
}

// connString assembles the connection string passed to pgx.
func (c Config) connString() (string, error) {
	if c.DSN != "" {
		return c.DSN, nil
	}
	if c.Database == "" && c.User == "" && c.Host == "" {
		return "", fmt.Errorf("postgresql: config requires DSN or host/user/database fields")
	}

	var parts []string
	appendPart := func(key, value string) {
		if value != "" {
			parts = append(parts, key+"="+value)
		}
	}
	appendPart("host", c.Host)
	if c.Port > 0 {
		parts = append(parts, fmt.Sprintf("port=%d", c.Port))
	}
	appendPart("user", c.User)
	appendPart("password", c.Password)
	appendPart("passfile", c.Passfile)
	appendPart("dbname", c.Database)
	appendPart("sslmode", c.SSLMode)

	return strings.Join(parts, " "), nil
}

// directURL resolves the URL used for migrations and session-level work.
func (c Config) directURL() (string, error) {
	if c.DirectURL != "" {
		return c.DirectURL, nil
	}
	return c.connString()
}

func (c Config) validate() error {
	if c.SSLMode != "" && !sslModes[c.SSLMode] {
		return fmt.Errorf("postgresql: invalid sslmode %q", c.SSLMode)
	}
	return nil
}

// ConfigFromEnv builds a Config from POSTGRES_* environment variables
// (POSTGRES_HOST, POSTGRES_PORT, POSTGRES_USER, POSTGRES_PASSWORD,
// POSTGRES_DATABASE, POSTGRES_SSLMODE, POSTGRES_DSN, ...).
func ConfigFromEnv() (Config, error) {
	k := koanf.New(".")
	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: "POSTGRES_",
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, "POSTGRES_"))
			return key, value
		},
	}), nil); err != nil {
		return Config{}, fmt.Errorf("postgresql: loading environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("postgresql: unmarshaling environment config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
