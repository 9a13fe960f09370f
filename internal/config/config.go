// Package config loads settings from the environment, an optional config file
// and .env files.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	EnvDevelopment = "development"
	EnvTesting     = "testing"
	EnvProduction  = "production"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	App       AppConfig       `yaml:"app" toml:"app"`
	HTTP      HTTPConfig      `yaml:"http" toml:"http"`
	DB        DBConfig        `yaml:"db" toml:"db"`
	Log       LogConfig       `yaml:"log" toml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry" toml:"telemetry"`
}

type AppConfig struct {
	Env string `env:"APP_ENV" env-default:"development" yaml:"env" toml:"env"`
	// Debug and SQLEcho are derived from Env.
	Debug   bool `yaml:"-" toml:"-"`
	SQLEcho bool `yaml:"-" toml:"-"`
}

type HTTPConfig struct {
	Port         int           `env:"PORT" env-default:"8080" yaml:"port" toml:"port"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" env-default:"10s" yaml:"read_timeout" toml:"read_timeout"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" env-default:"30s" yaml:"write_timeout" toml:"write_timeout"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"1m" yaml:"idle_timeout" toml:"idle_timeout"`
	// RequestTimeout bounds a single request, including its store calls.
	RequestTimeout time.Duration `env:"HTTP_REQUEST_TIMEOUT" env-default:"60s" yaml:"request_timeout" toml:"request_timeout"`
	AllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" env-default:"https://*,http://*" yaml:"allowed_origins" toml:"allowed_origins"`
}

type DBConfig struct {
	Driver string `env:"DB_DRIVER" env-default:"postgres" yaml:"driver" toml:"driver"`
	URL    string `env:"DATABASE_URL" yaml:"url" toml:"url"`

	Host     string `env:"BLUEPRINT_DB_HOST" env-default:"localhost" yaml:"host" toml:"host"`
	Port     string `env:"BLUEPRINT_DB_PORT" env-default:"5432" yaml:"port" toml:"port"`
	Database string `env:"BLUEPRINT_DB_DATABASE" env-default:"http_todo" yaml:"database" toml:"database"`
	Username string `env:"BLUEPRINT_DB_USERNAME" env-default:"postgres" yaml:"username" toml:"username"`
	Password string `env:"BLUEPRINT_DB_PASSWORD" env-default:"postgres" yaml:"password" toml:"password"`
	Schema   string `env:"BLUEPRINT_DB_SCHEMA" yaml:"schema" toml:"schema"`

	AutoMigrate     bool          `env:"DB_AUTO_MIGRATE" env-default:"true" yaml:"auto_migrate" toml:"auto_migrate"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" env-default:"10" yaml:"max_idle_conns" toml:"max_idle_conns"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" env-default:"100" yaml:"max_open_conns" toml:"max_open_conns"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"1h" yaml:"conn_max_lifetime" toml:"conn_max_lifetime"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL" env-default:"info" yaml:"level" toml:"level"`
	Format string `env:"LOG_FORMAT" env-default:"json" yaml:"format" toml:"format"`
}

type TelemetryConfig struct {
	// Endpoint is the OTLP gRPC collector address. Empty disables export.
	Endpoint    string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" yaml:"endpoint" toml:"endpoint"`
	ServiceName string `env:"OTEL_SERVICE_NAME" env-default:"http-todo" yaml:"service_name" toml:"service_name"`
}

func (t TelemetryConfig) Enabled() bool {
	return t.Endpoint != ""
}

// Load reads CONFIG_FILE when set (TOML, YAML, JSON or .env), then the
// environment, which wins over the file.
func Load() (Config, error) {
	var cfg Config
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read env: %w", err)
	}
	if err := cfg.finalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) finalize() error {
	env := strings.ToLower(strings.TrimSpace(c.App.Env))
	switch env {
	case "", "default", "dev", EnvDevelopment:
		c.App.Env = EnvDevelopment
		c.App.Debug = true
		c.App.SQLEcho = true
	case "test", EnvTesting:
		c.App.Env = EnvTesting
		c.App.Debug = true
	case "prod", EnvProduction:
		c.App.Env = EnvProduction
	default:
		return fmt.Errorf("APP_ENV: unknown environment %q", c.App.Env)
	}

	switch c.DB.Driver {
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("DB_DRIVER: must be %q or %q, got %q", DriverPostgres, DriverMemory, c.DB.Driver)
	}

	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("PORT: %d is out of range", c.HTTP.Port)
	}

	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT: must be json or text, got %q", c.Log.Format)
	}
	return nil
}

// DSN returns DATABASE_URL when set, otherwise a URL assembled from the
// individual BLUEPRINT_DB_* settings.
func (d DBConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.Username, d.Password),
		Host:   d.Host + ":" + d.Port,
		Path:   "/" + d.Database,
	}
	q := url.Values{}
	q.Set("sslmode", "disable")
	if d.Schema != "" {
		q.Set("search_path", d.Schema)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
