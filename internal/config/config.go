// Package config loads server settings from an optional YAML file and the
// environment. Environment variables always win over the file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Store backends accepted by StoreBackend.
const (
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	// BackendMemory keeps everything in process. Data is lost on restart.
	BackendMemory = "memory"
)

type Config struct {
	Port         int    `yaml:"port"`
	PublicURL    string `yaml:"public_url"`
	LogLevel     string `yaml:"log_level"`
	DBPath       string `yaml:"db_path"`
	StoreBackend string `yaml:"store_backend"`
	MediaDir     string `yaml:"media_dir"`

	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
	Auth     AuthConfig     `yaml:"auth"`
	Mail     MailConfig     `yaml:"mail"`

	// LookupMaxRetries bounds the retries of whitelist and role lookups.
	LookupMaxRetries int `yaml:"lookup_max_retries"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type AuthConfig struct {
	JWTSecret          string `yaml:"jwt_secret"`
	GitHubClientID     string `yaml:"github_client_id"`
	GitHubClientSecret string `yaml:"github_client_secret"`
	GitHubCallbackURL  string `yaml:"github_callback_url"`
}

// MailConfig selects the mailer. With no Resend key, verification links are
// only logged.
type MailConfig struct {
	ResendAPIKey string `yaml:"resend_api_key"`
	From         string `yaml:"from"`
}

// Default returns the settings used when neither file nor environment say
// otherwise.
func Default() Config {
	return Config{
		Port:             8080,
		LogLevel:         "info",
		DBPath:           "data/catalog.db",
		StoreBackend:     BackendSQLite,
		MediaDir:         "data/media",
		LookupMaxRetries: 3,
		Mail: MailConfig{
			From: "Family Catalog <no-reply@localhost>",
		},
	}
}

// Load starts from Default, merges the YAML file at path when path is not
// empty, then applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return cfg, fmt.Errorf("config: reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return cfg, err
	}

	if cfg.PublicURL == "" {
		cfg.PublicURL = fmt.Sprintf("http://localhost:%d", cfg.Port)
	}
	if cfg.Auth.GitHubCallbackURL == "" {
		cfg.Auth.GitHubCallbackURL = strings.TrimRight(cfg.PublicURL, "/") + "/auth/github/callback"
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("config: invalid PORT %q: %w", port, err)
		}
		cfg.Port = p
	}
	if retries := os.Getenv("LOOKUP_MAX_RETRIES"); retries != "" {
		n, err := strconv.Atoi(retries)
		if err != nil {
			return fmt.Errorf("config: invalid LOOKUP_MAX_RETRIES %q: %w", retries, err)
		}
		cfg.LookupMaxRetries = n
	}

	setString(&cfg.PublicURL, "PUBLIC_URL")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.DBPath, "DB_PATH")
	setString(&cfg.StoreBackend, "STORE_BACKEND")
	setString(&cfg.MediaDir, "MEDIA_DIR")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setString(&cfg.Postgres.DSN, "POSTGRES_DSN")
	setString(&cfg.Auth.JWTSecret, "JWT_SECRET")
	setString(&cfg.Auth.GitHubClientID, "GITHUB_CLIENT_ID")
	setString(&cfg.Auth.GitHubClientSecret, "GITHUB_CLIENT_SECRET")
	setString(&cfg.Auth.GitHubCallbackURL, "GITHUB_CALLBACK_URL")
	setString(&cfg.Mail.ResendAPIKey, "RESEND_API_KEY")
	setString(&cfg.Mail.From, "MAIL_FROM")
	return nil
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.LookupMaxRetries < 0 {
		errs = append(errs, fmt.Errorf("lookup_max_retries must not be negative"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	} else if len(c.Auth.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 bytes"))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("db_path is required"))
	}
	if c.MediaDir == "" {
		errs = append(errs, errors.New("media_dir is required"))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	switch c.StoreBackend {
	case BackendSQLite, BackendMemory:
	case BackendRedis:
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for the redis backend"))
		}
	case BackendPostgres:
		if c.Postgres.DSN == "" {
			errs = append(errs, errors.New("POSTGRES_DSN is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.StoreBackend))
	}

	if (c.Auth.GitHubClientID == "") != (c.Auth.GitHubClientSecret == "") {
		errs = append(errs, errors.New("GITHUB_CLIENT_ID and GITHUB_CLIENT_SECRET must be set together"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// GitHubEnabled reports whether GitHub sign-in is configured.
func (c Config) GitHubEnabled() bool {
	return c.Auth.GitHubClientID != "" && c.Auth.GitHubClientSecret != ""
}

// ParseLevel maps a LOG_LEVEL value onto a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}
