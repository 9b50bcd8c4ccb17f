package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Auth     AuthConfig     `koanf:"auth"`
	Email    EmailConfig    `koanf:"email"`
	Checkout CheckoutConfig `koanf:"checkout"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	Port        string   `koanf:"port"`
	FrontendURL string   `koanf:"frontend_url"`
	CORSOrigins []string `koanf:"cors_origins"`
}

// DatabaseConfig selects the SQL dialect and connection
type DatabaseConfig struct {
	Type string `koanf:"type"`
	URL  string `koanf:"url"`
	Path string `koanf:"path"`
}

// AuthConfig holds the static admin credential and session settings
type AuthConfig struct {
	AdminEmail        string        `koanf:"admin_email"`
	AdminPassword     string        `koanf:"admin_password"`
	JWTSecret         string        `koanf:"jwt_secret"`
	SessionDuration   time.Duration `koanf:"session_duration"`
	BcryptCost        int           `koanf:"bcrypt_cost"`
	LegacyChildLogin  bool          `koanf:"legacy_child_login"`
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
}

// EmailConfig selects the verification email provider
type EmailConfig struct {
	Provider       string `koanf:"provider"`
	From           string `koanf:"from"`
	FromName       string `koanf:"from_name"`
	AWSRegion      string `koanf:"aws_region"`
	SendGridAPIKey string `koanf:"sendgrid_api_key"`
}

// CheckoutConfig configures the Stripe checkout session
type CheckoutConfig struct {
	StripeSecretKey string `koanf:"stripe_secret_key"`
	SuccessURL      string `koanf:"success_url"`
	CancelURL       string `koanf:"cancel_url"`
}

// LoggingConfig configures zerolog
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// AdminEnabled reports whether a static admin credential is configured
func (c AuthConfig) AdminEnabled() bool {
	return c.AdminEmail != "" && c.AdminPassword != ""
}

// ConfigPathEnvVar overrides the YAML config file location
const ConfigPathEnvVar = "CONFIG_PATH"

var defaultConfigPaths = []string{"config.yaml", "config.yml"}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        "4001",
			FrontendURL: "http://localhost:3000",
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Database: DatabaseConfig{
			Type: "sqlite",
			Path: "./mathwizard.db",
		},
		Auth: AuthConfig{
			SessionDuration:   24 * time.Hour,
			BcryptCost:        10,
			LegacyChildLogin:  true,
			RateLimitRequests: 20,
			RateLimitWindow:   time.Minute,
		},
		Email: EmailConfig{
			Provider:  "log",
			FromName:  "MathWizard",
			AWSRegion: "eu-west-2",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads configuration from defaults, an optional YAML file, then the environment.
// A .env file in the working directory is loaded into the environment first.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := splitCommaList(k, "server.cors_origins"); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	cfg.applyDerivedDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	for _, path := range defaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

var envMappings = map[string]string{
	"port":                "server.port",
	"frontend_url":        "server.frontend_url",
	"cors_origins":        "server.cors_origins",
	"db_type":             "database.type",
	"database_url":        "database.url",
	"db_path":             "database.path",
	"admin_email":         "auth.admin_email",
	"admin_password":      "auth.admin_password",
	"jwt_secret":          "auth.jwt_secret",
	"session_duration":    "auth.session_duration",
	"bcrypt_cost":         "auth.bcrypt_cost",
	"legacy_child_login":  "auth.legacy_child_login",
	"rate_limit_requests": "auth.rate_limit_requests",
	"rate_limit_window":   "auth.rate_limit_window",
	"email_provider":      "email.provider",
	"email_from":          "email.from",
	"email_from_name":     "email.from_name",
	"aws_region":          "email.aws_region",
	"sendgrid_api_key":    "email.sendgrid_api_key",
	"stripe_secret_key":   "checkout.stripe_secret_key",
	"stripe_success_url":  "checkout.success_url",
	"stripe_cancel_url":   "checkout.cancel_url",
	"log_level":           "logging.level",
	"log_format":          "logging.format",
}

// envTransformFunc maps flat environment names onto config keys.
// Unknown variables return "" and are ignored by koanf.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

func splitCommaList(k *koanf.Koanf, path string) error {
	s, ok := k.Get(path).(string)
	if !ok {
		return nil
	}
	var parts []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if err := k.Set(path, parts); err != nil {
		return fmt.Errorf("failed to set %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyDerivedDefaults() {
	base := strings.TrimRight(c.Server.FrontendURL, "/")
	if c.Checkout.SuccessURL == "" {
		c.Checkout.SuccessURL = base + "/success"
	}
	if c.Checkout.CancelURL == "" {
		c.Checkout.CancelURL = base + "/cancel"
	}
}

// Validate checks that required settings are present and coherent
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is required"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	} else if len(c.Auth.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 characters"))
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("bcrypt_cost %d out of range 4..31", c.Auth.BcryptCost))
	}
	if c.Auth.SessionDuration <= 0 {
		errs = append(errs, errors.New("session_duration must be positive"))
	}

	switch strings.ToLower(c.Database.Type) {
	case "sqlite", "sqlite3", "":
		if c.Database.Path == "" {
			errs = append(errs, errors.New("DB_PATH is required for sqlite"))
		}
	case "postgres", "postgresql", "mysql":
		if c.Database.URL == "" {
			errs = append(errs, fmt.Errorf("DATABASE_URL is required for %s", c.Database.Type))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported database type: %s", c.Database.Type))
	}

	switch c.Email.Provider {
	case "log":
	case "ses":
		if c.Email.From == "" {
			errs = append(errs, errors.New("EMAIL_FROM is required for the ses provider"))
		}
	case "sendgrid":
		if c.Email.From == "" || c.Email.SendGridAPIKey == "" {
			errs = append(errs, errors.New("EMAIL_FROM and SENDGRID_API_KEY are required for the sendgrid provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported email provider: %s", c.Email.Provider))
	}

	return errors.Join(errs...)
}
