package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

var knownWeakSecrets = []string{
	"change-me", "changeme", "secret", "password", "dev-access-secret", "dev-refresh-secret",
}

type Config struct {
	Issuer        string        `env:"AUTH_ISSUER" envDefault:"techauth"`
	AccessSecret  string        `env:"AUTH_ACCESS_SECRET"`
	RefreshSecret string        `env:"AUTH_REFRESH_SECRET"`
	AccessTTL     time.Duration `env:"AUTH_ACCESS_TTL" envDefault:"15m"`
	RefreshTTL    time.Duration `env:"AUTH_REFRESH_TTL" envDefault:"168h"`
	SessionTTL    time.Duration `env:"AUTH_SESSION_TTL" envDefault:"168h"`

	DatabaseDriver string `env:"AUTH_DATABASE_DRIVER" envDefault:"sqlite"` // sqlite, postgres
	DatabaseFile   string `env:"AUTH_DATABASE_FILE" envDefault:"auth.db"`
	DatabaseURL    string `env:"AUTH_DATABASE_URL"`
	PepperFile     string `env:"AUTH_PEPPER_FILE" envDefault:"pepper"`

	// BootstrapSentinel lets the first registration become a global admin.
	// Empty disables bootstrap.
	BootstrapSentinel string `env:"AUTH_BOOTSTRAP_SENTINEL"`

	Notifier    string `env:"AUTH_NOTIFIER" envDefault:"log"` // log, redis, smtp
	RedisURL    string `env:"REDIS_URL"`
	NotifyQueue string `env:"NOTIFY_QUEUE" envDefault:"techauth:notifications"`
	SMTP        SMTPConfig
	EmailFrom   string `env:"EMAIL_FROM" envDefault:"noreply@localhost"`

	AppName     string `env:"APP_NAME" envDefault:"TechAuth"`
	AppURL      string `env:"APP_URL" envDefault:"http://localhost:8080"`
	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`

	Env                  string        `env:"ENV" envDefault:"dev"`
	LogLevel             string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat            string        `env:"LOG_FORMAT" envDefault:"json"`
	Port                 int           `env:"PORT" envDefault:"8080"`
	ShutdownGracePeriod  time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`
	HousekeepingInterval time.Duration `env:"HOUSEKEEPING_INTERVAL" envDefault:"1h"`

	// HousekeepingRetention is how long expired tokens and invitations are
	// kept so they keep reporting as expired.
	HousekeepingRetention time.Duration `env:"HOUSEKEEPING_RETENTION" envDefault:"720h"`

	// OTEL_EXPORTER_OTLP_ENDPOINT is read by the tracing package directly.
}

type SMTPConfig struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT" envDefault:"587"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	FromName string `env:"SMTP_FROM_NAME"`
}

// LoadConfig reads the configuration from the environment and validates it.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Env == "prod" || c.Env == "production"
}

func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c Config) Validate() error {
	if c.AccessSecret == "" || c.RefreshSecret == "" {
		return errors.New("AUTH_ACCESS_SECRET and AUTH_REFRESH_SECRET are required")
	}
	if c.AccessSecret == c.RefreshSecret {
		return errors.New("AUTH_ACCESS_SECRET and AUTH_REFRESH_SECRET must differ")
	}
	if c.IsProduction() {
		if err := validateSecret("AUTH_ACCESS_SECRET", c.AccessSecret); err != nil {
			return err
		}
		if err := validateSecret("AUTH_REFRESH_SECRET", c.RefreshSecret); err != nil {
			return err
		}
	}

	switch c.DatabaseDriver {
	case "sqlite":
	case "postgres":
		if c.DatabaseURL == "" {
			return errors.New("AUTH_DATABASE_URL is required when AUTH_DATABASE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("unknown AUTH_DATABASE_DRIVER %q (want sqlite or postgres)", c.DatabaseDriver)
	}

	switch c.Notifier {
	case "log":
	case "redis":
		if c.RedisURL == "" {
			return errors.New("REDIS_URL is required when AUTH_NOTIFIER=redis")
		}
	case "smtp":
		if c.SMTP.Host == "" {
			return errors.New("SMTP_HOST is required when AUTH_NOTIFIER=smtp")
		}
	default:
		return fmt.Errorf("unknown AUTH_NOTIFIER %q (want log, redis or smtp)", c.Notifier)
	}

	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 || c.SessionTTL <= 0 {
		return errors.New("token and session TTLs must be positive")
	}
	if c.HousekeepingRetention <= 0 {
		return errors.New("HOUSEKEEPING_RETENTION must be positive")
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
