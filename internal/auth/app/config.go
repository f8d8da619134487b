package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is loaded from the environment. Only the JWT secrets are required;
// everything else carries a development-friendly default.
type Config struct {
	Env       string `env:"ENV"        envDefault:"dev"`
	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
	Port      int    `env:"PORT"       envDefault:"8080"`

	// AppOrigin is the base URL of the frontend that serves the
	// confirm-account and reset-password pages linked in emails.
	AppOrigin string `env:"APP_ORIGIN" envDefault:"http://localhost:3000"`

	DatabaseFile string `env:"DATABASE_FILE" envDefault:"gatehouse.db"`

	JWTIssuer        string        `env:"JWT_ISSUER"         envDefault:"gatehouse"`
	JWTSecret        string        `env:"JWT_SECRET"`
	JWTRefreshSecret string        `env:"JWT_REFRESH_SECRET"`
	AccessTokenTTL   time.Duration `env:"ACCESS_TOKEN_TTL"   envDefault:"15m"`
	RefreshTokenTTL  time.Duration `env:"REFRESH_TOKEN_TTL"  envDefault:"720h"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT"     envDefault:"587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	MailFrom     string `env:"MAIL_FROM"     envDefault:"no-reply@gatehouse.local"`

	ShutdownGracePeriod  time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`
	HousekeepingInterval time.Duration `env:"HOUSEKEEPING_INTERVAL" envDefault:"1h"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if cfg.JWTSecret == "" || cfg.JWTRefreshSecret == "" {
		return Config{}, errors.New("JWT_SECRET and JWT_REFRESH_SECRET must be set")
	}
	if cfg.JWTSecret == cfg.JWTRefreshSecret {
		return Config{}, errors.New("JWT_SECRET and JWT_REFRESH_SECRET must differ")
	}

	return cfg, nil
}
