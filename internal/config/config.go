package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
)

type Config struct {
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort string `env:"APP_PORT" envDefault:"8000"`

	// LogLevel is a zap level name such as debug or warn.
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	DBURL string `env:"DB_URL,required"`

	Gateway  Gateway
	Merchant Merchant
	Admin    Admin
	HTTP     HTTP
}

// Gateway holds everything needed to talk to the payment VASP.
type Gateway struct {
	BaseURL string        `env:"PAYMENT_VASP_URL,required"`
	APIKey  string        `env:"VASP_TOKEN,required"`
	Timeout time.Duration `env:"GATEWAY_TIMEOUT" envDefault:"15s"`
}

type Merchant struct {
	PublicURL          string        `env:"MERCHANT_URL,required"`
	SettlementCurrency string        `env:"SETTLEMENT_CURRENCY" envDefault:"XUS"`
	PaymentExpiration  time.Duration `env:"PAYMENT_EXPIRATION" envDefault:"10m"`
	OrphanGracePeriod  time.Duration `env:"ORPHAN_GRACE_PERIOD" envDefault:"5m"`
	ReconcileInterval  time.Duration `env:"RECONCILE_INTERVAL" envDefault:"1m"`
}

// Admin guards payout/refund and the reconciliation endpoints.
// An empty secret disables the check.
type Admin struct {
	JWTSecret string `env:"ADMIN_JWT_SECRET"`
}

type HTTP struct {
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("error parsing env config: %w", err)
	}

	cfg.Gateway.BaseURL = strings.TrimRight(cfg.Gateway.BaseURL, "/")
	if !strings.HasSuffix(cfg.Merchant.PublicURL, "/") {
		cfg.Merchant.PublicURL += "/"
	}

	for name, v := range map[string]string{
		"DB_URL":              cfg.DBURL,
		"PAYMENT_VASP_URL":    cfg.Gateway.BaseURL,
		"VASP_TOKEN":          cfg.Gateway.APIKey,
		"MERCHANT_URL":        cfg.Merchant.PublicURL,
		"SETTLEMENT_CURRENCY": cfg.Merchant.SettlementCurrency,
	} {
		if strings.TrimSpace(v) == "" || v == "/" {
			return nil, fmt.Errorf("required variable %s is empty", name)
		}
	}
	for name, d := range map[string]time.Duration{
		"GATEWAY_TIMEOUT":    cfg.Gateway.Timeout,
		"PAYMENT_EXPIRATION": cfg.Merchant.PaymentExpiration,
		"RECONCILE_INTERVAL": cfg.Merchant.ReconcileInterval,
	} {
		if d <= 0 {
			return nil, fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}
	if cfg.Merchant.OrphanGracePeriod < 0 {
		return nil, fmt.Errorf("ORPHAN_GRACE_PERIOD must not be negative, got %s", cfg.Merchant.OrphanGracePeriod)
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == EnvProduction
}
