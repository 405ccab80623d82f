package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App      AppConfig
	Commerce CommerceConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Checkout CheckoutConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"MARTLY_APP_ENV" required:"true"`
	Port         string `envconfig:"MARTLY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MARTLY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MARTLY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// CommerceConfig points at the remote commerce API that owns catalog,
// pricing, slots, orders and the payment gateway leg.
type CommerceConfig struct {
	BaseURL     string        `envconfig:"MARTLY_COMMERCE_BASE_URL" required:"true"`
	Timeout     time.Duration `envconfig:"MARTLY_COMMERCE_TIMEOUT" default:"10s"`
	ServiceKey  string        `envconfig:"MARTLY_COMMERCE_SERVICE_KEY"`
	MaxIdle     int           `envconfig:"MARTLY_COMMERCE_MAX_IDLE_CONNS" default:"20"`
	IdleTimeout time.Duration `envconfig:"MARTLY_COMMERCE_IDLE_TIMEOUT" default:"90s"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MARTLY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MARTLY_REDIS_ADDR"`
	Password     string        `envconfig:"MARTLY_REDIS_PASSWORD"`
	DB           int           `envconfig:"MARTLY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MARTLY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MARTLY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MARTLY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MARTLY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MARTLY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret string `envconfig:"MARTLY_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"MARTLY_JWT_ISSUER" required:"true"`
}

// CheckoutConfig tunes the checkout core's client-side behavior.
type CheckoutConfig struct {
	ServiceabilityTTL time.Duration `envconfig:"MARTLY_CHECKOUT_SERVICEABILITY_TTL" default:"15m"`
	SubmitGuardTTL    time.Duration `envconfig:"MARTLY_CHECKOUT_SUBMIT_GUARD_TTL" default:"30s"`
	SlotWindowDays    int           `envconfig:"MARTLY_CHECKOUT_SLOT_WINDOW_DAYS" default:"8"`
}
