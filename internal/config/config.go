package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
	DriverRedis    = "redis"
)

// Config holds environment-driven configuration.
type Config struct {
	Addr string
	Env  string

	StoreDriver string
	CartStore   string

	DatabaseURL   string
	MongoURI      string
	MongoDatabase string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	KafkaBrokers []string

	AdminEmail        string
	AdminPasswordHash string
	JWTSecret         string

	CartTTL           time.Duration
	CartSweepInterval time.Duration
	RequestTimeout    time.Duration

	ShippingFlat decimal.Decimal
	TaxRate      decimal.Decimal

	AllowResetProducts bool
	CORSOrigins        string
}

// Load reads a .env file when present and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup func so tests need not touch the
// process environment.
func FromEnv(getenv func(string) string) (Config, error) {
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	var errs []error
	duration := func(key, fallback string) time.Duration {
		d, err := time.ParseDuration(get(key, fallback))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
		return d
	}
	dec := func(key, fallback string) decimal.Decimal {
		d, err := decimal.NewFromString(get(key, fallback))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
		return d
	}

	redisDB, err := strconv.Atoi(get("REDIS_DB", "0"))
	if err != nil {
		errs = append(errs, fmt.Errorf("REDIS_DB: %w", err))
	}

	storeDriver := strings.ToLower(get("STORE_DRIVER", DriverPostgres))
	cfg := Config{
		Addr:               get("APP_ADDR", ":8080"),
		Env:                get("APP_ENV", "production"),
		StoreDriver:        storeDriver,
		CartStore:          strings.ToLower(get("CART_STORE", storeDriver)),
		DatabaseURL:        getenv("DATABASE_URL"),
		MongoURI:           get("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase:      get("MONGODB_DATABASE", "ecommerce"),
		RedisAddr:          get("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      getenv("REDIS_PASSWORD"),
		RedisDB:            redisDB,
		KafkaBrokers:       splitList(getenv("KAFKA_BROKERS")),
		AdminEmail:         strings.ToLower(get("ADMIN_EMAIL", "admin@shop.com")),
		AdminPasswordHash:  getenv("ADMIN_PASSWORD_HASH"),
		JWTSecret:          getenv("JWT_SECRET"),
		CartTTL:            duration("CART_TTL", "168h"),
		CartSweepInterval:  duration("CART_SWEEP_INTERVAL", "1h"),
		RequestTimeout:     duration("REQUEST_TIMEOUT", "5s"),
		ShippingFlat:       dec("SHIPPING_FLAT", "10.00"),
		TaxRate:            dec("TAX_RATE", "0.10"),
		AllowResetProducts: getenv("ALLOW_RESET_PRODUCTS") == "1",
		CORSOrigins:        get("CORS_ORIGINS", "*"),
	}
	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	return cfg, cfg.Validate()
}

// Validate reports combinations the application cannot start with.
func (c Config) Validate() error {
	var errs []error
	switch c.StoreDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is not set"))
		}
	case DriverMongo, DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}

	switch c.CartStore {
	case DriverPostgres, DriverMongo, DriverMemory, DriverRedis:
		if c.CartStore != DriverRedis && c.CartStore != c.StoreDriver {
			errs = append(errs, fmt.Errorf("CART_STORE %q must be %q or %q", c.CartStore, c.StoreDriver, DriverRedis))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown CART_STORE %q", c.CartStore))
	}

	if c.CartTTL <= 0 {
		errs = append(errs, errors.New("CART_TTL must be positive"))
	}
	if c.ShippingFlat.IsNegative() {
		errs = append(errs, errors.New("SHIPPING_FLAT must be >= 0"))
	}
	if c.TaxRate.IsNegative() {
		errs = append(errs, errors.New("TAX_RATE must be >= 0"))
	}
	if c.AdminPasswordHash != "" && c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required when ADMIN_PASSWORD_HASH is set"))
	}
	return errors.Join(errs...)
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func splitList(v string) []string {
	out := make([]string, 0)
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
