package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	Env  string `validate:"required,oneof=development stage production"`
	Http Http

	Cors CORS `validate:"required"`

	Kafka Kafka `validate:"required"`

	Postgres Postgres `validate:"required"`

	Cache Cache
	Store Store

	Auth Auth `validate:"required"`

	Pricing Pricing `validate:"required"`

	PayPal PayPal `validate:"required"`
}

type Http struct {
	Host string `validate:"required,hostname|ip"`
	Port string `validate:"required,gt=0,lte=65535"`
}

type Kafka struct {
	GroupID      string   `validate:"required"`
	Brokers      []string `validate:"required,min=1,dive,hostname_port"`
	CaptureTopic string   `validate:"required"`

	ReaderMaxWait time.Duration `validate:"gte=0"`
	BatchTimeout  time.Duration `validate:"gte=0"`
}

type Postgres struct {
	Host     string `validate:"required,hostname|ip"`
	Port     int    `validate:"required,gt=0,lte=65535"`
	DBName   string `validate:"required"`
	User     string `validate:"required"`
	Password string `validate:"required"`

	SSLMode string `validate:"required,oneof=disable require verify-ca verify-full"`

	MaxOpenConns    int           `validate:"gte=1"`
	MaxIdleConns    int           `validate:"gte=0"`
	ConnMaxLifetime time.Duration `validate:"gte=0"`
}

type CORS struct {
	AllowedOrigins []string `validate:"required,min=1,dive,url"`
}

type Cache struct {
	Capacity int           `validate:"gte=1"`
	TTL      time.Duration `validate:"gt=0"`
}

type Store struct {
	// Timeout bounds every single database call made by the order service.
	Timeout time.Duration `validate:"gt=0"`
}

type Auth struct {
	JWTSecret string `validate:"required,min=16"`
	Issuer    string
}

// Pricing amounts are decimal strings in major units ("5.00").
type Pricing struct {
	Currency         string `validate:"required,len=3,uppercase"`
	ShippingFlat     string `validate:"required,numeric"`
	FreeShippingOver string `validate:"omitempty,numeric"`
	TaxRate          string `validate:"required,numeric"`
	TaxOnShipping    bool
}

type PayPal struct {
	ClientID string        `validate:"required"`
	Secret   string        `validate:"required"`
	BaseURL  string        `validate:"required,url"`
	Timeout  time.Duration `validate:"gt=0"`
}

func New() Config {
	return Config{
		Env: env("ENV", "development"),

		Http: Http{
			Host: env("HOST", "localhost"),
			Port: env("PORT", "8080"),
		},

		Cors: CORS{
			AllowedOrigins: strings.Split(env("ALLOWED_CORS_ORIGINS", "http://localhost:3000"), ","),
		},

		Kafka: Kafka{
			GroupID:      env("KAFKA_GROUP_ID", "storefront-orders"),
			CaptureTopic: env("KAFKA_CAPTURE_TOPIC", "payment-captures"),
			Brokers:      strings.Split(env("KAFKA_BROKERS", "localhost:9092"), ","),

			ReaderMaxWait: envDuration("KAFKA_READER_MAX_WAIT", 10*time.Millisecond),
			BatchTimeout:  envDuration("KAFKA_BATCH_TIMEOUT", 10*time.Millisecond),
		},

		Postgres: Postgres{
			Port:     envInt("POSTGRES_PORT", 5432),
			Host:     env("POSTGRES_HOST", "localhost"),
			DBName:   env("POSTGRES_DB", "storefront"),
			User:     env("POSTGRES_USER", ""),
			Password: env("POSTGRES_PASSWORD", ""),

			SSLMode: env("POSTGRES_SSL_MODE", "disable"),

			MaxOpenConns:    envInt("POSTGRES_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("POSTGRES_MAX_IDLE_CONNS", 25),
			ConnMaxLifetime: envDuration("POSTGRES_CONN_MAX_LIFETIME", 5*time.Minute),
		},

		Cache: Cache{
			Capacity: envInt("CACHE_CAPACITY", 1000),
			TTL:      envDuration("CACHE_TTL", 5*time.Minute),
		},

		Store: Store{
			Timeout: envDuration("STORE_TIMEOUT", 3*time.Second),
		},

		Auth: Auth{
			JWTSecret: env("JWT_SECRET", ""),
			Issuer:    env("JWT_ISSUER", ""),
		},

		Pricing: Pricing{
			Currency:         env("PRICING_CURRENCY", "LKR"),
			ShippingFlat:     env("PRICING_SHIPPING_FLAT", "5.00"),
			FreeShippingOver: env("PRICING_FREE_SHIPPING_OVER", "0"),
			TaxRate:          env("PRICING_TAX_RATE", "0.10"),
			TaxOnShipping:    envBool("PRICING_TAX_ON_SHIPPING", false),
		},

		PayPal: PayPal{
			ClientID: env("PAYPAL_CLIENT_ID", ""),
			Secret:   env("PAYPAL_SECRET", ""),
			BaseURL:  env("PAYPAL_BASE_URL", "https://api-m.sandbox.paypal.com"),
			Timeout:  envDuration("PAYPAL_TIMEOUT", 10*time.Second),
		},
	}
}

func (c Config) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

func env(key string, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return fallback
}
