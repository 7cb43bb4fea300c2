package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// init loads .env then .env.local when present. godotenv never overrides
// variables already set in the process environment.
func init() {
	for _, file := range []string{".env", ".env.local"} {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", file, err)
		}
	}
}

// DevJWTSigningKey is used when JWT_SIGNING_KEY is unset outside production.
const DevJWTSigningKey = "dev-secret-key-change-in-production"

// Server captures HTTP server level configuration.
type Server struct {
	Addr           string
	Environment    string
	LogLevel       string
	RequestTimeout time.Duration

	JWTSigningKey string
	JWTIssuer     string

	PaymentCallbackSecret string
	UnitPrice             int64

	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	S3       S3Config
}

// DatabaseConfig holds Postgres settings. Empty URL selects in-memory stores.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds Redis settings. Empty URL disables Redis-backed adapters.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig holds producer and outbox worker settings. Empty Brokers selects the no-op producer.
type KafkaConfig struct {
	Brokers            string
	Topic              string
	Acks               string
	Retries            int
	DeliveryTimeout    time.Duration
	OutboxPollInterval time.Duration
	OutboxRetention    time.Duration
}

// S3Config holds blob store settings. Empty Bucket selects the in-memory blob store.
type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

// IsProduction reports whether the service runs with production guards.
func (s Server) IsProduction() bool {
	return s.Environment == "production" || s.Environment == "prod"
}

// FromEnv builds a Server config from environment variables so main stays lean.
// Malformed numeric or duration values fail with an error naming the key.
func FromEnv() (Server, error) {
	p := &parser{}

	cfg := Server{
		Addr:           stringOr("ETATCIVIL_ADDR", ":8080"),
		Environment:    stringOr("ETATCIVIL_ENV", "dev"),
		LogLevel:       stringOr("LOG_LEVEL", "info"),
		RequestTimeout: p.duration("REQUEST_TIMEOUT", 30*time.Second),

		JWTSigningKey: os.Getenv("JWT_SIGNING_KEY"),
		JWTIssuer:     stringOr("JWT_ISSUER", "etatcivil"),

		PaymentCallbackSecret: os.Getenv("PAYMENT_CALLBACK_SECRET"),
		UnitPrice:             p.int64("CERTIFICATE_UNIT_PRICE", 250),

		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    p.int("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    p.int("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: p.duration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     p.int("REDIS_POOL_SIZE", 10),
			MinIdleConns: p.int("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  p.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  p.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: p.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:            os.Getenv("KAFKA_BROKERS"),
			Topic:              stringOr("KAFKA_TOPIC", "etatcivil.declaration.events"),
			Acks:               stringOr("KAFKA_ACKS", "all"),
			Retries:            p.int("KAFKA_RETRIES", 3),
			DeliveryTimeout:    p.duration("KAFKA_DELIVERY_TIMEOUT", 30*time.Second),
			OutboxPollInterval: p.duration("OUTBOX_POLL_INTERVAL", 500*time.Millisecond),
			OutboxRetention:    p.duration("OUTBOX_RETENTION", 7*24*time.Hour),
		},
		S3: S3Config{
			Endpoint:  os.Getenv("S3_ENDPOINT"),
			Region:    stringOr("S3_REGION", "us-east-1"),
			Bucket:    os.Getenv("S3_BUCKET"),
			AccessKey: os.Getenv("S3_ACCESS_KEY"),
			SecretKey: os.Getenv("S3_SECRET_KEY"),
		},
	}
	if p.err != nil {
		return Server{}, p.err
	}

	if cfg.JWTSigningKey == "" {
		if cfg.IsProduction() {
			return Server{}, fmt.Errorf("JWT_SIGNING_KEY is required in production")
		}
		cfg.JWTSigningKey = DevJWTSigningKey
	}
	if cfg.UnitPrice <= 0 {
		return Server{}, fmt.Errorf("CERTIFICATE_UNIT_PRICE must be positive, got %d", cfg.UnitPrice)
	}
	return cfg, nil
}

func stringOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// parser keeps the first parse error so FromEnv can report it once.
type parser struct {
	err error
}

func (p *parser) fail(key, raw string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s=%q: %w", key, raw, err)
	}
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		p.fail(key, raw, err)
		return fallback
	}
	return d
}

func (p *parser) int(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		p.fail(key, raw, err)
		return fallback
	}
	return n
}

func (p *parser) int64(key string, fallback int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		p.fail(key, raw, err)
		return fallback
	}
	return n
}
