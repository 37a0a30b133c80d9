// Package config reads the service configuration from the environment.
// A .env file in the working directory is loaded first when present.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultHTTPAddr      = "127.0.0.1:8080"
	defaultMetricsAddr   = ":8000"
	defaultMongoURI      = "mongodb://localhost:27017"
	defaultMongoDB       = "saborlimeno"
	defaultRedisAddr     = "localhost:6379"
	defaultKafkaBroker   = "localhost:9092"
	defaultEventsTopic   = "order-events"
	defaultLogsTopic     = "logs"
	defaultESURL         = "http://localhost:9200"
	defaultPublicURL     = "http://localhost:8080"
	defaultReceiptSecret = "change-me-in-production"
	defaultOTLPEndpoint  = "localhost:4318"
)

// Simulator modes.
const (
	SimulatorRead  = "read"
	SimulatorTimer = "timer"
	SimulatorOff   = "off"
)

// Store backends.
const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string

	Store    string
	MongoURI string
	MongoDB  string

	RedisAddr     string
	RedisPassword string
	SessionTTL    time.Duration

	KafkaBrokers []string
	EventsTopic  string
	LogsTopic    string

	ElasticsearchURL string
	OTLPEndpoint     string

	StripeSecretKey string
	ReceiptSecret   string
	PublicURL       string

	// CORSOrigins lists the browser origins allowed to call the API. Empty
	// means any origin, without credentials.
	CORSOrigins []string

	SimulatorMode     string
	SimulatorInterval time.Duration
}

// Load reads .env (if any) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		AppEnv:           get("APP_ENV", "local"),
		HTTPAddr:         get("HTTP_ADDR", defaultHTTPAddr),
		MetricsAddr:      get("METRICS_ADDR", defaultMetricsAddr),
		Store:            strings.ToLower(get("STORE", StoreMongo)),
		MongoURI:         get("MONGO_URI", defaultMongoURI),
		MongoDB:          get("MONGO_DB", defaultMongoDB),
		RedisAddr:        get("REDIS_ADDR", defaultRedisAddr),
		RedisPassword:    get("REDIS_PASSWORD", ""),
		KafkaBrokers:     splitList(get("KAFKA_BROKERS", defaultKafkaBroker)),
		EventsTopic:      get("KAFKA_EVENTS_TOPIC", defaultEventsTopic),
		LogsTopic:        get("KAFKA_LOGS_TOPIC", defaultLogsTopic),
		ElasticsearchURL: get("ELASTICSEARCH_URL", defaultESURL),
		OTLPEndpoint:     get("OTLP_ENDPOINT", defaultOTLPEndpoint),
		StripeSecretKey:  get("STRIPE_SECRET_KEY", ""),
		ReceiptSecret:    get("RECEIPT_SECRET", defaultReceiptSecret),
		PublicURL:        strings.TrimRight(get("PUBLIC_URL", defaultPublicURL), "/"),
		SimulatorMode:    strings.ToLower(get("SIMULATOR_MODE", SimulatorRead)),
		CORSOrigins:      splitList(get("CORS_ORIGINS", "")),
	}
	if len(cfg.CORSOrigins) == 0 && cfg.IsProduction() {
		cfg.CORSOrigins = []string{cfg.PublicURL}
	}

	var err error
	if cfg.SessionTTL, err = duration("SESSION_TTL", 0); err != nil {
		return nil, err
	}
	if cfg.SimulatorInterval, err = duration("SIMULATOR_INTERVAL", 5*time.Second); err != nil {
		return nil, err
	}

	switch cfg.SimulatorMode {
	case SimulatorRead, SimulatorTimer, SimulatorOff:
	default:
		return nil, fmt.Errorf("invalid SIMULATOR_MODE %q", cfg.SimulatorMode)
	}
	switch cfg.Store {
	case StoreMongo, StoreMemory:
	default:
		return nil, fmt.Errorf("invalid STORE %q", cfg.Store)
	}

	return cfg, nil
}

// IsProduction reports whether APP_ENV names a production deployment.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production" || c.AppEnv == "prod"
}

func get(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func duration(key string, fallback time.Duration) (time.Duration, error) {
	raw := get(key, "")
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
