package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"minerva/pkg/errors"
)

type Config struct {
	App           AppConfig
	HTTP          HTTPConfig
	Postgres      PostgresConfig
	Polygon       PolygonConfig
	Embeddings    EmbeddingsConfig
	Kafka         KafkaConfig
	ErrorTracking ErrorTrackingConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"minerva"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
}

type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" required:"true"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" required:"true"`
	Password string `envconfig:"POSTGRES_PASSWORD" required:"true"`
	Database string `envconfig:"POSTGRES_DB" required:"true"`
	SSLMode  string `envconfig:"POSTGRES_SSL_MODE" default:"disable"`
	MaxConns int    `envconfig:"POSTGRES_MAX_CONNS" default:"25"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// PolygonConfig configures the upstream options-contracts API.
// PageLimit is the page size requested from upstream regardless of the
// caller's limit; filtering happens client-side.
type PolygonConfig struct {
	APIKey     string        `envconfig:"POLYGON_API_KEY" required:"true"`
	BaseURL    string        `envconfig:"POLYGON_BASE_URL" default:"https://api.polygon.io"`
	Timeout    time.Duration `envconfig:"POLYGON_TIMEOUT" default:"30s"`
	PageLimit  int           `envconfig:"POLYGON_PAGE_LIMIT" default:"1000"`
	RatePerMin int           `envconfig:"POLYGON_RATE_PER_MIN" default:"60"`
}

type EmbeddingsConfig struct {
	Provider string        `envconfig:"EMBEDDING_PROVIDER" default:"openai"`
	APIKey   string        `envconfig:"OPENAI_API_KEY"`
	Model    string        `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	Timeout  time.Duration `envconfig:"EMBEDDING_TIMEOUT" default:"30s"`
}

type KafkaConfig struct {
	Enabled bool     `envconfig:"KAFKA_ENABLED" default:"false"`
	Brokers []string `envconfig:"KAFKA_BROKERS"`
	Topic   string   `envconfig:"KAFKA_SNAPSHOT_TOPIC" default:"minerva.snapshots"`
}

type HTTPConfig struct {
	Port int `envconfig:"HTTP_PORT" default:"8080"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"true"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	return &cfg, nil
}
