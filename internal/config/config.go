package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string        `envconfig:"HTTP_ADDR" default:"0.0.0.0:5000" validate:"required"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn warning error"`
	LogFormat       string        `envconfig:"LOG_FORMAT" default:"json" validate:"oneof=json text"`
	ShutdownTimeout time.Duration `ignored:"true"`

	// Model artifacts and page templates.
	ArtifactDir string `envconfig:"ARTIFACT_DIR" default:"." validate:"required"`
	TemplateDir string `envconfig:"TEMPLATE_DIR"`

	// Prediction event sinks.
	PublishTimeout       time.Duration `envconfig:"PUBLISH_TIMEOUT" default:"2s" validate:"gt=0"`
	KafkaBrokers         []string      `ignored:"true"`
	KafkaPredictionTopic string        `envconfig:"KAFKA_PREDICTION_TOPIC" default:"rainfall-predictions"`
	KafkaEnabled         bool          `ignored:"true"`
	DatabaseURL          string        `envconfig:"DATABASE_URL"`
}

// Load reads configuration from the environment, applying defaults where
// unset. A .env file in the working directory is read first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.ShutdownTimeout = shutdownTimeout
	cfg.KafkaBrokers = sharedcfg.ParseBrokers(os.Getenv("KAFKA_BROKERS"))

	cfg.KafkaEnabled = len(cfg.KafkaBrokers) > 0
	if v, ok := os.LookupEnv("KAFKA_ENABLED"); ok && v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("config: invalid KAFKA_ENABLED %q", v)
		}
		cfg.KafkaEnabled = enabled
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", describe(err))
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("config: KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaPredictionTopic == "" {
		return nil, errors.New("config: KAFKA_PREDICTION_TOPIC is required when Kafka is enabled")
	}
	// Both URLs and keyword/value DSNs are accepted, as pgxpool.New does.
	if cfg.DatabaseURL != "" {
		if _, err := pgxpool.ParseConfig(cfg.DatabaseURL); err != nil {
			return nil, errors.New("config: invalid DATABASE_URL")
		}
	}

	return &cfg, nil
}

var envNames = map[string]string{
	"HTTPAddr":        "HTTP_ADDR",
	"LogLevel":        "LOG_LEVEL",
	"LogFormat":       "LOG_FORMAT",
	"ArtifactDir":     "ARTIFACT_DIR",
	"PublishTimeout":  "PUBLISH_TIMEOUT",
}

// describe names the environment variables behind validation failures.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		name := envNames[fe.Field()]
		if name == "" {
			name = fe.Field()
		}
		msgs = append(msgs, fmt.Sprintf("invalid %s (%s)", name, fe.Tag()))
	}
	return errors.New(strings.Join(msgs, "; "))
}
