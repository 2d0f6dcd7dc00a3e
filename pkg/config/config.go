package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// MustLoad loads the configuration from environment variables and .env file.
func MustLoad[T any](cfg T) {
	_ = godotenv.Load() // Load environment variables from .env file

	env.Must(cfg, env.Parse(cfg))
}

// Load loads the configuration from environment variables and .env file.
func Load[T any](cfg T) error {
	_ = godotenv.Load() // missing .env file is fine, env vars may be set directly

	if err := env.Parse(cfg); err != nil {
		return err // Return error if environment variable parsing fails
	}

	return nil // Return nil if everything is successful
}

// Source identifies where feed messages come from.
type Source string

const (
	// SourceStdin reads feed messages interactively from standard input.
	SourceStdin Source = "stdin"
	// SourceFile replays feed messages from a market data file.
	SourceFile Source = "file"
	// SourceKafka consumes feed messages from a Kafka topic.
	SourceKafka Source = "kafka"
)

// Config holds the configuration for the application
type Config struct {
	Instrument string `env:"INSTRUMENT" envDefault:"BTC-USD"` // Instrument symbol the book prices
	TargetSize int64  `env:"TARGET_SIZE,required"`            // Market order size to quote after each event
	Source     Source `env:"FEED_SOURCE" envDefault:"stdin"`  // Feed source: stdin, file or kafka
	FeedFile   string `env:"FEED_FILE"`                       // Market data file, required when Source is file
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`

	KafkaConfig          `envPrefix:"KAFKA_"`    // Feed consumer configuration
	QuotePublisherConfig `envPrefix:"QUOTE_"`    // Quote publisher configuration
	RedisConfig          `envPrefix:"REDIS_"`    // Redis configuration
	SnapshotConfig       `envPrefix:"SNAPSHOT_"` // Snapshot persistence configuration
}

// KafkaConfig holds the configuration for the Kafka feed consumer.
type KafkaConfig struct {
	Topic   string   `env:"TOPIC" envDefault:"market-feed"`
	GroupID string   `env:"GROUP_ID" envDefault:"default_group"`
	Brokers []string `env:"BROKER" envDefault:"localhost:9092"`
}

// QuotePublisherConfig holds the configuration for the Kafka quote publisher.
type QuotePublisherConfig struct {
	Enabled bool     `env:"ENABLED" envDefault:"false"`
	Topic   string   `env:"TOPIC" envDefault:"quotes"`
	Brokers []string `env:"BROKER" envDefault:"localhost:9092"`
}

// RedisConfig holds the configuration for the Redis client.
type RedisConfig struct {
	Addrs    string `env:"ADDRESS" envDefault:"localhost:6379"` // Comma-separated list of Redis addresses
	Password string `env:"PASSWORD" envDefault:""`
	Username string `env:"USERNAME" envDefault:""`
	DB       int    `env:"DB" envDefault:"0"`
}

// SnapshotConfig holds the configuration for periodic book snapshots.
type SnapshotConfig struct {
	Enabled     bool          `env:"ENABLED" envDefault:"false"`
	Interval    time.Duration `env:"INTERVAL" envDefault:"30s"`
	OffsetDelta int64         `env:"OFFSET_DELTA" envDefault:"1000"`
}

// Validate checks cross-field constraints that env tags cannot express.
func (c *Config) Validate() error {
	if c.TargetSize < 1 {
		return fmt.Errorf("target size must be greater than or equal to 1, got %d", c.TargetSize)
	}

	switch c.Source {
	case SourceStdin, SourceKafka:
	case SourceFile:
		if c.FeedFile == "" {
			return fmt.Errorf("feed file is required when source is %q", SourceFile)
		}
	default:
		return fmt.Errorf("unknown feed source %q", c.Source)
	}

	return nil
}
