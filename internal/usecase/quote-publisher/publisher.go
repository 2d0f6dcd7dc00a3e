package quotepublisher

import (
	"context"
	"encoding/json"

	quotev1 "github.com/chuvpilo/pricer/internal/domain/quote/v1"
	"github.com/chuvpilo/pricer/pkg/config"
	"github.com/chuvpilo/pricer/pkg/errors"
	"github.com/chuvpilo/pricer/pkg/logger"
	"github.com/segmentio/kafka-go"
)

// Publisher represents a Kafka Publisher for publishing quote updates.
type Publisher struct {
	kafkaWriter *kafka.Writer
	logger      logger.Interface
}

// NewPublisher creates a new Kafka publisher for publishing quote updates.
func NewPublisher(cfg config.QuotePublisherConfig, log logger.Interface) *Publisher {
	kafkaWriter := kafka.NewWriter(kafka.WriterConfig{
		Brokers: cfg.Brokers,
		Topic:   cfg.Topic,
	})

	return &Publisher{
		kafkaWriter: kafkaWriter,
		logger:      log,
	}
}

// PublishQuote publishes a quote update to the Kafka topic as JSON, keyed by
// instrument so per-instrument ordering survives partitioning.
func (p *Publisher) PublishQuote(ctx context.Context, quote *quotev1.Quote) error {
	value, err := json.Marshal(quote)
	if err != nil {
		return errors.NewTracer("failed to encode quote update").Wrap(err)
	}

	msg := kafka.Message{
		Key:   []byte(quote.Instrument),
		Value: value,
	}

	if err := p.kafkaWriter.WriteMessages(ctx, msg); err != nil {
		p.logger.Error(err,
			logger.Field{Key: "error", Value: err.Error()},
			logger.Field{Key: "quote", Value: quote},
		)
		return errors.NewTracer("failed to publish quote update").Wrap(err)
	}

	return nil
}

// Close properly closes the Kafka writer.
func (p *Publisher) Close() error {
	return p.kafkaWriter.Close()
}
