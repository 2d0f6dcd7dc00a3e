package feed

import (
	"context"

	feedv1 "github.com/chuvpilo/pricer/internal/domain/feed/v1"
	orderbookv1 "github.com/chuvpilo/pricer/internal/domain/orderbook/v1"
	"github.com/chuvpilo/pricer/pkg/config"
	"github.com/chuvpilo/pricer/pkg/logger"
	"github.com/segmentio/kafka-go"
)

// KafkaReader consumes feed messages from a Kafka topic. Message values are
// the same raw text lines the file source carries, one event per message.
type KafkaReader struct {
	kafkaReader *kafka.Reader
	logger      logger.Interface
}

// NewKafkaReader creates a new Kafka reader for consuming feed messages.
// It returns an implementation of the OrderReader interface.
func NewKafkaReader(cfg config.KafkaConfig, log logger.Interface) *KafkaReader {
	kafkaReader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		Partition:   0,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.LastOffset,
	})

	return &KafkaReader{
		kafkaReader: kafkaReader,
		logger:      log,
	}
}

// ReadMessage reads a message from the Kafka topic and decodes it as an
// order event. Decode failures are returned with the message offset so the
// caller can skip the message and keep consuming.
func (r *KafkaReader) ReadMessage(ctx context.Context) (*orderbookv1.Order, int64, error) {
	msg, err := r.kafkaReader.ReadMessage(ctx)
	if err != nil {
		r.logError(err, "ReadMessage")
		return nil, 0, err
	}

	order, err := feedv1.Decode(string(msg.Value))
	if err != nil {
		return nil, msg.Offset, err
	}

	r.logger.Debug("ReadMessage",
		logger.Field{Key: "id", Value: order.ID},
		logger.Field{Key: "type", Value: order.Type},
		logger.Field{Key: "size", Value: order.Size},
		logger.Field{Key: "price", Value: order.Price},
		logger.Field{Key: "offset", Value: msg.Offset},
	)

	return order, msg.Offset, nil
}

// SetOffset sets the offset for the Kafka reader.
func (r *KafkaReader) SetOffset(offset int64) error {
	if err := r.kafkaReader.SetOffset(offset); err != nil {
		r.logError(err, "SetOffset")
		return err
	}
	return nil
}

// Close properly closes the Kafka reader.
func (r *KafkaReader) Close() error {
	if err := r.kafkaReader.Close(); err != nil {
		r.logError(err, "Close")
		return err
	}
	return nil
}

// logError is a helper method to log errors consistently
func (r *KafkaReader) logError(err error, operation string) {
	r.logger.Error(err,
		logger.Field{Key: "error", Value: err.Error()},
		logger.Field{Key: "operation", Value: operation},
	)
}
