package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"

	"github.com/honeynil/PaymentServiceBF/internal/models"
	"github.com/segmentio/kafka-go"
)

// MessageReader is the part of *kafka.Reader the consumer uses.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type EventHandler interface {
	Handle(ctx context.Context, event models.TransactionEvent) error
}

type Consumer struct {
	reader  MessageReader
	topic   string
	handler EventHandler
}

func NewConsumer(brokers []string, topic, groupID string, handler EventHandler) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3,
		MaxBytes: 10e6,
	})
	return NewConsumerWithReader(reader, topic, handler)
}

func NewConsumerWithReader(reader MessageReader, topic string, handler EventHandler) *Consumer {
	return &Consumer{reader: reader, topic: topic, handler: handler}
}

// Consume hands every transaction event to the handler until ctx is
// cancelled or the reader is closed. Malformed messages are logged and skipped.
func (c *Consumer) Consume(ctx context.Context) {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				slog.Info("Kafka consumer stopped", "topic", c.topic)
				return
			}
			slog.Error("failed to read Kafka message", "topic", c.topic, "error", err)
			continue
		}

		slog.Debug("Kafka message received", "topic", msg.Topic, "key", string(msg.Key), "offset", msg.Offset)

		var event models.TransactionEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			slog.Error("failed to unmarshal transaction event", "key", string(msg.Key), "error", err)
			continue
		}

		if err := c.handler.Handle(ctx, event); err != nil {
			slog.Error("failed to handle transaction event",
				"transaction_id", event.TransactionID,
				"event", event.Event,
				"error", err)
			continue
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
