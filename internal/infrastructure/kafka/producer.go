package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/honeynil/PaymentServiceBF/internal/models"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is the part of *kafka.Writer the producer uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer MessageWriter
	topic  string
}

func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr: kafka.TCP(brokers...),
		// Hash keeps every event of one transaction on the same partition.
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}
	return NewProducerWithWriter(writer, topic)
}

func NewProducerWithWriter(writer MessageWriter, topic string) *Producer {
	if topic == "" {
		topic = models.TopicTransactions
	}
	return &Producer{writer: writer, topic: topic}
}

// Publish writes event keyed by transaction id.
func (p *Producer) Publish(ctx context.Context, event models.TransactionEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", event.Event, err)
	}

	msg := kafka.Message{
		Topic: p.topic,
		Key:   []byte(event.TransactionID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(event.Event)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		slog.Error("failed to send Kafka message", "topic", p.topic, "key", event.TransactionID, "error", err)
		return err
	}
	slog.Info("Kafka message sent", "topic", p.topic, "key", event.TransactionID, "event", event.Event)
	return nil
}

func (p *Producer) Close() error {
	if err := p.writer.Close(); err != nil {
		slog.Error("failed to close Kafka writer", "error", err)
		return err
	}
	slog.Info("Kafka writer closed")
	return nil
}
