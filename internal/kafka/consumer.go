package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"ms-booking-finance/internal/logger"
	"ms-booking-finance/internal/models"

	"github.com/segmentio/kafka-go"
)

// MessageReader is the subset of *kafka.Reader the consumer needs.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type PaymentEventHandler func(ctx context.Context, event models.PaymentEvent) error

type Consumer struct {
	reader MessageReader
	topic  string
	logger *logger.Logger
}

func NewConsumer(brokers []string, topic, groupID string, log *logger.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{reader: reader, topic: topic, logger: log}
}

// Start consumes payment events until ctx is cancelled. Bad messages and
// handler failures are logged and skipped.
func (c *Consumer) Start(ctx context.Context, handler PaymentEventHandler) error {
	c.logger.LogKafka("START", c.topic, "payment event consumer started")

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.logger.LogKafka("STOP", c.topic, "payment event consumer stopped")
				return nil
			}
			c.logger.Error("KAFKA", fmt.Sprintf("Error reading message from %s: %v", c.topic, err))
			continue
		}

		if err := c.HandleMessage(ctx, msg, handler); err != nil {
			c.logger.Error("KAFKA", err.Error())
		}
	}
}

func (c *Consumer) HandleMessage(ctx context.Context, msg kafka.Message, handler PaymentEventHandler) error {
	var event models.PaymentEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal payment event at offset %d: %w", msg.Offset, err)
	}
	if event.BookingID == 0 {
		return fmt.Errorf("payment event at offset %d has no booking id", msg.Offset)
	}

	c.logger.LogKafka("RECEIVED", c.topic, fmt.Sprintf("%s booking=%d payment=%d", event.Type, event.BookingID, event.PaymentID))
	if err := handler(ctx, event); err != nil {
		return fmt.Errorf("handling payment event for booking %d: %w", event.BookingID, err)
	}
	return nil
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
