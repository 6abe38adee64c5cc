package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/ivmarchuk/filmstore/internal/checkout/domain"
	"github.com/segmentio/kafka-go"
)

const (
	TopicOrderCreated         = "checkout.order.created"
	TopicPaymentStatusChanged = "checkout.payment.status-changed"
)

// EventBus publishes checkout lifecycle events to Kafka. Messages are keyed by
// the entity id so consumers see per-entity ordering.
type EventBus struct {
	orderWriter   *kafka.Writer
	paymentWriter *kafka.Writer
}

// NewEventBus connects writers for both topics to the given brokers.
func NewEventBus(brokers []string) *EventBus {
	newWriter := func(topic string) *kafka.Writer {
		return &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
		}
	}
	return &EventBus{
		orderWriter:   newWriter(TopicOrderCreated),
		paymentWriter: newWriter(TopicPaymentStatusChanged),
	}
}

// Close flushes and closes both writers.
func (b *EventBus) Close() error {
	if err := b.orderWriter.Close(); err != nil {
		return fmt.Errorf("close order writer: %w", err)
	}
	return b.paymentWriter.Close()
}

func (b *EventBus) PublishOrderCreated(ctx context.Context, orderID int64) error {
	payload, err := json.Marshal(map[string]any{
		"order_id":   orderID,
		"created_at": time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal order created event: %w", err)
	}
	return b.publish(ctx, b.orderWriter, TopicOrderCreated, orderID, "order.created", payload)
}

func (b *EventBus) PublishPaymentStatusChanged(ctx context.Context, paymentID int64, status domain.PaymentStatus) error {
	payload, err := json.Marshal(map[string]any{
		"payment_id": paymentID,
		"status":     status,
		"changed_at": time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal payment status event: %w", err)
	}
	return b.publish(ctx, b.paymentWriter, TopicPaymentStatusChanged, paymentID, "payment.status-changed", payload)
}

func (b *EventBus) publish(ctx context.Context, writer *kafka.Writer, topic string, key int64, eventType string, payload []byte) error {
	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(key, 10)),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write message to %s: %w", topic, err)
	}
	return nil
}
