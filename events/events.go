// Package events publishes and consumes order lifecycle events over Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// Event types.
const (
	OrderCreated       = "order.created"
	OrderStatusChanged = "order.status_changed"
	OrderCancelled     = "order.cancelled"
	PaymentRecorded    = "payment.recorded"
)

type OrderEvent struct {
	Type        string    `json:"type"`
	OrderID     int       `json:"order_id"`
	UserID      *int      `json:"user_id,omitempty"`
	ClientEmail string    `json:"client_email,omitempty"`
	Status      string    `json:"status,omitempty"`
	Driver      string    `json:"driver,omitempty"`
	Amount      int64     `json:"amount,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Publisher sends order events somewhere.
type Publisher interface {
	Publish(ctx context.Context, evt OrderEvent) error
}

// MessageWriter is the subset of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type KafkaPublisher struct {
	Writer MessageWriter
}

var _ Publisher = (*KafkaPublisher)(nil)

// NewKafkaWriter returns an async writer so publishing never holds up the
// request or read that caused the event. Delivery failures are reported to
// log from the writer's completion callback.
func NewKafkaWriter(brokers []string, topic string, log *slog.Logger) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		Async:                  true,
		AllowAutoTopicCreation: true,
		Completion:             deliveryReporter(log),
	}
}

func deliveryReporter(log *slog.Logger) func([]kafka.Message, error) {
	return func(msgs []kafka.Message, err error) {
		if err == nil {
			return
		}
		keys := make([]string, len(msgs))
		for i, m := range msgs {
			keys[i] = string(m.Key)
		}
		log.Error("order events not delivered", "count", len(msgs), "order_ids", keys, "error", err)
	}
}

func NewKafkaPublisher(w MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{Writer: w}
}

// Publish keys messages by order id so one order's events stay ordered.
func (p *KafkaPublisher) Publish(ctx context.Context, evt OrderEvent) error {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", evt.Type, err)
	}
	return p.Writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.Itoa(evt.OrderID)),
		Value: payload,
		Time:  evt.Timestamp,
	})
}

// Nop discards events. Used when Kafka is not configured.
type Nop struct{}

func (Nop) Publish(context.Context, OrderEvent) error { return nil }

// MessageReader is the subset of *kafka.Reader the consumer needs.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer reads order events and hands each one to Handle.
type Consumer struct {
	Reader MessageReader
	Handle func(ctx context.Context, evt OrderEvent) error
	Logger *slog.Logger
}

func NewKafkaReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: groupID,
	})
}

// Run blocks until ctx is cancelled. Undecodable messages and handler
// failures are logged and skipped.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.Reader.Close()
	for {
		m, err := c.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read event: %w", err)
		}

		var evt OrderEvent
		if err := json.Unmarshal(m.Value, &evt); err != nil {
			c.Logger.Warn("skipping undecodable event", "offset", m.Offset, "error", err)
			continue
		}
		if err := c.Handle(ctx, evt); err != nil {
			c.Logger.Error("event handler failed", "type", evt.Type, "order_id", evt.OrderID, "error", err)
		}
	}
}
