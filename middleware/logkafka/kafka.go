// Package logkafka ships HTTP access logs to a Kafka topic, from where the
// ship-logs command forwards them to Elasticsearch.
package logkafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

// Writer is the subset of *kafka.Writer the shipper needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewWriter returns an async writer; log shipping must never hold up a request.
func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		Async:                  true,
		AllowAutoTopicCreation: true,
	}
}

type LogEntry struct {
	Level     string            `json:"level"`
	Module    string            `json:"module"`
	Message   string            `json:"message"`
	TraceID   string            `json:"trace_id"`
	Env       string            `json:"env"`
	Timestamp string            `json:"timestamp"`
	Extra     map[string]string `json:"extra"`
}

// Shipper writes log entries to Kafka.
type Shipper struct {
	Writer Writer
	Env    string
	Module string
	now    func() time.Time
}

func NewShipper(w Writer, env string) *Shipper {
	return &Shipper{Writer: w, Env: env, Module: "http", now: time.Now}
}

func (s *Shipper) Ship(ctx context.Context, level, message, traceID string, extra map[string]string) error {
	entry := LogEntry{
		Level:     level,
		Module:    s.Module,
		Message:   message,
		TraceID:   traceID,
		Env:       s.Env,
		Timestamp: s.now().UTC().Format(time.RFC3339),
		Extra:     extra,
	}
	b, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return s.Writer.WriteMessages(ctx, kafka.Message{Key: []byte(traceID), Value: b, Time: s.now()})
}

func (s *Shipper) Close() error {
	return s.Writer.Close()
}
