package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/segmentio/kafka-go"
)

type LogMessage struct {
	Level     string            `json:"level"`
	Module    string            `json:"module"`
	Message   string            `json:"message"`
	TraceID   string            `json:"trace_id"`
	Env       string            `json:"env"`
	Timestamp time.Time         `json:"timestamp"`
	Extra     map[string]string `json:"extra"`
}

// LogReader is the subset of *kafka.Reader the pusher needs.
type LogReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// BulkFunc sends one newline delimited bulk request body.
type BulkFunc func(ctx context.Context, body []byte) error

// NewESBulk returns a BulkFunc indexing into index on the cluster at url.
func NewESBulk(url, index string) (BulkFunc, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{url}})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	return func(ctx context.Context, body []byte) error {
		res, err := es.Bulk(bytes.NewReader(body), es.Bulk.WithIndex(index), es.Bulk.WithContext(ctx))
		if err != nil {
			return err
		}
		defer res.Body.Close()
		if res.IsError() {
			return fmt.Errorf("bulk index: %s", res.Status())
		}
		return nil
	}, nil
}

// LogPusher drains access logs from Kafka into Elasticsearch in batches,
// flushing when a batch fills or BatchTimeout passes.
type LogPusher struct {
	Reader       LogReader
	Bulk         BulkFunc
	BatchSize    int
	BatchTimeout time.Duration
	Logger       *slog.Logger
}

func (p *LogPusher) Run(ctx context.Context) error {
	defer p.Reader.Close()

	batch := make([]LogMessage, 0, p.BatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := p.Bulk(context.WithoutCancel(ctx), BulkBody(batch)); err != nil {
			p.Logger.Error("bulk index failed", "count", len(batch), "error", err)
		} else {
			p.Logger.Info("logs pushed", "count", len(batch))
		}
		batch = batch[:0]
	}

	deadline := time.Now().Add(p.BatchTimeout)
	for {
		readCtx, cancel := context.WithDeadline(ctx, deadline)
		m, err := p.Reader.ReadMessage(readCtx)
		cancel()
		switch {
		case err == nil:
		case ctx.Err() != nil:
			flush()
			return nil
		case errors.Is(err, context.DeadlineExceeded):
			flush()
			deadline = time.Now().Add(p.BatchTimeout)
			continue
		default:
			flush()
			return fmt.Errorf("read log: %w", err)
		}

		var msg LogMessage
		if err := json.Unmarshal(m.Value, &msg); err != nil {
			p.Logger.Warn("skipping undecodable log", "offset", m.Offset, "error", err)
			continue
		}
		if msg.Timestamp.IsZero() {
			msg.Timestamp = time.Now().UTC()
		}
		batch = append(batch, msg)
		if len(batch) >= p.BatchSize {
			flush()
			deadline = time.Now().Add(p.BatchTimeout)
		}
	}
}

// BulkBody renders msgs as an Elasticsearch bulk index request.
func BulkBody(msgs []LogMessage) []byte {
	var buf bytes.Buffer
	for _, m := range msgs {
		doc, err := json.Marshal(m)
		if err != nil {
			continue
		}
		buf.WriteString("{\"index\":{}}\n")
		buf.Write(doc)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}
