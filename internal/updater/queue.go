package updater

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/archivist/internal/config"
	"git.home.luguber.info/inful/archivist/internal/errors"
	"git.home.luguber.info/inful/archivist/internal/metrics"
	"git.home.luguber.info/inful/archivist/internal/observability"
)

// Consumer receives update requests from a JetStream subject and feeds them
// into the service.
type Consumer struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	service *Service
	rec     metrics.Recorder

	stream  string
	subject string
	durable string

	consumeCtx jetstream.ConsumeContext
}

// NewConsumer connects to NATS and prepares a JetStream consumer.
func NewConsumer(cfg config.QueueConfig, svc *Service, rec metrics.Recorder) (*Consumer, error) {
	if cfg.URL == "" {
		return nil, errors.New(errors.CategoryConfig, errors.SeverityFatal, "queue.url is required")
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}

	conn, err := nats.Connect(cfg.URL, nats.Name("archivist-updater"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	slog.Info("NATS consumer initialized",
		"url", cfg.URL, "stream", cfg.Stream, "subject", cfg.Subject, "durable", cfg.Durable)

	return &Consumer{
		conn:    conn,
		js:      js,
		service: svc,
		rec:     rec,
		stream:  cfg.Stream,
		subject: cfg.Subject,
		durable: cfg.Durable,
	}, nil
}

// Start ensures the stream and durable consumer exist and begins processing.
func (c *Consumer) Start(ctx context.Context) error {
	setupCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	stream, err := c.js.CreateOrUpdateStream(setupCtx, jetstream.StreamConfig{
		Name:     c.stream,
		Subjects: []string{c.subject},
	})
	if err != nil {
		return fmt.Errorf("failed to create stream %s: %w", c.stream, err)
	}

	cons, err := stream.CreateOrUpdateConsumer(setupCtx, jetstream.ConsumerConfig{
		Durable:       c.durable,
		FilterSubject: c.subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer %s: %w", c.durable, err)
	}

	cc, err := cons.Consume(func(msg jetstream.Msg) {
		c.handle(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}
	c.consumeCtx = cc
	return nil
}

// handle processes one queue message. Malformed payloads are terminated,
// transient failures are redelivered, permanent ones are not.
func (c *Consumer) handle(ctx context.Context, msg jetstream.Msg) {
	if meta, err := msg.Metadata(); err == nil {
		ctx = observability.WithBatchID(ctx, strconv.FormatUint(meta.Sequence.Stream, 10))
	}

	var req UpdateRequest
	if err := json.Unmarshal(msg.Data(), &req); err != nil {
		slog.Warn("rejecting malformed queue message", "subject", msg.Subject(), "error", err)
		c.rec.IncQueueMessages("rejected")
		_ = msg.Term()
		return
	}

	if err := c.service.Enqueue(ctx, &req); err != nil {
		c.rec.IncQueueMessages("failed")
		if errors.IsRetryable(err) {
			slog.Warn("update failed, message will be redelivered",
				"doc_id", req.DocID, "error", err)
			_ = msg.Nak()
			return
		}
		slog.Error("update failed permanently", "doc_id", req.DocID, "error", err)
		_ = msg.Term()
		return
	}

	c.rec.IncQueueMessages("processed")
	_ = msg.Ack()
}

// Close stops consumption and closes the connection. Safe to call more than
// once; the daemon closes the consumer before draining stacks so no message
// is acked into a stack that will never flush.
func (c *Consumer) Close() error {
	if c.consumeCtx != nil {
		c.consumeCtx.Stop()
		c.consumeCtx = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	return nil
}
