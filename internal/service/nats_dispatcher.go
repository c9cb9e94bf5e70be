package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/timmy/gallery/internal/domain"
	"github.com/timmy/gallery/internal/logger"
	"go.opentelemetry.io/otel"
)

// natsHeaderCarrier adapts nats.Msg headers for OTel TextMapCarrier.
type natsHeaderCarrier nats.Msg

func (c *natsHeaderCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *natsHeaderCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *natsHeaderCarrier) Keys() []string {
	if c.Header == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}

// NATSDispatcher publishes enrichment jobs to a NATS subject so any process
// in the consumer queue group can run them.
type NATSDispatcher struct {
	conn    *nats.Conn
	subject string
	queue   string

	sub *nats.Subscription
}

// NewNATSDispatcher creates a dispatcher publishing on subject. queue is the
// queue group used by Consume.
func NewNATSDispatcher(conn *nats.Conn, subject, queue string) *NATSDispatcher {
	return &NATSDispatcher{conn: conn, subject: subject, queue: queue}
}

// Dispatch publishes job as JSON with the trace context in the headers.
func (d *NATSDispatcher) Dispatch(ctx context.Context, job domain.EnrichJob) error {
	msg, err := encodeJobMsg(ctx, d.subject, job)
	if err != nil {
		return err
	}
	if err := d.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish enrichment job: %w", err)
	}
	return nil
}

// Consume queue-subscribes to the job subject and hands every job to local.
// A job the local dispatcher refuses is logged and dropped; the photo stays
// in a retryable status.
func (d *NATSDispatcher) Consume(local Dispatcher) error {
	sub, err := d.conn.QueueSubscribe(d.subject, d.queue, func(msg *nats.Msg) {
		ctx, job, err := decodeJobMsg(msg)
		if err != nil {
			logger.Warn("Dropping malformed enrichment job on %s: %v", msg.Subject, err)
			return
		}
		if err := local.Dispatch(ctx, job); err != nil {
			entry := logger.With(logger.Fields{logger.FieldPhotoID: job.PhotoID})
			if errors.Is(err, ErrQueueFull) {
				entry.Warn(ctx, "Enrichment queue full, job dropped")
				return
			}
			entry.Error(ctx, "Failed to hand off enrichment job: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", d.subject, err)
	}
	d.sub = sub
	return nil
}

// Close drains the consumer subscription, if any.
func (d *NATSDispatcher) Close() error {
	if d.sub == nil {
		return nil
	}
	return d.sub.Drain()
}

func encodeJobMsg(ctx context.Context, subject string, job domain.EnrichJob) (*nats.Msg, error) {
	data, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("encode enrichment job: %w", err)
	}
	msg := &nats.Msg{Subject: subject, Data: data}
	otel.GetTextMapPropagator().Inject(ctx, (*natsHeaderCarrier)(msg))
	return msg, nil
}

func decodeJobMsg(msg *nats.Msg) (context.Context, domain.EnrichJob, error) {
	var job domain.EnrichJob
	if err := json.Unmarshal(msg.Data, &job); err != nil {
		return nil, job, err
	}
	if job.PhotoID == "" {
		return nil, job, errors.New("missing photo_id")
	}
	ctx := otel.GetTextMapPropagator().Extract(context.Background(), (*natsHeaderCarrier)(msg))
	if job.RequestID != "" {
		ctx = logger.SetRequestID(ctx, job.RequestID)
	}
	return ctx, job, nil
}
