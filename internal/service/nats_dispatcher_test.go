package service

import (
	"context"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/gallery/internal/domain"
	"github.com/timmy/gallery/internal/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestJobMsgRoundTrip(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	defer otel.SetTextMapPropagator(prev)

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	msg, err := encodeJobMsg(ctx, "gallery.enrich", domain.NewEnrichJob("p1", "req-1"))
	require.NoError(t, err)
	assert.Equal(t, "gallery.enrich", msg.Subject)
	assert.NotEmpty(t, msg.Header.Get("traceparent"))

	gotCtx, job, err := decodeJobMsg(msg)
	require.NoError(t, err)
	assert.Equal(t, "p1", job.PhotoID)
	assert.Equal(t, "req-1", logger.GetRequestID(gotCtx))
	assert.Equal(t, traceID, trace.SpanContextFromContext(gotCtx).TraceID())
}

func TestDecodeJobMsgRejectsBadPayloads(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "not json", data: "photo p1"},
		{name: "missing photo id", data: `{"request_id":"r"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := decodeJobMsg(&nats.Msg{Subject: "gallery.enrich", Data: []byte(tt.data)})
			assert.Error(t, err)
		})
	}
}

func TestNatsHeaderCarrier(t *testing.T) {
	msg := &nats.Msg{}
	c := (*natsHeaderCarrier)(msg)
	assert.Equal(t, "", c.Get("missing"))
	assert.Nil(t, c.Keys())

	c.Set("traceparent", "x")
	assert.Equal(t, "x", c.Get("traceparent"))
	assert.Len(t, c.Keys(), 1)
}
