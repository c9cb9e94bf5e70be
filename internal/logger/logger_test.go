package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextFieldsPropagate(t *testing.T) {
	var buf bytes.Buffer
	l := New(&Config{Level: "debug", Format: "json", Output: &buf, ServiceName: "gallery-test"})

	ctx := l.WithContext(context.Background())
	ctx = SetPhotoID(ctx, "p-1")
	ctx = SetRequestID(ctx, "r-1")

	CtxInfo(ctx, "enriched %s", "p-1")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "enriched p-1", line["message"])
	assert.Equal(t, "p-1", line[FieldPhotoID])
	assert.Equal(t, "r-1", line[FieldRequestID])
	assert.Equal(t, "gallery-test", line["service"])

	assert.Equal(t, "p-1", GetFieldString(ctx, FieldPhotoID))
	assert.Equal(t, "r-1", GetRequestID(ctx))
}

func TestEntryMetricFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(&Config{Level: "info", Format: "json", Output: &buf})
	ctx := l.WithContext(context.Background())

	With(Fields{FieldCount: 3}).WithDuration(42).Info(ctx, "done")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.EqualValues(t, 3, line[FieldCount])
	assert.EqualValues(t, 42, line[FieldDurationMs])
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	assert.Same(t, GetDefault(), FromContext(context.Background()))
}
