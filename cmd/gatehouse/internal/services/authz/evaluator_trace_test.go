package authz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/auth"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/policy"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/telemetry"
)

func TestEvaluate_SpanAttributes(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() {
		otel.SetTracerProvider(previous)
		_ = provider.Shutdown(context.Background())
	})

	e := newTestEvaluator(nil)
	rc := requestContext(principal(auth.RoleCreator))
	_, err := e.Evaluate(context.Background(), rc, policy.CreatorGated(), nil)
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "authz.Evaluate", spans[0].Name())

	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range spans[0].Attributes() {
		attrs[kv.Key] = kv.Value
	}
	assert.Equal(t, "203.0.113.7", attrs[telemetry.AttrClientIP].AsString())
	assert.Equal(t, policy.CreatorGated().RateLimitPreset, attrs[telemetry.AttrPolicyPreset].AsString())
	assert.False(t, attrs[telemetry.AttrTrustedCaller].AsBool())
	assert.Equal(t, "creator", attrs[telemetry.AttrPrincipalRole].AsString())
	assert.True(t, attrs[telemetry.AttrPolicyAllowed].AsBool())
}
