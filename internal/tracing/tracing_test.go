package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func attr(attrs []attribute.KeyValue, key attribute.Key) string {
	for _, kv := range attrs {
		if kv.Key == key {
			return kv.Value.AsString()
		}
	}
	return ""
}

func TestSessionAndCommandSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	require.NoError(t, InitWithExporter("crust-test", "0.0.0", exporter))

	ctx, session := StartSession(context.Background(), "s-1", "127.0.0.1:5000")
	StartCommand(ctx, "s-1", "ls", "ls -l").End(nil)
	StartCommand(ctx, "s-1", "cp", "cp a").End(errors.New("cp: requires at least 2 arguments"))
	session.End(nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 3)

	tests := []struct {
		name     string
		span     tracetest.SpanStub
		kind     trace.SpanKind
		status   codes.Code
		detail   string
		sessions string
		line     string
	}{
		{name: "command ls", span: spans[0], kind: trace.SpanKindInternal, status: codes.Ok, sessions: "s-1", line: "ls -l"},
		{name: "command cp", span: spans[1], kind: trace.SpanKindInternal, status: codes.Error, detail: "cp: requires at least 2 arguments", sessions: "s-1", line: "cp a"},
		{name: "session", span: spans[2], kind: trace.SpanKindServer, status: codes.Ok, sessions: "s-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.span.Name)
			assert.Equal(t, tt.kind, tt.span.SpanKind)
			assert.Equal(t, tt.status, tt.span.Status.Code)
			assert.Equal(t, tt.detail, tt.span.Status.Description)
			assert.Equal(t, tt.sessions, attr(tt.span.Attributes, AttrSessionID))
			assert.Equal(t, tt.line, attr(tt.span.Attributes, AttrCommandLine))
		})
	}

	assert.Equal(t, "127.0.0.1:5000", attr(spans[2].Attributes, AttrRemote))
	assert.Equal(t, spans[2].SpanContext.SpanID(), spans[0].Parent.SpanID(), "command spans are children of the session span")
	assert.Equal(t, spans[2].SpanContext.SpanID(), spans[1].Parent.SpanID())

	require.NoError(t, Shutdown(context.Background()))
}

func TestNilSpan(t *testing.T) {
	var sp *Span
	sp.End(errors.New("ignored"))
}
