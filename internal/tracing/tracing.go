// Package tracing records one span per shell session and one child span per
// dispatched command. Until Init is called the global no-op provider is in
// place and spans cost nothing.
package tracing

import (
	"context"
	"io"
	"os"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/rgill02/crust"

// Span names and attribute keys
const (
	SessionSpan = "session"
	CommandSpan = "command "

	AttrSessionID   = attribute.Key("session.id")
	AttrRemote      = attribute.Key("session.remote")
	AttrCommandName = attribute.Key("command.name")
	AttrCommandLine = attribute.Key("command.line")
)

var (
	setup    sync.Once
	setupErr error
	provider *sdktrace.TracerProvider
	sink     io.Closer
)

// Init exports spans as JSON to file, or to os.Stdout when file is empty.
// Only the first successful call installs a provider.
func Init(service, version, file string) error {
	var w io.Writer = os.Stdout
	if file != "" {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return err
		}
		w, sink = f, f
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return err
	}
	return InitWithExporter(service, version, exporter)
}

// InitWithExporter installs a provider that hands every ended span to
// exporter synchronously
func InitWithExporter(service, version string, exporter sdktrace.SpanExporter) error {
	if exporter == nil {
		return nil
	}
	setup.Do(func() {
		res, err := resource.New(context.Background(), resource.WithAttributes(
			attribute.String("service.name", service),
			attribute.String("service.version", version),
		))
		if err != nil {
			setupErr = err
			return
		}
		provider = sdktrace.NewTracerProvider(
			sdktrace.WithResource(res),
			sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)),
		)
		otel.SetTracerProvider(provider)
	})
	return setupErr
}

// Shutdown flushes pending spans and closes the file given to Init
func Shutdown(ctx context.Context) error {
	if provider == nil {
		return nil
	}
	err := provider.Shutdown(ctx)
	if sink != nil {
		if closeErr := sink.Close(); err == nil {
			err = closeErr
		}
	}
	return err
}

// Span is an open session or command span. A nil *Span records nothing.
type Span struct {
	span trace.Span
}

// StartSession opens the span of session id, served to remote. Command
// spans started from the returned context become its children.
func StartSession(ctx context.Context, id, remote string) (context.Context, *Span) {
	return start(ctx, SessionSpan, trace.SpanKindServer,
		AttrSessionID.String(id),
		AttrRemote.String(remote),
	)
}

// StartCommand opens the span of one dispatched command line
func StartCommand(ctx context.Context, sessionID, name, line string) *Span {
	_, sp := start(ctx, CommandSpan+name, trace.SpanKindInternal,
		AttrSessionID.String(sessionID),
		AttrCommandName.String(name),
		AttrCommandLine.String(line),
	)
	return sp
}

func start(ctx context.Context, name string, kind trace.SpanKind, attrs ...attribute.KeyValue) (context.Context, *Span) {
	ctx, span := otel.Tracer(instrumentationName).Start(ctx, name,
		trace.WithSpanKind(kind),
		trace.WithAttributes(attrs...),
	)
	return ctx, &Span{span: span}
}

// End sets the span status from err and finishes the span
func (s *Span) End(err error) {
	if s == nil {
		return
	}
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	} else {
		s.span.SetStatus(codes.Ok, "")
	}
	s.span.End()
}
