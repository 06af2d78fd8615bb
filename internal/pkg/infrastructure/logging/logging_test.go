package logging

import (
	"bytes"
	"context"
	"testing"

	"github.com/matryer/is"
	"github.com/rs/zerolog"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestThatLoggerIsStoredInContext(t *testing.T) {
	is := is.New(t)
	buf := &bytes.Buffer{}

	ctx, _ := NewLoggerWithWriter(context.Background(), buf, "Gas-Monitor", "1.0")
	log := GetFromContext(ctx)
	log.Info().Msg("hello")

	is.True(bytes.Contains(buf.Bytes(), []byte(`"service":"gas-monitor"`)))
	is.True(bytes.Contains(buf.Bytes(), []byte(`"version":"1.0"`)))
}

func TestThatSetLevelFallsBackToInfo(t *testing.T) {
	is := is.New(t)
	defer zerolog.SetGlobalLevel(zerolog.GlobalLevel())

	SetLevel("warn")
	is.Equal(zerolog.GlobalLevel(), zerolog.WarnLevel)

	SetLevel("nonsense")
	is.Equal(zerolog.GlobalLevel(), zerolog.InfoLevel)
}

func TestThatTraceIDIsAddedWhenSpanIsRecording(t *testing.T) {
	is := is.New(t)
	buf := &bytes.Buffer{}
	logger := zerolog.New(buf)

	_, span := sdktrace.NewTracerProvider().Tracer("test").Start(context.Background(), "op")
	defer span.End()

	traceID, ctx, _ := AddTraceIDToLoggerAndStoreInContext(span, logger, context.Background())
	is.True(traceID != "")

	log := GetFromContext(ctx)
	log.Info().Msg("traced")
	is.True(bytes.Contains(buf.Bytes(), []byte(`"traceID":"`+traceID+`"`)))
}

func TestThatNoTraceIDIsAddedWithoutSpan(t *testing.T) {
	is := is.New(t)

	traceID, _, _ := AddTraceIDToLoggerAndStoreInContext(trace.SpanFromContext(context.Background()), zerolog.Nop(), context.Background())
	is.Equal(traceID, "")
}
