// Package tracing installs the OpenTelemetry tracer provider and offers the
// span helpers the application services use.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/aonawunmi/New-MinRisk-sub016/internal/config"
	apperrors "github.com/aonawunmi/New-MinRisk-sub016/pkg/errors"
)

const instrumentationName = "github.com/aonawunmi/New-MinRisk-sub016"

// Shutdown flushes and stops the provider.
type Shutdown func(ctx context.Context) error

// Setup installs a global tracer provider. When tracing is disabled the
// no-op global provider is left in place.
func Setup(cfg config.TracingConfig) (Shutdown, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
		sdktrace.WithResource(resource.NewWithAttributes(semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName))),
	}
	switch cfg.Exporter {
	case "stdout":
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "create stdout trace exporter")
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
	case "", "none":
	default:
		return nil, apperrors.NewValidation("unknown tracing exporter %q", cfg.Exporter)
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	return tp.Shutdown, nil
}

// Start opens a span on the global provider.
func Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// End records err on the span, tagging the application error code, and
// closes it. Pass the named error return of the traced function.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if code := apperrors.GetCode(err); code != apperrors.CodeUnknown {
			span.SetAttributes(attribute.String("error.code", code.String()))
		}
	}
	span.End()
}

// Org and RiskCode are the attribute keys shared by every service span.
func Org(id string) attribute.KeyValue { return attribute.String("minrisk.organization_id", id) }

func RiskCode(code string) attribute.KeyValue { return attribute.String("minrisk.risk_code", code) }

//Personal.AI order the ending
