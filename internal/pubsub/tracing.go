package pubsub

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// TracingConfig holds configuration for OpenTelemetry tracing.
type TracingConfig struct {
	Enabled     bool   // Whether tracing is enabled
	ServiceName string // Service name for traces
	ZipkinURL   string // Zipkin exporter URL
}

// DefaultTracingConfig returns a default tracing configuration.
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		Enabled:     false, // Disabled by default
		ServiceName: "quorum",
		ZipkinURL:   "http://localhost:9411/api/v2/spans",
	}
}

// SetupTracing initializes OpenTelemetry with a Zipkin exporter so the
// domain event flow through the bus can be traced end to end. If
// config.Enabled is false, returns a no-op tracer.
func SetupTracing(ctx context.Context, config TracingConfig) (trace.Tracer, func(), error) {
	if !config.Enabled {
		tracer := noop.NewTracerProvider().Tracer("quorum-pubsub")
		cleanup := func() {}
		return tracer, cleanup, nil
	}

	exporter, err := zipkin.New(config.ZipkinURL)
	if err != nil {
		return nil, nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(config.ServiceName),
			semconv.ServiceVersionKey.String("1.0.0"),
		),
	)
	if err != nil {
		return nil, nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	cleanup := func() {
		if err := tp.Shutdown(ctx); err != nil {
			panic(err)
		}
	}

	return tp.Tracer("quorum-pubsub"), cleanup, nil
}

// TracingPublisher wraps a Publisher so every publish is recorded as a
// span carrying the topic and payload size.
type TracingPublisher struct {
	pub    Publisher
	tracer trace.Tracer
}

// NewTracingPublisher creates a publisher that traces each publish.
func NewTracingPublisher(pub Publisher, tracer trace.Tracer) *TracingPublisher {
	return &TracingPublisher{pub: pub, tracer: tracer}
}

// Publish implements the Publisher interface.
func (p *TracingPublisher) Publish(ctx context.Context, msg Message) error {
	ctx, span := p.tracer.Start(ctx, "pubsub.publish."+msg.Topic,
		trace.WithAttributes(
			attribute.String("messaging.system", "watermill"),
			attribute.String("messaging.operation", "publish"),
			attribute.String("messaging.destination", msg.Topic),
			attribute.Int("messaging.message_payload_size_bytes", len(msg.Payload)),
		),
	)
	defer span.End()

	err := p.pub.Publish(ctx, msg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// Close closes the underlying publisher.
func (p *TracingPublisher) Close() error {
	return p.pub.Close()
}

// TracingSubscriber wraps a Subscriber so every handled message is
// recorded as a span, including handler failures.
type TracingSubscriber struct {
	sub    Subscriber
	tracer trace.Tracer
}

// NewTracingSubscriber creates a subscriber that traces message handling.
func NewTracingSubscriber(sub Subscriber, tracer trace.Tracer) *TracingSubscriber {
	return &TracingSubscriber{sub: sub, tracer: tracer}
}

// Subscribe implements the Subscriber interface.
func (s *TracingSubscriber) Subscribe(ctx context.Context, topic string, handler Handler) error {
	return s.sub.Subscribe(ctx, topic, func(ctx context.Context, msg Message) error {
		ctx, span := s.tracer.Start(ctx, "pubsub.process."+topic,
			trace.WithAttributes(
				attribute.String("messaging.system", "watermill"),
				attribute.String("messaging.operation", "process"),
				attribute.String("messaging.destination", topic),
				attribute.Int("messaging.message_payload_size_bytes", len(msg.Payload)),
			),
		)
		defer span.End()

		if err := handler(ctx, msg); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		return nil
	})
}

// Close closes the underlying subscriber.
func (s *TracingSubscriber) Close() error {
	return s.sub.Close()
}
