package pubsub_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/nfrund/quorum/internal/pubsub"
)

func newRecordingTracer(t *testing.T) (*tracetest.InMemoryExporter, *sdktrace.TracerProvider) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { tp.Shutdown(context.Background()) })
	return exporter, tp
}

func spanNames(exporter *tracetest.InMemoryExporter) []string {
	var names []string
	for _, s := range exporter.GetSpans() {
		names = append(names, s.Name)
	}
	return names
}

func TestTracingWrapsPublishAndProcess(t *testing.T) {
	exporter, tp := newRecordingTracer(t)
	tracer := tp.Tracer("test")

	bridge := pubsub.NewWatermillBridge()
	t.Cleanup(func() { bridge.Close() })

	pub := pubsub.NewTracingPublisher(bridge, tracer)
	sub := pubsub.NewTracingSubscriber(bridge, tracer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan pubsub.Message, 1)
	require.NoError(t, sub.Subscribe(ctx, "traced.topic", func(ctx context.Context, msg pubsub.Message) error {
		received <- msg
		return nil
	}))

	require.NoError(t, pub.Publish(ctx, pubsub.Message{Topic: "traced.topic", Payload: []byte(`{}`)}))

	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("message never arrived")
	}

	require.Eventually(t, func() bool {
		return len(exporter.GetSpans()) >= 2
	}, 2*time.Second, 10*time.Millisecond)

	names := spanNames(exporter)
	assert.Contains(t, names, "pubsub.publish.traced.topic")
	assert.Contains(t, names, "pubsub.process.traced.topic")
}

func TestTracingRecordsHandlerError(t *testing.T) {
	exporter, tp := newRecordingTracer(t)
	tracer := tp.Tracer("test")

	bridge := pubsub.NewWatermillBridge()
	t.Cleanup(func() { bridge.Close() })

	sub := pubsub.NewTracingSubscriber(bridge, tracer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handled := make(chan struct{}, 1)
	require.NoError(t, sub.Subscribe(ctx, "failing.topic", func(ctx context.Context, msg pubsub.Message) error {
		select {
		case handled <- struct{}{}:
		default:
		}
		return errors.New("handler exploded")
	}))

	require.NoError(t, bridge.Publish(ctx, pubsub.Message{Topic: "failing.topic", Payload: []byte(`{}`)}))

	select {
	case <-handled:
	case <-time.After(2 * time.Second):
		t.Fatal("handler never ran")
	}

	require.Eventually(t, func() bool {
		for _, s := range exporter.GetSpans() {
			if s.Name == "pubsub.process.failing.topic" && len(s.Events) > 0 {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond, "handler error must be recorded on the span")
}

func TestSetupTracingDisabledReturnsNoop(t *testing.T) {
	tracer, cleanup, err := pubsub.SetupTracing(context.Background(), pubsub.DefaultTracingConfig())
	require.NoError(t, err)
	require.NotNil(t, tracer)
	cleanup()
}
