package telemetry

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/enzyme/peek/internal/config"
)

func TestSetup_Disabled(t *testing.T) {
	before := otel.GetTracerProvider()

	shutdown, err := Setup(context.Background(), config.TelemetryConfig{Enabled: false})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
	if otel.GetTracerProvider() != before {
		t.Error("disabled telemetry replaced the global tracer provider")
	}
}

func TestSetup_InstallsProviders(t *testing.T) {
	for _, protocol := range []string{"http", "grpc"} {
		t.Run(protocol, func(t *testing.T) {
			shutdown, err := Setup(context.Background(), config.TelemetryConfig{
				Enabled:     true,
				Protocol:    protocol,
				Endpoint:    "127.0.0.1:4318",
				Insecure:    true,
				ServiceName: "peek-test",
			})
			if err != nil {
				t.Fatalf("Setup: %v", err)
			}

			if _, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider); !ok {
				t.Errorf("tracer provider = %T", otel.GetTracerProvider())
			}

			// Nothing listens on the endpoint, so a final flush may fail.
			ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
			defer cancel()
			_ = shutdown(ctx)
		})
	}
}
