package otel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestNewProviders_EmptyEndpoint(t *testing.T) {
	ctx := context.Background()
	for _, endpoint := range []string{"", "   "} {
		providers, err := NewProviders(ctx, endpoint, "test-service", false, nil)
		require.NoError(t, err)
		assert.NotNil(t, providers.TracerProvider)
		assert.NotNil(t, providers.MeterProvider)
		assert.NotNil(t, providers.LoggerProvider)
		assert.NoError(t, providers.Shutdown(ctx))
		assert.NoError(t, providers.Shutdown(ctx), "shutdown is repeatable")
	}
}

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		override bool
		want     Endpoint
	}{
		{"localhost:4317", false, Endpoint{"localhost:4317", true}},
		{"http://localhost:4317", false, Endpoint{"localhost:4317", true}},
		{"http://localhost:4317/v1/traces", false, Endpoint{"localhost:4317", true}},
		{"https://collector:4317", false, Endpoint{"collector:4317", false}},
		{"https://collector:4317", true, Endpoint{"collector:4317", true}},
	}
	for _, tt := range tests {
		got, err := ParseEndpoint(tt.endpoint, tt.override)
		require.NoError(t, err, tt.endpoint)
		assert.Equal(t, tt.want, got, tt.endpoint)
	}
}

func TestParseEndpoint_Invalid(t *testing.T) {
	for _, endpoint := range []string{"://invalid", "http://[invalid", "http://"} {
		_, err := ParseEndpoint(endpoint, false)
		assert.Error(t, err, endpoint)
		_, err = NewProviders(context.Background(), endpoint, "test-service", false, nil)
		assert.Error(t, err, endpoint)
	}
}

func TestSetGlobal(t *testing.T) {
	ctx := context.Background()
	providers, err := NewProviders(ctx, "", "test-service", false, nil)
	require.NoError(t, err)

	oldTP, oldMP, oldProp := otel.GetTracerProvider(), otel.GetMeterProvider(), otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(oldTP)
		otel.SetMeterProvider(oldMP)
		otel.SetTextMapPropagator(oldProp)
	})

	providers.SetGlobal()
	assert.Equal(t, providers.TracerProvider, otel.GetTracerProvider())
	assert.Equal(t, providers.MeterProvider, otel.GetMeterProvider())
	assert.Contains(t, otel.GetTextMapPropagator().Fields(), "traceparent")
}

func TestSetGlobal_PartialProviders(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	oldTP, oldMP := otel.GetTracerProvider(), otel.GetMeterProvider()
	t.Cleanup(func() {
		otel.SetTracerProvider(oldTP)
		otel.SetMeterProvider(oldMP)
	})

	(&Providers{TracerProvider: tp}).SetGlobal()
	assert.Equal(t, tp, otel.GetTracerProvider())
	assert.Equal(t, oldMP, otel.GetMeterProvider(), "nil MeterProvider leaves the global alone")
}
