package telemetry

import (
	"context"
	"testing"
	"time"
)

func TestParseEndpoint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		want    Endpoint
		wantErr bool
	}{
		{name: "host and port", raw: "localhost:4318", want: Endpoint{Host: "localhost:4318", Insecure: true}},
		{name: "http url", raw: "http://collector:4318", want: Endpoint{Host: "collector:4318", Insecure: true}},
		{name: "https url with path", raw: "https://otel.example/v1/traces/", want: Endpoint{Host: "otel.example", Path: "/v1/traces"}},
		{name: "empty", raw: "  ", wantErr: true},
		{name: "bad scheme", raw: "grpc://collector:4317", wantErr: true},
		{name: "no host", raw: "https:///v1/traces", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseEndpoint(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseEndpoint(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseEndpoint(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestInitTracer(t *testing.T) {
	tests := []struct {
		name        string
		serviceName string
		endpoint    string
		wantErr     bool
	}{
		{name: "valid configuration", serviceName: "civiz-api", endpoint: "localhost:4318"},
		{name: "url endpoint", serviceName: "civiz-api", endpoint: "http://localhost:4318"},
		{name: "empty service name", serviceName: "", endpoint: "localhost:4318"},
		{name: "missing endpoint", serviceName: "civiz-api", endpoint: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			tp, err := InitTracer(ctx, tt.serviceName, tt.endpoint)
			if (err != nil) != tt.wantErr {
				t.Fatalf("InitTracer() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err := Shutdown(ctx, tp); err != nil {
				t.Errorf("Shutdown() error = %v", err)
			}
		})
	}
}

func TestShutdownNil(t *testing.T) {
	t.Parallel()

	if err := Shutdown(context.Background(), nil); err != nil {
		t.Errorf("Shutdown(nil) = %v, want nil", err)
	}
}
