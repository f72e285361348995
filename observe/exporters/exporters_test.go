package exporters

import (
	"context"
	"testing"
)

func TestNewTracingExporter_NoneAndEmpty(t *testing.T) {
	for _, name := range []string{"none", ""} {
		exp, err := NewTracingExporter(context.Background(), name)
		if err != nil {
			t.Errorf("NewTracingExporter(%q) error = %v", name, err)
		}
		if exp == nil {
			t.Errorf("NewTracingExporter(%q) = nil", name)
		}
	}
}

func TestNewTracingExporter_Unknown(t *testing.T) {
	if _, err := NewTracingExporter(context.Background(), "zipkin"); err == nil {
		t.Error("NewTracingExporter(zipkin) should error")
	}
}

func TestNewTracingExporter_OTLPRequiresEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "")

	if _, err := NewTracingExporter(context.Background(), "otlp"); err == nil {
		t.Error("NewTracingExporter(otlp) without endpoint should error")
	}
}

func TestNewMetricsReader_NoneAndEmpty(t *testing.T) {
	for _, name := range []string{"none", ""} {
		reader, err := NewMetricsReader(context.Background(), name)
		if err != nil {
			t.Errorf("NewMetricsReader(%q) error = %v", name, err)
		}
		if reader == nil {
			t.Errorf("NewMetricsReader(%q) = nil", name)
		}
	}
}

func TestNewMetricsReader_Prometheus(t *testing.T) {
	reader, err := NewMetricsReader(context.Background(), "prometheus")
	if err != nil {
		t.Fatalf("NewMetricsReader(prometheus) error = %v", err)
	}
	if reader == nil {
		t.Fatal("NewMetricsReader(prometheus) = nil")
	}
}

func TestNewMetricsReader_Unknown(t *testing.T) {
	if _, err := NewMetricsReader(context.Background(), "statsd"); err == nil {
		t.Error("NewMetricsReader(statsd) should error")
	}
}
