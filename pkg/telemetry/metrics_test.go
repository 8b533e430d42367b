package telemetry

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestRecordStepMetrics(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	prev := otel.GetMeterProvider()
	otel.SetMeterProvider(provider)
	t.Cleanup(func() {
		otel.SetMeterProvider(prev)
	})

	ResetMetricsForTest()

	RecordStepMetrics(ctx, StepMetrics{
		Mode:     "full",
		Step:     "protect",
		Domain:   "financial",
		Outcome:  OutcomeCredentialError,
		Duration: 150 * time.Millisecond,
	})

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("collect metrics: %v", err)
	}

	metrics := map[string]metricdata.Metrics{}
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			metrics[m.Name] = m
		}
	}

	execMetric, ok := metrics["trialcenter.step.executions_total"]
	if !ok {
		t.Fatalf("missing executions metric")
	}
	execData, ok := execMetric.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("unexpected data type for executions metric")
	}
	if len(execData.DataPoints) != 1 || execData.DataPoints[0].Value != 1 {
		t.Fatalf("expected one execution datapoint with value 1, got %+v", execData.DataPoints)
	}

	failMetric, ok := metrics["trialcenter.step.failures_total"]
	if !ok {
		t.Fatalf("missing failures metric")
	}
	failData, ok := failMetric.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("unexpected data type for failures metric")
	}
	if len(failData.DataPoints) != 1 || failData.DataPoints[0].Value != 1 {
		t.Fatalf("expected failure counter increment, got %+v", failData.DataPoints)
	}

	if _, ok := metrics["trialcenter.step.duration_ms"]; !ok {
		t.Fatalf("missing latency histogram")
	}
}

func TestRecordStepMetricsSuccessDoesNotCountFailure(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	prev := otel.GetMeterProvider()
	otel.SetMeterProvider(provider)
	t.Cleanup(func() {
		otel.SetMeterProvider(prev)
	})

	ResetMetricsForTest()

	RecordStepMetrics(ctx, StepMetrics{
		Mode:    "redact",
		Step:    "redact",
		Domain:  "healthcare",
		Outcome: OutcomeSuccess,
	})

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("collect metrics: %v", err)
	}

	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != "trialcenter.step.failures_total" {
				continue
			}
			data, ok := m.Data.(metricdata.Sum[int64])
			if ok && len(data.DataPoints) > 0 {
				t.Fatalf("success outcome must not increment failures, got %+v", data.DataPoints)
			}
		}
	}
}
