package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	metricsOnce          sync.Once
	metricsInitErr       error
	stepExecutionCounter metric.Int64Counter
	stepFailureCounter   metric.Int64Counter
	stepLatencyHistogram metric.Float64Histogram
)

// StepOutcome classifies how a pipeline step finished.
type StepOutcome string

const (
	OutcomeSuccess         StepOutcome = "success"
	OutcomeCredentialError StepOutcome = "credential_or_auth_failure"
	OutcomeTransportError  StepOutcome = "transport_failure"
	OutcomeCallerError     StepOutcome = "caller_input_error"
)

// StepMetrics captures the fields needed to record one pipeline step.
type StepMetrics struct {
	Mode     string
	Step     string
	Domain   string
	Outcome  StepOutcome
	Duration time.Duration
}

// RecordStepMetrics emits counters and a latency histogram describing a
// pipeline step execution. Attribute values carry only coarse labels;
// prompt content and discovered values are never attached.
func RecordStepMetrics(ctx context.Context, metrics StepMetrics) {
	if err := ensureMetrics(); err != nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("pipeline.mode", metrics.Mode),
		attribute.String("pipeline.step", metrics.Step),
		attribute.String("pipeline.domain", metrics.Domain),
		attribute.String("pipeline.outcome", string(metrics.Outcome)),
	}

	stepExecutionCounter.Add(ctx, 1, metric.WithAttributes(attrs...))

	if metrics.Duration > 0 {
		stepLatencyHistogram.Record(ctx, float64(metrics.Duration)/float64(time.Millisecond), metric.WithAttributes(attrs...))
	}

	if metrics.Outcome != OutcomeSuccess {
		stepFailureCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

func ensureMetrics() error {
	metricsOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter("trialcenter.pipeline")

		stepExecutionCounter, metricsInitErr = meter.Int64Counter(
			"trialcenter.step.executions_total",
			metric.WithDescription("Pipeline step executions partitioned by outcome"),
			metric.WithUnit("{count}"),
		)
		if metricsInitErr != nil {
			return
		}

		stepFailureCounter, metricsInitErr = meter.Int64Counter(
			"trialcenter.step.failures_total",
			metric.WithDescription("Pipeline step failures partitioned by error category"),
			metric.WithUnit("{count}"),
		)
		if metricsInitErr != nil {
			return
		}

		stepLatencyHistogram, metricsInitErr = meter.Float64Histogram(
			"trialcenter.step.duration_ms",
			metric.WithDescription("Observed pipeline step latency"),
			metric.WithUnit("ms"),
		)
	})

	return metricsInitErr
}
