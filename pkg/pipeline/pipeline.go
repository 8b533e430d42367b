// Package pipeline sequences the Trial Center steps for a selected mode:
// guardrail evaluation, sensitive-data discovery, reversible protection,
// unprotection and redaction, always in that fixed order, one blocking
// call at a time. It owns no scoring or transformation logic; every
// decision comes back verbatim from the remote services.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ProVishP/protegrity-developer-edition-trial-center/pkg/domain"
	"github.com/ProVishP/protegrity-developer-edition-trial-center/pkg/guardrail"
	"github.com/ProVishP/protegrity-developer-edition-trial-center/pkg/sanitize"
	"github.com/ProVishP/protegrity-developer-edition-trial-center/pkg/telemetry"
)

// Evaluator scores a prompt under a semantic domain.
type Evaluator interface {
	Evaluate(ctx context.Context, prompt, domain string) (*guardrail.Result, error)
}

// Unprotector reverses protection tokens back to the original values.
type Unprotector interface {
	Unprotect(ctx context.Context, text string) (string, error)
}

// Runner executes pipeline modes against shared, long-lived clients.
// Construct once per process and reuse; all calls from one session are
// sequential and the clients hold no per-request state.
type Runner struct {
	evaluator   Evaluator
	protect     *sanitize.Sanitizer
	redact      *sanitize.Sanitizer
	unprotector Unprotector
	logger      *slog.Logger
	tracer      trace.Tracer
}

// Config holds the collaborators for a Runner.
type Config struct {
	Evaluator   Evaluator
	Protect     *sanitize.Sanitizer
	Redact      *sanitize.Sanitizer
	Unprotector Unprotector
	Logger      *slog.Logger
}

// NewRunner wires a Runner from its collaborators.
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.Evaluator == nil || cfg.Protect == nil || cfg.Redact == nil || cfg.Unprotector == nil {
		return nil, fmt.Errorf("pipeline: all collaborators are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		evaluator:   cfg.Evaluator,
		protect:     cfg.Protect,
		redact:      cfg.Redact,
		unprotector: cfg.Unprotector,
		logger:      logger,
		tracer:      otel.Tracer("trialcenter.pipeline"),
	}, nil
}

// Run executes one pipeline pass. Caller input is validated before any
// network call; step failures are recorded on the report rather than
// aborting the remaining steps, and never converted into success.
func (r *Runner) Run(ctx context.Context, prompt, rawDomain, rawMode string) (*Report, error) {
	mode, err := domain.ParsePipelineMode(rawMode)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("%w: empty prompt", domain.ErrCallerInput)
	}

	var dom domain.SemanticDomain
	if mode.RunsGuardrail() || rawDomain != "" {
		dom, err = domain.ParseSemanticDomain(rawDomain)
		if err != nil {
			return nil, err
		}
	}

	report := &Report{
		ID:        uuid.NewString(),
		Mode:      mode,
		Domain:    dom,
		StartedAt: time.Now().UTC(),
	}

	ctx, span := r.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("pipeline.mode", string(mode)),
		attribute.String("pipeline.domain", string(dom)),
		attribute.String("report.id", report.ID),
	))
	defer span.End()

	if mode.RunsGuardrail() {
		err := r.runStep(ctx, report, "guardrail", func() error {
			result, err := r.evaluator.Evaluate(ctx, prompt, string(dom))
			if err != nil {
				return err
			}
			report.Guardrail = result
			return nil
		})
		if err != nil {
			report.GuardrailError = err.Error()
		}
	}

	// Protect and redact discover as part of their own pass; a dedicated
	// discovery step runs only when no transform will.
	if mode.RunsDiscovery() && !mode.RunsProtect() && !mode.RunsRedact() {
		err := r.runStep(ctx, report, "discover", func() error {
			report.Discovery = r.protect.Discover(ctx, prompt)
			return report.Discovery.Err
		})
		if err != nil {
			report.Discovery.Err = err
		}
	}

	if mode.RunsProtect() {
		err := r.runStep(ctx, report, "protect", func() error {
			report.Protect = r.protect.Sanitize(ctx, prompt)
			return report.Protect.Err
		})
		if err != nil {
			report.Protect.Err = err
		}

		// Unprotect only runs against trustworthy protected output.
		if report.Protect.Succeeded() {
			err := r.runStep(ctx, report, "unprotect", func() error {
				restored, err := r.unprotector.Unprotect(ctx, report.Protect.Sanitized)
				if err != nil {
					return err
				}
				report.Protect.Unprotected = restored
				return nil
			})
			if err != nil {
				report.Protect.UnprotectError = err.Error()
			}
		}
	}

	if mode.RunsRedact() {
		err := r.runStep(ctx, report, "redact", func() error {
			report.Redact = r.redact.Sanitize(ctx, prompt)
			return report.Redact.Err
		})
		if err != nil {
			report.Redact.Err = err
		}
	}

	report.Duration = time.Since(report.StartedAt)
	r.logger.Info("pipeline run complete",
		"report_id", report.ID,
		"mode", mode,
		"domain", dom,
		"duration", report.Duration,
		"succeeded", report.Succeeded(),
	)

	return report, nil
}

// runStep times one step, records its telemetry and logs failures. A
// failure comes back wrapped with the step name so the report and any
// HTTP error identify where the pipeline broke; the pipeline continues.
func (r *Runner) runStep(ctx context.Context, report *Report, step string, fn func() error) error {
	start := time.Now()
	err := fn()
	if err != nil {
		err = &domain.PipelineError{Step: step, Err: err}
	}
	telemetry.RecordStepMetrics(ctx, telemetry.StepMetrics{
		Mode:     string(report.Mode),
		Step:     step,
		Domain:   string(report.Domain),
		Outcome:  outcomeFor(err),
		Duration: time.Since(start),
	})
	if err != nil {
		r.logger.Warn("pipeline step failed", "report_id", report.ID, "step", step, "error", err)
	}
	return err
}

func outcomeFor(err error) telemetry.StepOutcome {
	switch {
	case err == nil:
		return telemetry.OutcomeSuccess
	case errors.Is(err, domain.ErrCredentialOrAuth):
		return telemetry.OutcomeCredentialError
	case errors.Is(err, domain.ErrCallerInput):
		return telemetry.OutcomeCallerError
	default:
		return telemetry.OutcomeTransportError
	}
}
