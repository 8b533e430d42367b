package pipeline

import (
	"time"

	"github.com/ProVishP/protegrity-developer-edition-trial-center/pkg/domain"
	"github.com/ProVishP/protegrity-developer-edition-trial-center/pkg/guardrail"
	"github.com/ProVishP/protegrity-developer-edition-trial-center/pkg/sanitize"
)

// Report collects the outcome of one pipeline run. Sanitization results
// keep their raw text out of serialized form; renderers go through
// SafeText and DisplayText on each result.
type Report struct {
	ID        string                `json:"id"`
	Mode      domain.PipelineMode   `json:"mode"`
	Domain    domain.SemanticDomain `json:"domain,omitempty"`
	StartedAt time.Time             `json:"started_at"`
	Duration  time.Duration         `json:"duration_ns"`

	Guardrail      *guardrail.Result `json:"guardrail,omitempty"`
	GuardrailError string            `json:"guardrail_error,omitempty"`

	Discovery *sanitize.Result `json:"discovery,omitempty"`
	Protect   *sanitize.Result `json:"protect,omitempty"`
	Redact    *sanitize.Result `json:"redact,omitempty"`
}

// DiscoverySource returns the result whose entity findings describe the
// prompt: the dedicated discovery pass when one ran, otherwise the
// protect result, otherwise the redact result.
func (r *Report) DiscoverySource() *sanitize.Result {
	switch {
	case r.Discovery != nil:
		return r.Discovery
	case r.Protect != nil:
		return r.Protect
	case r.Redact != nil:
		return r.Redact
	}
	return nil
}

// Succeeded reports whether every step that ran finished without error.
func (r *Report) Succeeded() bool {
	if r.GuardrailError != "" {
		return false
	}
	for _, res := range []*sanitize.Result{r.Discovery, r.Protect, r.Redact} {
		if res != nil && !res.Succeeded() {
			return false
		}
	}
	if r.Protect != nil && r.Protect.UnprotectError != "" {
		return false
	}
	return true
}

// FirstError returns the first step error in pipeline order, or nil.
func (r *Report) FirstError() error {
	for _, res := range []*sanitize.Result{r.Discovery, r.Protect, r.Redact} {
		if res != nil && res.Err != nil {
			return res.Err
		}
	}
	return nil
}
