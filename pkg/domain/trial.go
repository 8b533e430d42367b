package domain

import (
	"fmt"
	"strings"
)

// SemanticDomain selects which industry model the guardrail service uses
// to evaluate a prompt. The set is owned by the remote service.
type SemanticDomain string

const (
	DomainCustomerSupport SemanticDomain = "customer-support"
	DomainFinancial       SemanticDomain = "financial"
	DomainHealthcare      SemanticDomain = "healthcare"
)

// SemanticDomains lists every recognised semantic domain.
func SemanticDomains() []SemanticDomain {
	return []SemanticDomain{DomainCustomerSupport, DomainFinancial, DomainHealthcare}
}

// ParseSemanticDomain validates a caller-supplied domain. Unknown values
// are a caller error; nothing is defaulted silently.
func ParseSemanticDomain(s string) (SemanticDomain, error) {
	for _, d := range SemanticDomains() {
		if SemanticDomain(s) == d {
			return d, nil
		}
	}
	return "", fmt.Errorf("%w: unknown semantic domain %q (valid: %s)",
		ErrCallerInput, s, joinDomains(SemanticDomains()))
}

func joinDomains(domains []SemanticDomain) string {
	names := make([]string, len(domains))
	for i, d := range domains {
		names[i] = string(d)
	}
	return strings.Join(names, ", ")
}

// SanitizeMethod selects the transformation applied to discovered
// sensitive data.
type SanitizeMethod string

const (
	// MethodProtect replaces sensitive values with reversible tokens.
	// Requires Developer Edition credentials.
	MethodProtect SanitizeMethod = "protect"
	// MethodRedact irreversibly masks sensitive values. No credential
	// dependency.
	MethodRedact SanitizeMethod = "redact"
)

// PipelineMode names one of the five selectable operation subsets. Each
// mode runs its steps in the fixed order guardrail → discovery →
// protect → unprotect → redact.
type PipelineMode string

const (
	ModeFull      PipelineMode = "full"
	ModeGuardrail PipelineMode = "guardrail"
	ModeDiscover  PipelineMode = "discover"
	ModeProtect   PipelineMode = "protect"
	ModeRedact    PipelineMode = "redact"
)

// ParsePipelineMode validates a caller-supplied mode.
func ParsePipelineMode(s string) (PipelineMode, error) {
	switch PipelineMode(s) {
	case ModeFull, ModeGuardrail, ModeDiscover, ModeProtect, ModeRedact:
		return PipelineMode(s), nil
	default:
		return "", fmt.Errorf("%w: unknown pipeline mode %q", ErrCallerInput, s)
	}
}

// RunsGuardrail reports whether the mode includes guardrail evaluation.
func (m PipelineMode) RunsGuardrail() bool {
	return m == ModeFull || m == ModeGuardrail
}

// RunsDiscovery reports whether the mode includes entity discovery.
func (m PipelineMode) RunsDiscovery() bool {
	return m == ModeFull || m == ModeDiscover || m == ModeProtect || m == ModeRedact
}

// RunsProtect reports whether the mode includes protect + unprotect.
func (m PipelineMode) RunsProtect() bool {
	return m == ModeFull || m == ModeProtect
}

// RunsRedact reports whether the mode includes redaction.
func (m PipelineMode) RunsRedact() bool {
	return m == ModeFull || m == ModeRedact
}
