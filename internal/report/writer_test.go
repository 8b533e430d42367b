package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ProVishP/protegrity-developer-edition-trial-center/pkg/domain"
	"github.com/ProVishP/protegrity-developer-edition-trial-center/pkg/guardrail"
	"github.com/ProVishP/protegrity-developer-edition-trial-center/pkg/pipeline"
	"github.com/ProVishP/protegrity-developer-edition-trial-center/pkg/sanitize"
)

func TestParseFormat(t *testing.T) {
	for _, raw := range []string{"json", " JSON ", "text", "Text"} {
		_, err := ParseFormat(raw)
		assert.NoError(t, err, raw)
	}
	_, err := ParseFormat("yaml")
	require.ErrorIs(t, err, domain.ErrCallerInput)
}

func TestJSONOutputMasksTokenPayloads(t *testing.T) {
	rep := &pipeline.Report{
		ID:       "r1",
		Mode:     domain.ModeProtect,
		Duration: 40 * time.Millisecond,
		Protect: &sanitize.Result{
			Method:      domain.MethodProtect,
			Original:    "call 555-0147",
			Sanitized:   "call [TOKEN]x9Qf21[/TOKEN]",
			Unprotected: "call 555-0147",
			Entities:    []sanitize.Entity{{Type: "PHONE", Value: "555-0147"}},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf, FormatJSON).Write(rep))

	var view View
	require.NoError(t, json.Unmarshal(buf.Bytes(), &view))
	require.NotNil(t, view.Protect)
	assert.Equal(t, "call [TOKEN]***[/TOKEN]", view.Protect.Text)
	assert.Equal(t, "call 555-0147", view.Protect.Unprotected)
	assert.NotContains(t, buf.String(), "x9Qf21")
}

func TestFailedStepWithholdsTextEntirely(t *testing.T) {
	rep := &pipeline.Report{
		ID:   "r2",
		Mode: domain.ModeProtect,
		Protect: &sanitize.Result{
			Method:    domain.MethodProtect,
			Original:  "my ssn is 078-05-1120",
			Sanitized: "my ssn is 078-05-1120",
			Entities:  []sanitize.Entity{{Type: "SSN", Value: "078-05-1120"}},
			Err:       fmt.Errorf("%w: protection did not modify the text", domain.ErrCredentialOrAuth),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf, FormatJSON).Write(rep))

	var view View
	require.NoError(t, json.Unmarshal(buf.Bytes(), &view))
	require.NotNil(t, view.Protect)
	assert.False(t, view.Protect.Succeeded)
	assert.Empty(t, view.Protect.Text)
	assert.Contains(t, view.Protect.Guidance, "DEV_EDITION_EMAIL")
	assert.NotContains(t, buf.String(), `"text"`)
}

func TestTransportFailureHasNoCredentialGuidance(t *testing.T) {
	rep := &pipeline.Report{
		Mode: domain.ModeRedact,
		Redact: &sanitize.Result{
			Method: domain.MethodRedact,
			Err:    fmt.Errorf("%w: 502 from redact", domain.ErrTransport),
		},
	}

	view := NewView(rep)
	require.NotNil(t, view.Redact)
	assert.Contains(t, view.Redact.Error, "502")
	assert.Empty(t, view.Redact.Guidance)
}

func TestGuardrailRawPayloadRenderedForDiagnostics(t *testing.T) {
	raw := `{"messages":[{"id":"1","outcome":"approved","score":0.2,"processors":[]}]}`
	rep := &pipeline.Report{
		ID:   "r5",
		Mode: domain.ModeGuardrail,
		Guardrail: &guardrail.Result{
			Outcome: "approved",
			Score:   0.2,
			Raw:     json.RawMessage(raw),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf, FormatJSON).Write(rep))

	var view View
	require.NoError(t, json.Unmarshal(buf.Bytes(), &view))
	require.NotNil(t, view.Guardrail)
	assert.JSONEq(t, raw, string(view.Guardrail.RawResponse))
}

func TestTextOutputRendersEachStep(t *testing.T) {
	rep := &pipeline.Report{
		ID:     "r3",
		Mode:   domain.ModeFull,
		Domain: domain.DomainFinancial,
		Guardrail: &guardrail.Result{
			Domain:      domain.DomainFinancial,
			Outcome:     "approved",
			Score:       0.12,
			Explanation: "on-topic for financial",
		},
		Protect: &sanitize.Result{
			Method:    domain.MethodProtect,
			Sanitized: "hello [TOKEN]abc[/TOKEN]",
			Entities:  []sanitize.Entity{{Type: "PERSON", Value: "Alice"}},
		},
		Redact: &sanitize.Result{
			Method:    domain.MethodRedact,
			Sanitized: "hello #####",
		},
	}

	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf, FormatText).Write(rep))
	out := buf.String()

	assert.Contains(t, out, "mode=full")
	assert.Contains(t, out, "outcome: approved")
	assert.Contains(t, out, "PERSON")
	assert.Contains(t, out, "[TOKEN]***[/TOKEN]")
	assert.Contains(t, out, "hello #####")
	assert.NotContains(t, out, "[TOKEN]abc[/TOKEN]")
}

func TestTextOutputGuardrailError(t *testing.T) {
	rep := &pipeline.Report{
		Mode:           domain.ModeGuardrail,
		Domain:         domain.DomainHealthcare,
		GuardrailError: "transport failure: connection refused",
	}

	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf, FormatText).Write(rep))
	assert.Contains(t, buf.String(), "error: transport failure: connection refused")
}

func TestMultilineTextIndented(t *testing.T) {
	rep := &pipeline.Report{
		Mode: domain.ModeRedact,
		Redact: &sanitize.Result{
			Method:    domain.MethodRedact,
			Sanitized: "line one\n\nline three",
		},
	}

	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf, FormatText).Write(rep))
	assert.Equal(t, 1, strings.Count(buf.String(), "line three"))
	assert.Contains(t, buf.String(), "  line one\n")
}
