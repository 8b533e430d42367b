// Package report renders pipeline reports for the CLI and the HTTP API.
// It is the only place run output is serialized, so the withholding rule
// lives here: a failed sanitization step emits its error and guidance,
// never its text.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ProVishP/protegrity-developer-edition-trial-center/pkg/domain"
	"github.com/ProVishP/protegrity-developer-edition-trial-center/pkg/pipeline"
	"github.com/ProVishP/protegrity-developer-edition-trial-center/pkg/sanitize"
)

// Format selects a rendering of a pipeline report.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// credentialGuidance is appended to credential failures so a trial user
// knows how to recover without reading service logs.
const credentialGuidance = "Set DEV_EDITION_EMAIL, DEV_EDITION_PASSWORD and DEV_EDITION_API_KEY, then retry."

// ParseFormat validates a report format name.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatText:
		return FormatText, nil
	}
	return "", fmt.Errorf("%w: unknown report format %q", domain.ErrCallerInput, raw)
}

// View is the serializable shape of a pipeline report. Sanitized text
// appears only through the masked display form, and only for steps that
// succeeded.
type View struct {
	ID       string `json:"id"`
	Mode     string `json:"mode"`
	Domain   string `json:"domain,omitempty"`
	Duration string `json:"duration"`

	Guardrail      *GuardrailView `json:"guardrail,omitempty"`
	GuardrailError string         `json:"guardrail_error,omitempty"`

	Discovery *StepView `json:"discovery,omitempty"`
	Protect   *StepView `json:"protect,omitempty"`
	Redact    *StepView `json:"redact,omitempty"`
}

// GuardrailView is the rendered guardrail verdict. RawResponse carries
// the complete service payload for diagnostic display.
type GuardrailView struct {
	Outcome     string          `json:"outcome"`
	Score       float64         `json:"score"`
	Explanation string          `json:"explanation,omitempty"`
	RawResponse json.RawMessage `json:"raw_response,omitempty"`
}

// StepView is the rendered outcome of one sanitization step.
type StepView struct {
	Method      string            `json:"method,omitempty"`
	Succeeded   bool              `json:"succeeded"`
	Text        string            `json:"text,omitempty"`
	Unprotected string            `json:"unprotected,omitempty"`
	Entities    []sanitize.Entity `json:"entities,omitempty"`

	Error          string `json:"error,omitempty"`
	Guidance       string `json:"guidance,omitempty"`
	UnprotectError string `json:"unprotect_error,omitempty"`
}

// NewView projects a report into its serializable form, applying the
// withholding rule to every sanitization step.
func NewView(rep *pipeline.Report) *View {
	view := &View{
		ID:             rep.ID,
		Mode:           string(rep.Mode),
		Domain:         string(rep.Domain),
		Duration:       rep.Duration.String(),
		GuardrailError: rep.GuardrailError,
	}
	if rep.Guardrail != nil {
		view.Guardrail = &GuardrailView{
			Outcome:     rep.Guardrail.Outcome,
			Score:       rep.Guardrail.Score,
			Explanation: rep.Guardrail.Explanation,
			RawResponse: rep.Guardrail.Raw,
		}
	}
	view.Discovery = newStepView(rep.Discovery)
	view.Protect = newStepView(rep.Protect)
	view.Redact = newStepView(rep.Redact)
	return view
}

func newStepView(res *sanitize.Result) *StepView {
	if res == nil {
		return nil
	}
	step := &StepView{
		Method:         string(res.Method),
		Succeeded:      res.Succeeded(),
		Entities:       res.Entities,
		UnprotectError: res.UnprotectError,
	}
	if res.Err != nil {
		step.Error = res.Err.Error()
		if errors.Is(res.Err, domain.ErrCredentialOrAuth) {
			step.Guidance = credentialGuidance
		}
		return step
	}
	step.Text = res.DisplayText()
	step.Unprotected = res.Unprotected
	return step
}

// Writer renders pipeline reports to a stream.
type Writer struct {
	out    io.Writer
	format Format
}

// NewWriter creates a report writer for the given format.
func NewWriter(out io.Writer, format Format) *Writer {
	return &Writer{out: out, format: format}
}

// Write renders one report.
func (w *Writer) Write(rep *pipeline.Report) error {
	view := NewView(rep)
	if w.format == FormatJSON {
		enc := json.NewEncoder(w.out)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	}
	return w.writeText(view)
}

func (w *Writer) writeText(view *View) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Report %s  mode=%s", view.ID, view.Mode)
	if view.Domain != "" {
		fmt.Fprintf(&b, "  domain=%s", view.Domain)
	}
	fmt.Fprintf(&b, "  (%s)\n", view.Duration)

	if view.Guardrail != nil {
		fmt.Fprintf(&b, "\nSemantic Guardrail\n  outcome: %s  score: %.3f\n", view.Guardrail.Outcome, view.Guardrail.Score)
		if view.Guardrail.Explanation != "" {
			fmt.Fprintf(&b, "  %s\n", view.Guardrail.Explanation)
		}
	}
	if view.GuardrailError != "" {
		fmt.Fprintf(&b, "\nSemantic Guardrail\n  error: %s\n", view.GuardrailError)
	}

	writeStepText(&b, "Discovered Sensitive Data", view.Discovery)
	writeStepText(&b, "Protect", view.Protect)
	writeStepText(&b, "Redact", view.Redact)

	_, err := io.WriteString(w.out, b.String())
	return err
}

func writeStepText(b *strings.Builder, title string, step *StepView) {
	if step == nil {
		return
	}
	fmt.Fprintf(b, "\n%s\n", title)
	if len(step.Entities) > 0 {
		for _, e := range step.Entities {
			fmt.Fprintf(b, "  found %-20s %s\n", e.Type, e.Value)
		}
	}
	if step.Error != "" {
		fmt.Fprintf(b, "  error: %s\n", step.Error)
		if step.Guidance != "" {
			fmt.Fprintf(b, "  %s\n", step.Guidance)
		}
		return
	}
	if step.Text != "" {
		fmt.Fprintf(b, "  %s\n", indentLines(step.Text))
	}
	if step.Unprotected != "" {
		fmt.Fprintf(b, "  restored: %s\n", indentLines(step.Unprotected))
	}
	if step.UnprotectError != "" {
		fmt.Fprintf(b, "  unprotect error: %s\n", step.UnprotectError)
	}
}

func indentLines(text string) string {
	return strings.ReplaceAll(text, "\n", "\n  ")
}
