package sanitize

import (
	"regexp"

	"github.com/ProVishP/protegrity-developer-edition-trial-center/pkg/domain"
)

// Entity is one discovered sensitive-data span: the service's type label
// and the exact value matched in the original text. Entities keep the
// order they were discovered in (line order, then span order).
type Entity struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Result is the output of one sanitization pass over a text block.
// It is created fresh per call and never mutated afterwards.
type Result struct {
	Method   domain.SanitizeMethod `json:"method"`
	Original string                `json:"-"`

	// Sanitized is the reassembled output, reflecting whatever
	// succeeded. It must never be shown to a caller while Err is set:
	// a silent failure means it may still hold the original sensitive
	// values. Use SafeText for rendering.
	Sanitized string `json:"-"`

	// Unprotected holds the restored text after a successful
	// protect → unprotect round trip, when the pipeline requested one.
	Unprotected    string `json:"-"`
	UnprotectError string `json:"unprotect_error,omitempty"`

	// Entities found by discovery, ordered. Composite labels are folded
	// to their first segment.
	Entities []Entity `json:"entities"`

	// Err is the sanitize error: nil on success, otherwise wrapping
	// domain.ErrCredentialOrAuth or domain.ErrTransport.
	Err error `json:"-"`
}

// Succeeded reports whether the whole pass completed without error.
func (r *Result) Succeeded() bool {
	return r.Err == nil
}

// SafeText returns the sanitized text only when it is trustworthy.
// Callers rendering output must use this accessor: after any failure the
// sanitized text is withheld entirely.
func (r *Result) SafeText() (string, bool) {
	if r.Err != nil {
		return "", false
	}
	return r.Sanitized, true
}

// tokenPayloadRe matches one protection token including its payload.
var tokenPayloadRe = regexp.MustCompile(`\[TOKEN\].*?\[/TOKEN\]`)

// DisplayText returns the sanitized text with token payloads masked for
// rendering, so protected values are not echoed back verbatim in UIs.
// Empty when the result must be withheld.
func (r *Result) DisplayText() string {
	text, ok := r.SafeText()
	if !ok {
		return ""
	}
	return tokenPayloadRe.ReplaceAllString(text, "[TOKEN]***[/TOKEN]")
}

// ByType groups the discovered entities by their folded type label.
func (r *Result) ByType() map[string][]Entity {
	if len(r.Entities) == 0 {
		return nil
	}
	grouped := make(map[string][]Entity)
	for _, e := range r.Entities {
		grouped[e.Type] = append(grouped[e.Type], e)
	}
	return grouped
}
