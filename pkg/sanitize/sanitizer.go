// Package sanitize turns a possibly multi-line prompt into a sanitized
// prompt using the Developer Edition discovery and transform operations,
// applied independently per line. It distinguishes "no sensitive data
// found" from "operation failed" from "operation silently did nothing".
package sanitize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ProVishP/protegrity-developer-edition-trial-center/pkg/devedition"
	"github.com/ProVishP/protegrity-developer-edition-trial-center/pkg/domain"
)

// silentFailureMessage is matched by front ends to surface credential
// guidance; keep the wording stable.
const silentFailureMessage = "Protection did not modify the text"

// Service is the slice of the Developer Edition client the sanitizer
// depends on.
type Service interface {
	Discover(ctx context.Context, text string) (devedition.Entities, error)
	Protect(ctx context.Context, text string) (string, error)
	Redact(ctx context.Context, text string) (string, error)
	MapNamedEntity(label, replacement string)
}

// Config holds sanitizer construction options.
type Config struct {
	Method domain.SanitizeMethod
	Logger *slog.Logger
}

// Sanitizer applies one transform method line by line. It holds no
// per-request state; construct once per method and reuse.
type Sanitizer struct {
	service Service
	method  domain.SanitizeMethod
	logger  *slog.Logger
}

// New creates a sanitizer bound to a service client and method.
func New(service Service, cfg Config) (*Sanitizer, error) {
	switch cfg.Method {
	case domain.MethodProtect, domain.MethodRedact:
	default:
		return nil, fmt.Errorf("%w: unknown sanitize method %q", domain.ErrCallerInput, cfg.Method)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Sanitizer{service: service, method: cfg.Method, logger: logger}, nil
}

// Method returns the transform method this sanitizer applies.
func (s *Sanitizer) Method() domain.SanitizeMethod {
	return s.method
}

// Sanitize processes the text line by line, strictly in order. Blank
// lines pass through unchanged without a remote call. Line count and
// blank-line positions are preserved exactly. Failures are recorded on
// the result, never converted into a successful-looking output; there is
// no fallback between protect and redact in either direction.
func (s *Sanitizer) Sanitize(ctx context.Context, text string) *Result {
	result := &Result{Method: s.method, Original: text}

	lines := strings.Split(text, "\n")
	out := make([]string, len(lines))

	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			out[i] = line
			continue
		}
		out[i] = s.sanitizeLine(ctx, line, i, result)
	}

	result.Sanitized = strings.Join(out, "\n")

	if result.Err != nil {
		s.logger.Warn("sanitization failed",
			"method", s.method,
			"entities", len(result.Entities),
			"error", result.Err,
		)
	} else {
		s.logger.Info("sanitization complete",
			"method", s.method,
			"lines", len(lines),
			"entities", len(result.Entities),
		)
	}

	return result
}

// Discover runs only the discovery step, line by line, with no
// transform. Used by the discovery-only pipeline mode: the output text
// equals the input and carries the discovered entities.
func (s *Sanitizer) Discover(ctx context.Context, text string) *Result {
	// No transform runs, so no transform method is stamped on the result.
	result := &Result{Original: text, Sanitized: text}

	for i, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		discovered, err := s.service.Discover(ctx, line)
		if err != nil {
			s.recordError(result, i, err)
			continue
		}
		result.Entities = append(result.Entities, s.collectEntities(line, discovered)...)
	}

	return result
}

// sanitizeLine runs discovery then the transform for one line, returning
// the output line. Failed lines keep their original content; the error
// is recorded on the result.
func (s *Sanitizer) sanitizeLine(ctx context.Context, line string, index int, result *Result) string {
	discovered, err := s.service.Discover(ctx, line)
	if err != nil {
		s.recordError(result, index, err)
		return line
	}

	result.Entities = append(result.Entities, s.collectEntities(line, discovered)...)

	switch s.method {
	case domain.MethodProtect:
		protected, err := s.service.Protect(ctx, line)
		if err != nil {
			s.recordError(result, index, err)
			return line
		}
		// Silent-failure signature: the service accepted the call but
		// returned the input unchanged for a line discovery flagged as
		// sensitive. The usual cause is a credential problem the
		// service reports as success instead of an error. Byte equality
		// is the only signal the service gives; a protected value that
		// legitimately equals its source would be misread here. The raw
		// hit count is the flag, not the extracted entities: a hit with
		// a span outside the line still means discovery found something.
		if protected == line && discovered.Count() > 0 {
			s.recordError(result, index, fmt.Errorf("%w: %s; check DEV_EDITION_EMAIL, DEV_EDITION_PASSWORD and DEV_EDITION_API_KEY",
				domain.ErrCredentialOrAuth, silentFailureMessage))
			return line
		}
		return protected

	default: // domain.MethodRedact
		redacted, err := s.service.Redact(ctx, line)
		if err != nil {
			s.recordError(result, index, err)
			return line
		}
		return redacted
	}
}

// collectEntities folds composite labels, registers them with the
// service's named-entity map, and extracts the matched values in span
// order.
func (s *Sanitizer) collectEntities(line string, discovered devedition.Entities) []Entity {
	var entities []Entity
	for _, label := range sortedLabels(discovered) {
		folded := label
		if i := strings.IndexByte(label, '|'); i > 0 {
			folded = label[:i]
			s.service.MapNamedEntity(label, folded)
		}
		for _, candidate := range discovered[label] {
			value := sliceSpan(line, candidate.Location)
			if value == "" {
				continue
			}
			entities = append(entities, Entity{Type: folded, Value: value})
		}
	}
	return entities
}

func (s *Sanitizer) recordError(result *Result, line int, err error) {
	s.logger.Warn("line sanitization failed", "method", s.method, "line", line, "error", err)
	if result.Err == nil {
		result.Err = err
	}
}

// sliceSpan extracts the text a span points at, tolerating out-of-range
// indices from the service.
func sliceSpan(line string, span devedition.Span) string {
	start, end := span.StartIndex, span.EndIndex
	if start < 0 || end > len(line) || start >= end {
		return ""
	}
	return line[start:end]
}

// sortedLabels returns the entity labels in a stable order, keyed by the
// earliest span start so extraction follows text order.
func sortedLabels(discovered devedition.Entities) []string {
	labels := make([]string, 0, len(discovered))
	for label := range discovered {
		labels = append(labels, label)
	}
	// Insertion sort by earliest start index, then label for ties.
	firstStart := func(label string) int {
		candidates := discovered[label]
		if len(candidates) == 0 {
			return int(^uint(0) >> 1)
		}
		min := candidates[0].Location.StartIndex
		for _, c := range candidates[1:] {
			if c.Location.StartIndex < min {
				min = c.Location.StartIndex
			}
		}
		return min
	}
	for i := 1; i < len(labels); i++ {
		for j := i; j > 0; j-- {
			a, b := labels[j-1], labels[j]
			if firstStart(a) < firstStart(b) || (firstStart(a) == firstStart(b) && a <= b) {
				break
			}
			labels[j-1], labels[j] = labels[j], labels[j-1]
		}
	}
	return labels
}
