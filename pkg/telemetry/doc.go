// Package telemetry wires OpenTelemetry exporters and meters for the
// Trial Center harness.
//
// It centralises trace provider setup, applies harness-specific resource
// attributes, and offers helpers that record pipeline step outcomes so
// operators can correlate guardrail decisions and sanitization failures
// with remote service behaviour. Prompt content never appears in
// telemetry attributes.
package telemetry
