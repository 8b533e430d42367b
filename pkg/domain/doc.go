// Package domain defines the core business types shared across the Trial
// Center pipeline harness.
//
// This package contains pure domain logic with ZERO external dependencies
// outside the Go standard library. All types in this package are:
//
// - Independent of infrastructure (no HTTP, no vendor services)
// - Technology-agnostic (no framework coupling)
// - Testable in isolation without mocks
//
// The guardrail client, sanitizer, pipeline and front ends implement
// behaviour on top of these types. The dependency direction is always:
//
//	Infrastructure → Domain (CORRECT)
//	Domain → Infrastructure (FORBIDDEN)
package domain
