package domain

import "errors"

// Common domain errors
var (
	// ErrCredentialOrAuth covers remote calls that were accepted but not
	// acted on because the Developer Edition credentials are missing or
	// rejected. Inferred from the silent-failure heuristic during protect.
	ErrCredentialOrAuth = errors.New("credential or authentication failure")
	// ErrTransport covers remote calls that failed outright: network
	// errors, timeouts, and non-success HTTP statuses.
	ErrTransport = errors.New("transport failure")
	// ErrCallerInput covers invalid input from the caller: unknown
	// semantic domain, unknown pipeline mode, or an empty prompt.
	ErrCallerInput = errors.New("caller input error")
)

// PipelineError wraps a taxonomy error with the pipeline step that
// produced it.
type PipelineError struct {
	Step string
	Err  error
}

func (e *PipelineError) Error() string {
	return e.Step + ": " + e.Err.Error()
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// ErrorResponse defines the standard JSON error model returned by the
// HTTP front end. It carries a stable machine-readable code and keeps
// sensitive detail out of the payload.
type ErrorResponse struct {
	Code    string `json:"code"`               // Machine-readable error code (e.g., CALLER_INPUT, TRANSPORT_FAILURE)
	Message string `json:"message"`            // Human-readable message (safe for logs)
	TraceID string `json:"trace_id,omitempty"` // Optional trace/correlation ID
}

// ErrorCode maps a taxonomy error to its wire code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrCredentialOrAuth):
		return "CREDENTIAL_OR_AUTH_FAILURE"
	case errors.Is(err, ErrTransport):
		return "TRANSPORT_FAILURE"
	case errors.Is(err, ErrCallerInput):
		return "CALLER_INPUT_ERROR"
	default:
		return "INTERNAL"
	}
}
