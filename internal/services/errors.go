package services

import "fmt"

// ErrorKind names a failure category surfaced by the proxy.
type ErrorKind string

const (
	KindRateLimited        ErrorKind = "rate_limited"
	KindAuthentication     ErrorKind = "authentication_failure"
	KindThrottling         ErrorKind = "throttling_failure"
	KindModelNotFound      ErrorKind = "model_not_found"
	KindBackendUnavailable ErrorKind = "backend_unavailable"
	KindGenericUpstream    ErrorKind = "generic_upstream_failure"
	KindMalformedResponse  ErrorKind = "malformed_response"
)

// Custom errors
type ValidationError struct{ Message string }

func (e *ValidationError) Error() string { return e.Message }

// RateLimitError is a request refused locally before reaching any upstream.
type RateLimitError struct{ Message string }

func (e *RateLimitError) Error() string { return e.Message }

func (e *RateLimitError) Kind() ErrorKind { return KindRateLimited }

// UpstreamError is a classified failure of the model or RAG backend call.
type UpstreamError struct {
	Kind    ErrorKind
	Status  int
	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// BackendError is a non-2xx answer from the story backend. Remote is set when
// Message came from the backend's own error field.
type BackendError struct {
	Status  int
	Message string
	Remote  bool
}

func (e *BackendError) Error() string { return e.Message }

// BackendUnavailableError means the story backend could not be reached at all.
type BackendUnavailableError struct{ Err error }

func (e *BackendUnavailableError) Error() string {
	return "Unable to connect to the server. Please check if the backend is running."
}

func (e *BackendUnavailableError) Unwrap() error { return e.Err }

// MalformedResponseError means a 2xx answer lacked an expected field or was not JSON.
type MalformedResponseError struct{ Message string }

func (e *MalformedResponseError) Error() string { return e.Message }
