package apierr

import (
	"errors"
	"fmt"
)

// AuthError indicates the server rejected the caller's credentials.
//
// It is returned for bad login credentials and for requests that received
// HTTP 401 after a failed token refresh. Callers should treat it as a signal
// to re-authenticate, never as a transient failure.
type AuthError struct {
	// Status is the HTTP status that triggered the error (401 or 422 on login).
	Status int

	// Message is a short human-readable description.
	Message string

	// Err is the underlying cause, if any (e.g. the refresh failure).
	Err error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth: %s: %v", e.Message, e.Err)
	}
	return "auth: " + e.Message
}

func (e *AuthError) Unwrap() error { return e.Err }

// ValidationError carries the per-field validation failures of an HTTP 422
// response. Message holds the first field's first message in document order;
// Fields preserves the complete map.
type ValidationError struct {
	Status  int
	Message string
	Fields  map[string][]string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Message
}

// First returns the single human-readable message extracted from the
// response, falling back to a generic message when the server sent none.
func (e *ValidationError) First() string {
	if e.Message != "" {
		return e.Message
	}
	return "The submitted values were not accepted."
}

// ClientError represents a non-retryable 4xx response that is neither an
// authentication nor a validation failure.
type ClientError struct {
	Status  int
	Message string
	Body    []byte
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("client error: HTTP %d: %s", e.Status, e.Message)
}

// ServerError represents a 5xx response.
type ServerError struct {
	Status  int
	Message string
	Body    []byte
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error: HTTP %d: %s", e.Status, e.Message)
}

// NetworkError indicates the request never produced an HTTP response because
// of a connectivity failure (DNS, refused connection, reset, ...).
type NetworkError struct {
	Message string
	Err     error
}

func (e *NetworkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("network: %s: %v", e.Message, e.Err)
	}
	return "network: " + e.Message
}

func (e *NetworkError) Unwrap() error { return e.Err }

// TimeoutError indicates a connect/send/receive deadline elapsed.
type TimeoutError struct {
	Message string
	Err     error
}

func (e *TimeoutError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("timeout: %s: %v", e.Message, e.Err)
	}
	return "timeout: " + e.Message
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// CancelledError indicates the caller cancelled the request's context.
// Cancellation is cooperative and never retried.
type CancelledError struct {
	Err error
}

func (e *CancelledError) Error() string { return "request cancelled" }

func (e *CancelledError) Unwrap() error { return e.Err }

// APIError is the catch-all for responses that do not fit the taxonomy:
// unexpected status classes and response envelopes missing their expected
// payload field. It carries the status and raw body for diagnostics.
type APIError struct {
	Status  int
	Message string
	Body    []byte
}

func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("api: HTTP %d: %s", e.Status, e.Message)
	}
	return "api: " + e.Message
}

// StorageError indicates a credential-store write or open failure where
// persistence is required for correctness (e.g. storing a token).
// Read/parse failures are never surfaced as errors; they report absence.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// BuildingConfigError indicates an invalid building selection or a building
// record unusable for request routing (e.g. missing subdomain).
type BuildingConfigError struct {
	Message string
}

func (e *BuildingConfigError) Error() string {
	return "building config: " + e.Message
}

// CapabilityError indicates a capability operation failed for a reason
// specific to that capability (unknown key, toggle rejected, test failed).
type CapabilityError struct {
	Key     string
	Message string
	Err     error
}

func (e *CapabilityError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("capability %q: %s: %v", e.Key, e.Message, e.Err)
	}
	return fmt.Sprintf("capability %q: %s", e.Key, e.Message)
}

func (e *CapabilityError) Unwrap() error { return e.Err }

// IsRetryable reports whether the error is a transient transport failure the
// retry stage may re-attempt. Business errors (4xx/5xx) and cancellation are
// never retryable.
func IsRetryable(err error) bool {
	var netErr *NetworkError
	var toErr *TimeoutError
	return errors.As(err, &netErr) || errors.As(err, &toErr)
}

// StatusOf extracts the HTTP status embedded in a taxonomy error, or zero
// when the error carries none (network failures, timeouts, cancellation).
func StatusOf(err error) int {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Status
	}
	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return valErr.Status
	}
	var cliErr *ClientError
	if errors.As(err, &cliErr) {
		return cliErr.Status
	}
	var srvErr *ServerError
	if errors.As(err, &srvErr) {
		return srvErr.Status
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// genericMessage is the fallback shown for errors with no specific guidance.
const genericMessage = "Something went wrong. Please try again."

// UserMessage maps any error from the taxonomy to a short message suitable
// for direct display. Unknown errors fall back to a generic retry suggestion.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var authErr *AuthError
	if errors.As(err, &authErr) {
		return "Your email or password was not recognised."
	}

	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return valErr.First()
	}

	var toErr *TimeoutError
	if errors.As(err, &toErr) {
		return "The server took too long to respond. Please try again."
	}

	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return "Unable to reach the server. Check your connection and try again."
	}

	var srvErr *ServerError
	if errors.As(err, &srvErr) {
		return "The service is having trouble right now. Please try again shortly."
	}

	var bldErr *BuildingConfigError
	if errors.As(err, &bldErr) {
		return "There is a problem with the selected building. Please choose again."
	}

	return genericMessage
}
