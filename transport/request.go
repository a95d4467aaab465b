package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Request is the pipeline's own request representation.
//
// Keeping the body as bytes (rather than a one-shot reader) lets the auth
// stage replay a request after a token refresh and lets the retry stage
// re-attempt it, without depending on any HTTP library's plugin mechanism.
type Request struct {
	// Method is the HTTP method.
	Method string

	// Path is either a path relative to the routed base URL ("/me") or a
	// complete absolute URL, which bypasses building-context routing.
	Path string

	// Operation names the API operation for logging and telemetry
	// (e.g. "profile.get"). Optional; defaults to "METHOD path".
	Operation string

	// Query holds URL query parameters.
	Query url.Values

	// Header holds request headers. The auth stage fills in Authorization,
	// Accept, and Content-Type unless already set.
	Header http.Header

	// Body is the raw request body, typically JSON.
	Body []byte

	// Sink, when non-nil, receives the response body as a stream instead of
	// it being buffered into Response.Body. Used for downloads.
	Sink io.Writer

	// resolved is the absolute URL chosen by the building-context stage.
	resolved *url.URL

	// refreshed guards the single refresh-and-replay per original request,
	// surviving retry re-entries.
	refreshed bool

	// attempts counts dials, so the metrics stage can derive retries.
	attempts int
}

// NewRequest creates a request for the given method and path.
func NewRequest(method, path string) *Request {
	return &Request{
		Method: method,
		Path:   path,
		Query:  url.Values{},
		Header: http.Header{},
	}
}

// NewJSONRequest creates a request carrying a JSON-encoded body.
func NewJSONRequest(method, path string, body any) (*Request, error) {
	req := NewRequest(method, path)
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}
	req.Body = data
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// Named sets the request's operation name and returns the request.
func (r *Request) Named(operation string) *Request {
	r.Operation = operation
	return r
}

// operation returns the explicit operation name, or a method+path fallback.
func (r *Request) operation() string {
	if r.Operation != "" {
		return r.Operation
	}
	return r.Method + " " + r.Path
}

// isAbsolute reports whether Path is a complete URL.
func (r *Request) isAbsolute() bool {
	return strings.HasPrefix(r.Path, "http://") || strings.HasPrefix(r.Path, "https://")
}

// Response is the pipeline's response representation. Non-2xx statuses never
// reach callers; the normalisation stage converts them into typed errors.
type Response struct {
	StatusCode int
	Header     http.Header

	// Body is the buffered response body, nil when the request used a Sink.
	Body []byte
}

// Decode unmarshals the buffered response body into v.
func (r *Response) Decode(v any) error {
	if len(r.Body) == 0 {
		return fmt.Errorf("decoding response: empty body")
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// Handler processes a request and produces a response or a typed error.
// The terminal handler dials the network; every stage wraps the next one.
type Handler func(ctx context.Context, req *Request) (*Response, error)

// Stage is one transformer in the pipeline. Execute may mutate the request,
// call next zero or more times, and transform the response or error.
type Stage interface {
	// Name identifies the stage in logs.
	Name() string

	// Execute runs the stage around the rest of the chain.
	Execute(ctx context.Context, req *Request, next Handler) (*Response, error)
}
