package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/automatedlife/mobile-core/apierr"
)

// normalizeStage converts raw transport failures and non-2xx responses into
// the closed error taxonomy. It sits above the building/auth stages so their
// outcomes are normalised too, and below the retry stage so retry classifies
// canonical error kinds rather than raw transport errors.
//
// After this stage, callers only ever see 2xx responses or typed errors.
type normalizeStage struct{}

func (s *normalizeStage) Name() string { return "normalize" }

func (s *normalizeStage) Execute(ctx context.Context, req *Request, next Handler) (*Response, error) {
	resp, err := next(ctx, req)
	if err != nil {
		return nil, normalizeError(ctx, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	return nil, normalizeStatus(resp)
}

// normalizeError maps a transport-level failure into the taxonomy.
// Errors already belonging to the taxonomy pass through unchanged.
func normalizeError(ctx context.Context, err error) error {
	if isTypedError(err) {
		return err
	}

	if errors.Is(err, context.Canceled) {
		return &apierr.CancelledError{Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &apierr.TimeoutError{Message: "request deadline exceeded", Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &apierr.TimeoutError{Message: "network timeout", Err: err}
	}

	// The caller's context may have been cancelled mid-dial; the transport
	// wraps that in its own error type.
	if ctx.Err() != nil {
		return &apierr.CancelledError{Err: err}
	}

	return &apierr.NetworkError{Message: "connection failed", Err: err}
}

// normalizeStatus maps a non-2xx response into the taxonomy.
func normalizeStatus(resp *Response) error {
	status := resp.StatusCode
	switch {
	case status == http.StatusUnauthorized:
		// Refresh already had its chance below this stage.
		return &apierr.AuthError{Status: status, Message: "credentials rejected"}

	case status == http.StatusUnprocessableEntity:
		message, fields := parseValidationBody(resp.Body)
		return &apierr.ValidationError{Status: status, Message: message, Fields: fields}

	case status >= 400 && status < 500:
		return &apierr.ClientError{Status: status, Message: statusMessage(resp), Body: resp.Body}

	case status >= 500:
		return &apierr.ServerError{Status: status, Message: statusMessage(resp), Body: resp.Body}

	default:
		return &apierr.APIError{Status: status, Message: "unexpected response status", Body: resp.Body}
	}
}

// isTypedError reports whether err already belongs to the taxonomy.
func isTypedError(err error) bool {
	var (
		authErr *apierr.AuthError
		valErr  *apierr.ValidationError
		cliErr  *apierr.ClientError
		srvErr  *apierr.ServerError
		netErr  *apierr.NetworkError
		toErr   *apierr.TimeoutError
		canErr  *apierr.CancelledError
		apiErr  *apierr.APIError
		bcErr   *apierr.BuildingConfigError
		capErr  *apierr.CapabilityError
		stoErr  *apierr.StorageError
	)
	return errors.As(err, &authErr) || errors.As(err, &valErr) ||
		errors.As(err, &cliErr) || errors.As(err, &srvErr) ||
		errors.As(err, &netErr) || errors.As(err, &toErr) ||
		errors.As(err, &canErr) || errors.As(err, &apiErr) ||
		errors.As(err, &bcErr) || errors.As(err, &capErr) ||
		errors.As(err, &stoErr)
}

// statusMessage pulls a server-provided message out of an error body, or
// falls back to the standard status text.
func statusMessage(resp *Response) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(resp.Body, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return http.StatusText(resp.StatusCode)
}

// parseValidationBody extracts the full per-field error map from a 422 body
// of the shape {"errors": {"field": ["msg", ...], ...}} and the first
// field's first message in document order.
//
// Go's map decoding loses field order, so the first message is found with a
// token-level scan; the surfaced message then matches the server's ordering
// deterministically.
func parseValidationBody(body []byte) (string, map[string][]string) {
	var envelope struct {
		Message string              `json:"message"`
		Errors  map[string][]string `json:"errors"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", nil
	}

	message := firstValidationMessage(body)
	if message == "" {
		message = envelope.Message
	}
	return message, envelope.Errors
}

// firstValidationMessage scans the raw body for the first entry of the first
// field inside the "errors" object, preserving document order.
func firstValidationMessage(body []byte) string {
	dec := json.NewDecoder(bytes.NewReader(body))

	// Walk top-level keys until "errors"
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return ""
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return ""
		}
		key, ok := keyTok.(string)
		if !ok {
			return ""
		}
		if key != "errors" {
			// Skip this key's value entirely
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return ""
			}
			continue
		}

		// Inside "errors": first key, then its array's first string
		if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
			return ""
		}
		if !dec.More() {
			return ""
		}
		if _, err := dec.Token(); err != nil { // first field name
			return ""
		}
		var messages []string
		if err := dec.Decode(&messages); err != nil || len(messages) == 0 {
			return ""
		}
		return messages[0]
	}
	return ""
}
