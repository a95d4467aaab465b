package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/automatedlife/mobile-core/apierr"
	"github.com/automatedlife/mobile-core/transport"
)

// Transport issues requests through the pipeline. *transport.Pipeline
// satisfies it.
type Transport interface {
	Do(ctx context.Context, req *transport.Request) (*transport.Response, error)
}

// Client is the typed façade over the request pipeline: one method per
// backend operation. It holds no state of its own; routing and credentials
// live in the pipeline and session manager.
//
// A Client is safe for concurrent use.
type Client struct {
	transport Transport
}

// NewClient wraps the transport.
func NewClient(t Transport) *Client {
	return &Client{transport: t}
}

// unwrap decodes the named field of a response envelope into v. The backend
// wraps every payload in a single-field object ("user", "building",
// "aliases", ...); a missing or empty field is a typed, recoverable error,
// never a decode panic.
func unwrap(resp *transport.Response, field string, v any) error {
	var envelope map[string]json.RawMessage
	if err := resp.Decode(&envelope); err != nil {
		return &apierr.APIError{
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("malformed response envelope: %v", err),
			Body:    resp.Body,
		}
	}

	raw, ok := envelope[field]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return &apierr.APIError{
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("response missing expected field %q", field),
			Body:    resp.Body,
		}
	}

	if err := json.Unmarshal(raw, v); err != nil {
		return &apierr.APIError{
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("decoding field %q: %v", field, err),
			Body:    resp.Body,
		}
	}
	return nil
}

// getJSON issues a GET and unwraps the named envelope field into v.
func (c *Client) getJSON(ctx context.Context, path, operation, field string, v any) error {
	req := transport.NewRequest("GET", path).Named(operation)
	resp, err := c.transport.Do(ctx, req)
	if err != nil {
		return err
	}
	return unwrap(resp, field, v)
}

// sendJSON issues a request with a JSON body and, when field is non-empty,
// unwraps the response into v.
func (c *Client) sendJSON(ctx context.Context, method, path, operation string, body any, field string, v any) error {
	req, err := transport.NewJSONRequest(method, path, body)
	if err != nil {
		return err
	}
	resp, err := c.transport.Do(ctx, req.Named(operation))
	if err != nil {
		return err
	}
	if field == "" {
		return nil
	}
	return unwrap(resp, field, v)
}
