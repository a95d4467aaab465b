package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// dialer is the terminal handler: it turns a pipeline Request into an actual
// HTTP round trip. It returns raw transport errors; the normalisation stage
// above it owns the mapping into the error taxonomy.
type dialer struct {
	client *http.Client
}

func newDialer(timeout time.Duration) *dialer {
	return &dialer{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// handle performs one HTTP round trip for the resolved request.
func (d *dialer) handle(ctx context.Context, req *Request) (*Response, error) {
	if req.resolved == nil {
		return nil, fmt.Errorf("transport: request %s %s has no resolved URL", req.Method, req.Path)
	}
	req.attempts++

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.resolved.String(), body)
	if err != nil {
		return nil, fmt.Errorf("transport: building request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	httpResp, err := d.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close() //nolint:errcheck // read side close

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
	}

	// Stream successful bodies to a sink when one is set (downloads);
	// error bodies are always buffered so normalisation can inspect them.
	if req.Sink != nil && httpResp.StatusCode >= 200 && httpResp.StatusCode < 300 {
		if _, err := io.Copy(req.Sink, httpResp.Body); err != nil {
			return nil, err
		}
		return resp, nil
	}

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}
	resp.Body = data
	return resp, nil
}
