package transport

import (
	"context"
	"time"

	"github.com/automatedlife/mobile-core/apierr"
	"github.com/automatedlife/mobile-core/telemetry"
)

// metricsStage records one telemetry sample per logical request: operation
// name, final status, total wall-clock duration, and how many extra dial
// attempts were needed. It wraps the retry stage so the sample covers the
// whole retry envelope, not individual attempts.
type metricsStage struct {
	recorder telemetry.Recorder
}

func (s *metricsStage) Name() string { return "metrics" }

func (s *metricsStage) Execute(ctx context.Context, req *Request, next Handler) (*Response, error) {
	start := time.Now()
	resp, err := next(ctx, req)
	duration := time.Since(start)

	retries := req.attempts - 1
	if retries < 0 {
		retries = 0
	}

	s.recorder.RecordRequest(req.operation(), finalStatus(resp, err), duration, retries)
	return resp, err
}

// finalStatus derives the status code to record: the response status on
// success, the embedded status on typed API errors, zero when the request
// never produced a response.
func finalStatus(resp *Response, err error) int {
	if resp != nil {
		return resp.StatusCode
	}
	return apierr.StatusOf(err)
}
