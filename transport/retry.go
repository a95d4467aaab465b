package transport

import (
	"context"
	"time"

	"github.com/automatedlife/mobile-core/apierr"
)

// retryStage retries transient failures with a fixed backoff schedule. Only
// errors the taxonomy marks retryable (network and timeout failures) are
// retried; auth, validation, client and server errors surface immediately.
//
// The normalize stage runs below this one, so classification here operates
// on canonical error kinds rather than raw transport errors.
type retryStage struct {
	max     int
	backoff []time.Duration
	logger  Logger
}

func (s *retryStage) Name() string { return "retry" }

func (s *retryStage) Execute(ctx context.Context, req *Request, next Handler) (*Response, error) {
	var lastErr error

	for attempt := 0; attempt <= s.max; attempt++ {
		if attempt > 0 {
			if err := s.wait(ctx, attempt-1); err != nil {
				return nil, err
			}
			s.logger.Debug("retrying request",
				"operation", req.operation(),
				"attempt", attempt,
				"max", s.max,
			)
		}

		resp, err := next(ctx, req)
		if err == nil {
			return resp, nil
		}
		if !apierr.IsRetryable(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, lastErr
}

// wait sleeps for the schedule entry at idx, honouring cancellation.
func (s *retryStage) wait(ctx context.Context, idx int) error {
	delay := s.backoff[len(s.backoff)-1]
	if idx < len(s.backoff) {
		delay = s.backoff[idx]
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return &apierr.CancelledError{Err: ctx.Err()}
	case <-timer.C:
		return nil
	}
}
