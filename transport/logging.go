package transport

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// headerRequestID correlates client logs with server-side request traces.
const headerRequestID = "X-Request-ID"

// loggingStage tags each request with a generated request ID and emits
// debug-level entries for the outgoing request and its outcome. The stage is
// only installed when request logging is enabled in configuration, so the
// hot path carries no logging overhead by default.
type loggingStage struct {
	logger Logger
}

func (s *loggingStage) Name() string { return "logging" }

func (s *loggingStage) Execute(ctx context.Context, req *Request, next Handler) (*Response, error) {
	requestID := uuid.NewString()
	req.Header.Set(headerRequestID, requestID)

	s.logger.Debug("request started",
		"request_id", requestID,
		"method", req.Method,
		"path", req.Path,
		"operation", req.operation(),
	)

	start := time.Now()
	resp, err := next(ctx, req)
	elapsed := time.Since(start)

	if err != nil {
		s.logger.Debug("request failed",
			"request_id", requestID,
			"operation", req.operation(),
			"duration_ms", elapsed.Milliseconds(),
			"error", err,
		)
		return nil, err
	}

	s.logger.Debug("request completed",
		"request_id", requestID,
		"operation", req.operation(),
		"status", resp.StatusCode,
		"duration_ms", elapsed.Milliseconds(),
		"attempts", req.attempts,
	)
	return resp, nil
}
