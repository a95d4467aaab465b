package transport

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/automatedlife/mobile-core/apierr"
)

// authExchangePaths are the endpoints that are themselves part of the auth
// exchange. A 401 from these must never trigger a refresh: a rejected login
// is a credential failure, and a rejected refresh is already terminal.
// Other /auth/ paths (password change) refresh normally.
var authExchangePaths = []string{"/auth/login", "/auth/refresh", "/auth/logout"}

// authStage attaches the bearer credential and standard headers on the way
// out, and owns 401 recovery on the way back: exactly one token refresh and
// replay per original request. A failed refresh forces logout and surfaces
// an AuthError; the caller never sees the raw 401 when recovery succeeds.
type authStage struct {
	pipeline *Pipeline
	logger   Logger
}

func (s *authStage) Name() string { return "auth" }

func (s *authStage) Execute(ctx context.Context, req *Request, next Handler) (*Response, error) {
	token := s.pipeline.accessToken()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	if len(req.Body) > 0 && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := next(ctx, req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusUnauthorized || token == "" ||
		req.refreshed || isAuthEndpoint(req.Path) {
		return resp, nil
	}

	// One refresh-and-replay per original request, even across retries.
	req.refreshed = true

	hooks := s.pipeline.sessionHooks()
	if hooks == nil {
		return resp, nil
	}

	s.logger.Debug("access token rejected, refreshing", "operation", req.operation())

	newToken, refreshErr := hooks.RefreshAccessToken(ctx)
	if refreshErr != nil {
		// A cancelled exchange says nothing about the session's validity;
		// surface the cancellation without forcing a logout.
		var canErr *apierr.CancelledError
		if errors.As(refreshErr, &canErr) {
			return nil, refreshErr
		}

		s.logger.Warn("token refresh failed, invalidating session", "error", refreshErr)
		hooks.InvalidateSession(ctx)
		return nil, &apierr.AuthError{
			Status:  http.StatusUnauthorized,
			Message: "session expired",
			Err:     refreshErr,
		}
	}

	req.Header.Set("Authorization", "Bearer "+newToken)
	return next(ctx, req)
}

// isAuthEndpoint reports whether the path belongs to the auth exchange.
func isAuthEndpoint(path string) bool {
	for _, p := range authExchangePaths {
		if path == p || strings.HasSuffix(path, p) {
			return true
		}
	}
	return false
}
