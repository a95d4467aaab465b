package transport

import (
	"context"
	"net/url"
	"strings"

	"github.com/automatedlife/mobile-core/apierr"
)

// buildingContextStage resolves every request to an absolute URL before any
// later stage runs, so auth refresh-and-replay and retries always target the
// correct host.
//
// Relative paths are joined to the selected building's derived base URL, or
// to the default base URL while no building is selected. Absolute URLs pass
// through untouched.
type buildingContextStage struct {
	pipeline *Pipeline
}

func (s *buildingContextStage) Name() string { return "building-context" }

func (s *buildingContextStage) Execute(ctx context.Context, req *Request, next Handler) (*Response, error) {
	if req.isAbsolute() {
		u, err := url.Parse(req.Path)
		if err != nil {
			return nil, &apierr.APIError{Message: "invalid absolute request URL: " + req.Path}
		}
		req.resolved = u
	} else {
		base := s.pipeline.routingBase()
		req.resolved = joinURL(base, req.Path)
	}

	if len(req.Query) > 0 {
		q := req.resolved.Query()
		for k, vs := range req.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u := *req.resolved
		u.RawQuery = q.Encode()
		req.resolved = &u
	}

	return next(ctx, req)
}

// joinURL appends a request path to a base URL, keeping the base's own path
// prefix (e.g. /api/v1) intact.
func joinURL(base *url.URL, path string) *url.URL {
	u := *base
	u.Path = strings.TrimSuffix(base.Path, "/") + "/" + strings.TrimPrefix(path, "/")
	return &u
}
