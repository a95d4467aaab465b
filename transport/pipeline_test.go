package transport

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/automatedlife/mobile-core/apierr"
	"github.com/automatedlife/mobile-core/config"
	"github.com/automatedlife/mobile-core/telemetry"
)

// testCreds is a scripted CredentialSource.
type testCreds struct {
	token string
	base  *url.URL
}

func (c *testCreds) AccessToken() string       { return c.token }
func (c *testCreds) BuildingBaseURL() *url.URL { return c.base }

// testHooks is a scripted SessionHooks recording calls.
type testHooks struct {
	refreshToken string
	refreshErr   error
	refreshCalls int
	invalidated  int
}

func (h *testHooks) RefreshAccessToken(ctx context.Context) (string, error) {
	h.refreshCalls++
	if h.refreshErr != nil {
		return "", h.refreshErr
	}
	return h.refreshToken, nil
}

func (h *testHooks) InvalidateSession(ctx context.Context) { h.invalidated++ }

// testConfig returns an APIConfig with zero backoff so retry tests run fast.
func testConfig() config.APIConfig {
	return config.APIConfig{
		BaseURL:             "https://api.example.test/api/v1",
		BuildingHostPattern: "https://%s.example.test/api/v1",
		Timeout:             5,
		Retry: config.RetryConfig{
			MaxRetries:     2,
			BackoffSeconds: []int{0, 0},
		},
	}
}

// testPipeline builds a pipeline whose terminal handler is scripted.
func testPipeline(t *testing.T, cfg config.APIConfig, terminal Handler) *Pipeline {
	t.Helper()
	p, err := New(cfg, Options{Terminal: terminal})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func jsonResponse(status int, body string) *Response {
	return &Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       []byte(body),
	}
}

func TestPipelineResolvesAgainstDefaultBase(t *testing.T) {
	var gotURL string
	p := testPipeline(t, testConfig(), func(ctx context.Context, req *Request) (*Response, error) {
		gotURL = req.resolved.String()
		return jsonResponse(200, `{}`), nil
	})

	if _, err := p.Do(context.Background(), NewRequest(http.MethodGet, "/me")); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if want := "https://api.example.test/api/v1/me"; gotURL != want {
		t.Errorf("resolved URL = %q, want %q", gotURL, want)
	}
}

func TestPipelineResolvesAgainstBuildingBase(t *testing.T) {
	var gotURL string
	p := testPipeline(t, testConfig(), func(ctx context.Context, req *Request) (*Response, error) {
		gotURL = req.resolved.String()
		return jsonResponse(200, `{}`), nil
	})

	base, _ := url.Parse("https://oakview.example.test/api/v1")
	p.Bind(&testCreds{token: "tok", base: base}, &testHooks{})

	if _, err := p.Do(context.Background(), NewRequest(http.MethodGet, "/capabilities")); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if want := "https://oakview.example.test/api/v1/capabilities"; gotURL != want {
		t.Errorf("resolved URL = %q, want %q", gotURL, want)
	}
}

func TestPipelineAbsoluteURLBypassesRouting(t *testing.T) {
	var gotURL string
	p := testPipeline(t, testConfig(), func(ctx context.Context, req *Request) (*Response, error) {
		gotURL = req.resolved.String()
		return jsonResponse(200, `{}`), nil
	})

	req := NewRequest(http.MethodGet, "https://files.example.test/documents/42")
	if _, err := p.Do(context.Background(), req); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if want := "https://files.example.test/documents/42"; gotURL != want {
		t.Errorf("resolved URL = %q, want %q", gotURL, want)
	}
}

func TestPipelineMergesQueryParams(t *testing.T) {
	var gotURL *url.URL
	p := testPipeline(t, testConfig(), func(ctx context.Context, req *Request) (*Response, error) {
		gotURL = req.resolved
		return jsonResponse(200, `{}`), nil
	})

	req := NewRequest(http.MethodGet, "/aliases")
	req.Query.Set("type", "branding")
	if _, err := p.Do(context.Background(), req); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if got := gotURL.Query().Get("type"); got != "branding" {
		t.Errorf("query type = %q, want %q", got, "branding")
	}
}

func TestPipelineSetsBearerToken(t *testing.T) {
	var gotAuth string
	p := testPipeline(t, testConfig(), func(ctx context.Context, req *Request) (*Response, error) {
		gotAuth = req.Header.Get("Authorization")
		return jsonResponse(200, `{}`), nil
	})
	p.Bind(&testCreds{token: "abc123"}, &testHooks{})

	if _, err := p.Do(context.Background(), NewRequest(http.MethodGet, "/me")); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if gotAuth != "Bearer abc123" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer abc123")
	}
}

func TestPipelineNoBearerWhenUnauthenticated(t *testing.T) {
	var gotAuth string
	p := testPipeline(t, testConfig(), func(ctx context.Context, req *Request) (*Response, error) {
		gotAuth = req.Header.Get("Authorization")
		return jsonResponse(200, `{}`), nil
	})

	if _, err := p.Do(context.Background(), NewRequest(http.MethodPost, "/auth/login")); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if gotAuth != "" {
		t.Errorf("Authorization = %q, want empty", gotAuth)
	}
}

func TestPipelineRefreshAndReplayOn401(t *testing.T) {
	var seenTokens []string
	p := testPipeline(t, testConfig(), func(ctx context.Context, req *Request) (*Response, error) {
		seenTokens = append(seenTokens, req.Header.Get("Authorization"))
		if len(seenTokens) == 1 {
			return jsonResponse(401, `{"message":"token expired"}`), nil
		}
		return jsonResponse(200, `{"ok":true}`), nil
	})
	hooks := &testHooks{refreshToken: "fresh"}
	p.Bind(&testCreds{token: "stale"}, hooks)

	resp, err := p.Do(context.Background(), NewRequest(http.MethodGet, "/me"))
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if hooks.refreshCalls != 1 {
		t.Errorf("refresh calls = %d, want 1", hooks.refreshCalls)
	}
	want := []string{"Bearer stale", "Bearer fresh"}
	if len(seenTokens) != 2 || seenTokens[0] != want[0] || seenTokens[1] != want[1] {
		t.Errorf("seen tokens = %v, want %v", seenTokens, want)
	}
}

func TestPipelineRefreshFailureInvalidatesSession(t *testing.T) {
	p := testPipeline(t, testConfig(), func(ctx context.Context, req *Request) (*Response, error) {
		return jsonResponse(401, `{}`), nil
	})
	hooks := &testHooks{refreshErr: errors.New("refresh token revoked")}
	p.Bind(&testCreds{token: "stale"}, hooks)

	_, err := p.Do(context.Background(), NewRequest(http.MethodGet, "/me"))
	var authErr *apierr.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("error = %v, want AuthError", err)
	}
	if authErr.Message != "session expired" {
		t.Errorf("message = %q, want %q", authErr.Message, "session expired")
	}
	if hooks.invalidated != 1 {
		t.Errorf("invalidate calls = %d, want 1", hooks.invalidated)
	}
}

func TestPipelineCancelledRefreshDoesNotInvalidateSession(t *testing.T) {
	p := testPipeline(t, testConfig(), func(ctx context.Context, req *Request) (*Response, error) {
		return jsonResponse(401, `{}`), nil
	})
	hooks := &testHooks{refreshErr: &apierr.CancelledError{Err: context.Canceled}}
	p.Bind(&testCreds{token: "stale"}, hooks)

	_, err := p.Do(context.Background(), NewRequest(http.MethodGet, "/me"))
	var canErr *apierr.CancelledError
	if !errors.As(err, &canErr) {
		t.Fatalf("error = %v, want CancelledError", err)
	}
	if hooks.invalidated != 0 {
		t.Errorf("invalidate calls = %d, want 0", hooks.invalidated)
	}
}

func TestPipelineSingleRefreshPerRequest(t *testing.T) {
	calls := 0
	p := testPipeline(t, testConfig(), func(ctx context.Context, req *Request) (*Response, error) {
		calls++
		return jsonResponse(401, `{}`), nil
	})
	hooks := &testHooks{refreshToken: "fresh"}
	p.Bind(&testCreds{token: "stale"}, hooks)

	_, err := p.Do(context.Background(), NewRequest(http.MethodGet, "/me"))
	var authErr *apierr.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("error = %v, want AuthError after replayed 401", err)
	}
	if hooks.refreshCalls != 1 {
		t.Errorf("refresh calls = %d, want 1", hooks.refreshCalls)
	}
	if calls != 2 {
		t.Errorf("dial calls = %d, want 2 (original + replay)", calls)
	}
}

func TestPipelineNoRefreshOnAuthExchange(t *testing.T) {
	p := testPipeline(t, testConfig(), func(ctx context.Context, req *Request) (*Response, error) {
		return jsonResponse(401, `{"message":"bad credentials"}`), nil
	})
	hooks := &testHooks{refreshToken: "fresh"}
	p.Bind(&testCreds{token: "tok"}, hooks)

	_, err := p.Do(context.Background(), NewRequest(http.MethodPost, "/auth/login"))
	var authErr *apierr.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("error = %v, want AuthError", err)
	}
	if hooks.refreshCalls != 0 {
		t.Errorf("refresh calls = %d, want 0 for auth exchange endpoint", hooks.refreshCalls)
	}
}

func TestPipelineRetriesTransientFailures(t *testing.T) {
	calls := 0
	p := testPipeline(t, testConfig(), func(ctx context.Context, req *Request) (*Response, error) {
		calls++
		if calls < 3 {
			return nil, &timeoutNetError{}
		}
		return jsonResponse(200, `{}`), nil
	})

	resp, err := p.Do(context.Background(), NewRequest(http.MethodGet, "/me"))
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if calls != 3 {
		t.Errorf("dial calls = %d, want 3", calls)
	}
}

func TestPipelineDoesNotRetryClientErrors(t *testing.T) {
	calls := 0
	p := testPipeline(t, testConfig(), func(ctx context.Context, req *Request) (*Response, error) {
		calls++
		return jsonResponse(404, `{"message":"not found"}`), nil
	})

	_, err := p.Do(context.Background(), NewRequest(http.MethodGet, "/me"))
	var cliErr *apierr.ClientError
	if !errors.As(err, &cliErr) {
		t.Fatalf("error = %v, want ClientError", err)
	}
	if calls != 1 {
		t.Errorf("dial calls = %d, want 1", calls)
	}
}

func TestPipelineRetriesExhaustedSurfacesLastError(t *testing.T) {
	calls := 0
	p := testPipeline(t, testConfig(), func(ctx context.Context, req *Request) (*Response, error) {
		calls++
		return nil, &timeoutNetError{}
	})

	_, err := p.Do(context.Background(), NewRequest(http.MethodGet, "/me"))
	var toErr *apierr.TimeoutError
	if !errors.As(err, &toErr) {
		t.Fatalf("error = %v, want TimeoutError", err)
	}
	if calls != 3 {
		t.Errorf("dial calls = %d, want 3 (initial + 2 retries)", calls)
	}
}

func TestPipelineRecordsMetrics(t *testing.T) {
	rec := &telemetry.Memory{}
	cfg := testConfig()
	p, err := New(cfg, Options{
		Recorder: rec,
		Terminal: func(ctx context.Context, req *Request) (*Response, error) {
			return jsonResponse(200, `{}`), nil
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	req := NewRequest(http.MethodGet, "/me").Named("profile.get")
	if _, err := p.Do(context.Background(), req); err != nil {
		t.Fatalf("Do: %v", err)
	}

	samples := rec.Samples()
	if len(samples) != 1 {
		t.Fatalf("samples = %d, want 1", len(samples))
	}
	s := samples[0]
	if s.Operation != "profile.get" {
		t.Errorf("operation = %q, want %q", s.Operation, "profile.get")
	}
	if s.Status != 200 {
		t.Errorf("status = %d, want 200", s.Status)
	}
}

func TestNewRejectsMismatchedBackoffSchedule(t *testing.T) {
	cases := []struct {
		name    string
		retries int
		backoff []int
	}{
		{"retries without schedule", 3, nil},
		{"schedule shorter than retries", 3, []int{1}},
		{"negative retries", -1, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Retry.MaxRetries = tc.retries
			cfg.Retry.BackoffSeconds = tc.backoff
			if _, err := New(cfg, Options{}); err == nil {
				t.Error("New accepted an invalid retry config")
			}
		})
	}
}

func TestPipelineRetryHonoursCancellation(t *testing.T) {
	cfg := testConfig()
	cfg.Retry.BackoffSeconds = []int{5, 5}

	ctx, cancel := context.WithCancel(context.Background())
	p := testPipeline(t, cfg, func(ctx context.Context, req *Request) (*Response, error) {
		cancel()
		return nil, &timeoutNetError{}
	})

	start := time.Now()
	_, err := p.Do(ctx, NewRequest(http.MethodGet, "/me"))
	var canErr *apierr.CancelledError
	if !errors.As(err, &canErr) {
		t.Fatalf("error = %v, want CancelledError", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("cancellation took %v, want immediate", elapsed)
	}
}

// timeoutNetError satisfies net.Error with Timeout() == true.
type timeoutNetError struct{}

func (*timeoutNetError) Error() string   { return "dial tcp: i/o timeout" }
func (*timeoutNetError) Timeout() bool   { return true }
func (*timeoutNetError) Temporary() bool { return true }
