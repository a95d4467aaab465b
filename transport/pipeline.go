package transport

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/automatedlife/mobile-core/config"
	"github.com/automatedlife/mobile-core/telemetry"
)

// Logger defines the logging interface used by the pipeline.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// CredentialSource supplies the pipeline with the current access token and
// building routing base. The session manager implements it.
type CredentialSource interface {
	// AccessToken returns the current access token, or "" when
	// unauthenticated.
	AccessToken() string

	// BuildingBaseURL returns the selected building's derived API base URL,
	// or nil when no building is selected.
	BuildingBaseURL() *url.URL
}

// SessionHooks lets the pipeline drive session transitions on auth failures.
// The session manager implements it.
type SessionHooks interface {
	// RefreshAccessToken exchanges the stored refresh token for a new access
	// token and returns it.
	RefreshAccessToken(ctx context.Context) (string, error)

	// InvalidateSession forces logout semantics after a failed refresh.
	InvalidateSession(ctx context.Context)
}

// Pipeline composes the fixed stage chain around an HTTP dialer and applies
// it to every outbound request.
//
// Stage nesting, outermost first: logging (optional), metrics, retry,
// normalise, building-context, auth, dialer. That nesting yields the
// required observable behaviour: the request leaves with the building host
// resolved before auth headers matter, errors are normalised into the typed
// taxonomy before the retry stage classifies them, and logging only ever
// observes — it never alters an outcome.
//
// A Pipeline is safe for concurrent use; independent requests may run in
// parallel.
type Pipeline struct {
	handler Handler
	base    *url.URL
	logger  Logger

	mu    sync.RWMutex
	creds CredentialSource
	hooks SessionHooks
}

// Options configures pipeline construction beyond the config file.
type Options struct {
	// Logger receives diagnostic output. Defaults to a no-op logger.
	Logger Logger

	// Recorder receives request metrics. Defaults to telemetry.Noop.
	Recorder telemetry.Recorder

	// Terminal overrides the HTTP dialer. Tests use this to substitute a
	// scripted handler; production leaves it nil.
	Terminal Handler
}

// New builds the pipeline from configuration.
func New(cfg config.APIConfig, opts Options) (*Pipeline, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("transport: base URL %q is not absolute", cfg.BaseURL)
	}
	if cfg.Retry.MaxRetries < 0 {
		return nil, fmt.Errorf("transport: max retries must not be negative, got %d", cfg.Retry.MaxRetries)
	}
	if cfg.Retry.MaxRetries > 0 && len(cfg.Retry.BackoffSeconds) != cfg.Retry.MaxRetries {
		return nil, fmt.Errorf("transport: backoff schedule has %d entries for %d retries",
			len(cfg.Retry.BackoffSeconds), cfg.Retry.MaxRetries)
	}

	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	recorder := opts.Recorder
	if recorder == nil {
		recorder = telemetry.Noop{}
	}

	p := &Pipeline{
		base:   base,
		logger: logger,
	}

	terminal := opts.Terminal
	if terminal == nil {
		timeout := time.Duration(cfg.Timeout) * time.Second
		terminal = newDialer(timeout).handle
	}

	backoff := make([]time.Duration, len(cfg.Retry.BackoffSeconds))
	for i, s := range cfg.Retry.BackoffSeconds {
		backoff[i] = time.Duration(s) * time.Second
	}

	stages := []Stage{}
	if cfg.LogRequests {
		stages = append(stages, &loggingStage{logger: logger})
	}
	stages = append(stages,
		&metricsStage{recorder: recorder},
		&retryStage{max: cfg.Retry.MaxRetries, backoff: backoff, logger: logger},
		&normalizeStage{},
		&buildingContextStage{pipeline: p},
		&authStage{pipeline: p, logger: logger},
	)

	p.handler = chain(stages, terminal)
	return p, nil
}

// chain folds the ordered stage list around the terminal handler.
func chain(stages []Stage, terminal Handler) Handler {
	h := terminal
	for i := len(stages) - 1; i >= 0; i-- {
		stage := stages[i]
		next := h
		h = func(ctx context.Context, req *Request) (*Response, error) {
			return stage.Execute(ctx, req, next)
		}
	}
	return h
}

// Bind attaches the session manager to the pipeline. It must be called once
// during startup, before requests flow; until then the pipeline behaves as
// unauthenticated with default routing.
func (p *Pipeline) Bind(creds CredentialSource, hooks SessionHooks) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.creds = creds
	p.hooks = hooks
}

// Do runs a request through the full stage chain.
func (p *Pipeline) Do(ctx context.Context, req *Request) (*Response, error) {
	if req.Header == nil {
		req.Header = make(map[string][]string)
	}
	if req.Query == nil {
		req.Query = url.Values{}
	}
	return p.handler(ctx, req)
}

// accessToken returns the bound session's token, or "" before Bind.
func (p *Pipeline) accessToken() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.creds == nil {
		return ""
	}
	return p.creds.AccessToken()
}

// routingBase returns the effective base URL for relative paths: the
// selected building's derived host when present, the default otherwise.
func (p *Pipeline) routingBase() *url.URL {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.creds != nil {
		if u := p.creds.BuildingBaseURL(); u != nil {
			return u
		}
	}
	return p.base
}

// sessionHooks returns the bound hooks, or nil before Bind.
func (p *Pipeline) sessionHooks() SessionHooks {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.hooks
}
