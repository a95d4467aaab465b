package session

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/automatedlife/mobile-core/apierr"
	"github.com/automatedlife/mobile-core/config"
	"github.com/automatedlife/mobile-core/store"
	"github.com/automatedlife/mobile-core/transport"
)

// Logger defines the logging interface used by the session manager.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Transport issues requests through the pipeline. *transport.Pipeline
// satisfies it.
type Transport interface {
	Do(ctx context.Context, req *transport.Request) (*transport.Response, error)
}

// Manager is the single source of truth for authentication state. Every
// transition (login, refresh, building selection, logout) flows through it;
// it persists through the credential store and broadcasts on three
// replay-last streams.
//
// Manager implements the pipeline's CredentialSource and SessionHooks
// interfaces and is safe for concurrent use.
type Manager struct {
	cfg       config.APIConfig
	transport Transport
	creds     *credentials
	logger    Logger

	states    *Stream[AuthState]
	users     *Stream[*User]
	buildings *Stream[*Building]

	refreshGroup singleflight.Group

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	user         *User
	selected     *Building
	available    []Building
	routingBase  *url.URL
}

// NewManager wires the manager to its store and transport. Call Hydrate once
// at startup to restore any persisted session.
func NewManager(cfg config.APIConfig, t Transport, s store.Store, logger Logger) *Manager {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Manager{
		cfg:       cfg,
		transport: t,
		creds:     &credentials{store: s},
		logger:    logger,
		states:    NewStream[AuthState](),
		users:     NewStream[*User](),
		buildings: NewStream[*Building](),
	}
}

// States returns the auth-state stream.
func (m *Manager) States() *Stream[AuthState] { return m.states }

// Users returns the current-user stream.
func (m *Manager) Users() *Stream[*User] { return m.users }

// SelectedBuildings returns the selected-building stream.
func (m *Manager) SelectedBuildings() *Stream[*Building] { return m.buildings }

// loginEnvelope is the POST /auth/login response body.
type loginEnvelope struct {
	Token        string     `json:"token"`
	RefreshToken string     `json:"refresh_token"`
	User         *User      `json:"user"`
	Payload      []Building `json:"payload"`
}

// refreshEnvelope is the POST /auth/refresh response body.
type refreshEnvelope struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

// Login authenticates with the server and establishes a session.
//
// On success the tokens, user, and granted building list are persisted. A
// sole granted building is selected automatically; multiple buildings leave
// the session in NeedsBuildingSelection until SelectBuilding is called.
//
// Rejected credentials surface as *apierr.AuthError or
// *apierr.ValidationError; transport failures as *apierr.NetworkError or
// *apierr.TimeoutError. On any failure the state returns to Unauthenticated.
func (m *Manager) Login(ctx context.Context, email, password, subdomain string) (*AuthResult, error) {
	if email == "" || password == "" {
		err := &apierr.ValidationError{
			Status:  http.StatusUnprocessableEntity,
			Message: "Email and password are required.",
		}
		return &AuthResult{Err: err}, err
	}

	m.states.Publish(Authenticating)

	body := map[string]string{"email": email, "password": password}
	if subdomain != "" {
		body["subdomain"] = subdomain
	}
	req, err := transport.NewJSONRequest(http.MethodPost, "/auth/login", body)
	if err != nil {
		m.states.Publish(Unauthenticated)
		return &AuthResult{Err: err}, err
	}

	resp, err := m.transport.Do(ctx, req.Named("auth.login"))
	if err != nil {
		m.logger.Debug("login rejected", "error", err)
		m.states.Publish(Unauthenticated)
		return &AuthResult{Err: err}, err
	}

	var envelope loginEnvelope
	if err := resp.Decode(&envelope); err != nil {
		m.states.Publish(Unauthenticated)
		return &AuthResult{Err: err}, err
	}
	if envelope.Token == "" || envelope.User == nil {
		err := &apierr.APIError{Message: "login response missing token or user"}
		m.states.Publish(Unauthenticated)
		return &AuthResult{Err: err}, err
	}

	if err := m.establishSession(ctx, &envelope); err != nil {
		m.states.Publish(Unauthenticated)
		return &AuthResult{Err: err}, err
	}

	m.logger.Info("login succeeded", "user_id", envelope.User.ID,
		"buildings", len(envelope.Payload))
	return &AuthResult{Success: true, User: envelope.User}, nil
}

// establishSession persists and publishes a fresh login's session state.
func (m *Manager) establishSession(ctx context.Context, env *loginEnvelope) error {
	if err := m.creds.writeToken(ctx, keyAccessToken, env.Token); err != nil {
		return err
	}
	if err := m.creds.writeToken(ctx, keyRefreshToken, env.RefreshToken); err != nil {
		return err
	}
	if err := m.creds.writeUser(ctx, env.User); err != nil {
		return err
	}
	if err := m.creds.writeBuildings(ctx, env.Payload); err != nil {
		return err
	}

	m.mu.Lock()
	m.accessToken = env.Token
	m.refreshToken = env.RefreshToken
	m.user = env.User
	m.available = env.Payload
	m.selected = nil
	m.routingBase = nil
	m.mu.Unlock()

	m.users.Publish(env.User)

	if len(env.Payload) == 1 {
		return m.SelectBuilding(ctx, env.Payload[0])
	}
	m.states.Publish(NeedsBuildingSelection)
	return nil
}

// SelectBuilding makes b the routing target for all subsequent relative
// requests. b must be one of the buildings granted at login.
func (m *Manager) SelectBuilding(ctx context.Context, b Building) error {
	m.mu.RLock()
	available := m.available
	m.mu.RUnlock()
	if available == nil {
		available = m.creds.readBuildings(ctx)
	}

	if len(available) > 0 {
		member := false
		for _, candidate := range available {
			if candidate.ID == b.ID {
				member = true
				break
			}
		}
		if !member {
			return &apierr.BuildingConfigError{
				Message: "building " + b.Name + " is not among the granted buildings",
			}
		}
	}

	base, err := b.APIBaseURL(m.cfg.BuildingHostPattern)
	if err != nil {
		return &apierr.BuildingConfigError{Message: err.Error()}
	}

	if err := m.creds.writeSelectedBuilding(ctx, &b); err != nil {
		return err
	}

	m.mu.Lock()
	m.selected = &b
	m.routingBase = base
	m.mu.Unlock()

	m.logger.Debug("building selected", "building_id", b.ID, "host", base.Host)
	m.buildings.Publish(&b)
	m.states.Publish(Authenticated)
	return nil
}

// refreshTimeout bounds the detached token exchange.
const refreshTimeout = 30 * time.Second

// Refresh exchanges the stored refresh token for a new access token and
// returns it. Concurrent callers are coalesced into a single server
// exchange, since refresh tokens may be single-use.
//
// A failed refresh leaves the session untouched; the caller decides whether
// to invalidate (the pipeline's auth stage does).
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	token, err, _ := m.refreshGroup.Do("refresh", func() (any, error) {
		// The exchange is shared by every coalesced caller, so it must not
		// die with whichever caller happened to start it. Detach from the
		// triggering context and bound the exchange on its own deadline.
		refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return m.doRefresh(refreshCtx)
	})
	if err != nil {
		return "", err
	}
	return token.(string), nil
}

func (m *Manager) doRefresh(ctx context.Context) (string, error) {
	m.mu.RLock()
	refresh := m.refreshToken
	m.mu.RUnlock()
	if refresh == "" {
		refresh = m.creds.readToken(ctx, keyRefreshToken)
	}
	if refresh == "" {
		return "", &apierr.AuthError{
			Status:  http.StatusUnauthorized,
			Message: "no refresh token available",
		}
	}

	req, err := transport.NewJSONRequest(http.MethodPost, "/auth/refresh",
		map[string]string{"refresh_token": refresh})
	if err != nil {
		return "", err
	}

	resp, err := m.transport.Do(ctx, req.Named("auth.refresh"))
	if err != nil {
		return "", err
	}

	var envelope refreshEnvelope
	if err := resp.Decode(&envelope); err != nil {
		return "", err
	}
	if envelope.Token == "" {
		return "", &apierr.APIError{Message: "refresh response missing token"}
	}

	if err := m.creds.writeToken(ctx, keyAccessToken, envelope.Token); err != nil {
		return "", err
	}
	newRefresh := envelope.RefreshToken
	if newRefresh == "" {
		newRefresh = refresh
	}
	if err := m.creds.writeToken(ctx, keyRefreshToken, newRefresh); err != nil {
		return "", err
	}

	m.mu.Lock()
	m.accessToken = envelope.Token
	m.refreshToken = newRefresh
	m.mu.Unlock()

	m.logger.Debug("access token refreshed")
	return envelope.Token, nil
}

// Logout tears the session down. The server-side revoke is best effort; the
// local state and credential store are always cleared. Safe to call
// repeatedly and never returns an error.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.RLock()
	token := m.accessToken
	m.mu.RUnlock()

	if token != "" {
		req := transport.NewRequest(http.MethodDelete, "/auth/logout").Named("auth.logout")
		if _, err := m.transport.Do(ctx, req); err != nil {
			m.logger.Debug("server-side logout failed", "error", err)
		}
	}

	m.clearLocal(ctx)
}

// InvalidateSession implements transport.SessionHooks. It applies logout
// semantics locally without the network revoke; the session is already dead
// server-side when this is called.
func (m *Manager) InvalidateSession(ctx context.Context) {
	m.logger.Warn("session invalidated")
	m.clearLocal(ctx)
}

func (m *Manager) clearLocal(ctx context.Context) {
	m.creds.clearSession(ctx)

	m.mu.Lock()
	m.accessToken = ""
	m.refreshToken = ""
	m.user = nil
	m.selected = nil
	m.available = nil
	m.routingBase = nil
	m.mu.Unlock()

	m.users.Publish(nil)
	m.buildings.Publish(nil)
	m.states.Publish(Unauthenticated)
}

// ValidateToken checks session liveness on app resume. A locally expired
// token is refreshed first; the server then confirms with GET /me. A
// definitive rejection applies logout semantics; a transient transport
// failure leaves the session untouched.
func (m *Manager) ValidateToken(ctx context.Context) error {
	m.mu.RLock()
	token := m.accessToken
	m.mu.RUnlock()
	if token == "" {
		token = m.creds.readToken(ctx, keyAccessToken)
	}
	if token == "" {
		return &apierr.AuthError{Status: http.StatusUnauthorized, Message: "no session"}
	}

	if tokenExpired(token, time.Now()) {
		if _, err := m.Refresh(ctx); err != nil {
			if !apierr.IsRetryable(err) {
				m.InvalidateSession(ctx)
			}
			return err
		}
	}

	req := transport.NewRequest(http.MethodGet, "/me").Named("auth.validate")
	if _, err := m.transport.Do(ctx, req); err != nil {
		if apierr.IsRetryable(err) {
			// Offline is not invalid; keep the session.
			return err
		}
		if status := apierr.StatusOf(err); status == http.StatusUnauthorized ||
			status == http.StatusForbidden {
			m.InvalidateSession(ctx)
		}
		return err
	}
	return nil
}

// Hydrate restores a persisted session at startup and publishes the
// matching state. Without stored credentials it publishes Unauthenticated.
func (m *Manager) Hydrate(ctx context.Context) {
	token := m.creds.readToken(ctx, keyAccessToken)
	if token == "" {
		m.states.Publish(Unauthenticated)
		return
	}

	refresh := m.creds.readToken(ctx, keyRefreshToken)
	user := m.creds.readUser(ctx)
	selected := m.creds.readSelectedBuilding(ctx)
	available := m.creds.readBuildings(ctx)

	var base *url.URL
	if selected != nil {
		derived, err := selected.APIBaseURL(m.cfg.BuildingHostPattern)
		if err != nil {
			selected = nil
		} else {
			base = derived
		}
	}

	m.mu.Lock()
	m.accessToken = token
	m.refreshToken = refresh
	m.user = user
	m.selected = selected
	m.available = available
	m.routingBase = base
	m.mu.Unlock()

	m.users.Publish(user)
	m.buildings.Publish(selected)
	if selected != nil {
		m.states.Publish(Authenticated)
	} else {
		m.states.Publish(NeedsBuildingSelection)
	}
	m.logger.Debug("session hydrated", "has_building", selected != nil)
}

// IsAuthenticated reports whether a session token exists, consulting the
// store when memory is empty.
func (m *Manager) IsAuthenticated(ctx context.Context) bool {
	m.mu.RLock()
	token := m.accessToken
	m.mu.RUnlock()
	if token != "" {
		return true
	}
	return m.creds.readToken(ctx, keyAccessToken) != ""
}

// CurrentUser returns the session user, hydrating lazily from the store.
func (m *Manager) CurrentUser(ctx context.Context) *User {
	m.mu.RLock()
	user := m.user
	m.mu.RUnlock()
	if user != nil {
		return user
	}
	return m.creds.readUser(ctx)
}

// SelectedBuilding returns the routing building, hydrating lazily.
func (m *Manager) SelectedBuilding(ctx context.Context) *Building {
	m.mu.RLock()
	selected := m.selected
	m.mu.RUnlock()
	if selected != nil {
		return selected
	}
	return m.creds.readSelectedBuilding(ctx)
}

// Buildings returns the granted building list, hydrating lazily.
func (m *Manager) Buildings(ctx context.Context) []Building {
	m.mu.RLock()
	available := m.available
	m.mu.RUnlock()
	if available != nil {
		return available
	}
	return m.creds.readBuildings(ctx)
}

// RememberedEmail returns the login email saved for pre-filling the form.
func (m *Manager) RememberedEmail(ctx context.Context) string {
	return m.creds.readToken(ctx, keyRememberedEmail)
}

// SetRememberedEmail saves (or, with "", clears) the pre-fill email.
func (m *Manager) SetRememberedEmail(ctx context.Context, email string) error {
	if email == "" {
		return m.creds.store.Delete(ctx, keyRememberedEmail)
	}
	return m.creds.writeToken(ctx, keyRememberedEmail, email)
}

// BiometricEnabled reports the biometric-unlock preference flag.
func (m *Manager) BiometricEnabled(ctx context.Context) bool {
	enabled, err := store.GetBool(ctx, m.creds.store, keyBiometricEnabled)
	if err != nil {
		return false
	}
	return enabled
}

// SetBiometricEnabled persists the biometric-unlock preference flag.
func (m *Manager) SetBiometricEnabled(ctx context.Context, enabled bool) error {
	if err := store.PutBool(ctx, m.creds.store, keyBiometricEnabled, enabled); err != nil {
		return &apierr.StorageError{Op: "write biometric flag", Err: err}
	}
	return nil
}

// AccessToken implements transport.CredentialSource.
func (m *Manager) AccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.accessToken
}

// BuildingBaseURL implements transport.CredentialSource.
func (m *Manager) BuildingBaseURL() *url.URL {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.routingBase
}

// RefreshAccessToken implements transport.SessionHooks.
func (m *Manager) RefreshAccessToken(ctx context.Context) (string, error) {
	return m.Refresh(ctx)
}
