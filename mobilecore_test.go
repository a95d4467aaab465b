package mobilecore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/automatedlife/mobile-core/config"
	"github.com/automatedlife/mobile-core/session"
)

func testApp(t *testing.T, route func(r chi.Router)) *App {
	t.Helper()

	r := chi.NewRouter()
	route(r)
	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)

	cfg := config.Default()
	cfg.API.BaseURL = ts.URL
	cfg.API.Retry.MaxRetries = 0
	cfg.API.Retry.BackoffSeconds = nil
	cfg.Storage.Path = filepath.Join(t.TempDir(), "credentials.db")

	app, err := New(cfg, []byte("device-secret"), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		if err := app.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return app
}

func TestAppLoginEndToEnd(t *testing.T) {
	app := testApp(t, func(r chi.Router) {
		r.Post("/auth/login", func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck // test server
				"token":         "access-1",
				"refresh_token": "refresh-1",
				"user":          map[string]any{"id": 7, "name": "Dana Wells", "email": "dana@example.test"},
				"payload": []map[string]any{
					{"id": 1, "name": "Oakview", "subdomain": "oakview"},
				},
			})
		})
	})

	states, cancel := app.Session.States().Subscribe()
	defer cancel()
	// New hydrates before returning; with an empty store that publishes
	// Unauthenticated.
	if got := <-states; got != session.Unauthenticated {
		t.Fatalf("initial state = %v, want %v", got, session.Unauthenticated)
	}

	result, err := app.Session.Login(context.Background(), "dana@example.test", "secret", "")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !result.Success {
		t.Fatalf("result = %+v", result)
	}

	if state, _ := app.Session.States().Last(); state != session.Authenticated {
		t.Errorf("state = %v, want %v", state, session.Authenticated)
	}
	if app.Pipeline == nil || app.API == nil || app.Store == nil {
		t.Error("app services not wired")
	}
}

func TestAppHydratesPersistedSessionAcrossRestarts(t *testing.T) {
	dir := t.TempDir()
	route := func(r chi.Router) {
		r.Post("/auth/login", func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck // test server
				"token":         "access-1",
				"refresh_token": "refresh-1",
				"user":          map[string]any{"id": 7, "name": "Dana Wells"},
				"payload": []map[string]any{
					{"id": 1, "name": "Oakview", "subdomain": "oakview"},
				},
			})
		})
	}

	r := chi.NewRouter()
	route(r)
	ts := httptest.NewServer(r)
	defer ts.Close()

	cfg := config.Default()
	cfg.API.BaseURL = ts.URL
	cfg.Storage.Path = filepath.Join(dir, "credentials.db")

	first, err := New(cfg, []byte("device-secret"), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := first.Session.Login(context.Background(), "dana@example.test", "secret", ""); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Same store path and device secret: the session must survive.
	second, err := New(cfg, []byte("device-secret"), nil)
	if err != nil {
		t.Fatalf("New second: %v", err)
	}
	defer second.Close() //nolint:errcheck // test cleanup

	if state, _ := second.Session.States().Last(); state != session.Authenticated {
		t.Errorf("state after restart = %v, want %v", state, session.Authenticated)
	}
	if u := second.Session.CurrentUser(context.Background()); u == nil || u.ID != 7 {
		t.Errorf("user after restart = %+v, want user 7", u)
	}
}
