// Package mobilecore assembles the client core: encrypted credential store,
// request pipeline, session manager, typed API client, and the optional
// live event feed and telemetry, wired together from a single Config.
package mobilecore

import (
	"context"
	"errors"
	"fmt"

	"github.com/automatedlife/mobile-core/api"
	"github.com/automatedlife/mobile-core/config"
	"github.com/automatedlife/mobile-core/events"
	"github.com/automatedlife/mobile-core/logging"
	"github.com/automatedlife/mobile-core/session"
	"github.com/automatedlife/mobile-core/store"
	"github.com/automatedlife/mobile-core/telemetry"
	"github.com/automatedlife/mobile-core/transport"
)

// Version is the core library version, stamped into logs.
const Version = "1.0.0"

// App is the assembled client core. Construct it once per process with New,
// hand the services to the UI layer, and Close it on teardown.
type App struct {
	Config   *config.Config
	Store    *store.SQLiteStore
	Pipeline *transport.Pipeline
	Session  *session.Manager
	API      *api.Client
	Feed     *events.Feed

	logger     *logging.Logger
	recorder   telemetry.Recorder
	events     *events.Client
	feedCancel func()
}

// New builds the core from configuration.
//
// The deviceSecret is platform keychain material used to derive the store's
// encryption key; it must be stable across launches on the same device.
// Construction order: store, telemetry, pipeline, session manager (bound to
// the pipeline), API client, event feed. The persisted session, if any, is
// hydrated before New returns, so the auth-state stream immediately reflects
// reality.
func New(cfg *config.Config, deviceSecret []byte, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.New(cfg.Logging, Version)
	}

	st, err := store.Open(store.Config{
		Path:        cfg.Storage.Path,
		WALMode:     cfg.Storage.WALMode,
		BusyTimeout: cfg.Storage.BusyTimeout,
	}, deviceSecret)
	if err != nil {
		return nil, fmt.Errorf("opening credential store: %w", err)
	}

	ctx := context.Background()
	installID, err := st.InstallID(ctx)
	if err != nil {
		st.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("reading install ID: %w", err)
	}

	var recorder telemetry.Recorder = telemetry.Noop{}
	if cfg.Telemetry.Enabled {
		influx, err := telemetry.Connect(cfg.Telemetry, installID)
		if err != nil {
			logger.Warn("telemetry unavailable, continuing without", "error", err)
		} else {
			recorder = influx
		}
	}

	pipeline, err := transport.New(cfg.API, transport.Options{
		Logger:   logger.With("component", "transport"),
		Recorder: recorder,
	})
	if err != nil {
		st.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("building pipeline: %w", err)
	}

	manager := session.NewManager(cfg.API, pipeline, st,
		logger.With("component", "session"))
	pipeline.Bind(manager, manager)

	app := &App{
		Config:   cfg,
		Store:    st,
		Pipeline: pipeline,
		Session:  manager,
		API:      api.NewClient(pipeline),
		logger:   logger,
		recorder: recorder,
	}

	if cfg.Events.Enabled {
		if err := app.connectFeed(installID); err != nil {
			logger.Warn("event feed unavailable, continuing without", "error", err)
		}
	}

	manager.Hydrate(ctx)
	logger.Info("core initialised", "install_id", installID,
		"events", app.events != nil)
	return app, nil
}

// connectFeed brings up the live event feed and follows the selected
// building: each selection re-targets the feed's subscriptions, and a remote
// revocation invalidates the session.
func (a *App) connectFeed(installID string) error {
	clientID := a.Config.Events.Broker.ClientID
	if clientID == "" {
		clientID = "mobile-" + installID
	}

	client, err := events.Connect(a.Config.Events, clientID)
	if err != nil {
		if errors.Is(err, events.ErrDisabled) {
			return nil
		}
		return err
	}
	client.SetLogger(a.logger.With("component", "events"))

	a.events = client
	a.Feed = events.NewFeed(client, a.Session, nil, byte(a.Config.Events.QoS))

	buildings, cancel := a.Session.SelectedBuildings().Subscribe()
	a.feedCancel = cancel
	go a.followSelectedBuilding(buildings)
	return nil
}

// followSelectedBuilding re-targets the feed whenever the selected building
// changes. It exits when the stream's subscription is cancelled by Close.
func (a *App) followSelectedBuilding(buildings <-chan *session.Building) {
	ctx := context.Background()

	for b := range buildings {
		if b == nil {
			a.Feed.Unwatch()
			continue
		}
		user := a.Session.CurrentUser(ctx)
		if user == nil {
			continue
		}
		if err := a.Feed.Watch(ctx, b.ID, user.ID); err != nil {
			a.logger.Warn("event feed watch failed",
				"building_id", b.ID, "error", err)
		}
	}
}

// Close tears the core down in reverse construction order. Safe to call once.
func (a *App) Close() error {
	if a.feedCancel != nil {
		a.feedCancel()
	}
	if a.events != nil {
		a.events.Close() //nolint:errcheck // shutdown path
	}
	if closer, ok := a.recorder.(interface{ Close() error }); ok {
		closer.Close() //nolint:errcheck // shutdown path
	}

	if err := a.Store.Close(); err != nil {
		return fmt.Errorf("closing credential store: %w", err)
	}
	a.logger.Info("core shut down")
	return nil
}
