package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/automatedlife/mobile-core/config"
)

// Default timeouts for telemetry operations.
const (
	defaultConnectTimeout = 10 * time.Second

	// msPerSecond converts seconds to milliseconds for the InfluxDB API.
	msPerSecond = 1000
)

// Sentinel errors for telemetry operations.
var (
	// ErrDisabled indicates telemetry is disabled in configuration.
	ErrDisabled = errors.New("telemetry: disabled in configuration")

	// ErrConnectionFailed indicates the initial connection attempt failed.
	ErrConnectionFailed = errors.New("telemetry: connection failed")
)

// InfluxRecorder ships request diagnostics to an InfluxDB bucket designated
// by the building operator.
//
// Writes are non-blocking and batched; a failed batch never affects the
// request path. All methods are safe for concurrent use.
type InfluxRecorder struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI

	installID string

	mu        sync.RWMutex
	connected bool
	onError   func(err error)
}

// Connect creates a recorder from the telemetry configuration.
//
// Returns ErrDisabled when telemetry is off; callers fall back to Noop.
// installID tags every point so operators can separate devices without
// identifying users.
func Connect(cfg config.TelemetryConfig, installID string) (*InfluxRecorder, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	flushInterval := cfg.FlushInterval
	if flushInterval <= 0 {
		flushInterval = 10
	}

	// #nosec G115 -- values validated above to be positive
	client := influxdb2.NewClientWithOptions(
		cfg.URL,
		cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(uint(batchSize)).
			SetFlushInterval(uint(flushInterval)*msPerSecond),
	)

	ctx, cancel := context.WithTimeout(context.Background(), defaultConnectTimeout)
	defer cancel()

	healthy, err := client.Ping(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping failed: %w", ErrConnectionFailed, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: server not healthy", ErrConnectionFailed)
	}

	r := &InfluxRecorder{
		client:    client,
		writeAPI:  client.WriteAPI(cfg.Org, cfg.Bucket),
		installID: installID,
		connected: true,
	}

	errorsCh := r.writeAPI.Errors()
	go r.handleWriteErrors(errorsCh)

	return r, nil
}

// handleWriteErrors processes async write errors from the WriteAPI.
func (r *InfluxRecorder) handleWriteErrors(errorsCh <-chan error) {
	for err := range errorsCh {
		r.mu.RLock()
		callback := r.onError
		r.mu.RUnlock()

		if callback != nil {
			callback(err)
		}
	}
}

// RecordRequest writes one api_request point. Non-blocking.
func (r *InfluxRecorder) RecordRequest(operation string, status int, duration time.Duration, retries int) {
	if !r.IsConnected() {
		return
	}

	point := write.NewPoint(
		"api_request",
		map[string]string{
			"install_id": r.installID,
			"operation":  operation,
		},
		map[string]interface{}{
			"status":      status,
			"duration_ms": float64(duration.Milliseconds()),
			"retries":     retries,
		},
		time.Now(),
	)

	r.writeAPI.WritePoint(point)
}

// SetOnError sets a callback invoked when async batch writes fail.
func (r *InfluxRecorder) SetOnError(callback func(err error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onError = callback
}

// IsConnected returns the last known connection state.
func (r *InfluxRecorder) IsConnected() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.connected
}

// Flush forces all pending points out. Blocks until the buffer drains.
func (r *InfluxRecorder) Flush() {
	if r.writeAPI == nil || !r.IsConnected() {
		return
	}
	r.writeAPI.Flush()
}

// Close flushes pending writes and shuts the client down.
func (r *InfluxRecorder) Close() error {
	if r.client == nil {
		return nil
	}

	r.mu.Lock()
	r.connected = false
	r.mu.Unlock()

	r.writeAPI.Flush()
	r.client.Close()
	return nil
}
