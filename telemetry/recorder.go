package telemetry

import (
	"sync"
	"time"
)

// Recorder receives request diagnostics from the pipeline's metrics stage.
//
// Implementations must be safe for concurrent use and must never block the
// request path; shipping happens asynchronously.
type Recorder interface {
	// RecordRequest records one completed API request. status is 0 when the
	// request never produced an HTTP response; retries counts re-attempts
	// beyond the initial try.
	RecordRequest(operation string, status int, duration time.Duration, retries int)
}

// Noop is a Recorder that discards everything. It is the default when
// telemetry is disabled.
type Noop struct{}

// RecordRequest discards the sample.
func (Noop) RecordRequest(string, int, time.Duration, int) {}

// Sample is one recorded request, as kept by the in-memory recorder.
type Sample struct {
	Operation string
	Status    int
	Duration  time.Duration
	Retries   int
}

// Memory is an in-memory Recorder used by tests and debug screens.
type Memory struct {
	mu      sync.Mutex
	samples []Sample
}

// RecordRequest appends the sample.
func (m *Memory) RecordRequest(operation string, status int, duration time.Duration, retries int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.samples = append(m.samples, Sample{
		Operation: operation,
		Status:    status,
		Duration:  duration,
		Retries:   retries,
	})
}

// Samples returns a copy of everything recorded so far.
func (m *Memory) Samples() []Sample {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Sample, len(m.samples))
	copy(out, m.samples)
	return out
}
