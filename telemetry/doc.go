// Package telemetry records request diagnostics from the pipeline.
//
// The Recorder interface decouples the metrics stage from any backend:
// Noop (the default), Memory (tests, debug screens), and InfluxRecorder
// (optional shipping to an operator-designated InfluxDB bucket, gated by
// config and disabled by default).
//
// Recording is fire-and-forget: the InfluxDB writer batches points and sends
// them asynchronously, so a slow or absent backend never delays a request.
// No user-identifying data is recorded — points are tagged with the
// opaque per-install ID only.
package telemetry
