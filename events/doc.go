// Package events delivers live building updates over MQTT.
//
// The backend pushes two kinds of messages the client cares about:
// capability badge payloads (unread counts, alerts shown on the home-screen
// tiles) and session control messages (remote revocation). Client is a thin
// subscriber-only wrapper over paho.mqtt.golang with auto-reconnect and
// tracked subscriptions; Feed maps the building-scoped topic hierarchy onto
// domain callbacks and the session manager.
//
// The whole package is optional: with events disabled in configuration,
// Connect returns ErrDisabled and the app runs without a live feed.
package events
