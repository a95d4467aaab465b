package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Subscriber is the broker surface the feed needs. *Client satisfies it;
// tests substitute a fake.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler MessageHandler) error
	Unsubscribe(topic string) error
}

// SessionInvalidator applies logout semantics when the backend revokes the
// session remotely. The session manager satisfies it.
type SessionInvalidator interface {
	InvalidateSession(ctx context.Context)
}

// BadgeHandler receives live badge payloads for a building capability
// (unread counts, alerts). The payload feeds capability tile Data.
type BadgeHandler func(buildingID int, capabilityKey string, data json.RawMessage)

// Feed maps building-scoped broker topics onto domain callbacks: capability
// badge updates and remote session revocation. One feed watches one building
// at a time, following the selected building.
type Feed struct {
	subscriber  Subscriber
	invalidator SessionInvalidator
	onBadge     BadgeHandler
	qos         byte
	topics      Topics

	watchedBuilding int
	watchedUser     int
}

// NewFeed wires the feed. onBadge may be nil when the caller only cares
// about session revocation.
func NewFeed(s Subscriber, invalidator SessionInvalidator, onBadge BadgeHandler, qos byte) *Feed {
	return &Feed{
		subscriber:  s,
		invalidator: invalidator,
		onBadge:     onBadge,
		qos:         qos,
	}
}

// sessionMessage is the payload on the user-session topic.
type sessionMessage struct {
	Action string `json:"action"`
	Reason string `json:"reason,omitempty"`
}

// Watch subscribes to the building's badge updates and the user's session
// control topic. Watching a new building first releases the previous one.
func (f *Feed) Watch(ctx context.Context, buildingID, userID int) error {
	if f.watchedBuilding != 0 {
		f.Unwatch()
	}

	badgeTopic := f.topics.AllCapabilityBadges(buildingID)
	if err := f.subscriber.Subscribe(badgeTopic, f.qos, f.handleBadge); err != nil {
		return fmt.Errorf("watching badges for building %d: %w", buildingID, err)
	}

	sessionTopic := f.topics.UserSession(buildingID, userID)
	if err := f.subscriber.Subscribe(sessionTopic, f.qos, func(topic string, payload []byte) error {
		return f.handleSession(ctx, payload)
	}); err != nil {
		f.subscriber.Unsubscribe(badgeTopic) //nolint:errcheck // rollback
		return fmt.Errorf("watching session for user %d: %w", userID, err)
	}

	f.watchedBuilding = buildingID
	f.watchedUser = userID
	return nil
}

// Unwatch releases the current building's subscriptions.
func (f *Feed) Unwatch() {
	if f.watchedBuilding == 0 {
		return
	}
	f.subscriber.Unsubscribe(f.topics.AllCapabilityBadges(f.watchedBuilding)) //nolint:errcheck // best effort
	f.subscriber.Unsubscribe(f.topics.UserSession(f.watchedBuilding, f.watchedUser)) //nolint:errcheck // best effort
	f.watchedBuilding = 0
	f.watchedUser = 0
}

// handleBadge parses buildings/{id}/capabilities/{key}/badge and forwards
// the payload.
func (f *Feed) handleBadge(topic string, payload []byte) error {
	if f.onBadge == nil {
		return nil
	}

	buildingID, key, ok := parseBadgeTopic(topic)
	if !ok {
		return fmt.Errorf("unexpected badge topic %q", topic)
	}

	f.onBadge(buildingID, key, json.RawMessage(payload))
	return nil
}

// handleSession reacts to session control messages. Only revocation is
// acted on; unknown actions are ignored so the backend can add message
// kinds without breaking older clients.
func (f *Feed) handleSession(ctx context.Context, payload []byte) error {
	var msg sessionMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("decoding session message: %w", err)
	}

	if msg.Action == "revoked" && f.invalidator != nil {
		f.invalidator.InvalidateSession(ctx)
	}
	return nil
}

// parseBadgeTopic extracts the building ID and capability key from a
// buildings/{id}/capabilities/{key}/badge topic.
func parseBadgeTopic(topic string) (int, string, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 5 || parts[0] != topicPrefixBuildings ||
		parts[2] != "capabilities" || parts[4] != "badge" {
		return 0, "", false
	}
	id, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, "", false
	}
	return id, parts[3], true
}
