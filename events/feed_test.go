package events

import (
	"context"
	"encoding/json"
	"testing"
)

// fakeSubscriber records subscriptions and lets tests inject messages.
type fakeSubscriber struct {
	handlers map[string]MessageHandler
	subErr   error
}

func newFakeSubscriber() *fakeSubscriber {
	return &fakeSubscriber{handlers: make(map[string]MessageHandler)}
}

func (f *fakeSubscriber) Subscribe(topic string, qos byte, handler MessageHandler) error {
	if f.subErr != nil {
		return f.subErr
	}
	f.handlers[topic] = handler
	return nil
}

func (f *fakeSubscriber) Unsubscribe(topic string) error {
	delete(f.handlers, topic)
	return nil
}

// deliver simulates a broker message on a concrete topic, dispatching to the
// wildcard badge subscription when one matches.
func (f *fakeSubscriber) deliver(t *testing.T, subscribedAs, topic string, payload []byte) {
	t.Helper()
	h, ok := f.handlers[subscribedAs]
	if !ok {
		t.Fatalf("no subscription for %q", subscribedAs)
	}
	if err := h(topic, payload); err != nil {
		t.Fatalf("handler error: %v", err)
	}
}

type fakeInvalidator struct {
	calls int
}

func (f *fakeInvalidator) InvalidateSession(ctx context.Context) { f.calls++ }

func TestTopicBuilders(t *testing.T) {
	topics := Topics{}

	tests := []struct {
		got  string
		want string
	}{
		{topics.CapabilityBadge(12, "messages"), "buildings/12/capabilities/messages/badge"},
		{topics.AllCapabilityBadges(12), "buildings/12/capabilities/+/badge"},
		{topics.UserSession(12, 7), "buildings/12/sessions/7"},
		{topics.BuildingBroadcast(12), "buildings/12/broadcast"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("topic = %q, want %q", tt.got, tt.want)
		}
	}
}

func TestFeedDispatchesBadgeUpdates(t *testing.T) {
	sub := newFakeSubscriber()

	var gotBuilding int
	var gotKey string
	var gotData json.RawMessage
	feed := NewFeed(sub, nil, func(buildingID int, key string, data json.RawMessage) {
		gotBuilding, gotKey, gotData = buildingID, key, data
	}, 1)

	if err := feed.Watch(context.Background(), 12, 7); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	payload := []byte(`{"unread":3}`)
	sub.deliver(t, "buildings/12/capabilities/+/badge",
		"buildings/12/capabilities/messages/badge", payload)

	if gotBuilding != 12 || gotKey != "messages" {
		t.Errorf("dispatched (%d, %q), want (12, messages)", gotBuilding, gotKey)
	}
	if string(gotData) != `{"unread":3}` {
		t.Errorf("data = %s", gotData)
	}
}

func TestFeedRevocationInvalidatesSession(t *testing.T) {
	sub := newFakeSubscriber()
	inv := &fakeInvalidator{}
	feed := NewFeed(sub, inv, nil, 1)

	if err := feed.Watch(context.Background(), 12, 7); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	sub.deliver(t, "buildings/12/sessions/7", "buildings/12/sessions/7",
		[]byte(`{"action":"revoked","reason":"password_changed"}`))

	if inv.calls != 1 {
		t.Errorf("invalidate calls = %d, want 1", inv.calls)
	}
}

func TestFeedIgnoresUnknownSessionActions(t *testing.T) {
	sub := newFakeSubscriber()
	inv := &fakeInvalidator{}
	feed := NewFeed(sub, inv, nil, 1)

	if err := feed.Watch(context.Background(), 12, 7); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	sub.deliver(t, "buildings/12/sessions/7", "buildings/12/sessions/7",
		[]byte(`{"action":"issued_elsewhere"}`))

	if inv.calls != 0 {
		t.Errorf("invalidate calls = %d, want 0", inv.calls)
	}
}

func TestFeedWatchReplacesPreviousBuilding(t *testing.T) {
	sub := newFakeSubscriber()
	feed := NewFeed(sub, nil, func(int, string, json.RawMessage) {}, 1)

	if err := feed.Watch(context.Background(), 12, 7); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	if err := feed.Watch(context.Background(), 34, 7); err != nil {
		t.Fatalf("Watch second: %v", err)
	}

	if _, ok := sub.handlers["buildings/12/capabilities/+/badge"]; ok {
		t.Error("previous building's badge subscription not released")
	}
	if _, ok := sub.handlers["buildings/34/capabilities/+/badge"]; !ok {
		t.Error("new building's badge subscription missing")
	}
}

func TestParseBadgeTopic(t *testing.T) {
	tests := []struct {
		topic string
		id    int
		key   string
		ok    bool
	}{
		{"buildings/12/capabilities/messages/badge", 12, "messages", true},
		{"buildings/12/capabilities/badge", 0, "", false},
		{"other/12/capabilities/messages/badge", 0, "", false},
		{"buildings/not-a-number/capabilities/messages/badge", 0, "", false},
	}
	for _, tt := range tests {
		id, key, ok := parseBadgeTopic(tt.topic)
		if id != tt.id || key != tt.key || ok != tt.ok {
			t.Errorf("parseBadgeTopic(%q) = (%d, %q, %v), want (%d, %q, %v)",
				tt.topic, id, key, ok, tt.id, tt.key, tt.ok)
		}
	}
}
