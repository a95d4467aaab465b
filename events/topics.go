package events

import "fmt"

// topicPrefixBuildings is the base for all building-scoped topics.
// Scheme: buildings/{buildingID}/{category}/...
const topicPrefixBuildings = "buildings"

// Topics provides builders for the event feed's topic hierarchy. Using these
// helpers keeps topic naming consistent between subscribers and tests.
//
//	topics := events.Topics{}
//	badge := topics.CapabilityBadge(12, "messages")
//	// Returns: "buildings/12/capabilities/messages/badge"
type Topics struct{}

// CapabilityBadge returns the topic carrying badge payloads (unread counts,
// alerts) for one capability of a building.
//
// Example: buildings/12/capabilities/messages/badge
func (Topics) CapabilityBadge(buildingID int, key string) string {
	return fmt.Sprintf("%s/%d/capabilities/%s/badge", topicPrefixBuildings, buildingID, key)
}

// AllCapabilityBadges returns the wildcard pattern matching badge updates
// for every capability of a building.
//
// Example: buildings/12/capabilities/+/badge
func (Topics) AllCapabilityBadges(buildingID int) string {
	return fmt.Sprintf("%s/%d/capabilities/+/badge", topicPrefixBuildings, buildingID)
}

// UserSession returns the topic carrying session control messages (remote
// revocation) for one user within a building.
//
// Example: buildings/12/sessions/7
func (Topics) UserSession(buildingID, userID int) string {
	return fmt.Sprintf("%s/%d/sessions/%d", topicPrefixBuildings, buildingID, userID)
}

// BuildingBroadcast returns the topic for building-wide announcements.
//
// Example: buildings/12/broadcast
func (Topics) BuildingBroadcast(buildingID int) string {
	return fmt.Sprintf("%s/%d/broadcast", topicPrefixBuildings, buildingID)
}
