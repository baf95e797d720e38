package mqtt

import "strings"

// DefaultTopicPrefix is used when the configured prefix is empty.
const DefaultTopicPrefix = "pmdesk"

// Topics builds topic names under a prefix.
//
//	topics := mqtt.NewTopics("pmdesk")
//	topics.Event("change_request", "approve")
//	// Returns: "pmdesk/events/change_request/approve"
type Topics struct {
	prefix string
}

// NewTopics returns a builder for prefix. Leading and trailing slashes are
// trimmed.
func NewTopics(prefix string) Topics {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{prefix: prefix}
}

// Event returns the topic for an activity event.
//
// Example: pmdesk/events/task/update
func (t Topics) Event(entity, action string) string {
	return t.prefix + "/events/" + segment(entity) + "/" + segment(action)
}

// AllEvents returns a pattern matching every activity event.
//
// Pattern: pmdesk/events/#
func (t Topics) AllEvents() string {
	return t.prefix + "/events/#"
}

// SystemStatus returns the retained online/offline status topic.
//
// Example: pmdesk/system/status
func (t Topics) SystemStatus() string {
	return t.prefix + "/system/status"
}

// segment keeps a value from adding levels or wildcards to a topic.
func segment(s string) string {
	if s == "" {
		return "unknown"
	}
	return strings.NewReplacer("/", "_", "+", "_", "#", "_").Replace(s)
}
