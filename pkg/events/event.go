package events

import "time"

// Memory lifecycle event codes. Subjects are "memory.<code>".
const (
	ReasoningCacheEvicted    = "REASONING_CACHE_EVICTED"
	ReasoningCacheInvalidate = "REASONING_CACHE_INVALIDATE"
	ReasoningSessionClosed   = "REASONING_SESSION_CLOSED"
)

// Event is what travels on the bus: a code, a JSON-able payload and the time
// it was raised. Only the payload is serialized.
type Event interface {
	EventType() string
	Payload() map[string]interface{}
	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// Subject is the bus subject an event code is published on.
func Subject(eventType string) string {
	return "memory." + eventType
}
