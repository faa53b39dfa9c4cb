package events

import "time"

// Event codes emitted by the collaboration core. Consumers filter on these
// via the events.<CODE> subject.
const (
	TypeSessionCreated   = "SESSION_CREATED"
	TypeUserJoined       = "USER_JOINED"
	TypeUserLeft         = "USER_LEFT"
	TypeConflictDetected = "CONFLICT_DETECTED"
	TypeSyncCompleted    = "SYNC_COMPLETED"
)

// NewSessionEvent builds a collaboration lifecycle event. The session id is
// always present in the payload so consumers can route without parsing.
func NewSessionEvent(eventType, sessionID string, data map[string]interface{}) BaseEvent {
	if data == nil {
		data = make(map[string]interface{})
	}
	data["session_id"] = sessionID
	return BaseEvent{
		Type:       eventType,
		Data:       data,
		OccurredAt: time.Now().UTC(),
	}
}
