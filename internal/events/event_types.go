package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventRoleChanged        EventType = "role_changed"
	EventPermissionChanged  EventType = "permission_changed"
	EventUserChanged        EventType = "user_changed"
	EventTicketCreated      EventType = "ticket_created"
	EventTicketStateChanged EventType = "ticket_state_changed"
	EventTicketDetailAdded  EventType = "ticket_detail_added"
)

// Actions carried by change payloads.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionRemoved = "removed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	EntityID  string    `json:"entityId"`
	ActorID   string    `json:"actorId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// New stamps an event with a fresh id and the current time.
func New(eventType EventType, entityID, actorID string, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		EntityID:  entityID,
		ActorID:   actorID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// RoleChangedPayload lists every role whose sessions went stale.
type RoleChangedPayload struct {
	Action  string   `json:"action"`
	RoleIDs []string `json:"roleIds"`
}

// UserChangedPayload payload.
type UserChangedPayload struct {
	Action string `json:"action"`
}

// TicketPayload describes a ticket lifecycle event.
type TicketPayload struct {
	TicketNumber int64  `json:"ticketNumber"`
	Code         string `json:"code"`
	State        string `json:"state,omitempty"`
	Message      string `json:"message"`
}
