package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated  EventType = "ticket_created"
	EventTicketAssigned EventType = "ticket_assigned"
	EventTicketUpdated  EventType = "ticket_updated"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  string    `json:"ticket_id"`
	ActorID   string    `json:"actor_id"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(eventType EventType, ticketID, actorID string, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		ActorID:   actorID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Title      string                `json:"title"`
	Priority   domain.TicketPriority `json:"priority"`
	OwnerEmail string                `json:"owner_email"`
}

// TicketAssignedPayload payload. Recipient addresses travel with the event
// so handlers never query the store.
type TicketAssignedPayload struct {
	Title      string `json:"title"`
	AgentName  string `json:"agent_name"`
	AgentEmail string `json:"agent_email"`
	OwnerEmail string `json:"owner_email"`
}

// TicketUpdatedPayload payload.
type TicketUpdatedPayload struct {
	Title      string              `json:"title"`
	OldStatus  domain.TicketStatus `json:"old_status"`
	NewStatus  domain.TicketStatus `json:"new_status"`
	Note       string              `json:"note,omitempty"`
	OwnerEmail string              `json:"owner_email"`
}
