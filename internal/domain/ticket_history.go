package domain

import "time"

// HistoryEntry is an immutable line in a ticket's timeline.
type HistoryEntry struct {
	ID        string
	TicketID  string
	Message   string
	ActorID   string
	ActorName string
	CreatedAt time.Time
}
