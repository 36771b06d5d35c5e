package domain

import (
	"fmt"
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusWithdrawn  TicketStatus = "withdrawn"
)

// ActiveStatuses are the states from which a ticket can still be assigned or withdrawn.
var ActiveStatuses = []TicketStatus{TicketStatusOpen, TicketStatusInProgress}

// ParseTicketStatus validates a raw status value.
func ParseTicketStatus(raw string) (TicketStatus, error) {
	status := TicketStatus(strings.ToLower(strings.TrimSpace(raw)))
	switch status {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved, TicketStatusWithdrawn:
		return status, nil
	}
	return "", fmt.Errorf("unknown ticket status %q", raw)
}

// IsActive reports whether the status is open or in progress.
func (s TicketStatus) IsActive() bool {
	return s == TicketStatusOpen || s == TicketStatusInProgress
}

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
)

// Priorities lists priorities in ascending order.
var Priorities = []TicketPriority{TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh}

// ParseTicketPriority validates a raw priority. Empty input defaults to low.
func ParseTicketPriority(raw string) (TicketPriority, error) {
	priority := TicketPriority(strings.ToLower(strings.TrimSpace(raw)))
	switch priority {
	case "":
		return TicketPriorityLow, nil
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh:
		return priority, nil
	}
	return "", fmt.Errorf("unknown ticket priority %q", raw)
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID           string
	Title        string
	Description  string
	Priority     TicketPriority
	Status       TicketStatus
	OwnerID      string
	OwnerName    string
	OwnerEmail   string
	AssignedTo   *string
	AssigneeName *string
	History      []HistoryEntry
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAssignedTo reports whether the ticket is assigned to the given user.
func (t *Ticket) IsAssignedTo(userID string) bool {
	return t.AssignedTo != nil && *t.AssignedTo == userID
}

// TicketSummary aggregates ticket counts within a listing scope.
type TicketSummary struct {
	Open       int
	InProgress int
	Resolved   int
	Withdrawn  int
	Assigned   int
	ByPriority map[TicketPriority]int
}
