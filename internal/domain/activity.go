package domain

import "time"

// ActivityAction tags the kind of state change an activity records.
type ActivityAction string

const (
	ActivityCreateTicket ActivityAction = "create_ticket"
	ActivityAssign       ActivityAction = "assign"
	ActivityUpdateTicket ActivityAction = "update_ticket"
	ActivityWithdraw     ActivityAction = "withdraw"
	ActivityDeleteTicket ActivityAction = "delete_ticket"
)

// Activity is an append-only audit record.
type Activity struct {
	ID          string
	Action      ActivityAction
	TicketID    string
	ActorID     string
	Details     string
	CreatedAt   time.Time
	ActorName   *string
	ActorEmail  *string
	TicketTitle *string
}
