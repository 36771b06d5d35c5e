package auth

import (
	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// Operation names an action subject to access control.
type Operation string

const (
	OpCreateTicket   Operation = "ticket:create"
	OpViewTicket     Operation = "ticket:view"
	OpUpdateTicket   Operation = "ticket:update"
	OpWithdrawTicket Operation = "ticket:withdraw"
	OpAssignTicket   Operation = "ticket:assign"
	OpDeleteTicket   Operation = "ticket:delete"
	OpListAgents     Operation = "agents:list"
	OpManageUsers    Operation = "users:manage"
	OpViewActivities Operation = "activities:view"
)

// Resource carries the ownership facts of the ticket being acted on.
type Resource struct {
	OwnerID    string
	AssigneeID *string
}

// TicketResource describes a ticket for Authorize.
func TicketResource(ticket *domain.Ticket) Resource {
	return Resource{OwnerID: ticket.OwnerID, AssigneeID: ticket.AssignedTo}
}

func (r Resource) assignedTo(id string) bool {
	return r.AssigneeID != nil && *r.AssigneeID == id
}

// Authorize decides whether actor may perform op on res. It returns nil when
// allowed and a forbidden error otherwise.
func Authorize(actor domain.Actor, op Operation, res Resource) error {
	switch actor.Role {
	case domain.RoleAdmin:
		if op == OpWithdrawTicket {
			return apperrors.NewForbidden("only the ticket owner can withdraw it")
		}
		return nil
	case domain.RoleAgent:
		switch op {
		case OpCreateTicket:
			return nil
		case OpViewTicket, OpUpdateTicket:
			if res.assignedTo(actor.ID) {
				return nil
			}
			return apperrors.NewForbidden("ticket is not assigned to you")
		case OpWithdrawTicket:
			return apperrors.NewForbidden("only the ticket owner can withdraw it")
		}
	case domain.RoleUser:
		switch op {
		case OpCreateTicket:
			return nil
		case OpViewTicket, OpWithdrawTicket:
			if res.OwnerID != "" && res.OwnerID == actor.ID {
				return nil
			}
			if op == OpWithdrawTicket {
				return apperrors.NewForbidden("only the ticket owner can withdraw it")
			}
			return apperrors.NewForbidden("you do not own this ticket")
		case OpUpdateTicket:
			return apperrors.NewForbidden("users can only withdraw their tickets")
		}
	}
	return apperrors.NewForbidden("insufficient role")
}

// AllowedTarget checks whether role may move a ticket into target status.
func AllowedTarget(role domain.Role, target domain.TicketStatus) error {
	switch role {
	case domain.RoleUser:
		if target == domain.TicketStatusWithdrawn {
			return nil
		}
		return apperrors.NewForbidden("users can only withdraw their tickets")
	case domain.RoleAgent, domain.RoleAdmin:
		switch target {
		case domain.TicketStatusOpen, domain.TicketStatusInProgress, domain.TicketStatusResolved:
			return nil
		case domain.TicketStatusWithdrawn:
			return apperrors.NewForbidden("only the ticket owner can withdraw it")
		}
		return apperrors.NewValidationError("invalid status", nil)
	}
	return apperrors.NewForbidden("insufficient role")
}

// Scope is the implicit listing predicate for an actor. Nil fields mean
// no restriction.
type Scope struct {
	OwnerID    *string
	AssigneeID *string
}

// ScopeFor returns the listing predicate for actor.
func ScopeFor(actor domain.Actor) (Scope, error) {
	id := actor.ID
	switch actor.Role {
	case domain.RoleAdmin:
		return Scope{}, nil
	case domain.RoleAgent:
		return Scope{AssigneeID: &id}, nil
	case domain.RoleUser:
		return Scope{OwnerID: &id}, nil
	}
	return Scope{}, apperrors.NewForbidden("insufficient role")
}
