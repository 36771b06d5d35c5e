package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// AssignmentService manages agent assignment.
type AssignmentService struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	history    repository.TicketHistoryRepository
	activity   *ActivityService
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// AssignmentDependencies bundles collaborators for the assignment service.
type AssignmentDependencies struct {
	TicketRepo  repository.TicketRepository
	UserRepo    repository.UserRepository
	HistoryRepo repository.TicketHistoryRepository
	Activities  *ActivityService
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	return &AssignmentService{
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		history:    deps.HistoryRepo,
		activity:   deps.Activities,
		dispatcher: deps.Dispatcher,
		logger:     loggerOrNop(deps.Logger),
	}
}

// Assign hands an active ticket to an agent and moves it to in_progress.
// Reassignment overwrites the previous assignee.
func (s *AssignmentService) Assign(ctx context.Context, actor domain.Actor, ticketID, agentID string) (*domain.Ticket, error) {
	if err := auth.Authorize(actor, auth.OpAssignTicket, auth.Resource{}); err != nil {
		return nil, err
	}
	ticketID = strings.TrimSpace(ticketID)
	agentID = strings.TrimSpace(agentID)
	if ticketID == "" || agentID == "" {
		return nil, apperrors.NewValidationError("ticket id and agent id are required", nil)
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, storeError(err, "ticket")
	}
	agent, err := s.users.GetByID(ctx, agentID)
	if err != nil {
		return nil, storeError(err, "agent")
	}
	if agent.Role != domain.RoleAgent {
		return nil, apperrors.NewValidationError("assignee must have the agent role", nil)
	}
	notActive := apperrors.NewValidationError("only open or in-progress tickets can be assigned", nil)
	if !ticket.Status.IsActive() {
		return nil, notActive
	}

	message := fmt.Sprintf("Assigned to %s", agent.Name)
	inProgress := domain.TicketStatusInProgress
	updated, err := s.tickets.ApplyChange(ctx, repository.TicketChange{
		TicketID:     ticket.ID,
		Status:       &inProgress,
		AssignedTo:   &agent.ID,
		FromStatuses: domain.ActiveStatuses,
		History:      domain.HistoryEntry{Message: message, ActorID: actor.ID},
	})
	if err != nil {
		mapped := storeError(err, "ticket")
		if apperrors.HasCode(mapped, apperrors.CodeConflict) {
			return nil, notActive
		}
		return nil, mapped
	}

	s.activity.Record(ctx, domain.ActivityAssign, updated.ID, actor.ID, message)
	publish(ctx, s.dispatcher, s.logger, events.NewEvent(events.EventTicketAssigned, updated.ID, actor.ID,
		events.TicketAssignedPayload{
			Title:      updated.Title,
			AgentName:  agent.Name,
			AgentEmail: agent.Email,
			OwnerEmail: updated.OwnerEmail,
		}))

	history, err := s.history.ListByTicket(ctx, updated.ID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	updated.History = history
	return updated, nil
}

// ListAgents returns every user with the agent role.
func (s *AssignmentService) ListAgents(ctx context.Context, actor domain.Actor) ([]domain.User, error) {
	if err := auth.Authorize(actor, auth.OpListAgents, auth.Resource{}); err != nil {
		return nil, err
	}
	role := domain.RoleAgent
	agents, err := s.users.List(ctx, repository.UserFilter{Role: &role})
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return agents, nil
}
