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

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	history    repository.TicketHistoryRepository
	activity   *ActivityService
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	HistoryRepo repository.TicketHistoryRepository
	Activities  *ActivityService
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Priority    string
}

// TicketListInput describes listing filters. The caller's role scope is
// applied on top.
type TicketListInput struct {
	Status string
	Search string
	Limit  int
	Offset int
}

// TicketUpdateInput carries a status change and/or a note.
type TicketUpdateInput struct {
	Status string
	Note   string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		history:    deps.HistoryRepo,
		activity:   deps.Activities,
		dispatcher: deps.Dispatcher,
		logger:     loggerOrNop(deps.Logger),
	}
}

// Create opens a ticket owned by the caller.
func (s *TicketService) Create(ctx context.Context, actor domain.Actor, input TicketCreateInput) (*domain.Ticket, error) {
	if err := auth.Authorize(actor, auth.OpCreateTicket, auth.Resource{}); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title is required", nil)
	}
	priority, err := domain.ParseTicketPriority(input.Priority)
	if err != nil {
		return nil, apperrors.NewValidationError("priority must be one of low, medium, high", nil)
	}

	ticket := &domain.Ticket{
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Priority:    priority,
		Status:      domain.TicketStatusOpen,
		OwnerID:     actor.ID,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	ticket.OwnerName = actor.Name
	ticket.OwnerEmail = actor.Email
	ticket.History = []domain.HistoryEntry{}

	s.activity.Record(ctx, domain.ActivityCreateTicket, ticket.ID, actor.ID, ticket.Title)
	publish(ctx, s.dispatcher, s.logger, events.NewEvent(events.EventTicketCreated, ticket.ID, actor.ID,
		events.TicketCreatedPayload{Title: ticket.Title, Priority: ticket.Priority, OwnerEmail: actor.Email}))
	return ticket, nil
}

// List returns tickets visible to the caller, newest first.
func (s *TicketService) List(ctx context.Context, actor domain.Actor, input TicketListInput) ([]domain.Ticket, error) {
	scope, err := auth.ScopeFor(actor)
	if err != nil {
		return nil, err
	}
	filter := repository.TicketFilter{
		OwnerID:    scope.OwnerID,
		AssigneeID: scope.AssigneeID,
		SearchTerm: strings.TrimSpace(input.Search),
		Limit:      input.Limit,
		Offset:     input.Offset,
	}
	if raw := strings.TrimSpace(input.Status); raw != "" {
		status, err := domain.ParseTicketStatus(raw)
		if err != nil {
			return nil, apperrors.NewValidationError("unknown status filter", nil)
		}
		filter.Status = &status
	}
	tickets, err := s.tickets.List(ctx, filter)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return tickets, nil
}

// Summary counts tickets within the caller's listing scope.
func (s *TicketService) Summary(ctx context.Context, actor domain.Actor) (*domain.TicketSummary, error) {
	scope, err := auth.ScopeFor(actor)
	if err != nil {
		return nil, err
	}
	summary, err := s.tickets.Summary(ctx, repository.TicketFilter{OwnerID: scope.OwnerID, AssigneeID: scope.AssigneeID})
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return summary, nil
}

// Get returns a ticket with its history if the caller may view it.
func (s *TicketService) Get(ctx context.Context, actor domain.Actor, id string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "ticket")
	}
	if err := auth.Authorize(actor, auth.OpViewTicket, auth.TicketResource(ticket)); err != nil {
		return nil, err
	}
	return s.withHistory(ctx, ticket)
}

// Update applies a status change and/or note. A withdrawn target routes to
// the owner's withdrawal path; every other change is reserved to agents and
// admins.
func (s *TicketService) Update(ctx context.Context, actor domain.Actor, id string, input TicketUpdateInput) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "ticket")
	}

	var target *domain.TicketStatus
	if raw := strings.TrimSpace(input.Status); raw != "" {
		status, err := domain.ParseTicketStatus(raw)
		if err != nil {
			return nil, apperrors.NewValidationError("status must be one of open, in_progress, resolved, withdrawn", nil)
		}
		target = &status
	}
	if target != nil && *target == domain.TicketStatusWithdrawn {
		return s.withdraw(ctx, actor, ticket)
	}

	if err := auth.Authorize(actor, auth.OpUpdateTicket, auth.TicketResource(ticket)); err != nil {
		return nil, err
	}
	note := strings.TrimSpace(input.Note)
	if target == nil && note == "" {
		return nil, apperrors.NewValidationError("status or note is required", nil)
	}

	change := repository.TicketChange{TicketID: ticket.ID}
	if actor.Role == domain.RoleAgent {
		change.RequireAssignee = &actor.ID
	}
	message := note
	details := note
	if target != nil {
		if err := auth.AllowedTarget(actor.Role, *target); err != nil {
			return nil, err
		}
		if ticket.Status == domain.TicketStatusWithdrawn {
			return nil, apperrors.NewValidationError("withdrawn tickets cannot change status", nil)
		}
		change.Status = target
		change.FromStatuses = []domain.TicketStatus{
			domain.TicketStatusOpen, domain.TicketStatusInProgress, domain.TicketStatusResolved,
		}
		message = fmt.Sprintf("Status changed from %s to %s", ticket.Status, *target)
		if note != "" {
			message += ": " + note
		}
		details = string(*target)
	}
	change.History = domain.HistoryEntry{Message: message, ActorID: actor.ID}

	updated, err := s.tickets.ApplyChange(ctx, change)
	if err != nil {
		return nil, storeError(err, "ticket")
	}

	s.activity.Record(ctx, domain.ActivityUpdateTicket, updated.ID, actor.ID, details)
	publish(ctx, s.dispatcher, s.logger, events.NewEvent(events.EventTicketUpdated, updated.ID, actor.ID,
		events.TicketUpdatedPayload{
			Title:      updated.Title,
			OldStatus:  ticket.Status,
			NewStatus:  updated.Status,
			Note:       note,
			OwnerEmail: updated.OwnerEmail,
		}))
	return s.withHistory(ctx, updated)
}

func (s *TicketService) withdraw(ctx context.Context, actor domain.Actor, ticket *domain.Ticket) (*domain.Ticket, error) {
	if err := auth.Authorize(actor, auth.OpWithdrawTicket, auth.TicketResource(ticket)); err != nil {
		return nil, err
	}
	notActive := apperrors.NewValidationError("only open or in-progress tickets can be withdrawn", nil)
	if !ticket.Status.IsActive() {
		return nil, notActive
	}

	withdrawn := domain.TicketStatusWithdrawn
	updated, err := s.tickets.ApplyChange(ctx, repository.TicketChange{
		TicketID:     ticket.ID,
		Status:       &withdrawn,
		FromStatuses: domain.ActiveStatuses,
		History:      domain.HistoryEntry{Message: "Ticket withdrawn", ActorID: actor.ID},
	})
	if err != nil {
		if apperrors.HasCode(storeError(err, "ticket"), apperrors.CodeConflict) {
			return nil, notActive
		}
		return nil, storeError(err, "ticket")
	}

	s.activity.Record(ctx, domain.ActivityWithdraw, updated.ID, actor.ID, "withdrawn")
	return s.withHistory(ctx, updated)
}

// Delete removes a ticket and its history. The audit trail is kept.
func (s *TicketService) Delete(ctx context.Context, actor domain.Actor, id string) error {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return storeError(err, "ticket")
	}
	if err := auth.Authorize(actor, auth.OpDeleteTicket, auth.TicketResource(ticket)); err != nil {
		return err
	}
	if err := s.tickets.Delete(ctx, ticket.ID); err != nil {
		return storeError(err, "ticket")
	}
	s.activity.Record(ctx, domain.ActivityDeleteTicket, ticket.ID, actor.ID, ticket.Title)
	return nil
}

func (s *TicketService) withHistory(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	history, err := s.history.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	ticket.History = history
	return ticket, nil
}
