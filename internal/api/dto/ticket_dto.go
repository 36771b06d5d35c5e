package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=5000"`
	Priority    string `json:"priority"`
}

// UpdateTicketRequest payload: a status change, a note, or both.
type UpdateTicketRequest struct {
	Status string `json:"status"`
	Note   string `json:"note" validate:"max=2000"`
}

// AssignTicketRequest payload.
type AssignTicketRequest struct {
	TicketID string `json:"ticket_id" validate:"required"`
	AgentID  string `json:"agent_id" validate:"required"`
}

// TicketListQuery captures query filters.
type TicketListQuery struct {
	Search   string `query:"q"`
	Status   string `query:"status"`
	Page     int    `query:"page"`
	PageSize int    `query:"page_size" validate:"min=0,max=100"`
}

// HistoryEntryResponse is one timeline line.
type HistoryEntryResponse struct {
	Message   string    `json:"message"`
	ActorID   string    `json:"actor_id"`
	ActorName string    `json:"actor_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// TicketResponse is the ticket projection returned by every ticket endpoint.
type TicketResponse struct {
	ID           string                 `json:"id"`
	Title        string                 `json:"title"`
	Description  string                 `json:"description"`
	Priority     domain.TicketPriority  `json:"priority"`
	Status       domain.TicketStatus    `json:"status"`
	OwnerID      string                 `json:"owner_id"`
	OwnerName    string                 `json:"owner_name,omitempty"`
	AssignedTo   *string                `json:"assigned_to"`
	AssigneeName *string                `json:"assignee_name,omitempty"`
	History      []HistoryEntryResponse `json:"history,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

// SummaryCounts are the headline numbers of the dashboard summary.
type SummaryCounts struct {
	Active     int `json:"active"`
	InProgress int `json:"in_progress"`
	Solved     int `json:"solved"`
	Withdrawn  int `json:"withdrawn"`
	Assigned   int `json:"assigned"`
}

// ChartData is a labelled series.
type ChartData struct {
	Labels []string `json:"labels"`
	Data   []int    `json:"data"`
}

// SummaryResponse is returned by GET /tickets/summary.
type SummaryResponse struct {
	Summary SummaryCounts `json:"summary"`
	Chart   ChartData     `json:"chart"`
}

// ActivityResponse is one audit record with display fields resolved.
type ActivityResponse struct {
	ID          string                `json:"id"`
	Action      domain.ActivityAction `json:"action"`
	TicketID    string                `json:"ticket_id,omitempty"`
	TicketTitle *string               `json:"ticket_title"`
	ActorID     string                `json:"actor_id"`
	ActorName   *string               `json:"actor_name"`
	ActorEmail  *string               `json:"actor_email"`
	Details     string                `json:"details"`
	CreatedAt   time.Time             `json:"created_at"`
}

// NewTicketResponse maps a ticket. History is included when loaded.
func NewTicketResponse(ticket *domain.Ticket) TicketResponse {
	resp := TicketResponse{
		ID:           ticket.ID,
		Title:        ticket.Title,
		Description:  ticket.Description,
		Priority:     ticket.Priority,
		Status:       ticket.Status,
		OwnerID:      ticket.OwnerID,
		OwnerName:    ticket.OwnerName,
		AssignedTo:   ticket.AssignedTo,
		AssigneeName: ticket.AssigneeName,
		CreatedAt:    ticket.CreatedAt,
		UpdatedAt:    ticket.UpdatedAt,
	}
	if ticket.History != nil {
		resp.History = make([]HistoryEntryResponse, 0, len(ticket.History))
		for _, entry := range ticket.History {
			resp.History = append(resp.History, HistoryEntryResponse{
				Message:   entry.Message,
				ActorID:   entry.ActorID,
				ActorName: entry.ActorName,
				CreatedAt: entry.CreatedAt,
			})
		}
	}
	return resp
}

// NewTicketList maps tickets without history.
func NewTicketList(tickets []domain.Ticket) []TicketResponse {
	items := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, NewTicketResponse(&tickets[i]))
	}
	return items
}

// NewSummaryResponse maps summary counts and the per-priority chart.
func NewSummaryResponse(summary *domain.TicketSummary) SummaryResponse {
	chart := ChartData{
		Labels: make([]string, 0, len(domain.Priorities)),
		Data:   make([]int, 0, len(domain.Priorities)),
	}
	for _, priority := range domain.Priorities {
		chart.Labels = append(chart.Labels, string(priority))
		chart.Data = append(chart.Data, summary.ByPriority[priority])
	}
	return SummaryResponse{
		Summary: SummaryCounts{
			Active:     summary.Open,
			InProgress: summary.InProgress,
			Solved:     summary.Resolved,
			Withdrawn:  summary.Withdrawn,
			Assigned:   summary.Assigned,
		},
		Chart: chart,
	}
}

// NewActivityList maps activities.
func NewActivityList(activities []domain.Activity) []ActivityResponse {
	items := make([]ActivityResponse, 0, len(activities))
	for _, activity := range activities {
		items = append(items, ActivityResponse{
			ID:          activity.ID,
			Action:      activity.Action,
			TicketID:    activity.TicketID,
			TicketTitle: activity.TicketTitle,
			ActorID:     activity.ActorID,
			ActorName:   activity.ActorName,
			ActorEmail:  activity.ActorEmail,
			Details:     activity.Details,
			CreatedAt:   activity.CreatedAt,
		})
	}
	return items
}
