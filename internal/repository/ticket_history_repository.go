package repository

import (
	"context"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// TicketHistoryRepository reads ticket timelines. Entries are written by
// TicketRepository.ApplyChange.
type TicketHistoryRepository interface {
	ListByTicket(ctx context.Context, ticketID string) ([]domain.HistoryEntry, error)
}

type ticketHistoryRepository struct {
	db DB
}

// NewTicketHistoryRepository builds repository.
func NewTicketHistoryRepository(db DB) TicketHistoryRepository {
	return &ticketHistoryRepository{db: db}
}

type historyRow struct {
	ID        string    `db:"id"`
	TicketID  string    `db:"ticket_id"`
	Message   string    `db:"message"`
	ActorID   string    `db:"actor_id"`
	ActorName string    `db:"actor_name"`
	CreatedAt time.Time `db:"created_at"`
}

func (r *ticketHistoryRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.HistoryEntry, error) {
	const query = `
        SELECT h.id, h.ticket_id, h.message, h.actor_id, COALESCE(u.name, '') AS actor_name, h.created_at
        FROM ticket_history h
        LEFT JOIN users u ON u.id = h.actor_id
        WHERE h.ticket_id=$1
        ORDER BY h.created_at ASC`

	var rows []historyRow
	if err := pgxscan.Select(ctx, r.db, &rows, query, ticketID); err != nil {
		return nil, translateError(err)
	}
	result := make([]domain.HistoryEntry, 0, len(rows))
	for _, row := range rows {
		result = append(result, domain.HistoryEntry{
			ID:        row.ID,
			TicketID:  row.TicketID,
			Message:   row.Message,
			ActorID:   row.ActorID,
			ActorName: row.ActorName,
			CreatedAt: row.CreatedAt,
		})
	}
	return result, nil
}
