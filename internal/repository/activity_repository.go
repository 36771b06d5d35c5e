package repository

import (
	"context"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// ActivityRepository appends and reads audit records. There is deliberately
// no update or delete.
type ActivityRepository interface {
	Create(ctx context.Context, activity *domain.Activity) error
	ListRecent(ctx context.Context, limit int) ([]domain.Activity, error)
}

type activityRepository struct {
	db DB
}

// NewActivityRepository builds repository.
func NewActivityRepository(db DB) ActivityRepository {
	return &activityRepository{db: db}
}

type activityRow struct {
	ID          string    `db:"id"`
	Action      string    `db:"action"`
	TicketID    *string   `db:"ticket_id"`
	ActorID     string    `db:"actor_id"`
	Details     string    `db:"details"`
	CreatedAt   time.Time `db:"created_at"`
	ActorName   *string   `db:"actor_name"`
	ActorEmail  *string   `db:"actor_email"`
	TicketTitle *string   `db:"ticket_title"`
}

func (r *activityRepository) Create(ctx context.Context, activity *domain.Activity) error {
	if activity.ID == "" {
		activity.ID = uuid.NewString()
	}
	var ticketID *string
	if activity.TicketID != "" {
		ticketID = &activity.TicketID
	}
	const query = `
        INSERT INTO activities (id, action, ticket_id, actor_id, details)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING created_at`
	err := r.db.QueryRow(ctx, query,
		activity.ID,
		string(activity.Action),
		ticketID,
		activity.ActorID,
		activity.Details,
	).Scan(&activity.CreatedAt)
	return translateError(err)
}

func (r *activityRepository) ListRecent(ctx context.Context, limit int) ([]domain.Activity, error) {
	const query = `
        SELECT a.id, a.action, a.ticket_id, a.actor_id, a.details, a.created_at,
               u.name AS actor_name, u.email AS actor_email, t.title AS ticket_title
        FROM activities a
        LEFT JOIN users u ON u.id = a.actor_id
        LEFT JOIN tickets t ON t.id = a.ticket_id
        ORDER BY a.created_at DESC
        LIMIT $1`

	var rows []activityRow
	if err := pgxscan.Select(ctx, r.db, &rows, query, limit); err != nil {
		return nil, translateError(err)
	}
	result := make([]domain.Activity, 0, len(rows))
	for _, row := range rows {
		activity := domain.Activity{
			ID:          row.ID,
			Action:      domain.ActivityAction(row.Action),
			ActorID:     row.ActorID,
			Details:     row.Details,
			CreatedAt:   row.CreatedAt,
			ActorName:   row.ActorName,
			ActorEmail:  row.ActorEmail,
			TicketTitle: row.TicketTitle,
		}
		if row.TicketID != nil {
			activity.TicketID = *row.TicketID
		}
		result = append(result, activity)
	}
	return result, nil
}
