package repository

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// TicketFilter captures listing parameters. Owner and assignee carry the
// caller's access scope.
type TicketFilter struct {
	OwnerID    *string
	AssigneeID *string
	Status     *domain.TicketStatus
	SearchTerm string
	Limit      int
	Offset     int
}

// TicketChange describes a guarded write applied in one transaction together
// with its history entry.
type TicketChange struct {
	TicketID string
	// Status and AssignedTo are left untouched when nil.
	Status     *domain.TicketStatus
	AssignedTo *string
	// FromStatuses, when set, requires the current status to be one of them.
	FromStatuses []domain.TicketStatus
	// RequireAssignee, when set, requires the ticket to still be assigned to that user.
	RequireAssignee *string
	History         domain.HistoryEntry
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	Summary(ctx context.Context, filter TicketFilter) (*domain.TicketSummary, error)
	ApplyChange(ctx context.Context, change TicketChange) (*domain.Ticket, error)
	Delete(ctx context.Context, id string) error
	CountByOwner(ctx context.Context, ownerID string) (int, error)
	CountActiveByAssignee(ctx context.Context, assigneeID string) (int, error)
}

type ticketRepository struct {
	db DB
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(db DB) TicketRepository {
	return &ticketRepository{db: db}
}

type ticketRow struct {
	ID           string    `db:"id"`
	Title        string    `db:"title"`
	Description  string    `db:"description"`
	Priority     string    `db:"priority"`
	Status       string    `db:"status"`
	OwnerID      string    `db:"owner_id"`
	OwnerName    string    `db:"owner_name"`
	OwnerEmail   string    `db:"owner_email"`
	AssignedTo   *string   `db:"assigned_to"`
	AssigneeName *string   `db:"assignee_name"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r ticketRow) toDomain() (domain.Ticket, error) {
	status, err := domain.ParseTicketStatus(r.Status)
	if err != nil {
		return domain.Ticket{}, fmt.Errorf("ticket %s: %w", r.ID, err)
	}
	priority, err := domain.ParseTicketPriority(r.Priority)
	if err != nil {
		return domain.Ticket{}, fmt.Errorf("ticket %s: %w", r.ID, err)
	}
	return domain.Ticket{
		ID:           r.ID,
		Title:        r.Title,
		Description:  r.Description,
		Priority:     priority,
		Status:       status,
		OwnerID:      r.OwnerID,
		OwnerName:    r.OwnerName,
		OwnerEmail:   r.OwnerEmail,
		AssignedTo:   r.AssignedTo,
		AssigneeName: r.AssigneeName,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}, nil
}

func ticketSelect() sq.SelectBuilder {
	return psql.Select(
		"t.id", "t.title", "t.description", "t.priority", "t.status",
		"t.owner_id", "o.name AS owner_name", "o.email AS owner_email",
		"t.assigned_to", "a.name AS assignee_name",
		"t.created_at", "t.updated_at",
	).
		From("tickets t").
		Join("users o ON o.id = t.owner_id").
		LeftJoin("users a ON a.id = t.assigned_to")
}

func applyTicketFilter(builder sq.SelectBuilder, filter TicketFilter) sq.SelectBuilder {
	if filter.OwnerID != nil {
		builder = builder.Where(sq.Eq{"t.owner_id": *filter.OwnerID})
	}
	if filter.AssigneeID != nil {
		builder = builder.Where(sq.Eq{"t.assigned_to": *filter.AssigneeID})
	}
	if filter.Status != nil {
		builder = builder.Where(sq.Eq{"t.status": string(*filter.Status)})
	}
	if filter.SearchTerm != "" {
		pattern := containsPattern(filter.SearchTerm)
		builder = builder.Where(sq.Or{
			sq.ILike{"t.title": pattern},
			sq.ILike{"t.description": pattern},
		})
	}
	return builder
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	const query = `
        INSERT INTO tickets (id, title, description, priority, status, owner_id)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING created_at, updated_at`
	err := r.db.QueryRow(ctx, query,
		ticket.ID,
		ticket.Title,
		ticket.Description,
		string(ticket.Priority),
		string(ticket.Status),
		ticket.OwnerID,
	).Scan(&ticket.CreatedAt, &ticket.UpdatedAt)
	return translateError(err)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	query, args, err := ticketSelect().Where(sq.Eq{"t.id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	var row ticketRow
	if err := pgxscan.Get(ctx, r.db, &row, query, args...); err != nil {
		return nil, translateError(err)
	}
	ticket, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	builder := applyTicketFilter(ticketSelect(), filter).OrderBy("t.created_at DESC")
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		builder = builder.Offset(uint64(filter.Offset))
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	var rows []ticketRow
	if err := pgxscan.Select(ctx, r.db, &rows, query, args...); err != nil {
		return nil, translateError(err)
	}
	tickets := make([]domain.Ticket, 0, len(rows))
	for _, row := range rows {
		ticket, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}
	return tickets, nil
}

func (r *ticketRepository) Summary(ctx context.Context, filter TicketFilter) (*domain.TicketSummary, error) {
	filter.Status = nil
	filter.SearchTerm = ""
	builder := applyTicketFilter(psql.Select(
		"COUNT(*) FILTER (WHERE t.status = 'open')",
		"COUNT(*) FILTER (WHERE t.status = 'in_progress')",
		"COUNT(*) FILTER (WHERE t.status = 'resolved')",
		"COUNT(*) FILTER (WHERE t.status = 'withdrawn')",
		"COUNT(*) FILTER (WHERE t.assigned_to IS NOT NULL)",
		"COUNT(*) FILTER (WHERE t.priority = 'low')",
		"COUNT(*) FILTER (WHERE t.priority = 'medium')",
		"COUNT(*) FILTER (WHERE t.priority = 'high')",
	).From("tickets t"), filter)
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	var summary domain.TicketSummary
	var low, medium, high int
	if err := r.db.QueryRow(ctx, query, args...).Scan(
		&summary.Open,
		&summary.InProgress,
		&summary.Resolved,
		&summary.Withdrawn,
		&summary.Assigned,
		&low,
		&medium,
		&high,
	); err != nil {
		return nil, translateError(err)
	}
	summary.ByPriority = map[domain.TicketPriority]int{
		domain.TicketPriorityLow:    low,
		domain.TicketPriorityMedium: medium,
		domain.TicketPriorityHigh:   high,
	}
	return &summary, nil
}

// ApplyChange locks the ticket row, checks the guards, writes the new state
// and appends the history entry in a single transaction.
func (r *ticketRepository) ApplyChange(ctx context.Context, change TicketChange) (*domain.Ticket, error) {
	if _, err := uuid.Parse(change.TicketID); err != nil {
		return nil, ErrNotFound
	}
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		var current string
		var assignee *string
		if err := tx.QueryRow(ctx,
			`SELECT status, assigned_to FROM tickets WHERE id=$1 FOR UPDATE`,
			change.TicketID,
		).Scan(&current, &assignee); err != nil {
			return translateError(err)
		}
		if !statusAllowed(domain.TicketStatus(current), change.FromStatuses) {
			return ErrPreconditionFailed
		}
		if change.RequireAssignee != nil && (assignee == nil || *assignee != *change.RequireAssignee) {
			return ErrPreconditionFailed
		}

		update := psql.Update("tickets").
			Set("updated_at", sq.Expr("NOW()")).
			Where(sq.Eq{"id": change.TicketID})
		if change.Status != nil {
			update = update.Set("status", string(*change.Status))
		}
		if change.AssignedTo != nil {
			update = update.Set("assigned_to", *change.AssignedTo)
		}
		query, args, err := update.ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return err
		}

		entry := change.History
		if entry.ID == "" {
			entry.ID = uuid.NewString()
		}
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = time.Now().UTC()
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO ticket_history (id, ticket_id, message, actor_id, created_at) VALUES ($1,$2,$3,$4,$5)`,
			entry.ID, change.TicketID, entry.Message, entry.ActorID, entry.CreatedAt,
		)
		return err
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, change.TicketID)
}

func statusAllowed(current domain.TicketStatus, allowed []domain.TicketStatus) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, candidate := range allowed {
		if candidate == current {
			return true
		}
	}
	return false
}

func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	cmd, err := r.db.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return translateError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ticketRepository) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM tickets WHERE owner_id=$1`, ownerID).Scan(&count)
	return count, translateError(err)
}

func (r *ticketRepository) CountActiveByAssignee(ctx context.Context, assigneeID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM tickets WHERE assigned_to=$1 AND status IN ('open','in_progress')`,
		assigneeID,
	).Scan(&count)
	return count, translateError(err)
}
