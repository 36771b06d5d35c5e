// Package memory provides process-local implementations of the repository
// interfaces. It backs the server when no database is configured and keeps
// service tests free of external dependencies.
package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// ErrOwnerHasTickets mirrors the ON DELETE RESTRICT constraint on tickets.owner_id.
var ErrOwnerHasTickets = errors.New("user still owns tickets")

// Store holds every collection behind one lock so ticket writes and their
// history entries stay atomic.
type Store struct {
	mu         sync.RWMutex
	users      map[string]domain.User
	tickets    map[string]domain.Ticket
	history    []domain.HistoryEntry
	activities []domain.Activity
	now        func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		users:   make(map[string]domain.User),
		tickets: make(map[string]domain.Ticket),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Users exposes the identity collection.
func (s *Store) Users() repository.UserRepository { return userStore{s} }

// Tickets exposes the ticket collection.
func (s *Store) Tickets() repository.TicketRepository { return ticketStore{s} }

// History exposes ticket timelines.
func (s *Store) History() repository.TicketHistoryRepository { return historyStore{s} }

// Activities exposes the audit log.
func (s *Store) Activities() repository.ActivityRepository { return activityStore{s} }

// tick returns a timestamp strictly after the previous one so ordering by
// creation time is stable even on coarse clocks.
func (s *Store) tick(last *time.Time) time.Time {
	now := s.now()
	if last != nil && !now.After(*last) {
		now = last.Add(time.Microsecond)
	}
	return now
}

type userStore struct{ s *Store }

func (u userStore) Create(_ context.Context, user *domain.User) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	email := domain.NormalizeEmail(user.Email)
	for _, existing := range u.s.users {
		if domain.NormalizeEmail(existing.Email) == email {
			return repository.ErrDuplicate
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := u.s.now()
	user.CreatedAt, user.UpdatedAt = now, now
	u.s.users[user.ID] = *user
	return nil
}

func (u userStore) Update(_ context.Context, user *domain.User) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	existing, ok := u.s.users[user.ID]
	if !ok {
		return repository.ErrNotFound
	}
	email := domain.NormalizeEmail(user.Email)
	for id, other := range u.s.users {
		if id != user.ID && domain.NormalizeEmail(other.Email) == email {
			return repository.ErrDuplicate
		}
	}
	user.CreatedAt = existing.CreatedAt
	user.UpdatedAt = u.s.now()
	u.s.users[user.ID] = *user
	return nil
}

func (u userStore) Delete(_ context.Context, id string) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	if _, ok := u.s.users[id]; !ok {
		return repository.ErrNotFound
	}
	for _, ticket := range u.s.tickets {
		if ticket.OwnerID == id {
			return ErrOwnerHasTickets
		}
	}
	for ticketID, ticket := range u.s.tickets {
		if ticket.IsAssignedTo(id) {
			ticket.AssignedTo = nil
			u.s.tickets[ticketID] = ticket
		}
	}
	delete(u.s.users, id)
	return nil
}

func (u userStore) GetByID(_ context.Context, id string) (*domain.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()

	user, ok := u.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &user, nil
}

func (u userStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()

	email = domain.NormalizeEmail(email)
	for _, user := range u.s.users {
		if domain.NormalizeEmail(user.Email) == email {
			found := user
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (u userStore) List(_ context.Context, filter repository.UserFilter) ([]domain.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()

	users := make([]domain.User, 0, len(u.s.users))
	for _, user := range u.s.users {
		if filter.Role != nil && user.Role != *filter.Role {
			continue
		}
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.After(users[j].CreatedAt) })
	return users, nil
}

type ticketStore struct{ s *Store }

func (t ticketStore) Create(_ context.Context, ticket *domain.Ticket) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	if _, ok := t.s.users[ticket.OwnerID]; !ok {
		return errors.New("ticket owner does not exist")
	}
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	var last *time.Time
	for _, existing := range t.s.tickets {
		if last == nil || existing.CreatedAt.After(*last) {
			created := existing.CreatedAt
			last = &created
		}
	}
	now := t.s.tick(last)
	ticket.CreatedAt, ticket.UpdatedAt = now, now
	stored := *ticket
	stored.History = nil
	stored.OwnerName, stored.OwnerEmail, stored.AssigneeName = "", "", nil
	t.s.tickets[ticket.ID] = stored
	return nil
}

// hydrate fills the joined owner and assignee fields. Callers hold the lock.
func (t ticketStore) hydrate(ticket domain.Ticket) domain.Ticket {
	if owner, ok := t.s.users[ticket.OwnerID]; ok {
		ticket.OwnerName = owner.Name
		ticket.OwnerEmail = owner.Email
	}
	ticket.AssigneeName = nil
	if ticket.AssignedTo != nil {
		if assignee, ok := t.s.users[*ticket.AssignedTo]; ok {
			name := assignee.Name
			ticket.AssigneeName = &name
		}
	}
	return ticket
}

func (t ticketStore) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	ticket, ok := t.s.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	hydrated := t.hydrate(ticket)
	return &hydrated, nil
}

func matches(ticket domain.Ticket, filter repository.TicketFilter) bool {
	if filter.OwnerID != nil && ticket.OwnerID != *filter.OwnerID {
		return false
	}
	if filter.AssigneeID != nil && !ticket.IsAssignedTo(*filter.AssigneeID) {
		return false
	}
	if filter.Status != nil && ticket.Status != *filter.Status {
		return false
	}
	if term := strings.ToLower(strings.TrimSpace(filter.SearchTerm)); term != "" {
		if !strings.Contains(strings.ToLower(ticket.Title), term) &&
			!strings.Contains(strings.ToLower(ticket.Description), term) {
			return false
		}
	}
	return true
}

func (t ticketStore) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	tickets := make([]domain.Ticket, 0)
	for _, ticket := range t.s.tickets {
		if matches(ticket, filter) {
			tickets = append(tickets, t.hydrate(ticket))
		}
	}
	sort.Slice(tickets, func(i, j int) bool { return tickets[i].CreatedAt.After(tickets[j].CreatedAt) })

	if filter.Offset > 0 {
		if filter.Offset >= len(tickets) {
			return []domain.Ticket{}, nil
		}
		tickets = tickets[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(tickets) {
		tickets = tickets[:filter.Limit]
	}
	return tickets, nil
}

func (t ticketStore) Summary(_ context.Context, filter repository.TicketFilter) (*domain.TicketSummary, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	filter.Status = nil
	filter.SearchTerm = ""
	summary := &domain.TicketSummary{ByPriority: make(map[domain.TicketPriority]int, len(domain.Priorities))}
	for _, priority := range domain.Priorities {
		summary.ByPriority[priority] = 0
	}
	for _, ticket := range t.s.tickets {
		if !matches(ticket, filter) {
			continue
		}
		switch ticket.Status {
		case domain.TicketStatusOpen:
			summary.Open++
		case domain.TicketStatusInProgress:
			summary.InProgress++
		case domain.TicketStatusResolved:
			summary.Resolved++
		case domain.TicketStatusWithdrawn:
			summary.Withdrawn++
		}
		if ticket.AssignedTo != nil {
			summary.Assigned++
		}
		summary.ByPriority[ticket.Priority]++
	}
	return summary, nil
}

func (t ticketStore) ApplyChange(_ context.Context, change repository.TicketChange) (*domain.Ticket, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	ticket, ok := t.s.tickets[change.TicketID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if len(change.FromStatuses) > 0 {
		allowed := false
		for _, status := range change.FromStatuses {
			if status == ticket.Status {
				allowed = true
				break
			}
		}
		if !allowed {
			return nil, repository.ErrPreconditionFailed
		}
	}
	if change.RequireAssignee != nil && !ticket.IsAssignedTo(*change.RequireAssignee) {
		return nil, repository.ErrPreconditionFailed
	}

	if change.Status != nil {
		ticket.Status = *change.Status
	}
	if change.AssignedTo != nil {
		assignee := *change.AssignedTo
		ticket.AssignedTo = &assignee
	}
	ticket.UpdatedAt = t.s.now()
	t.s.tickets[ticket.ID] = ticket

	entry := change.History
	entry.TicketID = ticket.ID
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	var last *time.Time
	if n := len(t.s.history); n > 0 {
		last = &t.s.history[n-1].CreatedAt
	}
	entry.CreatedAt = t.s.tick(last)
	entry.ActorName = ""
	t.s.history = append(t.s.history, entry)

	hydrated := t.hydrate(ticket)
	return &hydrated, nil
}

func (t ticketStore) Delete(_ context.Context, id string) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	if _, ok := t.s.tickets[id]; !ok {
		return repository.ErrNotFound
	}
	delete(t.s.tickets, id)
	kept := t.s.history[:0]
	for _, entry := range t.s.history {
		if entry.TicketID != id {
			kept = append(kept, entry)
		}
	}
	t.s.history = kept
	return nil
}

func (t ticketStore) CountByOwner(_ context.Context, ownerID string) (int, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	count := 0
	for _, ticket := range t.s.tickets {
		if ticket.OwnerID == ownerID {
			count++
		}
	}
	return count, nil
}

func (t ticketStore) CountActiveByAssignee(_ context.Context, assigneeID string) (int, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	count := 0
	for _, ticket := range t.s.tickets {
		if ticket.IsAssignedTo(assigneeID) && ticket.Status.IsActive() {
			count++
		}
	}
	return count, nil
}

type historyStore struct{ s *Store }

func (h historyStore) ListByTicket(_ context.Context, ticketID string) ([]domain.HistoryEntry, error) {
	h.s.mu.RLock()
	defer h.s.mu.RUnlock()

	entries := make([]domain.HistoryEntry, 0)
	for _, entry := range h.s.history {
		if entry.TicketID != ticketID {
			continue
		}
		if actor, ok := h.s.users[entry.ActorID]; ok {
			entry.ActorName = actor.Name
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

type activityStore struct{ s *Store }

func (a activityStore) Create(_ context.Context, activity *domain.Activity) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	if activity.ID == "" {
		activity.ID = uuid.NewString()
	}
	var last *time.Time
	if n := len(a.s.activities); n > 0 {
		last = &a.s.activities[n-1].CreatedAt
	}
	activity.CreatedAt = a.s.tick(last)
	stored := *activity
	stored.ActorName, stored.ActorEmail, stored.TicketTitle = nil, nil, nil
	a.s.activities = append(a.s.activities, stored)
	return nil
}

func (a activityStore) ListRecent(_ context.Context, limit int) ([]domain.Activity, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()

	result := make([]domain.Activity, 0, limit)
	for i := len(a.s.activities) - 1; i >= 0 && len(result) < limit; i-- {
		activity := a.s.activities[i]
		if actor, ok := a.s.users[activity.ActorID]; ok {
			name, email := actor.Name, actor.Email
			activity.ActorName, activity.ActorEmail = &name, &email
		}
		if ticket, ok := a.s.tickets[activity.TicketID]; ok {
			title := ticket.Title
			activity.TicketTitle = &title
		}
		result = append(result, activity)
	}
	return result, nil
}
