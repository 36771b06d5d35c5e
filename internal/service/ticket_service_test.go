package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

func TestTicketLifecycle_EndToEndScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.auth.Register(ctx, RegisterInput{Name: "Alice", Email: "alice@example.com", Password: "alicepw", Role: "user"})
	require.NoError(t, err)
	login, err := f.auth.Login(ctx, "alice@example.com", "alicepw")
	require.NoError(t, err)
	alice := domain.ActorFromUser(login.User)
	admin := f.register(t, "Root", "root@example.com", domain.RoleAdmin)
	bob := f.register(t, "Bob", "bob@example.com", domain.RoleAgent)

	ticket, err := f.tickets.Create(ctx, alice, TicketCreateInput{Title: "printer broken"})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, alice.ID, ticket.OwnerID)
	assert.Equal(t, domain.TicketPriorityLow, ticket.Priority)
	assert.Empty(t, ticket.History)

	assigned, err := f.assign.Assign(ctx, admin, ticket.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, assigned.Status)
	require.NotNil(t, assigned.AssignedTo)
	assert.Equal(t, bob.ID, *assigned.AssignedTo)
	require.Len(t, assigned.History, 1)
	assert.Equal(t, "Assigned to Bob", assigned.History[0].Message)

	assignActivities := 0
	for _, activity := range f.activities(t) {
		if activity.Action == domain.ActivityAssign {
			assignActivities++
			assert.Equal(t, ticket.ID, activity.TicketID)
			assert.Equal(t, admin.ID, activity.ActorID)
		}
	}
	assert.Equal(t, 1, assignActivities)

	resolved, err := f.tickets.Update(ctx, bob, ticket.ID, TicketUpdateInput{Status: "resolved"})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, resolved.Status)
	assert.Len(t, resolved.History, 2)

	_, err = f.tickets.Update(ctx, alice, ticket.ID, TicketUpdateInput{Status: "resolved"})
	requireCode(t, err, apperrors.CodeForbidden)

	final, err := f.tickets.Get(ctx, alice, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, final.OwnerID)
	assert.Equal(t, domain.TicketStatusResolved, final.Status)
}

func TestAssign_NonAgentLeavesTicketUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "Alice", "alice@example.com", domain.RoleUser)
	admin := f.register(t, "Root", "root@example.com", domain.RoleAdmin)
	ticket := f.createTicket(t, alice, "VPN down")

	for _, target := range []domain.Actor{alice, admin} {
		_, err := f.assign.Assign(ctx, admin, ticket.ID, target.ID)
		requireCode(t, err, apperrors.CodeValidation)
	}

	stored, err := f.tickets.Get(ctx, admin, ticket.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.AssignedTo)
	assert.Equal(t, domain.TicketStatusOpen, stored.Status)
	assert.Empty(t, stored.History)
}

func TestAssign_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "Alice", "alice@example.com", domain.RoleUser)
	admin := f.register(t, "Root", "root@example.com", domain.RoleAdmin)
	bob := f.register(t, "Bob", "bob@example.com", domain.RoleAgent)
	ticket := f.createTicket(t, alice, "VPN down")

	_, err := f.assign.Assign(ctx, admin, "", bob.ID)
	requireCode(t, err, apperrors.CodeValidation)
	_, err = f.assign.Assign(ctx, admin, "missing", bob.ID)
	requireCode(t, err, apperrors.CodeNotFound)
	_, err = f.assign.Assign(ctx, admin, ticket.ID, "missing")
	requireCode(t, err, apperrors.CodeNotFound)
	_, err = f.assign.Assign(ctx, bob, ticket.ID, bob.ID)
	requireCode(t, err, apperrors.CodeForbidden)

	_, err = f.tickets.Update(ctx, alice, ticket.ID, TicketUpdateInput{Status: "withdrawn"})
	require.NoError(t, err)
	_, err = f.assign.Assign(ctx, admin, ticket.ID, bob.ID)
	requireCode(t, err, apperrors.CodeValidation)
}

func TestAssign_ReassignmentOverwrites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "Alice", "alice@example.com", domain.RoleUser)
	admin := f.register(t, "Root", "root@example.com", domain.RoleAdmin)
	bob := f.register(t, "Bob", "bob@example.com", domain.RoleAgent)
	carol := f.register(t, "Carol", "carol@example.com", domain.RoleAgent)
	ticket := f.createTicket(t, alice, "Laptop")

	_, err := f.assign.Assign(ctx, admin, ticket.ID, bob.ID)
	require.NoError(t, err)
	reassigned, err := f.assign.Assign(ctx, admin, ticket.ID, carol.ID)
	require.NoError(t, err)
	assert.Equal(t, carol.ID, *reassigned.AssignedTo)
	require.NotNil(t, reassigned.AssigneeName)
	assert.Equal(t, "Carol", *reassigned.AssigneeName)

	_, err = f.tickets.Get(ctx, bob, ticket.ID)
	requireCode(t, err, apperrors.CodeForbidden)
	_, err = f.tickets.Update(ctx, bob, ticket.ID, TicketUpdateInput{Note: "still mine?"})
	requireCode(t, err, apperrors.CodeForbidden)
}

func TestWithdraw_OnlyOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "Alice", "alice@example.com", domain.RoleUser)
	mallory := f.register(t, "Mallory", "mallory@example.com", domain.RoleUser)
	admin := f.register(t, "Root", "root@example.com", domain.RoleAdmin)
	bob := f.register(t, "Bob", "bob@example.com", domain.RoleAgent)
	ticket := f.createTicket(t, alice, "Monitor flicker")
	_, err := f.assign.Assign(ctx, admin, ticket.ID, bob.ID)
	require.NoError(t, err)

	for _, actor := range []domain.Actor{admin, bob, mallory} {
		_, err := f.tickets.Update(ctx, actor, ticket.ID, TicketUpdateInput{Status: "withdrawn"})
		requireCode(t, err, apperrors.CodeForbidden)
	}

	withdrawn, err := f.tickets.Update(ctx, alice, ticket.ID, TicketUpdateInput{Status: "withdrawn"})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusWithdrawn, withdrawn.Status)
	require.Len(t, withdrawn.History, 2)
	assert.Equal(t, "Ticket withdrawn", withdrawn.History[1].Message)
	assert.Equal(t, domain.ActivityWithdraw, f.activities(t)[0].Action)

	_, err = f.tickets.Update(ctx, alice, ticket.ID, TicketUpdateInput{Status: "withdrawn"})
	requireCode(t, err, apperrors.CodeValidation)

	_, err = f.tickets.Update(ctx, admin, ticket.ID, TicketUpdateInput{Status: "open"})
	requireCode(t, err, apperrors.CodeValidation)
}

func TestWithdraw_ResolvedTicketRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "Alice", "alice@example.com", domain.RoleUser)
	admin := f.register(t, "Root", "root@example.com", domain.RoleAdmin)
	ticket := f.createTicket(t, alice, "Keyboard")

	_, err := f.tickets.Update(ctx, admin, ticket.ID, TicketUpdateInput{Status: "resolved"})
	require.NoError(t, err)
	_, err = f.tickets.Update(ctx, alice, ticket.ID, TicketUpdateInput{Status: "withdrawn"})
	requireCode(t, err, apperrors.CodeValidation)
}

func TestUpdate_HistoryAndActivityPerChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "Alice", "alice@example.com", domain.RoleUser)
	admin := f.register(t, "Root", "root@example.com", domain.RoleAdmin)
	ticket := f.createTicket(t, alice, "Badge reader")

	steps := []TicketUpdateInput{
		{Status: "in_progress"},
		{Note: "waiting on vendor"},
		{Status: "resolved", Note: "replaced reader"},
	}
	for i, step := range steps {
		before := len(f.activities(t))
		updated, err := f.tickets.Update(ctx, admin, ticket.ID, step)
		require.NoError(t, err)
		assert.Len(t, updated.History, i+1)
		after := f.activities(t)
		require.Len(t, after, before+1)
		assert.Equal(t, domain.ActivityUpdateTicket, after[0].Action)
		assert.Equal(t, ticket.ID, after[0].TicketID)
		assert.Equal(t, admin.ID, after[0].ActorID)
	}

	final, err := f.tickets.Get(ctx, alice, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, "waiting on vendor", final.History[1].Message)
	assert.Equal(t, "Status changed from in_progress to resolved: replaced reader", final.History[2].Message)
	assert.Equal(t, "Root", final.History[2].ActorName)
}

func TestUpdate_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "Alice", "alice@example.com", domain.RoleUser)
	admin := f.register(t, "Root", "root@example.com", domain.RoleAdmin)
	ticket := f.createTicket(t, alice, "Wifi")

	_, err := f.tickets.Update(ctx, admin, ticket.ID, TicketUpdateInput{})
	requireCode(t, err, apperrors.CodeValidation)
	_, err = f.tickets.Update(ctx, admin, ticket.ID, TicketUpdateInput{Status: "closed"})
	requireCode(t, err, apperrors.CodeValidation)
	_, err = f.tickets.Update(ctx, admin, "missing", TicketUpdateInput{Status: "resolved"})
	requireCode(t, err, apperrors.CodeNotFound)
	_, err = f.tickets.Update(ctx, alice, ticket.ID, TicketUpdateInput{Note: "any news?"})
	requireCode(t, err, apperrors.CodeForbidden)

	_, err = f.tickets.Create(ctx, alice, TicketCreateInput{Title: "  "})
	requireCode(t, err, apperrors.CodeValidation)
	_, err = f.tickets.Create(ctx, alice, TicketCreateInput{Title: "x", Priority: "urgent"})
	requireCode(t, err, apperrors.CodeValidation)
}

func TestList_ScopedByRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "Alice", "alice@example.com", domain.RoleUser)
	carol := f.register(t, "Carol", "carol@example.com", domain.RoleUser)
	admin := f.register(t, "Root", "root@example.com", domain.RoleAdmin)
	bob := f.register(t, "Bob", "bob@example.com", domain.RoleAgent)

	a1 := f.createTicket(t, alice, "Alice printer")
	f.createTicket(t, alice, "Alice mail")
	c1 := f.createTicket(t, carol, "Carol printer")
	_, err := f.assign.Assign(ctx, admin, c1.ID, bob.ID)
	require.NoError(t, err)

	mine, err := f.tickets.List(ctx, alice, TicketListInput{})
	require.NoError(t, err)
	require.Len(t, mine, 2)
	for _, ticket := range mine {
		assert.Equal(t, alice.ID, ticket.OwnerID)
	}

	assigned, err := f.tickets.List(ctx, bob, TicketListInput{})
	require.NoError(t, err)
	require.Len(t, assigned, 1)
	assert.Equal(t, c1.ID, assigned[0].ID)

	all, err := f.tickets.List(ctx, admin, TicketListInput{Search: "printer"})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	open, err := f.tickets.List(ctx, admin, TicketListInput{Status: "open"})
	require.NoError(t, err)
	assert.Len(t, open, 2)

	_, err = f.tickets.Get(ctx, carol, a1.ID)
	requireCode(t, err, apperrors.CodeForbidden)

	_, err = f.tickets.List(ctx, admin, TicketListInput{Status: "bogus"})
	requireCode(t, err, apperrors.CodeValidation)

	summary, err := f.tickets.Summary(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Open)
	assert.Equal(t, 0, summary.InProgress)

	adminSummary, err := f.tickets.Summary(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, 2, adminSummary.Open)
	assert.Equal(t, 1, adminSummary.InProgress)
	assert.Equal(t, 1, adminSummary.Assigned)
	assert.Equal(t, 3, adminSummary.ByPriority[domain.TicketPriorityLow])
}

func TestDelete_KeepsAuditTrail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "Alice", "alice@example.com", domain.RoleUser)
	admin := f.register(t, "Root", "root@example.com", domain.RoleAdmin)
	ticket := f.createTicket(t, alice, "Old request")

	requireCode(t, f.tickets.Delete(ctx, alice, ticket.ID), apperrors.CodeForbidden)
	require.NoError(t, f.tickets.Delete(ctx, admin, ticket.ID))
	requireCode(t, f.tickets.Delete(ctx, admin, ticket.ID), apperrors.CodeNotFound)

	activities := f.activities(t)
	require.Len(t, activities, 2)
	assert.Equal(t, domain.ActivityDeleteTicket, activities[0].Action)
	assert.Equal(t, domain.ActivityCreateTicket, activities[1].Action)
}

func TestActivityFailureDoesNotRollBack(t *testing.T) {
	f := newFixtureWithActivities(t, failingActivities{})
	ctx := context.Background()
	alice := f.register(t, "Alice", "alice@example.com", domain.RoleUser)
	admin := f.register(t, "Root", "root@example.com", domain.RoleAdmin)

	ticket, err := f.tickets.Create(ctx, alice, TicketCreateInput{Title: "Still saved"})
	require.NoError(t, err)
	updated, err := f.tickets.Update(ctx, admin, ticket.ID, TicketUpdateInput{Status: "resolved"})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, updated.Status)

	_, err = f.activity.Recent(ctx, admin, 0)
	requireCode(t, err, apperrors.CodeInternal)
}

func TestActivityRecent_AdminOnlyAndCapped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "Alice", "alice@example.com", domain.RoleUser)
	admin := f.register(t, "Root", "root@example.com", domain.RoleAdmin)
	for i := 0; i < 3; i++ {
		f.createTicket(t, alice, fmt.Sprintf("ticket %d", i))
	}

	_, err := f.activity.Recent(ctx, alice, 10)
	requireCode(t, err, apperrors.CodeForbidden)

	recent, err := f.activity.Recent(ctx, admin, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.NotNil(t, recent[0].TicketTitle)
	assert.Equal(t, "ticket 2", *recent[0].TicketTitle)
	require.NotNil(t, recent[0].ActorName)
	assert.Equal(t, "Alice", *recent[0].ActorName)

	all, err := f.activity.Recent(ctx, admin, MaxActivityLimit+100)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestNotifications_OnCreateAssignAndUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "Alice", "alice@example.com", domain.RoleUser)
	admin := f.register(t, "Root", "root@example.com", domain.RoleAdmin)
	bob := f.register(t, "Bob", "bob@example.com", domain.RoleAgent)

	ticket := f.createTicket(t, alice, "Projector")
	_, err := f.assign.Assign(ctx, admin, ticket.ID, bob.ID)
	require.NoError(t, err)
	_, err = f.tickets.Update(ctx, bob, ticket.ID, TicketUpdateInput{Status: "resolved"})
	require.NoError(t, err)

	sent := f.notifier.all()
	require.Len(t, sent, 4)
	assert.Equal(t, "alice@example.com", sent[0].To)
	assert.Equal(t, "Ticket created", sent[0].Subject)
	assert.Equal(t, "bob@example.com", sent[1].To)
	assert.Equal(t, "New Ticket Assigned", sent[1].Subject)
	assert.Equal(t, "alice@example.com", sent[2].To)
	assert.Equal(t, "Agent Assigned", sent[2].Subject)
	assert.Equal(t, "Ticket Projector updated", sent[3].Subject)
	assert.Equal(t, "Status: resolved", sent[3].Message)
}

func TestConcurrentNotesAllPersist(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "Alice", "alice@example.com", domain.RoleUser)
	admin := f.register(t, "Root", "root@example.com", domain.RoleAdmin)
	ticket := f.createTicket(t, alice, "Shared drive")

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.tickets.Update(ctx, admin, ticket.ID, TicketUpdateInput{Note: fmt.Sprintf("note %d", i)})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	final, err := f.tickets.Get(ctx, admin, ticket.ID)
	require.NoError(t, err)
	assert.Len(t, final.History, writers)
}
