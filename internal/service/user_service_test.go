package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

func strPtr(s string) *string { return &s }

func TestUserService_AdminOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "Alice", "alice@example.com", domain.RoleUser)
	bob := f.register(t, "Bob", "bob@example.com", domain.RoleAgent)

	for _, actor := range []domain.Actor{alice, bob} {
		_, err := f.users.List(ctx, actor, "")
		requireCode(t, err, apperrors.CodeForbidden)
		_, err = f.users.Get(ctx, actor, alice.ID)
		requireCode(t, err, apperrors.CodeForbidden)
		_, err = f.users.Update(ctx, actor, alice.ID, UserUpdateInput{Role: strPtr("admin")})
		requireCode(t, err, apperrors.CodeForbidden)
		requireCode(t, f.users.Delete(ctx, actor, alice.ID), apperrors.CodeForbidden)
		_, err = f.assign.ListAgents(ctx, actor)
		requireCode(t, err, apperrors.CodeForbidden)
	}

	me, err := f.users.Me(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", me.Email)
}

func TestUserService_ListAndAgents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.register(t, "Root", "root@example.com", domain.RoleAdmin)
	f.register(t, "Alice", "alice@example.com", domain.RoleUser)
	f.register(t, "Bob", "bob@example.com", domain.RoleAgent)

	all, err := f.users.List(ctx, admin, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	agents, err := f.assign.ListAgents(ctx, admin)
	require.NoError(t, err)
	require.Len(t, agents, 1)
	assert.Equal(t, "Bob", agents[0].Name)

	filtered, err := f.users.List(ctx, admin, "agent")
	require.NoError(t, err)
	assert.Len(t, filtered, 1)

	_, err = f.users.List(ctx, admin, "owner")
	requireCode(t, err, apperrors.CodeValidation)
}

func TestUserService_UpdateRoleAndDemotionGuard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.register(t, "Root", "root@example.com", domain.RoleAdmin)
	alice := f.register(t, "Alice", "alice@example.com", domain.RoleUser)
	bob := f.register(t, "Bob", "bob@example.com", domain.RoleAgent)
	ticket := f.createTicket(t, alice, "Scanner")
	_, err := f.assign.Assign(ctx, admin, ticket.ID, bob.ID)
	require.NoError(t, err)

	_, err = f.users.Update(ctx, admin, bob.ID, UserUpdateInput{Role: strPtr("user")})
	requireCode(t, err, apperrors.CodeConflict)

	renamed, err := f.users.Update(ctx, admin, bob.ID, UserUpdateInput{Name: strPtr("Robert")})
	require.NoError(t, err)
	assert.Equal(t, "Robert", renamed.Name)
	assert.Equal(t, domain.RoleAgent, renamed.Role)

	_, err = f.tickets.Update(ctx, bob, ticket.ID, TicketUpdateInput{Status: "resolved"})
	require.NoError(t, err)
	demoted, err := f.users.Update(ctx, admin, bob.ID, UserUpdateInput{Role: strPtr("user")})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, demoted.Role)

	_, err = f.users.Update(ctx, admin, alice.ID, UserUpdateInput{Role: strPtr("superuser")})
	requireCode(t, err, apperrors.CodeValidation)
	_, err = f.users.Update(ctx, admin, alice.ID, UserUpdateInput{Name: strPtr(" ")})
	requireCode(t, err, apperrors.CodeValidation)
	_, err = f.users.Update(ctx, admin, "missing", UserUpdateInput{Name: strPtr("x")})
	requireCode(t, err, apperrors.CodeNotFound)
}

func TestUserService_Delete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.register(t, "Root", "root@example.com", domain.RoleAdmin)
	alice := f.register(t, "Alice", "alice@example.com", domain.RoleUser)
	bob := f.register(t, "Bob", "bob@example.com", domain.RoleAgent)
	f.createTicket(t, alice, "Chair")

	requireCode(t, f.users.Delete(ctx, admin, admin.ID), apperrors.CodeValidation)
	requireCode(t, f.users.Delete(ctx, admin, alice.ID), apperrors.CodeConflict)
	requireCode(t, f.users.Delete(ctx, admin, "missing"), apperrors.CodeNotFound)

	require.NoError(t, f.users.Delete(ctx, admin, bob.ID))
	_, err := f.users.Get(ctx, admin, bob.ID)
	requireCode(t, err, apperrors.CodeNotFound)
}
