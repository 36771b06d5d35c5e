package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// UserService handles profile reads and admin user management.
type UserService struct {
	users   repository.UserRepository
	tickets repository.TicketRepository
	logger  *zap.Logger
}

// UserDependencies bundles collaborators for the user service.
type UserDependencies struct {
	UserRepo   repository.UserRepository
	TicketRepo repository.TicketRepository
	Logger     *zap.Logger
}

// UserUpdateInput carries optional profile changes. Nil fields are untouched.
type UserUpdateInput struct {
	Name *string
	Role *string
}

// NewUserService builds the service.
func NewUserService(deps UserDependencies) *UserService {
	return &UserService{users: deps.UserRepo, tickets: deps.TicketRepo, logger: loggerOrNop(deps.Logger)}
}

// Me returns the caller's own record.
func (s *UserService) Me(ctx context.Context, actor domain.Actor) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, storeError(err, "user")
	}
	return user, nil
}

// List returns users, optionally narrowed to one role.
func (s *UserService) List(ctx context.Context, actor domain.Actor, role string) ([]domain.User, error) {
	if err := auth.Authorize(actor, auth.OpManageUsers, auth.Resource{}); err != nil {
		return nil, err
	}
	var filter repository.UserFilter
	if strings.TrimSpace(role) != "" {
		parsed, err := domain.ParseRole(role)
		if err != nil {
			return nil, apperrors.NewValidationError("role must be one of user, agent, admin", nil)
		}
		filter.Role = &parsed
	}
	users, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return users, nil
}

// Get returns a single user.
func (s *UserService) Get(ctx context.Context, actor domain.Actor, id string) (*domain.User, error) {
	if err := auth.Authorize(actor, auth.OpManageUsers, auth.Resource{}); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "user")
	}
	return user, nil
}

// Update changes a user's name and/or role. An agent with active
// assignments cannot be moved to another role.
func (s *UserService) Update(ctx context.Context, actor domain.Actor, id string, input UserUpdateInput) (*domain.User, error) {
	if err := auth.Authorize(actor, auth.OpManageUsers, auth.Resource{}); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "user")
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.NewValidationError("name cannot be empty", nil)
		}
		user.Name = name
	}
	if input.Role != nil {
		role, err := domain.ParseRole(*input.Role)
		if err != nil {
			return nil, apperrors.NewValidationError("role must be one of user, agent, admin", nil)
		}
		if user.Role == domain.RoleAgent && role != domain.RoleAgent {
			active, err := s.tickets.CountActiveByAssignee(ctx, user.ID)
			if err != nil {
				return nil, apperrors.NewInternalError(err)
			}
			if active > 0 {
				return nil, apperrors.NewConflict("agent still has active assigned tickets",
					map[string]any{"active_tickets": active})
			}
		}
		user.Role = role
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, storeError(err, "user")
	}
	s.logger.Info("user updated",
		zap.String("user_id", user.ID),
		zap.String("role", string(user.Role)),
		zap.String("by", actor.ID))
	return user, nil
}

// Delete removes a user who owns no tickets. Admins cannot delete themselves.
func (s *UserService) Delete(ctx context.Context, actor domain.Actor, id string) error {
	if err := auth.Authorize(actor, auth.OpManageUsers, auth.Resource{}); err != nil {
		return err
	}
	if id == actor.ID {
		return apperrors.NewValidationError("you cannot delete your own account", nil)
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return storeError(err, "user")
	}
	owned, err := s.tickets.CountByOwner(ctx, user.ID)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if owned > 0 {
		return apperrors.NewConflict("user still owns tickets", map[string]any{"tickets": owned})
	}
	if err := s.users.Delete(ctx, user.ID); err != nil {
		return storeError(err, "user")
	}
	s.logger.Info("user deleted", zap.String("user_id", user.ID), zap.String("by", actor.ID))
	return nil
}
