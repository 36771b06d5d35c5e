package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

const (
	DefaultActivityLimit = 200
	MaxActivityLimit     = 500
)

// ActivityService appends to and reads the audit log.
type ActivityService struct {
	activities repository.ActivityRepository
	logger     *zap.Logger
}

// NewActivityService builds the service.
func NewActivityService(activities repository.ActivityRepository, logger *zap.Logger) *ActivityService {
	return &ActivityService{activities: activities, logger: loggerOrNop(logger)}
}

// Record appends an activity. Failures are logged and never undo the
// mutation being described.
func (s *ActivityService) Record(ctx context.Context, action domain.ActivityAction, ticketID, actorID, details string) {
	activity := &domain.Activity{
		Action:   action,
		TicketID: ticketID,
		ActorID:  actorID,
		Details:  details,
	}
	if err := s.activities.Create(ctx, activity); err != nil {
		s.logger.Warn("activity not recorded",
			zap.String("action", string(action)),
			zap.String("ticket_id", ticketID),
			zap.String("actor_id", actorID),
			zap.Error(err))
	}
}

// Recent returns the newest activities first. Limit defaults to 200 and is
// capped at 500.
func (s *ActivityService) Recent(ctx context.Context, actor domain.Actor, limit int) ([]domain.Activity, error) {
	if err := auth.Authorize(actor, auth.OpViewActivities, auth.Resource{}); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultActivityLimit
	}
	if limit > MaxActivityLimit {
		limit = MaxActivityLimit
	}
	activities, err := s.activities.ListRecent(ctx, limit)
	if err != nil {
		return nil, storeError(err, "activity")
	}
	return activities, nil
}
