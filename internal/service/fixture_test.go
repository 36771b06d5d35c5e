package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/notification"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/repository/memory"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification.Notification
}

func (r *recordingNotifier) Notify(n notification.Notification) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return true
}

func (r *recordingNotifier) all() []notification.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notification.Notification(nil), r.sent...)
}

type failingActivities struct{}

func (failingActivities) Create(context.Context, *domain.Activity) error {
	return errors.New("audit store unavailable")
}

func (failingActivities) ListRecent(context.Context, int) ([]domain.Activity, error) {
	return nil, errors.New("audit store unavailable")
}

type fixture struct {
	store    *memory.Store
	auth     *AuthService
	tickets  *TicketService
	assign   *AssignmentService
	users    *UserService
	activity *ActivityService
	notifier *recordingNotifier
	authCfg  config.AuthConfig
}

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:      "test-secret",
		TokenTTLHours:  168,
		BcryptCost:     bcrypt.MinCost,
		OpenRoleSignup: true,
	}
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithActivities(t, nil)
}

func newFixtureWithActivities(t *testing.T, activities repository.ActivityRepository) *fixture {
	t.Helper()
	store := memory.NewStore()
	if activities == nil {
		activities = store.Activities()
	}
	dispatcher := events.NewInMemoryDispatcher()
	notifier := &recordingNotifier{}
	NewNotificationService(dispatcher, notifier, nil).RegisterHandlers()

	activity := NewActivityService(activities, nil)
	cfg := testAuthConfig()
	return &fixture{
		store:    store,
		auth:     NewAuthService(cfg, AuthDependencies{UserRepo: store.Users()}),
		activity: activity,
		notifier: notifier,
		authCfg:  cfg,
		tickets: NewTicketService(TicketDependencies{
			TicketRepo:  store.Tickets(),
			HistoryRepo: store.History(),
			Activities:  activity,
			Dispatcher:  dispatcher,
		}),
		assign: NewAssignmentService(AssignmentDependencies{
			TicketRepo:  store.Tickets(),
			UserRepo:    store.Users(),
			HistoryRepo: store.History(),
			Activities:  activity,
			Dispatcher:  dispatcher,
		}),
		users: NewUserService(UserDependencies{UserRepo: store.Users(), TicketRepo: store.Tickets()}),
	}
}

func (f *fixture) register(t *testing.T, name, email string, role domain.Role) domain.Actor {
	t.Helper()
	user, err := f.auth.Register(context.Background(), RegisterInput{
		Name:     name,
		Email:    email,
		Password: "password1",
		Role:     string(role),
	})
	require.NoError(t, err)
	return domain.ActorFromUser(user)
}

func (f *fixture) createTicket(t *testing.T, owner domain.Actor, title string) *domain.Ticket {
	t.Helper()
	ticket, err := f.tickets.Create(context.Background(), owner, TicketCreateInput{Title: title})
	require.NoError(t, err)
	return ticket
}

func (f *fixture) activities(t *testing.T) []domain.Activity {
	t.Helper()
	list, err := f.store.Activities().ListRecent(context.Background(), 1000)
	require.NoError(t, err)
	return list
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.Truef(t, apperrors.HasCode(err, code), "expected %s, got %v", code, err)
}
