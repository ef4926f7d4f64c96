package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/task-service/internal/domain"
	"github.com/spec-kit/task-service/internal/events"
	"github.com/spec-kit/task-service/internal/observability"
	"github.com/spec-kit/task-service/internal/repository"
	"github.com/spec-kit/task-service/internal/repository/memory"
)

type sentMail struct {
	From, To, Subject, Body string
}

// recordingTransport captures outgoing mail and fails for configured
// recipients.
type recordingTransport struct {
	mu      sync.Mutex
	sent    []sentMail
	failFor map[string]bool
}

func newRecordingTransport() *recordingTransport {
	return &recordingTransport{failFor: map[string]bool{}}
}

func (t *recordingTransport) Send(_ context.Context, from, to, subject, body string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failFor[to] {
		return errors.New("550 mailbox unavailable")
	}
	t.sent = append(t.sent, sentMail{From: from, To: to, Subject: subject, Body: body})
	return nil
}

func (t *recordingTransport) fail(recipient string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failFor[recipient] = true
}

func (t *recordingTransport) messages() []sentMail {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]sentMail(nil), t.sent...)
}

type fixture struct {
	tasks         *memory.TaskStore
	users         *memory.UserStore
	history       *memory.HistoryStore
	notifications *memory.NotificationStore
	transport     *recordingTransport
	metrics       *observability.Metrics
	svc           *TaskService

	admin, manager, emp1, emp2, pending domain.User
}

const fromAddress = "noreply@example.com"

func newFixture(t *testing.T, failFast bool) *fixture {
	t.Helper()
	f := &fixture{
		tasks:         memory.NewTaskStore(),
		users:         memory.NewUserStore(),
		history:       memory.NewHistoryStore(),
		notifications: memory.NewNotificationStore(),
		transport:     newRecordingTransport(),
		metrics:       observability.NewMetrics(),
	}

	ctx := context.Background()
	seed := func(u domain.User) domain.User {
		require.NoError(t, f.users.Create(ctx, &u))
		return u
	}
	f.admin = seed(domain.User{Username: "alice", Email: "admin@example.com", Role: domain.RoleAdmin, IsVerified: true})
	f.manager = seed(domain.User{Username: "mark", Email: "manager@example.com", Role: domain.RoleManager, IsVerified: true})
	f.emp1 = seed(domain.User{Username: "erin", Email: "erin@example.com", Role: domain.RoleEmployee, EmployeeID: "TMS001", IsVerified: true})
	f.emp2 = seed(domain.User{Username: "eli", Email: "eli@example.com", Role: domain.RoleEmployee, EmployeeID: "TMS002", IsVerified: true})
	f.pending = seed(domain.User{Username: "newbie", Email: "newbie@example.com", Role: domain.RoleEmployee, EmployeeID: "TMS003"})

	dispatcher := events.NewInMemoryDispatcher()
	NewHistoryService(dispatcher, f.history, zap.NewNop()).RegisterHandlers()

	notifier := NewNotifier(f.transport, f.notifications, nil, fromAddress, zap.NewNop())
	f.svc = NewTaskService(TaskDependencies{
		TaskRepo:    f.tasks,
		UserRepo:    f.users,
		HistoryRepo: f.history,
		Notifier:    notifier,
		Dispatcher:  dispatcher,
		Metrics:     f.metrics,
		Logger:      zap.NewNop(),
		FailFast:    failFast,
	})
	return f
}

// seedTask creates a task for employee directly in the store, bypassing
// notifications.
func (f *fixture) seedTask(t *testing.T, employee domain.User, status domain.TaskStatus) *domain.Task {
	t.Helper()
	task := &domain.Task{
		Title:      "Prepare quarterly report",
		AssignedTo: employee.EmployeeID,
		Priority:   domain.TaskPriorityHigh,
		Status:     status,
		Deadline:   time.Date(2030, 1, 31, 17, 0, 0, 0, time.UTC),
		CreatedBy:  f.manager.Username,
	}
	require.NoError(t, f.tasks.CreateMany(context.Background(), []*domain.Task{task}))
	return task
}

func repositoryFilterAll() repository.TaskFilter { return repository.TaskFilter{} }

// emptyRoster is a user store without any users.
type emptyRoster struct {
	repository.UserRepository
}

func (emptyRoster) List(context.Context, repository.UserFilter) ([]domain.User, error) {
	return []domain.User{}, nil
}
