package http

import (
	"bytes"
	"context"
	"errors"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/task-service/internal/api/http/handlers"
	"github.com/spec-kit/task-service/internal/auth"
	"github.com/spec-kit/task-service/internal/config"
	"github.com/spec-kit/task-service/internal/domain"
	"github.com/spec-kit/task-service/internal/events"
	"github.com/spec-kit/task-service/internal/mail"
	"github.com/spec-kit/task-service/internal/observability"
	"github.com/spec-kit/task-service/internal/persistence"
	"github.com/spec-kit/task-service/internal/repository/memory"
	"github.com/spec-kit/task-service/internal/service"
	"github.com/spec-kit/task-service/internal/worker"
)

const testPassword = "s3cret-pass"

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

type testServer struct {
	app           *fiber.App
	notifications *memory.NotificationStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return buildTestServer(t, mail.NewLogTransport(zap.NewNop()), false)
}

// rejectingTransport fails every send to one mailbox.
type rejectingTransport struct {
	mailbox string
}

func (r rejectingTransport) Send(_ context.Context, _, to, _, _ string) error {
	if to == r.mailbox {
		return errors.New("550 mailbox unavailable")
	}
	return nil
}

func buildTestServer(t *testing.T, transport mail.Transport, failFast bool) *testServer {
	t.Helper()
	hash, err := auth.HashPassword(testPassword, 4)
	require.NoError(t, err)

	users := memory.NewUserStore(
		domain.User{Username: "mark", Email: "manager@example.com", PasswordHash: hash, Role: domain.RoleManager, IsVerified: true},
		domain.User{Username: "erin", Email: "erin@example.com", PasswordHash: hash, Role: domain.RoleEmployee, EmployeeID: "TMS001", IsVerified: true},
		domain.User{Username: "newbie", Email: "newbie@example.com", PasswordHash: hash, Role: domain.RoleEmployee, EmployeeID: "TMS003"},
	)
	tasks := memory.NewTaskStore()
	history := memory.NewHistoryStore()
	records := memory.NewNotificationStore()
	metrics := observability.NewMetrics()
	logger := zap.NewNop()

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartHistoryWorker(service.NewHistoryService(dispatcher, history, logger))
	notifier := service.NewNotifier(transport, records, nil, "noreply@example.com", logger)
	taskService := service.NewTaskService(service.TaskDependencies{
		TaskRepo:    tasks,
		UserRepo:    users,
		HistoryRepo: history,
		Notifier:    notifier,
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Logger:      logger,
		FailFast:    failFast,
	})
	authService := service.NewAuthService(config.AuthConfig{JWTSecret: "test", AccessTokenTTLMinutes: 5, BcryptCost: 4}, users, logger)

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("task-service", "test", &persistence.Postgres{}, &persistence.Redis{}, metrics),
		Auth:           handlers.NewAuthHandler(authService),
		Tasks:          handlers.NewTasksHandler(taskService),
		Status:         handlers.NewStatusHandler(taskService),
		Notifications:  handlers.NewNotificationsHandler(service.NewInboxService(records, nil, logger)),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), users),
	})
	return &testServer{app: app, notifications: records}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

func (s *testServer) login(t *testing.T, email string) string {
	t.Helper()
	status, env := s.do(t, "POST", "/auth/login", "", map[string]string{"email": email, "password": testPassword})
	require.Equal(t, 200, status)
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	return resp.Token
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func TestLoginOutcomes(t *testing.T) {
	srv := newTestServer(t)

	status, env := srv.do(t, "POST", "/auth/login", "", map[string]string{"email": "erin@example.com", "password": testPassword})
	require.Equal(t, 200, status)
	resp := decode[map[string]any](t, env)
	assert.Equal(t, "Employee", resp["role"])
	assert.Equal(t, "TMS001", resp["employee_id"])
	assert.NotEmpty(t, resp["token"])

	status, env = srv.do(t, "POST", "/auth/login", "", map[string]string{"email": "erin@example.com", "password": "nope"})
	assert.Equal(t, 401, status)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)

	status, env = srv.do(t, "POST", "/auth/login", "", map[string]string{"email": "newbie@example.com", "password": testPassword})
	assert.Equal(t, 403, status)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)

	status, env = srv.do(t, "POST", "/auth/login", "", map[string]string{"email": "not-an-email"})
	assert.Equal(t, 400, status)
	assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	srv := newTestServer(t)

	status, env := srv.do(t, "GET", "/tasks", "", nil)
	assert.Equal(t, 401, status)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)

	status, _ = srv.do(t, "GET", "/notifications", "garbage", nil)
	assert.Equal(t, 401, status)
}

func TestTaskLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	manager := srv.login(t, "manager@example.com")
	employee := srv.login(t, "erin@example.com")

	create := map[string]any{
		"title":       "Inventory count",
		"description": "Count aisle 4",
		"assigned_to": []string{"TMS001"},
		"priority":    "High",
		"deadline":    "2030-01-02T15:04:05Z",
	}
	status, env := srv.do(t, "POST", "/tasks", employee, create)
	assert.Equal(t, 403, status)

	status, env = srv.do(t, "POST", "/tasks", manager, create)
	require.Equal(t, 201, status)
	created := decode[struct {
		TaskIDs       []string               `json:"task_ids"`
		Notifications service.DispatchReport `json:"notifications"`
	}](t, env)
	require.Len(t, created.TaskIDs, 1)
	assert.Equal(t, service.DispatchSent, created.Notifications.Status)
	taskID := created.TaskIDs[0]

	status, env = srv.do(t, "PUT", "/tasks/"+taskID, employee, map[string]any{"status": "In Progress"})
	require.Equal(t, 200, status)
	updated := decode[struct {
		Task struct {
			Status string `json:"status"`
		} `json:"task"`
	}](t, env)
	assert.Equal(t, "In Progress", updated.Task.Status)

	status, _ = srv.do(t, "POST", "/tasks/"+taskID+"/complete", employee, nil)
	require.Equal(t, 200, status)

	status, env = srv.do(t, "GET", "/tasks/"+taskID, employee, nil)
	require.Equal(t, 200, status)
	assert.Equal(t, "Done", decode[map[string]any](t, env)["status"])

	status, env = srv.do(t, "POST", "/tasks/"+taskID+"/mark-overdue", employee, nil)
	require.Equal(t, 200, status)
	overdue := decode[map[string]any](t, env)
	assert.Equal(t, false, overdue["processed"])
	assert.Equal(t, "Task already completed", overdue["message"])

	status, _ = srv.do(t, "GET", "/tasks/"+taskID+"/history", employee, nil)
	assert.Equal(t, 403, status)

	status, env = srv.do(t, "GET", "/tasks/"+taskID+"/history", manager, nil)
	require.Equal(t, 200, status)
	entries := decode[[]map[string]any](t, env)
	require.Len(t, entries, 3)
	assert.Equal(t, "CREATED", entries[0]["change_type"])

	status, env = srv.do(t, "GET", "/status/summary", manager, nil)
	require.Equal(t, 200, status)
	summary := decode[map[string]int](t, env)
	assert.Equal(t, 1, summary["assigned"])
	assert.Equal(t, 1, summary["completed"])

	status, _ = srv.do(t, "DELETE", "/tasks/"+taskID, employee, nil)
	assert.Equal(t, 403, status)
	status, _ = srv.do(t, "DELETE", "/tasks/"+taskID, manager, nil)
	require.Equal(t, 200, status)
	status, env = srv.do(t, "GET", "/tasks/"+taskID, manager, nil)
	assert.Equal(t, 404, status)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestCreateTaskValidation(t *testing.T) {
	srv := newTestServer(t)
	manager := srv.login(t, "manager@example.com")

	status, env := srv.do(t, "POST", "/tasks", manager, map[string]any{
		"title":       "No deadline",
		"assigned_to": []string{"TMS001"},
	})
	assert.Equal(t, 400, status)
	assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)

	status, env = srv.do(t, "POST", "/tasks", manager, map[string]any{
		"title":       "Ghost",
		"assigned_to": []string{"TMS404"},
		"deadline":    "2030-01-02T15:04:05Z",
	})
	assert.Equal(t, 400, status)
	assert.Contains(t, env.Error.Details, "unknown_employee_ids")
}

func TestStatusUpdateRoute(t *testing.T) {
	srv := newTestServer(t)
	manager := srv.login(t, "manager@example.com")
	employee := srv.login(t, "erin@example.com")

	_, env := srv.do(t, "POST", "/tasks", manager, map[string]any{
		"title":         "Sweep",
		"assign_to_all": true,
		"deadline":      "2030-01-02T15:04:05Z",
	})
	ids := decode[struct {
		TaskIDs []string `json:"task_ids"`
	}](t, env).TaskIDs
	require.Len(t, ids, 1)

	status, _ := srv.do(t, "POST", "/status/update", manager, map[string]string{"task_id": ids[0], "status": "Done"})
	assert.Equal(t, 403, status)

	status, _ = srv.do(t, "POST", "/status/update", employee, map[string]string{"task_id": ids[0], "status": "Overdue"})
	assert.Equal(t, 400, status)

	status, _ = srv.do(t, "POST", "/status/update", employee, map[string]string{"task_id": ids[0], "status": "Done"})
	assert.Equal(t, 200, status)
}

func TestInboxRoutes(t *testing.T) {
	srv := newTestServer(t)
	manager := srv.login(t, "manager@example.com")
	employee := srv.login(t, "erin@example.com")

	status, _ := srv.do(t, "POST", "/tasks", manager, map[string]any{
		"title":       "Label boxes",
		"assigned_to": []string{"TMS001"},
		"deadline":    "2030-01-02T15:04:05Z",
	})
	require.Equal(t, 201, status)

	status, env := srv.do(t, "GET", "/notifications", employee, nil)
	require.Equal(t, 200, status)
	inbox := decode[[]map[string]any](t, env)
	require.Len(t, inbox, 1)
	assert.Equal(t, "New Task Assigned", inbox[0]["subject"])
	id := inbox[0]["id"].(string)

	status, env = srv.do(t, "GET", "/notifications/unread-count", employee, nil)
	require.Equal(t, 200, status)
	assert.EqualValues(t, 1, decode[map[string]int](t, env)["unread"])

	status, env = srv.do(t, "POST", "/notifications/mark-read", employee, map[string]any{"ids": []string{id}})
	require.Equal(t, 200, status)
	assert.EqualValues(t, 1, decode[map[string]int](t, env)["updated"])

	status, _ = srv.do(t, "POST", "/notifications/remove", manager, map[string]string{"id": id})
	assert.Equal(t, 404, status)

	status, _ = srv.do(t, "POST", "/notifications/remove", employee, map[string]string{"id": id})
	assert.Equal(t, 200, status)
	assert.Empty(t, srv.notifications.All())
}

func TestHealthAndUnknownRoutes(t *testing.T) {
	srv := newTestServer(t)

	status, _ := srv.do(t, "GET", "/health/live", "", nil)
	assert.Equal(t, 200, status)

	req := httptest.NewRequest("GET", "/health/ready", nil)
	resp, err := srv.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	status, env := srv.do(t, "GET", "/nowhere", "", nil)
	assert.Equal(t, 404, status)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)

	req = httptest.NewRequest("GET", "/health/metrics", nil)
	resp, err = srv.app.Test(req, -1)
	require.NoError(t, err)
	var snapshot observability.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snapshot))
	assert.NotEmpty(t, snapshot.Requests)
}

func TestTimeoutMiddlewareSetsDeadline(t *testing.T) {
	app := fiber.New()
	app.Use(requestTimeoutMiddleware(time.Minute))
	app.Get("/", func(c *fiber.Ctx) error {
		_, ok := c.UserContext().Deadline()
		return c.JSON(fiber.Map{"deadline": ok})
	})
	resp, err := app.Test(httptest.NewRequest("GET", "/", nil), -1)
	require.NoError(t, err)
	var body map[string]bool
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body["deadline"])
}

func TestFailFastCreateReportsCommittedTasks(t *testing.T) {
	srv := buildTestServer(t, rejectingTransport{mailbox: "erin@example.com"}, true)
	manager := srv.login(t, "manager@example.com")

	status, env := srv.do(t, "POST", "/tasks", manager, map[string]any{
		"title":         "Restock",
		"assign_to_all": true,
		"deadline":      "2030-01-02T15:04:05Z",
	})
	require.Equal(t, 502, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOTIFICATION_DELIVERY_FAILED", env.Error.Code)

	ids, ok := env.Error.Details["task_ids"].([]any)
	require.True(t, ok)
	require.Len(t, ids, 1)
	report, ok := env.Error.Details["notifications"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "failed", report["status"])

	status, env = srv.do(t, "GET", "/tasks/"+ids[0].(string), manager, nil)
	require.Equal(t, 200, status)
	assert.Equal(t, "Restock", decode[map[string]any](t, env)["title"])
}
