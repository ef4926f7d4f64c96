package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/task-service/internal/domain"
	apperrors "github.com/spec-kit/task-service/pkg/util/errorutil"
)

var (
	admin    = &domain.User{ID: "u-admin", Role: domain.RoleAdmin}
	manager  = &domain.User{ID: "u-mgr", Role: domain.RoleManager}
	employee = &domain.User{ID: "u-emp", Role: domain.RoleEmployee, EmployeeID: "TMS001"}
	other    = &domain.User{ID: "u-emp2", Role: domain.RoleEmployee, EmployeeID: "TMS002"}
)

func taskFor(employeeID string, status domain.TaskStatus) *domain.Task {
	return &domain.Task{ID: "t1", AssignedTo: employeeID, Status: status}
}

func assertForbidden(t *testing.T, err error) {
	t.Helper()
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden), "expected FORBIDDEN, got %v", err)
}

func TestSupervisorOnlyActions(t *testing.T) {
	for _, action := range []Action{ActionCreate, ActionDelete, ActionFullUpdate, ActionViewHistory} {
		t.Run(string(action), func(t *testing.T) {
			assert.NoError(t, Authorize(admin, action, nil))
			assert.NoError(t, Authorize(manager, action, nil))
			assertForbidden(t, Authorize(employee, action, nil))
		})
	}
}

func TestStatusUpdate(t *testing.T) {
	own := taskFor("TMS001", domain.TaskStatusAssigned)

	assert.NoError(t, CanUpdateOwnStatus(employee, own))
	assertForbidden(t, CanUpdateOwnStatus(other, own))
	assertForbidden(t, CanUpdateOwnStatus(employee, taskFor("TMS001", domain.TaskStatusOverdue)))

	// Non-employees are rejected even on tasks that would otherwise match.
	assertForbidden(t, CanUpdateOwnStatus(admin, own))
	assertForbidden(t, CanUpdateOwnStatus(manager, own))
}

func TestComplete(t *testing.T) {
	assert.NoError(t, CanComplete(employee, taskFor("TMS001", domain.TaskStatusInProgress)))
	assertForbidden(t, CanComplete(other, taskFor("TMS001", domain.TaskStatusInProgress)))
	assert.NoError(t, CanComplete(employee, taskFor("TMS001", domain.TaskStatusOverdue)))
	assertForbidden(t, CanComplete(manager, taskFor("TMS001", domain.TaskStatusInProgress)))
}

func TestView(t *testing.T) {
	own := taskFor("TMS001", domain.TaskStatusAssigned)
	assert.NoError(t, CanView(admin, own))
	assert.NoError(t, CanView(manager, own))
	assert.NoError(t, CanView(employee, own))
	assertForbidden(t, CanView(other, own))
}

func TestEmployeeWithoutIDNeverMatches(t *testing.T) {
	blank := &domain.User{ID: "u3", Role: domain.RoleEmployee}
	assertForbidden(t, CanView(blank, taskFor("", domain.TaskStatusAssigned)))
}

func TestListScope(t *testing.T) {
	assert.Nil(t, ListScope(admin))
	scope := ListScope(employee)
	if assert.NotNil(t, scope) {
		assert.Equal(t, "TMS001", *scope)
	}
}

func TestAuthorizeRequiresActor(t *testing.T) {
	err := Authorize(nil, ActionView, nil)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauth))
	assert.NoError(t, Authorize(employee, ActionMarkOverdue, nil))
}
