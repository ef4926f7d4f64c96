package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/task-service/internal/domain"
	"github.com/spec-kit/task-service/internal/repository"
)

func TestNotificationStoreScopesByRecipient(t *testing.T) {
	ctx := context.Background()
	s := NewNotificationStore()

	mine := &domain.NotificationRecord{Recipient: "a@example.com", Subject: "one"}
	theirs := &domain.NotificationRecord{Recipient: "b@example.com", Subject: "two"}
	latest := &domain.NotificationRecord{Recipient: "a@example.com", Subject: "three"}
	for _, r := range []*domain.NotificationRecord{mine, theirs, latest} {
		require.NoError(t, s.Create(ctx, r))
	}

	list, err := s.ListByRecipient(ctx, "a@example.com", 20)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "three", list[0].Subject)

	updated, err := s.MarkRead(ctx, "a@example.com", []string{mine.ID, theirs.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, updated)

	unread, err := s.CountUnread(ctx, "a@example.com")
	require.NoError(t, err)
	assert.EqualValues(t, 1, unread)

	deleted, err := s.Delete(ctx, "a@example.com", theirs.ID)
	require.NoError(t, err)
	assert.Zero(t, deleted)

	deleted, err = s.Delete(ctx, "b@example.com", theirs.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)
}

func TestUserStoreFilters(t *testing.T) {
	ctx := context.Background()
	s := NewUserStore(
		domain.User{Username: "root", Email: "root@example.com", Role: domain.RoleAdmin, IsVerified: true},
		domain.User{Username: "emp", Email: "emp@example.com", Role: domain.RoleEmployee, EmployeeID: "E1", IsVerified: true},
		domain.User{Username: "new", Email: "new@example.com", Role: domain.RoleEmployee, EmployeeID: "E2"},
	)

	employees, err := s.List(ctx, repository.UserFilter{Roles: []domain.Role{domain.RoleEmployee}, VerifiedOnly: true})
	require.NoError(t, err)
	require.Len(t, employees, 1)
	assert.Equal(t, "E1", employees[0].EmployeeID)

	none, err := s.List(ctx, repository.UserFilter{EmployeeIDs: []string{}})
	require.NoError(t, err)
	assert.Empty(t, none)

	user, err := s.GetByEmail(ctx, "EMP@example.com")
	require.NoError(t, err)
	assert.Equal(t, "emp", user.Username)
}
