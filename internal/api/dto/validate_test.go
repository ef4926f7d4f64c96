package dto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/spec-kit/task-service/pkg/util/errorutil"
)

func TestValidateCreateTaskRequest(t *testing.T) {
	ok := CreateTaskRequest{
		Title:      "Stock count",
		AssignedTo: []string{"TMS001"},
		Status:     "In Progress",
		Deadline:   time.Now().Add(time.Hour),
	}
	require.NoError(t, Validate(ok))

	all := CreateTaskRequest{Title: "Sweep", AssignToAll: true, Deadline: time.Now()}
	require.NoError(t, Validate(all))

	bad := CreateTaskRequest{Priority: "Urgent"}
	err := Validate(bad)
	require.Error(t, err)
	de := apperrors.ToDomainError(err)
	assert.Equal(t, apperrors.CodeValidation, de.Code)
	fields, _ := de.Details["fields"].(map[string]any)
	assert.Equal(t, "required", fields["title"])
	assert.Equal(t, "required_without", fields["assigned_to"])
	assert.Equal(t, "oneof", fields["priority"])
	assert.Equal(t, "required", fields["deadline"])
}

func TestValidateMarkReadRequest(t *testing.T) {
	assert.Error(t, Validate(MarkReadRequest{}))
	assert.Error(t, Validate(MarkReadRequest{IDs: []string{}}))
	assert.NoError(t, Validate(MarkReadRequest{IDs: []string{"x"}}))
}
