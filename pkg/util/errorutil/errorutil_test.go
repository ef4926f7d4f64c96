package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
	}{
		{"domain error passes through", NewForbidden("nope"), CodeForbidden, http.StatusForbidden},
		{"wrapped domain error", fmt.Errorf("ctx: %w", NewNotFound("task", nil)), CodeNotFound, http.StatusNotFound},
		{"pgx no rows", pgx.ErrNoRows, CodeNotFound, http.StatusNotFound},
		{"transport", NewTransportError(errors.New("dial"), nil), CodeTransport, http.StatusBadGateway},
		{"unknown", errors.New("boom"), CodeInternal, http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			de := ToDomainError(tc.err)
			require.NotNil(t, de)
			assert.Equal(t, tc.wantCode, de.Code)
			assert.Equal(t, tc.wantStatus, de.HTTPStatus)
		})
	}
	assert.Nil(t, ToDomainError(nil))
}

func TestTransportErrorUnwraps(t *testing.T) {
	cause := errors.New("535 auth failed")
	err := NewTransportError(cause, map[string]any{"failed": 1})

	assert.ErrorIs(t, err, cause)
	assert.True(t, HasCode(err, CodeTransport))
	assert.False(t, HasCode(err, CodeForbidden))
	assert.Contains(t, err.Error(), "535 auth failed")
}
