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

func TestToDomainError_KeepsDomainErrors(t *testing.T) {
	forbidden := NewForbidden("NO_ACTIVE_SESSION", "no active session")
	wrapped := fmt.Errorf("refresh: %w", forbidden)

	got := ToDomainError(wrapped)
	require.NotNil(t, got)
	assert.Same(t, forbidden, got)
	assert.Equal(t, http.StatusForbidden, got.HTTPStatus)
}

func TestToDomainError_NoRowsBecomesNotFound(t *testing.T) {
	got := ToDomainError(fmt.Errorf("lookup: %w", pgx.ErrNoRows))
	assert.Equal(t, "NOT_FOUND", got.Code)
	assert.Equal(t, http.StatusNotFound, got.HTTPStatus)
}

func TestToDomainError_UnknownIsInternal(t *testing.T) {
	cause := errors.New("redis down")
	got := ToDomainError(cause)
	assert.Equal(t, "INTERNAL_ERROR", got.Code)
	assert.ErrorIs(t, got, cause)
	assert.Nil(t, ToDomainError(nil))
}

func TestForbiddenDefaultsCode(t *testing.T) {
	assert.Equal(t, "FORBIDDEN", NewForbidden("", "nope").Code)
}
