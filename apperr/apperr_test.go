package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(NotFound("item")))
	assert.Equal(t, KindValidation, KindOf(fmt.Errorf("wrap: %w", Validation("due_date", "must be in the future"))))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
}

func TestIs_MatchesOnKind(t *testing.T) {
	err := fmt.Errorf("issue: %w", Conflict("item is already loaned"))
	assert.True(t, errors.Is(err, ErrConflict))
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestError_Message(t *testing.T) {
	assert.Equal(t, "email: must not be empty", Validation("email", "must not be empty").Error())

	cause := errors.New("timeout")
	err := Storage("delete", cause)
	assert.Equal(t, "object storage delete failed: timeout", err.Error())
	assert.ErrorIs(t, err, cause)
}
