package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Is(t *testing.T) {
	err := NewDomainError(CodeNotFound, "profile not found")

	assert.ErrorIs(t, err, ErrNotFound, "errors with the same code match")
	assert.NotErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, fmt.Errorf("loading: %w", err), ErrNotFound)
	assert.NotErrorIs(t, errors.New("NOT_FOUND"), ErrNotFound)
}

func TestDomainError_WithCause(t *testing.T) {
	cause := errors.New("duplicate key")
	err := ErrAlreadyExists.WithCause(cause)

	assert.Nil(t, ErrAlreadyExists.Cause, "the sentinel is not modified")
	assert.Equal(t, "Resource already exists: duplicate key", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrAlreadyExists)

	var de *DomainError
	assert.True(t, errors.As(fmt.Errorf("wrapped: %w", err), &de))
	assert.Equal(t, CodeAlreadyExists, de.Code)
}
