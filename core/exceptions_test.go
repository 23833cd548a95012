package core

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordErrorKinds(t *testing.T) {
	cases := []struct {
		err    error
		kind   error
		status int
		code   string
	}{
		{NewValidationError("bad"), ErrValidation, http.StatusBadRequest, CodeValidation},
		{NewNotFoundError("missing"), ErrNotFound, http.StatusNotFound, CodeNotFound},
		{NewConflictError("dup"), ErrConflict, http.StatusBadRequest, CodeConflict},
		{NewPersistenceError("disk", errors.New("io")), ErrPersistence, http.StatusInternalServerError, CodePersistence},
		{NewInvalidRequestError("json"), ErrInvalidRequest, http.StatusBadRequest, CodeInvalidRequest},
	}

	for _, tc := range cases {
		wrapped := fmt.Errorf("op: %w", tc.err)
		assert.True(t, errors.Is(wrapped, tc.kind), tc.code)
		assert.Equal(t, tc.status, StatusCode(wrapped), tc.code)
		assert.Equal(t, tc.code, WireCode(wrapped))
	}
}

func TestPersistenceErrorUnwrapsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := NewPersistenceError("save document", cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "save document: disk full", err.Error())
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestFromWire(t *testing.T) {
	assert.ErrorIs(t, FromWire(http.StatusBadRequest, CodeConflict, "dup"), ErrConflict)
	assert.ErrorIs(t, FromWire(http.StatusBadRequest, CodeValidation, "bad"), ErrValidation)
	assert.ErrorIs(t, FromWire(http.StatusNotFound, "", "gone"), ErrNotFound)
	assert.ErrorIs(t, FromWire(http.StatusBadGateway, "", "proxy"), ErrPersistence)
	assert.Equal(t, "gone", FromWire(http.StatusNotFound, CodeNotFound, "gone").Message)
}

func TestUnknownErrorDefaults(t *testing.T) {
	err := errors.New("boom")
	assert.Equal(t, http.StatusInternalServerError, StatusCode(err))
	assert.Equal(t, CodePersistence, WireCode(err))
}
