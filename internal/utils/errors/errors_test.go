package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_StatusCodes(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		code     string
		status   int
		sentinel error
	}{
		{"not found", NotFound("payment"), "NOT_FOUND", http.StatusNotFound, ErrNotFound},
		{"unauthorized", Unauthorized(""), "UNAUTHORIZED", http.StatusUnauthorized, ErrUnauthorized},
		{"forbidden", Forbidden(""), "FORBIDDEN", http.StatusForbidden, ErrForbidden},
		{"bad request", BadRequest("nope"), "BAD_REQUEST", http.StatusBadRequest, ErrBadRequest},
		{"invalid state", InvalidState("Cannot confirm a payment with status FAILED"), "INVALID_STATE", http.StatusBadRequest, ErrInvalidState},
		{"conflict", Conflict("taken"), "CONFLICT", http.StatusConflict, ErrConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, tt.err.StatusCode)
			assert.True(t, errors.Is(tt.err, tt.sentinel))
			assert.Equal(t, tt.status, GetStatusCode(tt.err))
		})
	}
}

func TestAppError_MessagePropagation(t *testing.T) {
	err := NotFound("payment")
	assert.Equal(t, "payment not found", err.Message)
	assert.Equal(t, "payment not found", err.Error())

	resp := err.ToResponse()
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
	assert.Equal(t, "payment not found", resp.Error.Message)
}

func TestAppError_Wrapping(t *testing.T) {
	cause := errors.New("connection refused")
	err := Internal("database unavailable", cause)

	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "connection refused")

	wrapped := fmt.Errorf("query failed: %w", err)
	var appErr *AppError
	assert.True(t, errors.As(wrapped, &appErr))
	assert.Equal(t, http.StatusInternalServerError, GetStatusCode(wrapped))
}

func TestGetStatusCode_PlainError(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, GetStatusCode(errors.New("boom")))
}

func TestHelpers(t *testing.T) {
	assert.True(t, IsNotFound(NotFound("payment")))
	assert.False(t, IsNotFound(BadRequest("nope")))

	assert.True(t, IsForbidden(Forbidden("")))
	assert.True(t, IsInvalidState(InvalidState("bad transition")))
	assert.False(t, IsInvalidState(Forbidden("")))
}
