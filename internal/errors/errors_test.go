package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError(t *testing.T) {
	t.Run("Error returns formatted string", func(t *testing.T) {
		err := New(ErrCodeNotFound, "Document not found")
		assert.Equal(t, "NOT_FOUND: Document not found", err.Error())
	})

	t.Run("Error with cause includes cause", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := Wrap(ErrCodeUpstream, "CouchDB error", cause)
		assert.Contains(t, err.Error(), "UPSTREAM_ERROR")
		assert.Contains(t, err.Error(), "CouchDB error")
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("WithCause adds cause to error", func(t *testing.T) {
		cause := errors.New("original error")
		err := New(ErrCodeInternal, "Something went wrong").WithCause(cause)
		assert.Equal(t, cause, err.Unwrap())
	})

	t.Run("WithDetails adds details to error", func(t *testing.T) {
		details := map[string]string{"field": "account", "reason": "invalid format"}
		err := New(ErrCodeValidation, "Validation failed").WithDetails(details)
		assert.Equal(t, details, err.Details)
	})
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name         string
		constructor  func() *AppError
		expectedCode ErrorCode
	}{
		{"AuthenticationFailed", AuthenticationFailed, ErrCodeAuthenticationFailed},
		{"NoSession", NoSession, ErrCodeNoSession},
		{"NotFound", func() *AppError { return NotFound("Account") }, ErrCodeNotFound},
		{"Conflict", func() *AppError { return Conflict("Account already exists") }, ErrCodeConflict},
		{"ValidationError", func() *AppError { return ValidationError("test") }, ErrCodeValidation},
		{"RateLimitExceeded", RateLimitExceeded, ErrCodeRateLimitExceeded},
		{"Internal", func() *AppError { return Internal("test") }, ErrCodeInternal},
		{"Upstream", func() *AppError { return Upstream("couchdb", errors.New("timeout")) }, ErrCodeUpstream},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.constructor()
			assert.Equal(t, tc.expectedCode, err.Code)
			assert.NotEmpty(t, err.Message)
		})
	}
}

func TestUpstream(t *testing.T) {
	t.Run("wraps the upstream cause", func(t *testing.T) {
		cause := errors.New("timeout")
		err := Upstream("Fitbit API", cause)
		assert.Equal(t, ErrCodeUpstream, err.Code)
		assert.Contains(t, err.Message, "Fitbit API")
		assert.Equal(t, cause, err.Unwrap())
	})
}

func TestIsAppError(t *testing.T) {
	t.Run("returns true for AppError", func(t *testing.T) {
		err := New(ErrCodeNotFound, "test")
		assert.True(t, IsAppError(err))
	})

	t.Run("returns false for standard error", func(t *testing.T) {
		err := errors.New("standard error")
		assert.False(t, IsAppError(err))
	})
}

func TestAsAppError(t *testing.T) {
	t.Run("extracts AppError", func(t *testing.T) {
		original := New(ErrCodeNotFound, "Document not found")
		extracted, ok := AsAppError(original)
		assert.True(t, ok)
		assert.Equal(t, original, extracted)
	})

	t.Run("extracts wrapped AppError", func(t *testing.T) {
		wrapped := fmt.Errorf("handler: %w", NotFound("Document"))
		extracted, ok := AsAppError(wrapped)
		assert.True(t, ok)
		assert.Equal(t, ErrCodeNotFound, extracted.Code)
	})

	t.Run("returns false for non-AppError", func(t *testing.T) {
		err := errors.New("standard error")
		extracted, ok := AsAppError(err)
		assert.False(t, ok)
		assert.Nil(t, extracted)
	})
}

func TestGetCode(t *testing.T) {
	t.Run("returns code for AppError", func(t *testing.T) {
		err := New(ErrCodeConflict, "test")
		assert.Equal(t, ErrCodeConflict, GetCode(err))
	})

	t.Run("returns ErrCodeInternal for standard error", func(t *testing.T) {
		err := errors.New("standard error")
		assert.Equal(t, ErrCodeInternal, GetCode(err))
	})
}

func TestIsCode(t *testing.T) {
	assert.True(t, IsCode(NoSession(), ErrCodeNoSession))
	assert.False(t, IsCode(NoSession(), ErrCodeNotFound))
	assert.False(t, IsCode(errors.New("standard error"), ErrCodeInternal))
	assert.False(t, IsCode(nil, ErrCodeInternal))
}

func TestNotFoundMessage(t *testing.T) {
	t.Run("formats resource name correctly", func(t *testing.T) {
		err := NotFound("Document")
		assert.Equal(t, "Document not found", err.Message)

		err = NotFound("Persona")
		assert.Equal(t, "Persona not found", err.Message)
	})
}
