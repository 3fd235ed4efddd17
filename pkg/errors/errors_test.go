package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelErrors_AreDistinct(t *testing.T) {
	sentinels := []error{
		ErrNotFound, ErrAlreadyExists, ErrInvalidInput, ErrInvalidCredential,
		ErrUnauthenticated, ErrForbidden, ErrUpstream, ErrInternal,
	}

	for i := 0; i < len(sentinels); i++ {
		for j := i + 1; j < len(sentinels); j++ {
			assert.NotEqual(t, sentinels[i], sentinels[j],
				"sentinels %d and %d should be distinct", i, j)
		}
	}
}

func TestAppError_ErrorString_WithWrappedError(t *testing.T) {
	inner := fmt.Errorf("db connection lost")
	appErr := &AppError{Code: "INTERNAL_ERROR", Message: "something broke", Err: inner}
	assert.Contains(t, appErr.Error(), "INTERNAL_ERROR")
	assert.Contains(t, appErr.Error(), "something broke")
	assert.Contains(t, appErr.Error(), "db connection lost")
}

func TestAppError_ErrorString_WithoutWrappedError(t *testing.T) {
	appErr := &AppError{Code: "NOT_FOUND", Message: "tweet not found"}
	assert.Equal(t, "NOT_FOUND: tweet not found", appErr.Error())
}

func TestAppError_Unwrap_Nil(t *testing.T) {
	appErr := &AppError{Code: "TEST", Message: "test"}
	assert.Nil(t, appErr.Unwrap())
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		code     string
		status   int
		sentinel error
	}{
		{"not found", NotFound("tweet", "abc"), "NOT_FOUND", http.StatusNotFound, ErrNotFound},
		{"already exists", AlreadyExists("user", "email", "a@b.com"), "ALREADY_EXISTS", http.StatusConflict, ErrAlreadyExists},
		{"invalid input", InvalidInput("content is required"), "INVALID_INPUT", http.StatusBadRequest, ErrInvalidInput},
		{"invalid credential", InvalidCredential("wrong password"), "INVALID_CREDENTIAL", http.StatusUnauthorized, ErrInvalidCredential},
		{"unauthenticated", Unauthenticated("token expired"), "UNAUTHENTICATED", http.StatusUnauthorized, ErrUnauthenticated},
		{"forbidden", Forbidden("not the owner"), "FORBIDDEN", http.StatusForbidden, ErrForbidden},
		{"upstream", Upstream("media host failed", nil), "UPSTREAM_ERROR", http.StatusBadGateway, ErrUpstream},
		{"internal", Internal(ErrInternal), "INTERNAL_ERROR", http.StatusInternalServerError, ErrInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NotNil(t, tt.err)
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, tt.err.Status)
			assert.True(t, errors.Is(tt.err, tt.sentinel))
		})
	}
}

func TestNotFound_MessageNamesResource(t *testing.T) {
	err := NotFound("user", "42")
	assert.Contains(t, err.Message, "user")
	assert.Contains(t, err.Message, "42")
}

func TestUpstream_KeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Upstream("media host failed", cause)

	assert.True(t, errors.Is(err, ErrUpstream))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "media host failed", err.Message)
}

func TestInvalidCredential_DistinctFromUnauthenticated(t *testing.T) {
	err := InvalidCredential("wrong password")
	assert.False(t, errors.Is(err, ErrUnauthenticated))
	assert.Equal(t, http.StatusUnauthorized, HTTPStatus(err))
}

func TestWrap(t *testing.T) {
	err := Wrap(ErrNotFound, "load user")
	assert.Equal(t, "load user: resource not found", err.Error())
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"app error", Forbidden("x"), http.StatusForbidden},
		{"wrapped app error", fmt.Errorf("outer: %w", NotFound("tweet", "1")), http.StatusNotFound},
		{"bare not found", ErrNotFound, http.StatusNotFound},
		{"bare already exists", ErrAlreadyExists, http.StatusConflict},
		{"bare invalid input", ErrInvalidInput, http.StatusBadRequest},
		{"bare invalid credential", ErrInvalidCredential, http.StatusUnauthorized},
		{"bare unauthenticated", ErrUnauthenticated, http.StatusUnauthorized},
		{"bare forbidden", ErrForbidden, http.StatusForbidden},
		{"bare upstream", ErrUpstream, http.StatusBadGateway},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}
