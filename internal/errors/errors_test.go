package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_CreatesErrorWithCorrectFields(t *testing.T) {
	appErr := New(CodeNotFound, "mailbox not found")

	assert.Equal(t, CodeNotFound, appErr.Code)
	assert.Equal(t, "mailbox not found", appErr.Message)
	assert.Nil(t, appErr.Cause)
}

func TestAppError_Error_IncludesCodeAndMessage(t *testing.T) {
	appErr := New(CodeWrongPassword, "password did not match")
	assert.Contains(t, appErr.Error(), "wrong_password")
	assert.Contains(t, appErr.Error(), "password did not match")
}

func TestWrap_CarriesCause(t *testing.T) {
	cause := errors.New("boom")
	appErr := Wrap(CodeStorageFatal, "insert failed", cause)

	assert.Equal(t, cause, appErr.Unwrap())
	assert.Contains(t, appErr.Error(), "boom")
	assert.True(t, errors.Is(appErr, cause))
}

func TestHTTPStatus_MapsTaxonomy(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeNotFound, http.StatusNotFound},
		{CodePasswordRequired, http.StatusUnauthorized},
		{CodeWrongPassword, http.StatusUnauthorized},
		{CodeAlreadyLocked, http.StatusConflict},
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeValidation, http.StatusBadRequest},
		{CodeStorageTransient, http.StatusServiceUnavailable},
		{CodeStorageFatal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(New(tt.code, "x")))
		})
	}
}

func TestHTTPStatus_NonAppErrorDefaultsTo500(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("plain")))
}

func TestCodeOf_ExtractsCode(t *testing.T) {
	assert.Equal(t, CodeAlreadyLocked, CodeOf(New(CodeAlreadyLocked, "x")))
	assert.Equal(t, CodeStorageFatal, CodeOf(errors.New("plain")))
}

func TestIs_MatchesWrappedCode(t *testing.T) {
	err := Wrap(CodeWrongPassword, "nope", errors.New("inner"))
	assert.True(t, Is(err, CodeWrongPassword))
	assert.False(t, Is(err, CodeNotFound))
}

func TestSentinels_CarryExpectedCodes(t *testing.T) {
	assert.True(t, Is(ErrNotFound, CodeNotFound))
	assert.True(t, Is(ErrPasswordRequired, CodePasswordRequired))
	assert.True(t, Is(ErrWrongPassword, CodeWrongPassword))
	assert.True(t, Is(ErrAlreadyLocked, CodeAlreadyLocked))
	assert.True(t, Is(ErrUnauthorized, CodeUnauthorized))
}
