package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/storefront/internal/apperror"
	"github.com/sakif/storefront/internal/auth"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"validation", apperror.ValidationFailed("email", "missing"), http.StatusBadRequest, "validation_error"},
		{"unauthorized", apperror.Unauthorized(auth.ErrStateMismatch, "invalid OAuth state"), http.StatusUnauthorized, "unauthorized"},
		{"not found", apperror.NotFoundCause(auth.ErrUnknownProvider, "unknown provider"), http.StatusNotFound, "not_found"},
		{"conflict", apperror.Conflict("user", "email taken"), http.StatusConflict, "conflict"},
		{"wrapped", fmt.Errorf("outer: %w", apperror.NotFound("user", "u1")), http.StatusNotFound, "not_found"},
		{"plain error", errors.New("db exploded"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, errorType, _ := classify(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantType, errorType)
		})
	}
}

func TestWriteError_HidesInternalDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, errors.New("password=hunter2"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "internal_error", body.Error)
	assert.NotContains(t, body.Message, "hunter2")
}

func TestWritePageError(t *testing.T) {
	rec := httptest.NewRecorder()
	writePageError(rec, apperror.Unauthorized(auth.ErrStateMismatch, "invalid OAuth state"))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid OAuth state")
}

func TestProviderErrorNotice(t *testing.T) {
	assert.Equal(t, "Sign-in was cancelled.", providerErrorNotice("access_denied"))
	assert.Contains(t, providerErrorNotice("server_error"), "server_error")
}
