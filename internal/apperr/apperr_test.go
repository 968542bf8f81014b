package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Validation("error.invalid_id", nil), http.StatusBadRequest},
		{"unauthorized", Unauthorized("error.unauthorized"), http.StatusUnauthorized},
		{"forbidden", Forbidden("error.forbidden"), http.StatusForbidden},
		{"not found", NotFound("game"), http.StatusNotFound},
		{"conflict", Conflict("error.already_exists", nil), http.StatusConflict},
		{"rate limited", TooManyRequests(), http.StatusTooManyRequests},
		{"internal", Internal(errors.New("boom")), http.StatusInternalServerError},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
		{"wrapped", fmt.Errorf("loading: %w", NotFound("post")), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Status(tt.err))
		})
	}
}

func TestError_Chain(t *testing.T) {
	cause := errors.New("db down")
	err := Internal(cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "error.internal: db down", err.Error())
	assert.True(t, Is(err, KindInternal))
	assert.False(t, Is(err, KindNotFound))
}

func TestWithCode(t *testing.T) {
	err := Unauthorized("error.otp_required").WithCode("OTP_REQUIRED")
	assert.Equal(t, "OTP_REQUIRED", err.Code)
	assert.Equal(t, http.StatusUnauthorized, Status(err))
}

func TestNotFoundParams(t *testing.T) {
	err := NotFound("game")
	assert.Equal(t, "error.not_found", err.Key)
	assert.Equal(t, "game", err.Params["resource"])
}
