package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByCode(t *testing.T) {
	err := NotFoundf("competition %s not found", "cmp-1")

	assert.True(t, Is(err, ErrNotFound))
	assert.False(t, Is(err, ErrForbidden))

	wrapped := fmt.Errorf("loading leaderboard: %w", err)
	assert.True(t, Is(wrapped, ErrNotFound))
}

func TestWithCauseUnwraps(t *testing.T) {
	cause := New("connection reset")
	err := StoreUnavailable(cause)

	assert.True(t, Is(err, ErrStoreUnavailable))
	assert.True(t, Is(err, cause))
	assert.Equal(t, "event store unavailable: connection reset", err.Error())
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeNotFound, http.StatusNotFound},
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeForbidden, http.StatusForbidden},
		{CodeValidation, http.StatusBadRequest},
		{CodeConflict, http.StatusConflict},
		{CodeRateLimited, http.StatusTooManyRequests},
		{CodeStoreUnavailable, http.StatusServiceUnavailable},
		{CodeInvalidGoalType, http.StatusInternalServerError},
		{CodeInvalidHabitType, http.StatusInternalServerError},
		{CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.HTTPStatus())
		})
	}
}

func TestWithDetailsKeepsCode(t *testing.T) {
	err := ErrValidation.WithDetails(map[string]string{"end_date": "is required"})
	assert.True(t, Is(err, ErrValidation))
	assert.Equal(t, map[string]string{"end_date": "is required"}, err.Details)
	// Sentinel is not mutated.
	assert.Nil(t, ErrValidation.Details)
}
