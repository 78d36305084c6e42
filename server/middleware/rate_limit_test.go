package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	// Keys are independent.
	assert.True(t, rl.Allow("b"))
}

func TestRateLimiter_Middleware(t *testing.T) {
	e := echo.New()
	rl := NewRateLimiter(1, 1)
	handler := rl.Middleware()(func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})

	codes := make([]int, 0, 2)
	for range 2 {
		req := httptest.NewRequest(http.MethodPost, "/api/chat/completions", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		assert.NoError(t, handler(e.NewContext(req, rec)))
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusTooManyRequests}, codes)
}
