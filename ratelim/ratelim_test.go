package ratelim

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
)

func hit(rl *RateLimiter, addr string) int {
	handler := rl.Limit(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.WriteHeader(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = addr
	rec := httptest.NewRecorder()
	handler(rec, req, nil)
	return rec.Code
}

func TestLimitRejectsAfterBurst(t *testing.T) {
	rl := NewRateLimiter(1, 3)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, hit(rl, "10.0.0.1:5000"))
	}
	assert.Equal(t, http.StatusTooManyRequests, hit(rl, "10.0.0.1:5000"))
}

func TestLimitIsPerIP(t *testing.T) {
	rl := NewRateLimiter(1, 1)

	assert.Equal(t, http.StatusOK, hit(rl, "10.0.0.1:5000"))
	assert.Equal(t, http.StatusTooManyRequests, hit(rl, "10.0.0.1:5001"))
	assert.Equal(t, http.StatusOK, hit(rl, "10.0.0.2:5000"))
}
