package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Limit(t *testing.T) {
	rdb := testRedis(t)
	rl := NewRateLimiter(rdb, 2, time.Minute, nil)

	h := rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// unique address keeps runs independent
	addr := "10.0.0." + uuid.NewString()[:3] + ":1234"
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/resale", nil)
		req.RemoteAddr = addr
		req = req.WithContext(ContextWithCaller(req.Context(), uuid.New()))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	// each request carries a distinct caller so none is limited
	assert.Equal(t, []int{200, 200, 200}, codes)

	caller := uuid.New()
	codes = codes[:0]
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/resale", nil)
		req.RemoteAddr = addr
		req = req.WithContext(ContextWithCaller(req.Context(), caller))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{200, 200, http.StatusTooManyRequests}, codes)
}

func TestRateLimiter_Key(t *testing.T) {
	rl := NewRateLimiter(nil, 1, time.Minute, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:5555"
	assert.Equal(t, "ticketsale:ratelimit:192.0.2.1", rl.key(req))

	caller := uuid.New()
	req = req.WithContext(ContextWithCaller(req.Context(), caller))
	assert.Equal(t, "ticketsale:ratelimit:192.0.2.1:"+caller.String(), rl.key(req))
}

func TestRateLimiter_HeadersAndWindowExpiry(t *testing.T) {
	rdb := testRedis(t)
	rl := NewRateLimiter(rdb, 1, time.Minute, nil)
	h := rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/resale", nil)
	req.RemoteAddr = "10.1.0." + uuid.NewString()[:3] + ":80"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	ttl, err := rdb.TTL(req.Context(), rl.key(req)).Result()
	assert.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"Rate limit exceeded"}`, rec.Body.String())
}
