package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

// testRedis connects to REDIS_ADDR (default localhost:6379) or skips.
func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skip("Redis not available")
	}
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestIdempotencyMiddleware_MissingKey(t *testing.T) {
	mw := NewIdempotencyMiddleware(nil, time.Minute, nil)
	h := mw.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler reached without key")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tickets/1/purchase", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIdempotencyMiddleware_SafeMethodPassesThrough(t *testing.T) {
	mw := NewIdempotencyMiddleware(nil, time.Minute, nil)
	h := mw.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/resale", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIdempotencyMiddleware_ReplaysResponse(t *testing.T) {
	rdb := testRedis(t)
	mw := NewIdempotencyMiddleware(rdb, 10*time.Second, nil)

	var calls int32
	h := mw.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ticket_id":1}`))
	}))

	key := uuid.NewString()
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/tickets/1/purchase", nil)
		req.Header.Set("Idempotency-Key", key)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.JSONEq(t, `{"ticket_id":1}`, rec.Body.String())
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestIdempotencyMiddleware_ConcurrentRequests(t *testing.T) {
	rdb := testRedis(t)
	mw := NewIdempotencyMiddleware(rdb, 10*time.Second, nil)

	var calls int32
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(500 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("success"))
	})
	wrapped := mw.Require(slow)

	key := uuid.NewString()
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(delay time.Duration) {
			defer wg.Done()
			time.Sleep(delay)
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			req.Header.Set("Idempotency-Key", key)
			w := httptest.NewRecorder()
			wrapped.ServeHTTP(w, req)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "success", w.Body.String())
		}(time.Duration(i) * 100 * time.Millisecond)
	}
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestIdempotencyMiddleware_KeysScopedByCaller(t *testing.T) {
	rdb := testRedis(t)
	mw := NewIdempotencyMiddleware(rdb, 10*time.Second, nil)

	var calls int32
	h := mw.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))

	key := uuid.NewString()
	for _, caller := range []uuid.UUID{uuid.New(), uuid.New()} {
		req := httptest.NewRequest(http.MethodPost, "/resale", nil)
		req.Header.Set("Idempotency-Key", key)
		req = req.WithContext(ContextWithCaller(req.Context(), caller))
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestIdempotencyKeys_IncludePath(t *testing.T) {
	purchase := httptest.NewRequest(http.MethodPost, "/api/v1/tickets/1/purchase", nil)
	ret := httptest.NewRequest(http.MethodPost, "/api/v1/tickets/1/return", nil)

	d1, l1 := idempotencyKeys("caller", purchase, "k")
	d2, l2 := idempotencyKeys("caller", ret, "k")
	assert.NotEqual(t, d1, d2)
	assert.NotEqual(t, l1, l2)
	assert.Equal(t, "ticketsale:idempotency:data:caller:POST:/api/v1/tickets/1/purchase:k", d1)
}

func TestIdempotencyMiddleware_KeyReusedOnOtherPath(t *testing.T) {
	rdb := testRedis(t)
	mw := NewIdempotencyMiddleware(rdb, 10*time.Second, nil)

	h := mw.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"path":"` + r.URL.Path + `"}`))
	}))

	key := uuid.NewString()
	for _, path := range []string{"/tickets/1/purchase", "/tickets/1/return"} {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.Header.Set("Idempotency-Key", key)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.JSONEq(t, `{"path":"`+path+`"}`, rec.Body.String())
		assert.Empty(t, rec.Header().Get("Idempotent-Replayed"))
	}
}
