package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	limiter "github.com/ulule/limiter/v3"
)

func testMiddleware(t *testing.T, max int64, period time.Duration) Middleware {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store, err := NewStore(client)
	require.NoError(t, err)
	return Middleware{
		Limiter: limiter.New(store, limiter.Rate{Period: period, Limit: max}),
		Logger:  zerolog.Nop(),
	}
}

func fire(t *testing.T, h http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMiddlewareThrottlesAfterLimit(t *testing.T) {
	mw := testMiddleware(t, 3, time.Minute)
	h := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for i := 0; i < 3; i++ {
		rec := fire(t, h, "203.0.113.9:51000")
		require.Equal(t, http.StatusNoContent, rec.Code, "request %d should pass", i)
	}

	rec := fire(t, h, "203.0.113.9:51000")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	require.Contains(t, rec.Body.String(), "RATE_LIMITED")
}

func TestMiddlewareKeysClientsSeparately(t *testing.T) {
	mw := testMiddleware(t, 1, time.Minute)
	h := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	require.Equal(t, http.StatusNoContent, fire(t, h, "203.0.113.9:51000").Code)
	require.Equal(t, http.StatusTooManyRequests, fire(t, h, "203.0.113.9:51001").Code)
	require.Equal(t, http.StatusNoContent, fire(t, h, "198.51.100.4:9000").Code)
}

func TestNilLimiterPassesThrough(t *testing.T) {
	mw := Middleware{Logger: zerolog.Nop()}
	h := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	for i := 0; i < 10; i++ {
		require.Equal(t, http.StatusNoContent, fire(t, h, "203.0.113.9:51000").Code)
	}
}
