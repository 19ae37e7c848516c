package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	limiter "github.com/ulule/limiter/v3"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/noah-isme/backend-bazuuyu/internal/common"
)

// NewStore wires a limiter store backed by Redis. All middlewares built from
// the same store share counters across instances.
func NewStore(rdb *redis.Client) (limiter.Store, error) {
	return limiterredis.NewStoreWithOptions(rdb, limiter.StoreOptions{
		Prefix: "ratelimit",
	})
}

// PerMinute builds a limiter allowing max events per client per minute.
func PerMinute(store limiter.Store, max int64) *limiter.Limiter {
	return limiter.New(store, limiter.Rate{Period: time.Minute, Limit: max})
}

// Middleware throttles requests per client key. Authenticated requests are
// keyed by user id, anonymous ones by remote IP, so a busy NAT does not starve
// logged-in customers.
type Middleware struct {
	Limiter *limiter.Limiter
	Logger  zerolog.Logger
}

func (m Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Limiter == nil {
			next.ServeHTTP(w, r)
			return
		}
		lctx, err := m.Limiter.Get(r.Context(), clientKey(r))
		if err != nil {
			// Redis trouble should not take the endpoint down.
			m.Logger.Warn().Err(err).Msg("rate limit check failed")
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))
		if lctx.Reached {
			common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests, slow down", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	if userID, ok := common.UserID(r.Context()); ok {
		return "u:" + userID.String()
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
