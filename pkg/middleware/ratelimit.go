// pkg/middleware/ratelimit.go
package middleware

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"pushgw/pkg/respond"
)

// RateLimit caps requests per caller IP within a fixed window. With a redis
// client the window is shared across replicas; without one a per-process
// token bucket stands in.
func RateLimit(rdb *redis.Client, limit int, window time.Duration, log *zap.SugaredLogger) func(http.Handler) http.Handler {
	// A non-positive limit or window disables limiting; the window also
	// divides the bucket computation below.
	if limit <= 0 || window <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if rdb == nil {
		return localRateLimit(limit, window)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bucket := time.Now().Unix() / int64(window.Seconds())
			key := fmt.Sprintf("ratelimit:%s:%d", callerIP(r), bucket)

			count, err := rdb.Incr(r.Context(), key).Result()
			if err != nil {
				// Redis trouble never blocks traffic.
				log.Warnw("rate limit check failed", "err", err)
				next.ServeHTTP(w, r)
				return
			}
			if count == 1 {
				rdb.Expire(r.Context(), key, window)
			}
			if count > int64(limit) {
				tooManyRequests(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func localRateLimit(limit int, window time.Duration) func(http.Handler) http.Handler {
	var limiters sync.Map // ip -> *rate.Limiter
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := callerIP(r)
			v, _ := limiters.LoadOrStore(ip, rate.NewLimiter(rate.Every(window/time.Duration(limit)), limit))
			if !v.(*rate.Limiter).Allow() {
				tooManyRequests(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func callerIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func tooManyRequests(w http.ResponseWriter) {
	respond.Failure(w, http.StatusTooManyRequests, []respond.Error{
		{Name: "RateLimited", Message: "too many requests, slow down"},
	}, nil)
}
