package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/usmanhx/labinsight/internal/api/response"
	"github.com/usmanhx/labinsight/internal/cache"
)

const submitWindow = time.Hour

// SubmitLimit caps report submissions per client IP per hour. The counter is
// a fixed window: the TTL is set when the key is created and runs out on its
// own, matching the window start rather than sliding per request.
type SubmitLimit struct {
	cache   cache.Cache
	perHour int
}

func NewSubmitLimit(c cache.Cache, perHour int) *SubmitLimit {
	return &SubmitLimit{cache: c, perHour: perHour}
}

func (l *SubmitLimit) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ClientIP(r)
		key := cache.SubmitRateKey(ip)

		count, err := l.cache.IncrIfAbsentExpiry(r.Context(), key, submitWindow)
		if err != nil {
			// On Redis error, allow the request (fail open)
			next.ServeHTTP(w, r)
			return
		}

		remaining := l.perHour - int(count)
		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.perHour))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if count > int64(l.perHour) {
			retryAfter := int64(submitWindow / time.Second)
			if ttl, err := l.cache.TTL(r.Context(), key); err == nil && ttl > 0 {
				retryAfter = int64(ttl / time.Second)
			}
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
			response.Error(w, http.StatusTooManyRequests,
				fmt.Sprintf("Rate limit exceeded. Try again in %d seconds.", retryAfter))
			return
		}

		next.ServeHTTP(w, r)
	})
}
