package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/usmanhx/labinsight/internal/api/response"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewHealthHandler returns the handler for GET /v1/health. queueDepth may be
// nil when the pipeline is not running in this process.
func NewHealthHandler(db, redis Pinger, queueDepth func() int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		healthy := true
		checks := map[string]any{}

		if err := db.Ping(ctx); err != nil {
			healthy = false
			checks["postgres"] = "unreachable"
		} else {
			checks["postgres"] = "ok"
		}

		if err := redis.Ping(ctx); err != nil {
			healthy = false
			checks["redis"] = "unreachable"
		} else {
			checks["redis"] = "ok"
		}

		if queueDepth != nil {
			checks["queue_depth"] = queueDepth()
		}

		status := "healthy"
		code := http.StatusOK
		if !healthy {
			status = "unhealthy"
			code = http.StatusServiceUnavailable
		}

		response.JSON(w, code, map[string]any{
			"status":  status,
			"service": "labinsight",
			"checks":  checks,
		})
	}
}
