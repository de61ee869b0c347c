package router

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
	"github.com/shandysiswandi/gootp/internal/pkg/config"
)

// middlewareRateLimit limits requests per client IP. A zero or missing
// server.rate_limit.requests disables it.
func middlewareRateLimit(cfg config.Config) Middleware {
	if cfg == nil {
		return nil
	}

	requests := cfg.GetInt("server.rate_limit.requests")
	if requests <= 0 {
		return nil
	}

	window := cfg.GetSecond("server.rate_limit.window_seconds")
	if window <= 0 {
		window = time.Minute
	}

	return httprate.Limit(requests, window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, errorResponse{Message: "Too many requests"}, http.StatusTooManyRequests)
		}),
	)
}
