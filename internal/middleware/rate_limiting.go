package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/Shoshin-Dev-Ivy/portfolio-backend/internal/instrumentation"
	"github.com/Shoshin-Dev-Ivy/portfolio-backend/pkg"

	"github.com/go-redis/redis_rate/v9"
	log "github.com/sirupsen/logrus"
)

type RequestRateLimiter interface {
	Allow(ctx context.Context, key string, limit redis_rate.Limit) (*redis_rate.Result, error)
}

// RateLimitParams configures the per-client limit. The underlying GCRA
// limiter treats MaxRequests as both burst and rate, so a client can burst
// MaxRequests immediately and then regains one slot every Window/MaxRequests,
// rather than all slots at once when the window ends.
type RateLimitParams struct {
	KeyPrefix   string
	MaxRequests int
	Window      time.Duration
	// BypassLoopback skips the limiter for loopback clients; a development
	// convenience only, never enabled in production
	BypassLoopback bool
}

// RateLimitPerClient caps the number of accepted requests per client
// network address within a sliding window.
func RateLimitPerClient(
	rateLimiter RequestRateLimiter,
	instr *instrumentation.Instrumentation,
	params RateLimitParams,
) func(next http.Handler) http.Handler {
	limit := redis_rate.Limit{
		Rate:   params.MaxRequests,
		Burst:  params.MaxRequests,
		Period: params.Window,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// preflights never consume a slot
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			if params.BypassLoopback && pkg.IPIsLocal(r.RemoteAddr) {
				next.ServeHTTP(w, r)
				return
			}

			clientIP, err := pkg.ReadUserIP(r)
			if err != nil {
				// unparsable address, fall back to the raw remote addr as key
				clientIP = r.RemoteAddr
			}

			res, err := rateLimiter.Allow(r.Context(), params.KeyPrefix+"||"+clientIP, limit)
			if err != nil {
				log.Errorf("rate limiter, allow [%s]: %s", clientIP, err)
				pkg.WriteJSONError(w, "RATE_LIMIT_ERROR", "rate limit internal error", http.StatusInternalServerError)
				return
			}

			if res.Allowed > 0 {
				next.ServeHTTP(w, r)
				return
			}

			if instr != nil {
				instr.CounterRateLimitedRequests.Inc()
			}
			pkg.WriteJSONError(
				w,
				"RATE_LIMITED",
				"too many attempts, please try again in 15 minutes",
				http.StatusTooManyRequests,
			)
		})
	}
}
