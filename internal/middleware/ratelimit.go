package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/deepgram/pipeview/internal/config"
	"github.com/deepgram/pipeview/pkg/httpext"
	"github.com/deepgram/pipeview/pkg/logger"
	"github.com/deepgram/pipeview/pkg/ratelimit"
)

func RateLimit(limitKey string) func(http.Handler) http.Handler {
	cfg := config.GetRateLimitConfig(limitKey)
	limiter := ratelimit.NewLimiter(cfg.Window, cfg.MaxHits)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			ip := ClientIP(r)
			allowed := limiter.Allow(ip)
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.MaxHits))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(limiter.Remaining(ip)))
			if !allowed {
				logger.Warn(logger.MIDDLEWARE, "Rate limit exceeded for %s on %s", ip, limitKey)
				httpext.JsonErrorWithDetails(w, http.StatusTooManyRequests, httpext.ErrorResponse{
					Detail: "Rate limit exceeded",
					Code:   "rate_limited",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP prefers the first X-Forwarded-For hop, then the remote address.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
