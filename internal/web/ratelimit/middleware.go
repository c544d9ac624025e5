package ratelimit

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/conduit-lang/ledgerapi/internal/logging"
	webcontext "github.com/conduit-lang/ledgerapi/internal/web/context"
	"github.com/conduit-lang/ledgerapi/internal/web/response"
)

// KeyFunc names the client a request counts against
type KeyFunc func(r *http.Request) string

// ClientKey uses the authenticated participant, falling back to the remote IP
func ClientKey(r *http.Request) string {
	if participant := webcontext.GetParticipant(r.Context()); participant != "" {
		return "participant:" + participant
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

// Middleware rejects requests over the limit with 429. Limiter failures let
// the request through. A nil limiter disables it.
func Middleware(limiter Limiter, key KeyFunc, logger *zap.Logger) func(http.Handler) http.Handler {
	if key == nil {
		key = ClientKey
	}
	logger = logging.OrNop(logger)

	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := key(r)
			d, err := limiter.Allow(r.Context(), client)
			if err != nil {
				logger.Warn("rate limiter unavailable", zap.String("client", client), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))

			if !d.Allowed {
				retry := int(math.Ceil(time.Until(d.ResetAt).Seconds()))
				h.Set("Retry-After", strconv.Itoa(max(retry, 1)))
				response.RenderError(w, r, http.StatusTooManyRequests, "Rate limit exceeded", "")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
