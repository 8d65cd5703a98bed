package ratelimit

import (
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strings"

	"github.com/arcadia-sms/arcadia/internal/audit"
	"github.com/arcadia-sms/arcadia/internal/observability"
	"github.com/arcadia-sms/arcadia/internal/platform/httpx"
)

// Class names an endpoint sensitivity tier with its own thresholds.
type Class string

const (
	// ClassAuth covers authentication endpoints: few attempts over a short
	// window, long block.
	ClassAuth Class = "auth"
	// ClassBulk covers bulk-import style endpoints: few requests over a
	// long window.
	ClassBulk Class = "bulk"
	// ClassDefault covers everything else.
	ClassDefault Class = "default"
)

// UnknownClient is the key used when no client address can be determined.
const UnknownClient = "unknown"

// Middleware applies per-class rate limiting keyed by client IP.
type Middleware struct {
	limiter  Limiter
	policies map[Class]Policy
	logger   *slog.Logger
	metrics  *observability.Metrics
	recorder audit.Recorder
}

// NewMiddleware constructs the middleware. Classes missing from policies
// fall back to the ClassDefault policy. A nil recorder disables audit events.
func NewMiddleware(limiter Limiter, policies map[Class]Policy, logger *slog.Logger, metrics *observability.Metrics, recorder audit.Recorder) *Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &Middleware{limiter: limiter, policies: policies, logger: logger, metrics: metrics, recorder: recorder}
}

// Limit gates requests through the policy for the given class.
func (m *Middleware) Limit(class Class) func(http.Handler) http.Handler {
	policy, ok := m.policies[class]
	if !ok {
		policy = m.policies[ClassDefault]
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "ip:" + ClientIP(r)
			res := m.limiter.Check(r.Context(), key, policy)
			if res.Allowed {
				w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", policy.MaxRequests))
				w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", res.Remaining))
				next.ServeHTTP(w, r)
				return
			}
			m.metrics.RateLimited(string(class))
			retryAfter := int(math.Ceil(res.RetryAfter.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			m.logger.Warn("request rate limited",
				slog.String("class", string(class)),
				slog.String("key", key),
				slog.Int("retry_after_seconds", retryAfter),
			)
			if m.recorder != nil && res.Blocked {
				_ = m.recorder.Record(r.Context(), audit.Event{
					Type:     audit.EventRateLimitBlocked,
					Action:   string(class),
					Detail:   key,
					Severity: audit.SeverityWarning,
				})
			}
			httpx.TooManyRequests(w, retryAfter)
		})
	}
}

// ClientIP extracts the caller address, preferring a reverse proxy's
// forwarded headers over the raw socket peer.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first := forwarded
		if idx := strings.Index(forwarded, ","); idx >= 0 {
			first = forwarded[:idx]
		}
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	if r.RemoteAddr != "" {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			return host
		}
		return r.RemoteAddr
	}
	return UnknownClient
}
