package api

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/kpgate/kpgate/cache"
)

// limitClass partitions endpoints into rate-limit buckets. Login gets a
// stricter bound than general API calls.
type limitClass string

const (
	classLogin limitClass = "login"
	classAPI   limitClass = "api"
)

// limitRule is the fixed-window policy for one class.
type limitRule struct {
	Window      time.Duration
	MaxAttempts int64
}

// rateLimiter counts attempts per (client, endpoint class) in a remote
// cache with a fixed window. It is a defense-in-depth layer: any cache
// error lets the request through (fail-open) rather than turning a cache
// outage into a denial of service against the service itself.
type rateLimiter struct {
	cache  cache.Cache
	rules  map[limitClass]limitRule
	logger *slog.Logger
}

func newRateLimiter(c cache.Cache, rules map[limitClass]limitRule, logger *slog.Logger) *rateLimiter {
	return &rateLimiter{
		cache:  c,
		rules:  rules,
		logger: logger.With("component", "ratelimit"),
	}
}

// allow checks and counts one attempt. When the limit is hit it returns
// false with the seconds the client should wait; the counter window is
// established by the first increment.
func (rl *rateLimiter) allow(ctx context.Context, class limitClass, clientID string) (retryAfter time.Duration, ok bool) {
	rule, known := rl.rules[class]
	if !known {
		return 0, true
	}
	key := fmt.Sprintf("ratelimit:%s:%s", class, clientID)

	val, exists, err := rl.cache.Get(ctx, key)
	if err != nil {
		rl.logger.Warn("rate limit check failed open", "class", string(class), "err", err)
		return 0, true
	}
	if exists {
		count, _ := strconv.ParseInt(val, 10, 64)
		if count >= rule.MaxAttempts {
			remaining, err := rl.cache.TTL(ctx, key)
			if err != nil || remaining <= 0 {
				remaining = rule.Window
			}
			return remaining, false
		}
	}

	n, err := rl.cache.Increment(ctx, key)
	if err != nil {
		rl.logger.Warn("rate limit increment failed open", "class", string(class), "err", err)
		return 0, true
	}
	if n == 1 {
		if err := rl.cache.Expire(ctx, key, rule.Window); err != nil {
			rl.logger.Warn("rate limit expire failed", "class", string(class), "err", err)
		}
	}
	return 0, true
}

// writeRateLimited sends a 429 with a Retry-After hint.
func writeRateLimited(w http.ResponseWriter, retryAfter time.Duration) {
	w.Header().Set("Retry-After", retryAfterString(retryAfter))
	writeError(w, http.StatusTooManyRequests, "too many requests; try again later")
}

func retryAfterString(d time.Duration) string {
	secs := int(d.Seconds())
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

// extractClientIP returns the client IP used as the rate-limit identity,
// honoring proxy headers only for the API's configured trusted proxies.
func (a *API) extractClientIP(r *http.Request) string {
	return extractClientIPWithProxies(r, a.trustedProxies)
}

// extractClientIPWithProxies returns the best-effort client IP address.
//
// Proxy headers (X-Forwarded-For, Forwarded, X-Real-IP) are honored only
// when trustedProxies is non-empty AND the request's direct peer falls
// within one of the trusted prefixes. With no trusted proxies configured
// (the default) the headers are never consulted and RemoteAddr is always
// returned; an untrusted client must not be able to reset its own
// rate-limit bucket by rotating a header value.
//
// Priority when the peer is trusted:
// 1. First valid entry in X-Forwarded-For
// 2. First valid "for=" value in Forwarded
// 3. X-Real-IP
// 4. RemoteAddr
func extractClientIPWithProxies(r *http.Request, trustedProxies []netip.Prefix) string {
	remoteIP, _ := parseIPCandidate(r.RemoteAddr)

	proxyTrusted := false
	if len(trustedProxies) > 0 && remoteIP != "" {
		if addr, err := netip.ParseAddr(remoteIP); err == nil {
			for _, prefix := range trustedProxies {
				if prefix.Contains(addr) {
					proxyTrusted = true
					break
				}
			}
		}
	}

	if proxyTrusted {
		if xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); xff != "" {
			for _, part := range strings.Split(xff, ",") {
				if ip, ok := parseIPCandidate(part); ok {
					return ip
				}
			}
		}

		if fwd := strings.TrimSpace(r.Header.Get("Forwarded")); fwd != "" {
			for _, elem := range strings.Split(fwd, ",") {
				for _, param := range strings.Split(elem, ";") {
					param = strings.TrimSpace(param)
					if !strings.HasPrefix(strings.ToLower(param), "for=") {
						continue
					}
					if ip, ok := parseIPCandidate(strings.TrimSpace(param[4:])); ok {
						return ip
					}
				}
			}
		}

		if xrip := strings.TrimSpace(r.Header.Get("X-Real-IP")); xrip != "" {
			if ip, ok := parseIPCandidate(xrip); ok {
				return ip
			}
		}
	}

	if remoteIP != "" {
		return remoteIP
	}
	return ""
}

// parseIPCandidate normalizes one address candidate: host:port forms,
// bracketed IPv6, RFC 7239 quoting, and zone suffixes are all stripped.
func parseIPCandidate(raw string) (string, bool) {
	s := strings.Trim(strings.TrimSpace(raw), "\"")
	if s == "" {
		return "", false
	}
	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	}
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if i := strings.IndexByte(s, '%'); i >= 0 {
		s = s[:i]
	}
	if addr, err := netip.ParseAddr(s); err == nil {
		return addr.String(), true
	}
	return "", false
}

// rateLimitMiddleware applies the class policy before the handler runs.
func (a *API) rateLimitMiddleware(class limitClass) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			retryAfter, ok := a.limiter.allow(r.Context(), class, a.extractClientIP(r))
			if !ok {
				if class == classLogin {
					a.audit.logFailure(AuditLoginRateLimited, r, "rate limit exceeded")
				}
				writeRateLimited(w, retryAfter)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
