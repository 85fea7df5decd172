package auth

import (
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"threaddb/pkg/logger"
	"threaddb/pkg/utils"
)

// SecConfig drives the request gateway: CORS, IP whitelisting, API keys and
// per-caller rate limiting.
type SecConfig struct {
	AllowedOrigins []string
	RPS            float64
	Burst          int
	IPWhitelist    []string
	Keys           map[string]struct{}
	// AllowUnauth admits requests without a key; meant for local development
	// and tests, never production.
	AllowUnauth bool
}

// Middleware authenticates every request before it reaches the API: CORS
// preflight, optional IP whitelist, API-key check and token-bucket rate
// limiting keyed by API key (or remote IP when unauthenticated access is
// allowed). Health and metrics probes bypass the key check.
func Middleware(cfg SecConfig) func(http.Handler) http.Handler {
	limiters := &limiterPool{cfg: cfg}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.LogRequest(r)

			origin := r.Header.Get("Origin")
			if origin != "" && originAllowed(origin, cfg.AllowedOrigins) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
				w.Header().Set("Access-Control-Max-Age", "600")
				w.Header().Set("Access-Control-Allow-Headers", "Authorization,Content-Type,X-API-Key")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			if len(cfg.IPWhitelist) > 0 {
				ip := clientIP(r)
				if !ipWhitelisted(ip, cfg.IPWhitelist) {
					utils.JSONError(w, http.StatusForbidden, "forbidden")
					logger.Log.Warn("request_blocked",
						zap.String("reason", "ip_not_whitelisted"),
						zap.String("ip", ip),
						zap.String("path", r.URL.Path))
					return
				}
			}

			// probes stay reachable without credentials
			if (r.URL.Path == "/healthz" || r.URL.Path == "/readyz") && r.Method == http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}

			key, authed := apiKey(r, cfg)
			if !authed && !cfg.AllowUnauth {
				utils.JSONError(w, http.StatusUnauthorized, "unauthorized")
				logger.Log.Warn("request_unauthorized",
					zap.String("path", r.URL.Path),
					zap.String("remote", r.RemoteAddr))
				return
			}

			limitKey := key
			if limitKey == "" {
				limitKey = clientIP(r)
			}
			if !limiters.Allow(limitKey) {
				utils.JSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
				logger.Log.Warn("rate_limited",
					zap.Bool("has_api_key", authed),
					zap.String("path", r.URL.Path))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// apiKey extracts and checks the caller's credential: X-API-Key first, then
// an Authorization bearer token.
func apiKey(r *http.Request, cfg SecConfig) (string, bool) {
	k := strings.TrimSpace(r.Header.Get("X-API-Key"))
	if k == "" {
		if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
			k = strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
		}
	}
	if k == "" {
		return "", false
	}
	if _, ok := cfg.Keys[k]; ok {
		return k, true
	}
	return "", false
}

func originAllowed(origin string, allowed []string) bool {
	for _, a := range allowed {
		if a == "*" || strings.EqualFold(a, origin) {
			return true
		}
	}
	return false
}

func ipWhitelisted(ip string, whitelist []string) bool {
	for _, w := range whitelist {
		if w == ip {
			return true
		}
		if _, cidr, err := net.ParseCIDR(w); err == nil {
			if p := net.ParseIP(ip); p != nil && cidr.Contains(p) {
				return true
			}
		}
	}
	return false
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
