package rest

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tallercloud/turnero/internal/domain"
	"github.com/tallercloud/turnero/internal/security"
)

type AuthOptions struct {
	// ExpectedIssuer, if set, enforces an exact issuer match.
	ExpectedIssuer string
}

func AuthMiddleware(verifier security.AccessTokenVerifier, opt AuthOptions) func(next http.Handler) http.Handler {
	if verifier == nil {
		panic("AuthMiddleware: nil verifier")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := strings.TrimSpace(r.Header.Get("Authorization"))
			if h == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			parts := strings.SplitN(h, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			raw := strings.TrimSpace(parts[1])
			if raw == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := verifier.VerifyAccessToken(raw)
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if opt.ExpectedIssuer != "" && claims.Issuer != opt.ExpectedIssuer {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			uid, err := uuid.Parse(claims.UserID)
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := withAuth(r.Context(), AuthContext{UserID: uid, Role: strings.TrimSpace(claims.Role)})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RateLimiter is satisfied by the redis-backed fixed-window cache.
type RateLimiter interface {
	AllowRequest(ctx context.Context, ip string, limit int, window time.Duration) (bool, error)
}

func RateLimitMiddleware(rl RateLimiter, limit int, window time.Duration) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rl == nil {
				next.ServeHTTP(w, r)
				return
			}
			ip := clientIP(r)
			allowed, _ := rl.AllowRequest(r.Context(), ip, limit, window)
			if !allowed {
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IdempotencyKeyMiddleware lifts an optional X-Idempotency-Key header into
// the request context so Create/Finalize/Cancel can fence against
// retransmission. A request without the header is unaffected.
func IdempotencyKeyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if key := strings.TrimSpace(r.Header.Get("X-Idempotency-Key")); key != "" {
			r = r.WithContext(domain.WithIdempotencyKey(r.Context(), key))
		}
		next.ServeHTTP(w, r)
	})
}

func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		observeRequest(r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'; base-uri 'none'; form-action 'none'")
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Cross-Origin-Resource-Policy", "same-site")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=(), usb=(), bluetooth=()")
		next.ServeHTTP(w, r)
	})
}
