package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tallercloud/turnero/internal/security"
)

// Pinger is satisfied by the redis cache, used for the /readyz probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

type RouterDeps struct {
	RateLimiter RateLimiter
	Pinger      Pinger
	Handler     *Handler
	Verifier    security.AccessTokenVerifier
	JWTIssuer   string
	RLLimit     int
	RLWindow    time.Duration
}

func NewRouter(d RouterDeps) http.Handler {
	if d.Handler == nil {
		panic("rest.NewRouter: nil handler")
	}
	if d.Verifier == nil {
		panic("rest.NewRouter: nil verifier")
	}

	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(MetricsMiddleware)
	r.Use(HTTPLogger)
	r.Use(middleware.Recoverer)
	r.Use(RateLimitMiddleware(d.RateLimiter, d.RLLimit, d.RLWindow))
	r.Use(SecurityHeaders)
	r.Use(IdempotencyKeyMiddleware)

	r.Get("/healthz", healthzHandler)
	r.Get("/readyz", readyzHandler(d.Pinger))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/workshops/{workshopID}", func(r chi.Router) {
		r.Post("/turns", d.Handler.CreateTurn)
		r.Get("/status", d.Handler.Status)
		r.Post("/turns/cancel-by-plate", d.Handler.CancelByPlate)

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(d.Verifier, AuthOptions{ExpectedIssuer: d.JWTIssuer}))
			r.Get("/turns", d.Handler.ListTurns)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(d.Verifier, AuthOptions{ExpectedIssuer: d.JWTIssuer}))
		r.Post("/turns/{turnID}/finalize", d.Handler.FinalizeTurn)
	})

	return r
}

func healthzHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func readyzHandler(pinger Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		checks := make(map[string]string)
		allHealthy := true

		if pinger != nil {
			if err := pinger.Ping(ctx); err != nil {
				checks["redis"] = "unhealthy: " + err.Error()
				allHealthy = false
			} else {
				checks["redis"] = "healthy"
			}
		} else {
			checks["redis"] = "not_configured"
		}

		checks["status"] = "ready"
		if !allHealthy {
			checks["status"] = "not_ready"
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(checks)
	}
}
