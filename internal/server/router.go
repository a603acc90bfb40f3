package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/vanshika/debtledger/backend/internal/auth"
)

// RouterDependencies collects handler dependencies.
type RouterDependencies struct {
	Health           HealthService
	API              *APIHandlers
	Issuer           *auth.Issuer
	AllowedOrigins   []string
	AllowCredentials bool
}

// NewRouter wires the HTTP routes exposed by the backend API.
func NewRouter(logger *slog.Logger, deps RouterDependencies) http.Handler {
	r := mux.NewRouter()
	r.Use(recoverer(logger))

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		payload := map[string]any{
			"status": "ok",
		}

		if deps.Health != nil {
			if err := deps.Health.Probe(ctx); err != nil {
				logger.Error("health probe failed", "error", err)
				status = http.StatusServiceUnavailable
				payload["status"] = "degraded"
				payload["error"] = err.Error()
			}
		}

		respondJSON(w, status, payload)
	}).Methods(http.MethodGet)

	if deps.API != nil {
		h := deps.API
		r.HandleFunc("/users", h.registerUser).Methods(http.MethodPost)

		pr := r.PathPrefix("/").Subrouter()
		pr.Use(auth.Middleware(deps.Issuer))

		pr.HandleFunc("/users/lookup/{code}", h.lookupUser).Methods(http.MethodGet)

		pr.HandleFunc("/debts", h.listDebts).Methods(http.MethodGet)
		pr.HandleFunc("/debts", h.createDebt).Methods(http.MethodPost)
		pr.HandleFunc("/debts/{id}", h.getDebt).Methods(http.MethodGet)
		pr.HandleFunc("/debts/{id}", h.deleteDebt).Methods(http.MethodDelete)
		pr.HandleFunc("/debts/{id}/confirm", h.confirmDebt).Methods(http.MethodPost)
		pr.HandleFunc("/debts/{id}/reject", h.rejectDebt).Methods(http.MethodPost)

		pr.HandleFunc("/debts/{id}/upgrade", h.nominateUpgrade).Methods(http.MethodPost)
		pr.HandleFunc("/debts/{id}/upgrade/accept", h.acceptUpgrade).Methods(http.MethodPost)
		pr.HandleFunc("/debts/{id}/upgrade/decline", h.declineUpgrade).Methods(http.MethodPost)

		pr.HandleFunc("/debts/{id}/payments", h.submitPayment).Methods(http.MethodPost)
		pr.HandleFunc("/payments/{id}/approve", h.approvePayment).Methods(http.MethodPost)
		pr.HandleFunc("/payments/{id}/reject", h.rejectPayment).Methods(http.MethodPost)

		pr.HandleFunc("/debts/{id}/witnesses", h.inviteWitness).Methods(http.MethodPost)
		pr.HandleFunc("/debts/{id}/witnesses/confirm", h.confirmWitness).Methods(http.MethodPost)
		pr.HandleFunc("/debts/{id}/witnesses/decline", h.declineWitness).Methods(http.MethodPost)

		pr.HandleFunc("/notifications", h.listNotifications).Methods(http.MethodGet)
		pr.HandleFunc("/notifications/{id}/read", h.markNotificationRead).Methods(http.MethodPost)

		pr.HandleFunc("/me/exposure", h.getExposure).Methods(http.MethodGet)
	}

	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})

	handler := http.Handler(loggingMiddleware(logger, r))
	if len(deps.AllowedOrigins) > 0 {
		handler = corsMiddleware(deps.AllowedOrigins, deps.AllowCredentials)(handler)
	}
	return handler
}

func loggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func recoverer(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic serving request", "panic", rec, "path", r.URL.Path, "stack", string(debug.Stack()))
					writeError(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func corsMiddleware(allowedOrigins []string, allowCredentials bool) func(http.Handler) http.Handler {
	normalized := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		normalized[origin] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" || (!containsOrigin(normalized, origin) && !containsOrigin(normalized, "*")) {
				if r.Method == http.MethodOptions {
					// Pre-flight from an origin outside the list.
					w.WriteHeader(http.StatusForbidden)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
			if allowCredentials {
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func containsOrigin(set map[string]struct{}, origin string) bool {
	_, ok := set[origin]
	return ok
}

// SplitOrigins parses SERVER_ALLOWED_ORIGINS.
func SplitOrigins(csv string) []string {
	var out []string
	for _, o := range strings.Split(csv, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
