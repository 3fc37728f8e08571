package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"newstrader/pkg/newstrader"
)

// NewRouter builds the HTTP API router.
func NewRouter(core *newstrader.Core, resolver *newstrader.Resolver, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLoggingMiddleware(logger))
	r.Use(recoveryLoggingMiddleware(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	h := &handler{core: core, resolver: resolver}

	r.Get("/api/health", h.health)

	// Recommendations
	r.Get("/api/recommendations", h.getLatestRecommendations)
	r.Get("/api/recommendations/{asset}/history", h.getRecommendationHistory)
	r.Post("/api/resolve", h.resolve)

	// Debug captures
	r.Get("/api/debug-sessions/latest", h.getLatestDebugSession)

	return r
}

type handler struct {
	core     *newstrader.Core
	resolver *newstrader.Resolver
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
