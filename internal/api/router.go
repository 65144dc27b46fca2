package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/smartfetcher/smartfetcher/internal/api/handlers"
	"github.com/smartfetcher/smartfetcher/internal/api/middleware"
)

// NewRouter creates the HTTP router with all API routes. mcp, when non-nil,
// is mounted at /mcp.
func NewRouter(h *handlers.Handlers, mcp http.Handler) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.Telemetry)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id", "Mcp-Session-Id", "Mcp-Protocol-Version"},
		ExposedHeaders: []string{"X-Request-Id", "X-Trace-Id", "Mcp-Session-Id"},
		MaxAge:         300,
	}))

	// Health & info
	r.Get("/health", h.HealthCheck)
	r.Get("/version", h.VersionInfo)

	// Tag search & resources
	r.Get("/search", h.SearchByTag)
	r.Route("/resources", func(r chi.Router) {
		r.Get("/", h.ListResources)
		r.Get("/{id}", h.GetResource)
	})

	// Natural-language search
	r.Get("/nl/search", h.NLSearch)

	// Retrieval agent
	r.Post("/experimental/agent", h.RunAgent)

	// MCP streamable HTTP endpoint
	if mcp != nil {
		r.Handle("/mcp", mcp)
	}

	return r
}
