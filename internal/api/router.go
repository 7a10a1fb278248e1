package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-viewer/internal/auth"
)

// apiBase is the mount point of the versioned API.
const apiBase = "/api/v1"

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
		r.Handle("/metrics", s.metrics.Handler())
	}

	// Inventory and viewport page, embedded via go:embed
	r.Handle("/viewer/*", http.StripPrefix("/viewer", s.panel))
	r.Handle("/viewer", http.RedirectHandler("/viewer/", http.StatusMovedPermanently))

	r.Route(apiBase, func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)
			r.Get("/defaults", s.handleDeviceDefaults)
			r.Post("/validate", s.handleValidateDevice)
			r.With(s.authMiddleware, requirePermission(auth.PermDeviceWrite)).
				Post("/", s.handleCreateDevice)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetDevice)

				r.Group(func(r chi.Router) {
					r.Use(s.authMiddleware)
					r.Use(requirePermission(auth.PermDeviceWrite))
					r.Patch("/", s.handleUpdateDevice)
					r.Delete("/", s.handleDeleteDevice)
				})
			})
		})

		r.Route("/viewer", func(r chi.Router) {
			r.Get("/", s.handleViewerState)
			r.Post("/select", s.handleViewerSelect)
			r.Post("/resize", s.handleViewerResize)
		})

		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
