// Package api assembles the HTTP surface: router, middleware, handlers, and
// the shared response format.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/usmanhx/labinsight/internal/api/middleware"
	"github.com/usmanhx/labinsight/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	SubmitLimit *mw.SubmitLimit

	HealthHandler          http.HandlerFunc
	AnalyzeHandler         http.HandlerFunc
	StatusHandler          http.HandlerFunc
	DownloadHandler        http.HandlerFunc
	ChatSuggestionsHandler http.HandlerFunc
	ChatHandler            http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	r.Get("/v1/health", orNotImplemented(deps.HealthHandler))

	// Submission is the only rate-limited route; polling stays cheap so
	// clients can poll freely.
	r.Group(func(r chi.Router) {
		if deps.SubmitLimit != nil {
			r.Use(deps.SubmitLimit.Limit)
		}
		r.Post("/v1/analyze-report", orNotImplemented(deps.AnalyzeHandler))
	})

	r.Get("/v1/status/{jobID}", orNotImplemented(deps.StatusHandler))
	r.Get("/v1/download/{jobID}", orNotImplemented(deps.DownloadHandler))

	r.Get("/v1/chat/{jobID}/suggestions", orNotImplemented(deps.ChatSuggestionsHandler))
	r.Post("/v1/chat/{jobID}", orNotImplemented(deps.ChatHandler))

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "Endpoint not yet implemented.")
	}
}
