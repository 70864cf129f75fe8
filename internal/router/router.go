package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tastemash/compatibility-service/internal/handler"
	"github.com/tastemash/compatibility-service/internal/metrics"
)

func Setup(h *handler.Handler) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// Routes
	r.Group(func(r chi.Router) {
		r.Use(handler.RequireIdentity)

		r.Route("/users/{userID}", func(r chi.Router) {
			r.Get("/signature", h.GetSignature)
			r.Get("/insights", h.GetInsights)
			r.Get("/mash/{otherID}", h.GetMashScore)
			r.Get("/twins", h.GetTasteTwins)
			r.Get("/blind-match", h.GetBlindMatch)
			r.Get("/roulette", h.GetRoulette)
			r.Get("/recommendations", h.GetRecommendations)
			r.Post("/library", h.AddLibraryEntry)
		})
		r.Post("/groups/consensus", h.GroupConsensus)
	})

	r.Get("/health", healthCheck)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
