package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Routes builds the router serving every endpoint of the application.
func (app *Application) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	// Forwarded headers are client controlled unless a proxy sets them.
	if app.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(Metrics)
	r.Use(SecurityHeaders)
	r.Use(CORS(app.AllowedOrigins))

	r.Get("/health", Health)
	r.Get("/health/ready", app.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/spotify/authorize", app.Authorize)
	r.Get("/logout", app.Logout)
	r.Group(func(r chi.Router) {
		if app.Limiter != nil {
			r.Use(RateLimit(app.Limiter))
		}
		r.Get("/callback", app.Callback)
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/me", app.Me)
		r.Group(func(r chi.Router) {
			if app.Limiter != nil {
				r.Use(RateLimit(app.Limiter))
			}
			r.Post("/spotify/token", app.Token)
		})

		r.Get("/playlists", app.protected(app.Playlists))
		r.Get("/spotify/search", app.protected(app.Search))
		r.Get("/new-releases", app.protected(app.NewReleases))
		r.Get("/browse-categories", app.protected(app.BrowseCategories))
		r.Get("/user-tracks", app.protected(app.UserTracks))
		r.Get("/top-tracks", app.protected(app.TopTracks))
		r.Get("/artists/top-tracks", app.protected(app.ArtistTopTracks))
		r.Put("/save/{track_id}", app.protected(app.SaveTrack))
		r.Put("/feedback/{track_id}", app.protected(app.PutFeedback))
		r.Get("/feedback", app.protected(app.ListFeedback))
		r.Get("/recommendations", app.protected(app.Recommendations))
	})
	return r
}
