// Package handlers contains the HTTP handlers for Tune-Rater-Go. Every
// Spotify backed route goes through protected, which resolves the session
// once, validates or refreshes its token and hands the handler a Spotify
// client built for that request only.
package handlers

import (
	"context"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"Tune-Rater-Go/pkg/auth"
	"Tune-Rater-Go/pkg/db"
	"Tune-Rater-Go/pkg/metrics"
	"Tune-Rater-Go/pkg/recommend"
	"Tune-Rater-Go/pkg/session"
	"Tune-Rater-Go/pkg/spotify"
)

// FeedbackStore is the part of the database used by the handlers.
type FeedbackStore interface {
	RecordFeedback(ctx context.Context, f db.Feedback) error
	ListFeedback(ctx context.Context, userID string) ([]db.Feedback, error)
	TrackIDsByRating(ctx context.Context, userID string, r db.Rating, limit int) ([]string, error)
	Ping(ctx context.Context) error
}

// Application holds the dependencies shared by all handlers.
type Application struct {
	Sessions    *session.Manager
	Validator   *auth.Validator
	OAuth       *oauth2.Config
	NewAPI      spotify.Factory
	DB          FeedbackStore
	Recommender *recommend.Engine
	// FrontendURL is where login and logout redirect to.
	FrontendURL string
	// AllowedOrigins lists the origins allowed to make credentialed requests.
	AllowedOrigins []string
	// Limiter throttles the token exchange per client IP. Nil disables it.
	Limiter Limiter
	// TrustProxy takes the client IP from X-Forwarded-For or X-Real-IP. Only
	// set it when a reverse proxy overwrites those headers.
	TrustProxy bool
}

// Messages returned to the client. Upstream error details are only logged.
const (
	msgReauth       = "Spotify authorization error. Please log in again."
	msgExchange     = "An error occurred during Spotify token exchange."
	msgNoCode       = "No code provided"
	msgInvalidInput = "Invalid rating. Must be 'like' or 'dislike'."
)

// protectedFunc is a handler that runs with a validated session and a Spotify
// client for the session's token.
type protectedFunc func(w http.ResponseWriter, r *http.Request, s *session.Session, api spotify.API)

// protected resolves the session, ensures its token is usable and calls h.
// Authentication failures clear the session and answer 401 without any
// upstream call.
func (app *Application) protected(h protectedFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := app.Sessions.Load(r)
		if err != nil {
			log.WithError(err).Error("load session")
			respondJSONError(w, http.StatusInternalServerError, "session store unavailable")
			return
		}
		tok, err := app.Validator.Ensure(r.Context(), s)
		if err != nil {
			if auth.IsAuthError(err) {
				app.Sessions.ExpireCookie(w)
				respondJSONError(w, http.StatusUnauthorized, err.Error())
				return
			}
			log.WithError(err).Error("validate token")
			respondJSONError(w, http.StatusInternalServerError, "failed to validate session")
			return
		}
		h(w, r, s, app.NewAPI(r.Context(), tok.OAuth2()))
	}
}

// upstreamError answers a failed Spotify call. A 401 from the provider is
// treated like a local token failure and clears the session; anything else is
// logged and reported as status with msg.
func (app *Application) upstreamError(w http.ResponseWriter, r *http.Request, s *session.Session, err error, status int, msg string) {
	switch {
	case spotify.IsUnauthorized(err):
		metrics.SessionsClearedTotal.WithLabelValues("upstream_unauthorized").Inc()
		if derr := app.Sessions.Destroy(r.Context(), w, s); derr != nil {
			log.WithError(derr).Warn("failed to delete session")
		}
		respondJSONError(w, http.StatusUnauthorized, msgReauth)
	case errors.Is(err, context.Canceled):
		// The client went away; nobody reads the response.
		log.WithField("path", r.URL.Path).Debug("request cancelled")
	default:
		log.WithError(err).WithField("path", r.URL.Path).Error(msg)
		respondJSONError(w, status, msg)
	}
}
