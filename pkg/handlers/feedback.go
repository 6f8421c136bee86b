// This file holds the endpoints backed by the feedback database: recording a
// like or dislike, listing stored ratings and the recommendations biased by
// them.

package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"Tune-Rater-Go/pkg/db"
	"Tune-Rater-Go/pkg/session"
	"Tune-Rater-Go/pkg/spotify"
)

// userID returns the Spotify user of the session. Sessions created by an older
// login flow may lack the profile; it is fetched and stored once.
func (app *Application) userID(w http.ResponseWriter, r *http.Request, s *session.Session, api spotify.API) (string, bool) {
	if s.User != nil && s.User.ID != "" {
		return s.User.ID, true
	}
	u, err := api.CurrentUser(r.Context())
	if err != nil {
		app.upstreamError(w, r, s, err, http.StatusBadGateway, "Failed to fetch user profile")
		return "", false
	}
	s.User = &u
	if err := app.Sessions.Store.Save(r.Context(), s); err != nil {
		log.WithError(err).Warn("failed to persist user profile")
	}
	return u.ID, true
}

// PutFeedback records a like or dislike for a track. Submitting the same
// rating again leaves a single record; a new rating replaces the old one.
func (app *Application) PutFeedback(w http.ResponseWriter, r *http.Request, s *session.Session, api spotify.API) {
	var req struct {
		Rating     string `json:"rating"`
		TrackName  string `json:"track_name"`
		ArtistID   string `json:"artist_id"`
		ArtistName string `json:"artist_name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondJSONError(w, http.StatusBadRequest, msgInvalidInput)
		return
	}
	rating, err := db.ParseRating(req.Rating)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, msgInvalidInput)
		return
	}
	trackID := chi.URLParam(r, "track_id")
	if trackID == "" {
		respondJSONError(w, http.StatusBadRequest, "Missing track id")
		return
	}
	uid, ok := app.userID(w, r, s, api)
	if !ok {
		return
	}
	err = app.DB.RecordFeedback(r.Context(), db.Feedback{
		UserID:     uid,
		TrackID:    trackID,
		Rating:     rating,
		TrackName:  req.TrackName,
		ArtistID:   req.ArtistID,
		ArtistName: req.ArtistName,
	})
	switch {
	case errors.Is(err, db.ErrInvalidRating), errors.Is(err, db.ErrInvalidFeedback):
		respondJSONError(w, http.StatusBadRequest, msgInvalidInput)
		return
	case err != nil:
		log.WithError(err).WithField("track", trackID).Error("record feedback")
		respondJSONError(w, http.StatusInternalServerError, "Failed to save feedback")
		return
	}
	respondSuccess(w, "Feedback recorded")
}

// ListFeedback returns every rating the user has stored.
func (app *Application) ListFeedback(w http.ResponseWriter, r *http.Request, s *session.Session, api spotify.API) {
	uid, ok := app.userID(w, r, s, api)
	if !ok {
		return
	}
	fs, err := app.DB.ListFeedback(r.Context(), uid)
	if err != nil {
		log.WithError(err).Error("list feedback")
		respondJSONError(w, http.StatusInternalServerError, "Failed to fetch feedback")
		return
	}
	respondJSON(w, http.StatusOK, fs)
}

// Recommendations returns tracks seeded from the user's likes, their top
// tracks or a default seed, with disliked tracks removed.
func (app *Application) Recommendations(w http.ResponseWriter, r *http.Request, s *session.Session, api spotify.API) {
	uid, ok := app.userID(w, r, s, api)
	if !ok {
		return
	}
	res, err := app.Recommender.Recommend(r.Context(), uid, api)
	if err != nil {
		app.upstreamError(w, r, s, err, http.StatusBadGateway, "Failed to fetch recommendations")
		return
	}
	respondJSON(w, http.StatusOK, res)
}
