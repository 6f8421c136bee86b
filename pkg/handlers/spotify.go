// This file contains the read and write endpoints proxied to the Spotify Web
// API on behalf of the logged in user.

package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"Tune-Rater-Go/pkg/music"
	"Tune-Rater-Go/pkg/session"
	"Tune-Rater-Go/pkg/spotify"
)

// maxArtists bounds the ids accepted by ArtistTopTracks.
const maxArtists = 10

// Playlists returns the user's playlists as a flat list.
func (app *Application) Playlists(w http.ResponseWriter, r *http.Request, s *session.Session, api spotify.API) {
	page, err := api.Playlists(r.Context(), music.MaxLimit, music.ClampOffset(r.URL.Query().Get("offset")))
	if err != nil {
		app.upstreamError(w, r, s, err, http.StatusBadGateway, "Failed to fetch playlists")
		return
	}
	respondJSON(w, http.StatusOK, page.Items)
}

// Search queries the catalog. q is required; type is a comma separated list of
// track, artist and album.
func (app *Application) Search(w http.ResponseWriter, r *http.Request, s *session.Session, api spotify.API) {
	q := r.URL.Query()
	query := strings.TrimSpace(q.Get("q"))
	if query == "" {
		respondJSONError(w, http.StatusBadRequest, "Missing search query")
		return
	}
	kinds, err := spotify.ParseSearchKinds(q.Get("type"))
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Invalid search type")
		return
	}
	res, err := api.Search(r.Context(), query, kinds, music.ClampLimit(q.Get("limit")), music.ClampOffset(q.Get("offset")))
	if err != nil {
		if errors.Is(err, spotify.ErrUnknownSearchType) {
			respondJSONError(w, http.StatusBadRequest, "Invalid search type")
			return
		}
		app.upstreamError(w, r, s, err, http.StatusBadGateway, "Failed to fetch search results")
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// NewReleases returns a page of newly released albums.
func (app *Application) NewReleases(w http.ResponseWriter, r *http.Request, s *session.Session, api spotify.API) {
	q := r.URL.Query()
	page, err := api.NewReleases(r.Context(), music.ClampLimit(q.Get("limit")), music.ClampOffset(q.Get("offset")))
	if err != nil {
		app.upstreamError(w, r, s, err, http.StatusBadGateway, "Failed to fetch new releases")
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// BrowseCategories returns a page of browse categories, localized when the
// locale parameter is given.
func (app *Application) BrowseCategories(w http.ResponseWriter, r *http.Request, s *session.Session, api spotify.API) {
	q := r.URL.Query()
	page, err := api.Categories(r.Context(), music.ClampLimit(q.Get("limit")), music.ClampOffset(q.Get("offset")), q.Get("locale"))
	if err != nil {
		app.upstreamError(w, r, s, err, http.StatusBadGateway, "Failed to fetch browse categories")
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// UserTracks returns a page of the tracks saved in the user's library.
func (app *Application) UserTracks(w http.ResponseWriter, r *http.Request, s *session.Session, api spotify.API) {
	q := r.URL.Query()
	page, err := api.SavedTracks(r.Context(), music.ClampLimit(q.Get("limit")), music.ClampOffset(q.Get("offset")))
	if err != nil {
		app.upstreamError(w, r, s, err, http.StatusBadGateway, "Failed to fetch user tracks")
		return
	}
	respondJSON(w, http.StatusOK, page)
}

var timeRanges = map[string]bool{"short_term": true, "medium_term": true, "long_term": true}

// TopTracks returns a page of the user's most played tracks.
func (app *Application) TopTracks(w http.ResponseWriter, r *http.Request, s *session.Session, api spotify.API) {
	q := r.URL.Query()
	tr := q.Get("time_range")
	if tr == "" {
		tr = "medium_term"
	}
	if !timeRanges[tr] {
		respondJSONError(w, http.StatusBadRequest, "Invalid time_range")
		return
	}
	page, err := api.TopTracks(r.Context(), tr, music.ClampLimit(q.Get("limit")), music.ClampOffset(q.Get("offset")))
	if err != nil {
		app.upstreamError(w, r, s, err, http.StatusBadGateway, "Failed to fetch top tracks")
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// ArtistTopTracks merges the top tracks of several artists. A track appearing
// for more than one artist is listed once, at its first position.
func (app *Application) ArtistTopTracks(w http.ResponseWriter, r *http.Request, s *session.Session, api spotify.API) {
	q := r.URL.Query()
	var ids []string
	for _, id := range strings.Split(q.Get("ids"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 || len(ids) > maxArtists {
		respondJSONError(w, http.StatusBadRequest, "Provide between 1 and 10 artist ids")
		return
	}
	market := q.Get("market")
	if market == "" {
		market = "US"
	}
	lists := make([][]music.Track, 0, len(ids))
	for _, id := range ids {
		tracks, err := api.ArtistTopTracks(r.Context(), id, market)
		if err != nil {
			app.upstreamError(w, r, s, err, http.StatusBadGateway, "Failed to fetch artist top tracks")
			return
		}
		lists = append(lists, tracks)
	}
	respondJSON(w, http.StatusOK, music.Merge(lists...))
}

// SaveTrack adds a track to the user's library. Saving twice leaves the
// library unchanged.
func (app *Application) SaveTrack(w http.ResponseWriter, r *http.Request, s *session.Session, api spotify.API) {
	id := chi.URLParam(r, "track_id")
	if id == "" {
		respondJSONError(w, http.StatusBadRequest, "Missing track id")
		return
	}
	if err := api.SaveTrack(r.Context(), id); err != nil {
		app.upstreamError(w, r, s, err, http.StatusInternalServerError, "Failed to save track")
		return
	}
	respondSuccess(w, "Track saved to your library")
}
