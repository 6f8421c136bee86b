// Package music defines the flat JSON shapes handed to the frontend. Upstream
// providers map their own result types onto these so handlers never leak SDK
// structures into responses.
package music

import "encoding/json"

// User is the profile snapshot kept in the session after login.
type User struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	ID        string `json:"id"`
	Moderator bool   `json:"moderator"`
}

// ArtistRef is the minimal artist reference embedded in tracks and albums.
type ArtistRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Track is a playable track.
type Track struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Artists    []ArtistRef `json:"artists"`
	Album      string      `json:"album,omitempty"`
	ImageURL   string      `json:"imageUrl,omitempty"`
	URL        string      `json:"url,omitempty"`
	URI        string      `json:"uri,omitempty"`
	PreviewURL string      `json:"preview_url,omitempty"`
	DurationMs int         `json:"duration_ms"`
}

// SavedTrack is a track from the user's library together with the time it was
// added.
type SavedTrack struct {
	Track
	AddedAt string `json:"added_at"`
}

// Artist is a full artist entry as returned by search.
type Artist struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	ImageURL   string   `json:"imageUrl,omitempty"`
	URL        string   `json:"url,omitempty"`
	Genres     []string `json:"genres"`
	Popularity int      `json:"popularity"`
}

// Album is an album entry as returned by search and new releases.
type Album struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Artists     []ArtistRef `json:"artists"`
	ImageURL    string      `json:"imageUrl,omitempty"`
	URL         string      `json:"url,omitempty"`
	ReleaseDate string      `json:"release_date,omitempty"`
	AlbumType   string      `json:"album_type,omitempty"`
}

// Playlist mirrors the playlist card rendered by the library view.
type Playlist struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	URL        string `json:"url"`
	ImageURL   string `json:"imageUrl"`
	TrackCount int    `json:"track_count"`
}

// Category is a browse category.
type Category struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// Page wraps a paginated upstream listing.
type Page[T any] struct {
	Items    []T    `json:"items"`
	Total    int    `json:"total"`
	Limit    int    `json:"limit"`
	Offset   int    `json:"offset"`
	Next     string `json:"next,omitempty"`
	Previous string `json:"previous,omitempty"`
}

// SearchResult groups the result kinds a search may return. A nil slice
// marks a kind that was not requested and is left out of the JSON; a
// requested kind without matches encodes as an empty array.
type SearchResult struct {
	Tracks  []Track  `json:"tracks"`
	Artists []Artist `json:"artists"`
	Albums  []Album  `json:"albums"`
}

// MarshalJSON omits the kinds that are nil.
func (r SearchResult) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, 3)
	if r.Tracks != nil {
		out["tracks"] = r.Tracks
	}
	if r.Artists != nil {
		out["artists"] = r.Artists
	}
	if r.Albums != nil {
		out["albums"] = r.Albums
	}
	return json.Marshal(out)
}

// TrackIDs returns the identifiers of tracks in order.
func TrackIDs(tracks []Track) []string {
	ids := make([]string, len(tracks))
	for i, t := range tracks {
		ids[i] = t.ID
	}
	return ids
}
