// Package spotify wraps the zmb3 Spotify client with the operations the
// handlers proxy on behalf of a logged in user. A Client is built per request
// from the session's token so no client state is shared between users, and
// the static token source means the client never refreshes behind the
// session's back.
//
// The wrapped library does not accept a context, so cancellation is checked
// explicitly before each call. Every result is reshaped into the flat types of
// the music package.
package spotify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/zmb3/spotify"
	"golang.org/x/oauth2"

	"Tune-Rater-Go/pkg/metrics"
	"Tune-Rater-Go/pkg/music"
)

// webAPI defines the subset of the spotify.Client used by this package.
// It allows the concrete client to be replaced in tests.
type webAPI interface {
	CurrentUser() (*spotify.PrivateUser, error)
	CurrentUsersPlaylistsOpt(opt *spotify.Options) (*spotify.SimplePlaylistPage, error)
	SearchOpt(query string, t spotify.SearchType, opt *spotify.Options) (*spotify.SearchResult, error)
	NewReleasesOpt(opt *spotify.Options) (*spotify.SimpleAlbumPage, error)
	GetCategoriesOpt(opt *spotify.Options, locale string) (*spotify.CategoryPage, error)
	CurrentUsersTracksOpt(opt *spotify.Options) (*spotify.SavedTrackPage, error)
	AddTracksToLibrary(ids ...spotify.ID) error
	CurrentUsersTopTracksOpt(opt *spotify.Options) (*spotify.FullTrackPage, error)
	GetRecommendations(seeds spotify.Seeds, attrs *spotify.TrackAttributes, opt *spotify.Options) (*spotify.Recommendations, error)
	GetArtistsTopTracks(artistID spotify.ID, country string) ([]spotify.FullTrack, error)
}

// API is what the HTTP layer needs from the provider.
type API interface {
	CurrentUser(ctx context.Context) (music.User, error)
	Playlists(ctx context.Context, limit, offset int) (music.Page[music.Playlist], error)
	Search(ctx context.Context, query string, kinds []string, limit, offset int) (music.SearchResult, error)
	NewReleases(ctx context.Context, limit, offset int) (music.Page[music.Album], error)
	Categories(ctx context.Context, limit, offset int, locale string) (music.Page[music.Category], error)
	SavedTracks(ctx context.Context, limit, offset int) (music.Page[music.SavedTrack], error)
	SaveTrack(ctx context.Context, trackID string) error
	TopTracks(ctx context.Context, timeRange string, limit, offset int) (music.Page[music.Track], error)
	Recommendations(ctx context.Context, seedTrackIDs []string, limit int) ([]music.Track, error)
	ArtistTopTracks(ctx context.Context, artistID, market string) ([]music.Track, error)
}

// Factory builds an API for one request from the session's token.
type Factory func(ctx context.Context, tok *oauth2.Token) API

// Client wraps the official Spotify client providing higher level helper
// methods.
type Client struct {
	client webAPI
}

// Compile-time interface check.
var _ API = (*Client)(nil)

// ErrUpstreamUnauthorized is returned when Spotify answers a call with 401,
// whatever the response body holds.
var ErrUpstreamUnauthorized = errors.New("spotify rejected the access token")

// unauthorizedTransport turns a 401 response into ErrUpstreamUnauthorized.
// The wrapped library reads the status from the JSON body, which Spotify does
// not always send.
type unauthorizedTransport struct {
	base http.RoundTripper
}

func (t unauthorizedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	resp.Body.Close()
	return nil, fmt.Errorf("%w: %s", ErrUpstreamUnauthorized, strings.TrimSpace(string(body)))
}

// NewClient returns a Client that authenticates every call with tok. An
// *http.Client stored in ctx under oauth2.HTTPClient supplies the base
// transport.
func NewClient(ctx context.Context, tok *oauth2.Token) API {
	base := http.DefaultTransport
	if hc, ok := ctx.Value(oauth2.HTTPClient).(*http.Client); ok && hc != nil && hc.Transport != nil {
		base = hc.Transport
	}
	httpClient := &http.Client{Transport: &oauth2.Transport{
		Source: oauth2.StaticTokenSource(tok),
		Base:   unauthorizedTransport{base: base},
	}}
	c := spotify.NewClient(httpClient)
	return &Client{client: &c}
}

// IsUnauthorized reports whether err is the provider rejecting the access
// token.
func IsUnauthorized(err error) bool {
	if errors.Is(err, ErrUpstreamUnauthorized) {
		return true
	}
	var se spotify.Error
	if errors.As(err, &se) {
		return se.Status == http.StatusUnauthorized
	}
	var pse *spotify.Error
	if errors.As(err, &pse) {
		return pse.Status == http.StatusUnauthorized
	}
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		return re.Response.StatusCode == http.StatusUnauthorized
	}
	return false
}

// observe records the outcome of an upstream call.
func observe(op string, err error) {
	outcome := metrics.OutcomeOK
	switch {
	case IsUnauthorized(err):
		outcome = metrics.OutcomeUnauthorized
	case err != nil:
		outcome = metrics.OutcomeError
	}
	metrics.SpotifyRequestsTotal.WithLabelValues(op, outcome).Inc()
}

func pageOpts(limit, offset int) *spotify.Options {
	return &spotify.Options{Limit: &limit, Offset: &offset}
}

// CurrentUser returns the profile snapshot stored at login.
func (sc *Client) CurrentUser(ctx context.Context) (music.User, error) {
	if err := ctx.Err(); err != nil {
		return music.User{}, err
	}
	u, err := sc.client.CurrentUser()
	observe("current_user", err)
	if err != nil {
		return music.User{}, err
	}
	return music.User{Name: u.DisplayName, Email: u.Email, ID: u.ID}, nil
}

// Playlists lists the user's playlists.
func (sc *Client) Playlists(ctx context.Context, limit, offset int) (music.Page[music.Playlist], error) {
	if err := ctx.Err(); err != nil {
		return music.Page[music.Playlist]{}, err
	}
	p, err := sc.client.CurrentUsersPlaylistsOpt(pageOpts(limit, offset))
	observe("playlists", err)
	if err != nil {
		return music.Page[music.Playlist]{}, err
	}
	items := make([]music.Playlist, len(p.Playlists))
	for i, pl := range p.Playlists {
		items[i] = shapePlaylist(pl)
	}
	return music.Page[music.Playlist]{Items: items, Total: p.Total, Limit: p.Limit, Offset: p.Offset, Next: p.Next, Previous: p.Previous}, nil
}

// ErrUnknownSearchType is returned for a search kind other than track,
// artist or album.
var ErrUnknownSearchType = errors.New("unknown search type")

// DefaultSearchKinds are searched when the client does not name any.
var DefaultSearchKinds = []string{"track", "artist", "album"}

// ParseSearchKinds parses a comma separated list of search kinds.
func ParseSearchKinds(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return DefaultSearchKinds, nil
	}
	var kinds []string
	seen := map[string]bool{}
	for _, k := range strings.Split(raw, ",") {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" || seen[k] {
			continue
		}
		if _, err := searchType(k); err != nil {
			return nil, err
		}
		seen[k] = true
		kinds = append(kinds, k)
	}
	if len(kinds) == 0 {
		return DefaultSearchKinds, nil
	}
	return kinds, nil
}

func searchType(kind string) (spotify.SearchType, error) {
	switch kind {
	case "track":
		return spotify.SearchTypeTrack, nil
	case "artist":
		return spotify.SearchTypeArtist, nil
	case "album":
		return spotify.SearchTypeAlbum, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSearchType, kind)
}

// Search queries the catalog for the requested kinds.
func (sc *Client) Search(ctx context.Context, query string, kinds []string, limit, offset int) (music.SearchResult, error) {
	var t spotify.SearchType
	for _, k := range kinds {
		st, err := searchType(k)
		if err != nil {
			return music.SearchResult{}, err
		}
		t |= st
	}
	if err := ctx.Err(); err != nil {
		return music.SearchResult{}, err
	}
	res, err := sc.client.SearchOpt(query, t, pageOpts(limit, offset))
	observe("search", err)
	if err != nil {
		return music.SearchResult{}, err
	}
	var out music.SearchResult
	for _, k := range kinds {
		switch k {
		case "track":
			out.Tracks = []music.Track{}
			if res.Tracks != nil {
				for _, tr := range res.Tracks.Tracks {
					out.Tracks = append(out.Tracks, shapeTrack(tr))
				}
			}
		case "artist":
			out.Artists = []music.Artist{}
			if res.Artists != nil {
				for _, a := range res.Artists.Artists {
					out.Artists = append(out.Artists, shapeArtist(a))
				}
			}
		case "album":
			out.Albums = []music.Album{}
			if res.Albums != nil {
				for _, a := range res.Albums.Albums {
					out.Albums = append(out.Albums, shapeAlbum(a))
				}
			}
		}
	}
	return out, nil
}

// NewReleases lists newly released albums.
func (sc *Client) NewReleases(ctx context.Context, limit, offset int) (music.Page[music.Album], error) {
	if err := ctx.Err(); err != nil {
		return music.Page[music.Album]{}, err
	}
	p, err := sc.client.NewReleasesOpt(pageOpts(limit, offset))
	observe("new_releases", err)
	if err != nil {
		return music.Page[music.Album]{}, err
	}
	items := make([]music.Album, len(p.Albums))
	for i, a := range p.Albums {
		items[i] = shapeAlbum(a)
	}
	return music.Page[music.Album]{Items: items, Total: p.Total, Limit: p.Limit, Offset: p.Offset, Next: p.Next, Previous: p.Previous}, nil
}

// Categories lists browse categories, optionally localized.
func (sc *Client) Categories(ctx context.Context, limit, offset int, locale string) (music.Page[music.Category], error) {
	if err := ctx.Err(); err != nil {
		return music.Page[music.Category]{}, err
	}
	p, err := sc.client.GetCategoriesOpt(pageOpts(limit, offset), locale)
	observe("categories", err)
	if err != nil {
		return music.Page[music.Category]{}, err
	}
	items := make([]music.Category, len(p.Categories))
	for i, c := range p.Categories {
		items[i] = music.Category{ID: c.ID, Name: c.Name, ImageURL: firstImage(c.Icons)}
	}
	return music.Page[music.Category]{Items: items, Total: p.Total, Limit: p.Limit, Offset: p.Offset, Next: p.Next, Previous: p.Previous}, nil
}

// SavedTracks lists the tracks in the user's library.
func (sc *Client) SavedTracks(ctx context.Context, limit, offset int) (music.Page[music.SavedTrack], error) {
	if err := ctx.Err(); err != nil {
		return music.Page[music.SavedTrack]{}, err
	}
	p, err := sc.client.CurrentUsersTracksOpt(pageOpts(limit, offset))
	observe("saved_tracks", err)
	if err != nil {
		return music.Page[music.SavedTrack]{}, err
	}
	items := make([]music.SavedTrack, len(p.Tracks))
	for i, st := range p.Tracks {
		items[i] = music.SavedTrack{Track: shapeTrack(st.FullTrack), AddedAt: st.AddedAt}
	}
	return music.Page[music.SavedTrack]{Items: items, Total: p.Total, Limit: p.Limit, Offset: p.Offset, Next: p.Next, Previous: p.Previous}, nil
}

// SaveTrack adds a track to the user's library. Saving an already saved track
// is a no-op upstream.
func (sc *Client) SaveTrack(ctx context.Context, trackID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := sc.client.AddTracksToLibrary(spotify.ID(trackID))
	observe("save_track", err)
	return err
}

// TopTracks lists the user's most played tracks for timeRange (short_term,
// medium_term or long_term).
func (sc *Client) TopTracks(ctx context.Context, timeRange string, limit, offset int) (music.Page[music.Track], error) {
	if err := ctx.Err(); err != nil {
		return music.Page[music.Track]{}, err
	}
	opt := pageOpts(limit, offset)
	if timeRange != "" {
		opt.Timerange = &timeRange
	}
	p, err := sc.client.CurrentUsersTopTracksOpt(opt)
	observe("top_tracks", err)
	if err != nil {
		return music.Page[music.Track]{}, err
	}
	items := make([]music.Track, len(p.Tracks))
	for i, t := range p.Tracks {
		items[i] = shapeTrack(t)
	}
	return music.Page[music.Track]{Items: items, Total: p.Total, Limit: p.Limit, Offset: p.Offset, Next: p.Next, Previous: p.Previous}, nil
}

// Recommendations returns tracks related to the seed track IDs. An empty
// result is not an error.
func (sc *Client) Recommendations(ctx context.Context, seedTrackIDs []string, limit int) ([]music.Track, error) {
	if len(seedTrackIDs) == 0 {
		return nil, errors.New("no seed ids provided")
	}
	seeds := spotify.Seeds{Tracks: make([]spotify.ID, len(seedTrackIDs))}
	for i, id := range seedTrackIDs {
		seeds.Tracks[i] = spotify.ID(id)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	recs, err := sc.client.GetRecommendations(seeds, nil, &spotify.Options{Limit: &limit})
	observe("recommendations", err)
	if err != nil {
		return nil, err
	}
	tracks := make([]music.Track, len(recs.Tracks))
	for i, t := range recs.Tracks {
		tracks[i] = shapeTrack(spotify.FullTrack{SimpleTrack: t})
	}
	return tracks, nil
}

// ArtistTopTracks returns an artist's top tracks in market.
func (sc *Client) ArtistTopTracks(ctx context.Context, artistID, market string) ([]music.Track, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := sc.client.GetArtistsTopTracks(spotify.ID(artistID), market)
	observe("artist_top_tracks", err)
	if err != nil {
		return nil, err
	}
	tracks := make([]music.Track, len(res))
	for i, t := range res {
		tracks[i] = shapeTrack(t)
	}
	return tracks, nil
}
