package spotify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	libspotify "github.com/zmb3/spotify"
	"golang.org/x/oauth2"
)

// fakeAPI implements webAPI returning canned results so the wrapper can be
// tested without hitting the real Spotify API.
type fakeAPI struct {
	user       *libspotify.PrivateUser
	playlists  *libspotify.SimplePlaylistPage
	search     *libspotify.SearchResult
	releases   *libspotify.SimpleAlbumPage
	categories *libspotify.CategoryPage
	saved      *libspotify.SavedTrackPage
	top        *libspotify.FullTrackPage
	recs       *libspotify.Recommendations
	artistTop  map[libspotify.ID][]libspotify.FullTrack
	err        error

	lastType    libspotify.SearchType
	lastOpt     *libspotify.Options
	lastLocale  string
	savedIDs    []libspotify.ID
	recSeeds    libspotify.Seeds
	lastCountry string
}

func (f *fakeAPI) CurrentUser() (*libspotify.PrivateUser, error) { return f.user, f.err }

func (f *fakeAPI) CurrentUsersPlaylistsOpt(opt *libspotify.Options) (*libspotify.SimplePlaylistPage, error) {
	f.lastOpt = opt
	return f.playlists, f.err
}

func (f *fakeAPI) SearchOpt(query string, t libspotify.SearchType, opt *libspotify.Options) (*libspotify.SearchResult, error) {
	f.lastType = t
	f.lastOpt = opt
	return f.search, f.err
}

func (f *fakeAPI) NewReleasesOpt(opt *libspotify.Options) (*libspotify.SimpleAlbumPage, error) {
	f.lastOpt = opt
	return f.releases, f.err
}

func (f *fakeAPI) GetCategoriesOpt(opt *libspotify.Options, locale string) (*libspotify.CategoryPage, error) {
	f.lastOpt = opt
	f.lastLocale = locale
	return f.categories, f.err
}

func (f *fakeAPI) CurrentUsersTracksOpt(opt *libspotify.Options) (*libspotify.SavedTrackPage, error) {
	f.lastOpt = opt
	return f.saved, f.err
}

func (f *fakeAPI) AddTracksToLibrary(ids ...libspotify.ID) error {
	f.savedIDs = append(f.savedIDs, ids...)
	return f.err
}

func (f *fakeAPI) CurrentUsersTopTracksOpt(opt *libspotify.Options) (*libspotify.FullTrackPage, error) {
	f.lastOpt = opt
	return f.top, f.err
}

func (f *fakeAPI) GetRecommendations(seeds libspotify.Seeds, attrs *libspotify.TrackAttributes, opt *libspotify.Options) (*libspotify.Recommendations, error) {
	f.recSeeds = seeds
	f.lastOpt = opt
	return f.recs, f.err
}

func (f *fakeAPI) GetArtistsTopTracks(artistID libspotify.ID, country string) ([]libspotify.FullTrack, error) {
	f.lastCountry = country
	return f.artistTop[artistID], f.err
}

func fullTrack(id, name string) libspotify.FullTrack {
	t := libspotify.FullTrack{SimpleTrack: libspotify.SimpleTrack{
		ID:           libspotify.ID(id),
		Name:         name,
		Artists:      []libspotify.SimpleArtist{{ID: "ar1", Name: "Artist"}},
		ExternalURLs: map[string]string{"spotify": "https://open.spotify.com/track/" + id},
		Duration:     1000,
	}}
	t.Album = libspotify.SimpleAlbum{Name: "Album", Images: []libspotify.Image{{URL: "http://img/1"}, {URL: "http://img/2"}}}
	return t
}

func TestCurrentUser(t *testing.T) {
	u := &libspotify.PrivateUser{Email: "a@b.c"}
	u.ID = "u1"
	u.DisplayName = "Listener"
	sc := &Client{client: &fakeAPI{user: u}}

	got, err := sc.CurrentUser(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "u1" || got.Name != "Listener" || got.Email != "a@b.c" || got.Moderator {
		t.Errorf("unexpected user: %+v", got)
	}
}

// TestPlaylistsShape checks the flat playlist contract including the first
// image and the track count.
func TestPlaylistsShape(t *testing.T) {
	page := &libspotify.SimplePlaylistPage{Playlists: []libspotify.SimplePlaylist{{
		ID:           "p1",
		Name:         "Mix",
		ExternalURLs: map[string]string{"spotify": "https://open.spotify.com/playlist/p1"},
		Images:       []libspotify.Image{{URL: "http://img/p1"}},
		Tracks:       libspotify.PlaylistTracks{Total: 12},
	}, {ID: "p2", Name: "Empty"}}}
	page.Total = 2
	fa := &fakeAPI{playlists: page}
	sc := &Client{client: fa}

	got, err := sc.Playlists(context.Background(), 50, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *fa.lastOpt.Limit != 50 || *fa.lastOpt.Offset != 0 {
		t.Errorf("paging not forwarded: %+v", fa.lastOpt)
	}
	if got.Total != 2 || len(got.Items) != 2 {
		t.Fatalf("unexpected page: %+v", got)
	}
	p := got.Items[0]
	if p.ID != "p1" || p.URL != "https://open.spotify.com/playlist/p1" || p.ImageURL != "http://img/p1" || p.TrackCount != 12 {
		t.Errorf("unexpected playlist: %+v", p)
	}
	if got.Items[1].ImageURL != "" {
		t.Errorf("expected empty image url, got %q", got.Items[1].ImageURL)
	}
}

func TestSearchKinds(t *testing.T) {
	artist := libspotify.FullArtist{SimpleArtist: libspotify.SimpleArtist{ID: "a1", Name: "Band"}}
	sr := &libspotify.SearchResult{
		Tracks:  &libspotify.FullTrackPage{Tracks: []libspotify.FullTrack{fullTrack("1", "Song")}},
		Artists: &libspotify.FullArtistPage{Artists: []libspotify.FullArtist{artist}},
	}
	fa := &fakeAPI{search: sr}
	sc := &Client{client: fa}

	got, err := sc.Search(context.Background(), "q", []string{"track", "artist"}, 10, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fa.lastType != libspotify.SearchTypeTrack|libspotify.SearchTypeArtist {
		t.Errorf("unexpected search type %v", fa.lastType)
	}
	if len(got.Tracks) != 1 || got.Tracks[0].ImageURL != "http://img/1" || got.Tracks[0].Album != "Album" {
		t.Errorf("unexpected tracks %+v", got.Tracks)
	}
	if len(got.Artists) != 1 || got.Artists[0].Genres == nil {
		t.Errorf("unexpected artists %+v", got.Artists)
	}
	if got.Albums != nil {
		t.Errorf("albums were not requested: %+v", got.Albums)
	}
}

func TestSearchRequestedKindWithoutMatches(t *testing.T) {
	sr := &libspotify.SearchResult{Tracks: &libspotify.FullTrackPage{}}
	sc := &Client{client: &fakeAPI{search: sr}}

	got, err := sc.Search(context.Background(), "q", []string{"track", "album"}, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Tracks == nil || len(got.Tracks) != 0 {
		t.Errorf("expected empty tracks, got %#v", got.Tracks)
	}
	if got.Albums == nil {
		t.Errorf("albums were requested and must not be nil")
	}
	if got.Artists != nil {
		t.Errorf("artists were not requested: %+v", got.Artists)
	}
}

func TestParseSearchKinds(t *testing.T) {
	kinds, err := ParseSearchKinds("")
	if err != nil || len(kinds) != 3 {
		t.Fatalf("expected defaults, got %v %v", kinds, err)
	}
	kinds, err = ParseSearchKinds(" Track, album,track ")
	if err != nil || len(kinds) != 2 || kinds[0] != "track" || kinds[1] != "album" {
		t.Fatalf("unexpected kinds %v %v", kinds, err)
	}
	if _, err := ParseSearchKinds("track,podcast"); !errors.Is(err, ErrUnknownSearchType) {
		t.Fatalf("expected ErrUnknownSearchType, got %v", err)
	}
}

func TestSavedTracksAndSave(t *testing.T) {
	page := &libspotify.SavedTrackPage{Tracks: []libspotify.SavedTrack{{AddedAt: "2024-01-01T00:00:00Z", FullTrack: fullTrack("1", "Song")}}}
	page.Total = 1
	page.Limit = 20
	fa := &fakeAPI{saved: page}
	sc := &Client{client: fa}

	got, err := sc.SavedTracks(context.Background(), 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Items) != 1 || got.Items[0].AddedAt != "2024-01-01T00:00:00Z" || got.Items[0].ID != "1" || got.Limit != 20 {
		t.Fatalf("unexpected page %+v", got)
	}

	if err := sc.SaveTrack(context.Background(), "abc"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fa.savedIDs) != 1 || fa.savedIDs[0] != "abc" {
		t.Errorf("ids not forwarded: %+v", fa.savedIDs)
	}
}

func TestCategoriesAndReleases(t *testing.T) {
	cats := &libspotify.CategoryPage{Categories: []libspotify.Category{{ID: "pop", Name: "Pop", Icons: []libspotify.Image{{URL: "http://icon"}}}}}
	rel := &libspotify.SimpleAlbumPage{Albums: []libspotify.SimpleAlbum{{ID: "al1", Name: "New", ReleaseDate: "2024-05-01"}}}
	fa := &fakeAPI{categories: cats, releases: rel}
	sc := &Client{client: fa}

	c, err := sc.Categories(context.Background(), 5, 0, "en_US")
	if err != nil || len(c.Items) != 1 || c.Items[0].ImageURL != "http://icon" || fa.lastLocale != "en_US" {
		t.Fatalf("unexpected categories %+v %v", c, err)
	}
	r, err := sc.NewReleases(context.Background(), 5, 0)
	if err != nil || len(r.Items) != 1 || r.Items[0].ReleaseDate != "2024-05-01" {
		t.Fatalf("unexpected releases %+v %v", r, err)
	}
}

func TestTopTracksTimeRange(t *testing.T) {
	fa := &fakeAPI{top: &libspotify.FullTrackPage{Tracks: []libspotify.FullTrack{fullTrack("1", "Song")}}}
	sc := &Client{client: fa}

	got, err := sc.TopTracks(context.Background(), "medium_term", 5, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fa.lastOpt.Timerange == nil || *fa.lastOpt.Timerange != "medium_term" {
		t.Errorf("time range not forwarded")
	}
	if len(got.Items) != 1 {
		t.Errorf("unexpected tracks %+v", got.Items)
	}
}

// TestRecommendations checks that seeds are forwarded and an empty result is
// not an error.
func TestRecommendations(t *testing.T) {
	fa := &fakeAPI{recs: &libspotify.Recommendations{Tracks: []libspotify.SimpleTrack{{ID: "2", Name: "Rec"}}}}
	sc := &Client{client: fa}

	got, err := sc.Recommendations(context.Background(), []string{"1", "3"}, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fa.recSeeds.Tracks) != 2 || *fa.lastOpt.Limit != 20 {
		t.Errorf("seeds or limit not passed")
	}
	if len(got) != 1 || got[0].ID != "2" {
		t.Errorf("unexpected tracks: %+v", got)
	}

	fa.recs = &libspotify.Recommendations{}
	got, err = sc.Recommendations(context.Background(), []string{"1"}, 20)
	if err != nil || len(got) != 0 {
		t.Errorf("expected empty result, got %v %v", got, err)
	}

	if _, err := sc.Recommendations(context.Background(), nil, 20); err == nil {
		t.Errorf("expected error without seeds")
	}
}

func TestArtistTopTracks(t *testing.T) {
	fa := &fakeAPI{artistTop: map[libspotify.ID][]libspotify.FullTrack{"a1": {fullTrack("1", "Song")}}}
	sc := &Client{client: fa}

	got, err := sc.ArtistTopTracks(context.Background(), "a1", "US")
	if err != nil || len(got) != 1 || fa.lastCountry != "US" {
		t.Fatalf("unexpected result %+v %v", got, err)
	}
}

func TestCancelledContext(t *testing.T) {
	fa := &fakeAPI{}
	sc := &Client{client: fa}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := sc.SaveTrack(ctx, "1"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(fa.savedIDs) != 0 {
		t.Errorf("upstream must not be called after cancellation")
	}
}

func TestIsUnauthorized(t *testing.T) {
	if !IsUnauthorized(libspotify.Error{Status: http.StatusUnauthorized, Message: "The access token expired"}) {
		t.Errorf("401 value error not detected")
	}
	if !IsUnauthorized(fmt.Errorf("wrapped: %w", &libspotify.Error{Status: http.StatusUnauthorized})) {
		t.Errorf("wrapped pointer error not detected")
	}
	if !IsUnauthorized(&oauth2.RetrieveError{Response: &http.Response{StatusCode: http.StatusUnauthorized}}) {
		t.Errorf("oauth2 401 not detected")
	}
	if !IsUnauthorized(fmt.Errorf("get playlists: %w", ErrUpstreamUnauthorized)) {
		t.Errorf("transport sentinel not detected")
	}
	if IsUnauthorized(libspotify.Error{Status: http.StatusForbidden}) {
		t.Errorf("403 must not count as unauthorized")
	}
	if IsUnauthorized(errors.New("boom")) {
		t.Errorf("plain error must not count as unauthorized")
	}
}

// TestUpstreamError verifies that errors from the library are returned
// unchanged.
func TestUpstreamError(t *testing.T) {
	sc := &Client{client: &fakeAPI{err: errors.New("boom")}}
	_, err := sc.Playlists(context.Background(), 50, 0)
	if err == nil || err.Error() != "boom" {
		t.Fatalf("expected boom error, got %v", err)
	}
}

// roundTripFunc answers every request without touching the network.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// clientAnswering builds a real Client whose transport replies with status
// and body to every call.
func clientAnswering(t *testing.T, status int, body string) API {
	t.Helper()
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("unexpected Authorization header %q", got)
		}
		return &http.Response{
			StatusCode: status,
			Header:     http.Header{"Content-Type": []string{"application/json"}},
			Body:       io.NopCloser(strings.NewReader(body)),
			Request:    r,
		}, nil
	})
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{Transport: rt})
	return NewClient(ctx, &oauth2.Token{AccessToken: "tok", TokenType: "Bearer"})
}

// TestNewClientDetectsUnauthorized checks that a 401 is recognised whatever
// Spotify puts in the body.
func TestNewClientDetectsUnauthorized(t *testing.T) {
	bodies := map[string]string{
		"json_with_status":    `{"error":{"status":401,"message":"The access token expired"}}`,
		"json_without_status": `{"error":{"message":"Invalid access token"}}`,
		"empty_body":          ``,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			api := clientAnswering(t, http.StatusUnauthorized, body)
			_, err := api.Playlists(context.Background(), 20, 0)
			if !IsUnauthorized(err) {
				t.Errorf("playlists: expected unauthorized, got %v", err)
			}
			if err := api.SaveTrack(context.Background(), "t1"); !IsUnauthorized(err) {
				t.Errorf("save track: expected unauthorized, got %v", err)
			}
		})
	}
}

func TestNewClientOtherStatuses(t *testing.T) {
	api := clientAnswering(t, http.StatusInternalServerError, `{"error":{"status":500,"message":"boom"}}`)
	if _, err := api.Playlists(context.Background(), 20, 0); err == nil || IsUnauthorized(err) {
		t.Errorf("expected a non-auth error, got %v", err)
	}

	api = clientAnswering(t, http.StatusOK, `{"items":[],"total":0,"limit":20,"offset":0}`)
	page, err := api.Playlists(context.Background(), 20, 0)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if len(page.Items) != 0 {
		t.Errorf("expected no playlists, got %d", len(page.Items))
	}
}
