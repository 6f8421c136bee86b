package spotify

import (
	"github.com/zmb3/spotify"

	"Tune-Rater-Go/pkg/music"
)

// firstImage returns the URL of the first (largest) image, if any.
func firstImage(images []spotify.Image) string {
	if len(images) == 0 {
		return ""
	}
	return images[0].URL
}

func artistRefs(artists []spotify.SimpleArtist) []music.ArtistRef {
	refs := make([]music.ArtistRef, len(artists))
	for i, a := range artists {
		refs[i] = music.ArtistRef{ID: string(a.ID), Name: a.Name}
	}
	return refs
}

func shapeTrack(t spotify.FullTrack) music.Track {
	return music.Track{
		ID:         string(t.ID),
		Name:       t.Name,
		Artists:    artistRefs(t.Artists),
		Album:      t.Album.Name,
		ImageURL:   firstImage(t.Album.Images),
		URL:        t.ExternalURLs["spotify"],
		URI:        string(t.URI),
		PreviewURL: t.PreviewURL,
		DurationMs: t.Duration,
	}
}

func shapeArtist(a spotify.FullArtist) music.Artist {
	genres := a.Genres
	if genres == nil {
		genres = []string{}
	}
	return music.Artist{
		ID:         string(a.ID),
		Name:       a.Name,
		ImageURL:   firstImage(a.Images),
		URL:        a.ExternalURLs["spotify"],
		Genres:     genres,
		Popularity: a.Popularity,
	}
}

func shapeAlbum(a spotify.SimpleAlbum) music.Album {
	return music.Album{
		ID:          string(a.ID),
		Name:        a.Name,
		Artists:     artistRefs(a.Artists),
		ImageURL:    firstImage(a.Images),
		URL:         a.ExternalURLs["spotify"],
		ReleaseDate: a.ReleaseDate,
		AlbumType:   a.AlbumType,
	}
}

func shapePlaylist(p spotify.SimplePlaylist) music.Playlist {
	return music.Playlist{
		ID:         string(p.ID),
		Name:       p.Name,
		URL:        p.ExternalURLs["spotify"],
		ImageURL:   firstImage(p.Images),
		TrackCount: int(p.Tracks.Total),
	}
}
