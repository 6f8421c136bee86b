// Package recommend picks seed tracks for a user and asks the provider for
// related tracks. Seeds come from exactly one source, tried in order: the
// user's liked tracks, their medium term top tracks, then a fixed default.
package recommend

import (
	"context"

	log "github.com/sirupsen/logrus"

	"Tune-Rater-Go/pkg/db"
	"Tune-Rater-Go/pkg/metrics"
	"Tune-Rater-Go/pkg/music"
	"Tune-Rater-Go/pkg/spotify"
)

// Seed sources reported with every result.
const (
	SourceFeedback  = "feedback"
	SourceTopTracks = "top_tracks"
	SourceDefault   = "default"
)

const (
	// DefaultSeed is used when a user has neither likes nor top tracks.
	DefaultSeed = "4uLU6hMCjMI75M1A2tKUQC"
	MaxSeeds    = 5
	MaxResults  = 20
)

// FeedbackStore is the part of the database the engine reads.
type FeedbackStore interface {
	TrackIDsByRating(ctx context.Context, userID string, r db.Rating, limit int) ([]string, error)
}

// Provider is the part of the upstream API the engine calls.
type Provider interface {
	TopTracks(ctx context.Context, timeRange string, limit, offset int) (music.Page[music.Track], error)
	Recommendations(ctx context.Context, seedTrackIDs []string, limit int) ([]music.Track, error)
}

// Result is what the recommendations endpoint returns.
type Result struct {
	SeedSource string        `json:"seed_source"`
	Tracks     []music.Track `json:"tracks"`
}

// Engine computes recommendations for a user.
type Engine struct {
	Feedback FeedbackStore
}

// New returns an Engine reading feedback from store.
func New(store FeedbackStore) *Engine {
	return &Engine{Feedback: store}
}

// Recommend returns up to MaxResults tracks for userID with disliked tracks
// removed. Missing personalization data never fails the call; an error from
// the recommendation request itself, or the provider rejecting the token, is
// returned.
func (e *Engine) Recommend(ctx context.Context, userID string, p Provider) (Result, error) {
	seeds, source, err := e.seeds(ctx, userID, p)
	if err != nil {
		return Result{}, err
	}
	metrics.RecommendationSeedTotal.WithLabelValues(source).Inc()

	tracks, err := p.Recommendations(ctx, seeds, MaxResults)
	if err != nil {
		return Result{}, err
	}

	disliked, err := e.Feedback.TrackIDsByRating(ctx, userID, db.Dislike, 0)
	if err != nil {
		log.WithError(err).WithField("user", userID).Warn("could not load dislikes; returning unfiltered recommendations")
	}
	tracks = music.Truncate(music.Exclude(music.Dedupe(tracks), disliked), MaxResults)
	if tracks == nil {
		tracks = []music.Track{}
	}
	return Result{SeedSource: source, Tracks: tracks}, nil
}

func (e *Engine) seeds(ctx context.Context, userID string, p Provider) ([]string, string, error) {
	liked, err := e.Feedback.TrackIDsByRating(ctx, userID, db.Like, MaxSeeds)
	if err != nil {
		log.WithError(err).WithField("user", userID).Warn("could not load likes; trying top tracks")
	}
	if len(liked) > 0 {
		return liked, SourceFeedback, nil
	}

	top, err := p.TopTracks(ctx, "medium_term", MaxSeeds, 0)
	switch {
	case spotify.IsUnauthorized(err):
		return nil, "", err
	case err != nil:
		log.WithError(err).WithField("user", userID).Warn("could not load top tracks; using default seed")
	case len(top.Items) > 0:
		ids := music.TrackIDs(top.Items)
		if len(ids) > MaxSeeds {
			ids = ids[:MaxSeeds]
		}
		return ids, SourceTopTracks, nil
	}
	return []string{DefaultSeed}, SourceDefault, nil
}
