package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"Tune-Rater-Go/pkg/metrics"
)

// Rating is a user's verdict on a track.
type Rating string

const (
	Like    Rating = "like"
	Dislike Rating = "dislike"
)

var (
	// ErrInvalidRating is returned for any rating other than like or dislike.
	ErrInvalidRating = errors.New("invalid rating: must be like or dislike")
	// ErrInvalidFeedback is returned when the user or track is missing.
	ErrInvalidFeedback = errors.New("user and track are required")
)

// ParseRating accepts exactly "like" or "dislike".
func ParseRating(s string) (Rating, error) {
	switch r := Rating(s); r {
	case Like, Dislike:
		return r, nil
	}
	return "", ErrInvalidRating
}

// Feedback is one stored rating. Created is set when the pair is first rated
// and never changes; Updated moves on every write.
type Feedback struct {
	UserID     string    `json:"user_id"`
	TrackID    string    `json:"track_id"`
	Rating     Rating    `json:"rating"`
	TrackName  string    `json:"track_name,omitempty"`
	ArtistID   string    `json:"artist_id,omitempty"`
	ArtistName string    `json:"artist_name,omitempty"`
	Created    time.Time `json:"created"`
	Updated    time.Time `json:"updated"`
}

// RecordFeedback inserts or replaces the rating of f.UserID for f.TrackID.
// The rating is validated before the database is touched. Optional metadata
// left empty keeps whatever was stored before.
func (db *DB) RecordFeedback(ctx context.Context, f Feedback) error {
	if _, err := ParseRating(string(f.Rating)); err != nil {
		return err
	}
	if f.UserID == "" || f.TrackID == "" {
		return ErrInvalidFeedback
	}
	now := db.Now().UTC()
	_, err := db.ExecContext(ctx, db.rebind(`INSERT INTO feedback(user_id, track_id, rating, track_name, artist_id, artist_name, created, updated)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, track_id) DO UPDATE SET
			rating=excluded.rating,
			track_name=COALESCE(NULLIF(excluded.track_name, ''), feedback.track_name),
			artist_id=COALESCE(NULLIF(excluded.artist_id, ''), feedback.artist_id),
			artist_name=COALESCE(NULLIF(excluded.artist_name, ''), feedback.artist_name),
			updated=excluded.updated`),
		f.UserID, f.TrackID, string(f.Rating), f.TrackName, f.ArtistID, f.ArtistName, now, now)
	if err != nil {
		return fmt.Errorf("record feedback: %w", err)
	}
	metrics.FeedbackWritesTotal.WithLabelValues(string(f.Rating)).Inc()
	return nil
}

// TrackIDsByRating returns up to limit track IDs the user rated r, most
// recently rated first. A limit of zero or less returns all of them.
func (db *DB) TrackIDsByRating(ctx context.Context, userID string, r Rating, limit int) ([]string, error) {
	q := `SELECT track_id FROM feedback WHERE user_id=? AND rating=? ORDER BY updated DESC, track_id`
	args := []any{userID, string(r)}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := db.QueryContext(ctx, db.rebind(q), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListFeedback returns every rating stored for userID, newest first.
func (db *DB) ListFeedback(ctx context.Context, userID string) ([]Feedback, error) {
	rows, err := db.QueryContext(ctx, db.rebind(`SELECT user_id, track_id, rating, track_name, artist_id, artist_name, created, updated
		FROM feedback WHERE user_id=? ORDER BY updated DESC, track_id`), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fs := []Feedback{}
	for rows.Next() {
		var f Feedback
		var rating string
		if err := rows.Scan(&f.UserID, &f.TrackID, &rating, &f.TrackName, &f.ArtistID, &f.ArtistName, &f.Created, &f.Updated); err != nil {
			return nil, err
		}
		f.Rating = Rating(rating)
		fs = append(fs, f)
	}
	return fs, rows.Err()
}
