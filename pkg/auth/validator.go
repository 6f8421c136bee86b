// Package auth decides whether the token held by a session can be used as is,
// must be refreshed, or forces the user to log in again.
package auth

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"Tune-Rater-Go/pkg/metrics"
	"Tune-Rater-Go/pkg/session"
)

var (
	// ErrUnauthenticated means there is no usable token and no way to
	// refresh one.
	ErrUnauthenticated = errors.New("user not authenticated or token expired")
	// ErrSessionExpired means a refresh was attempted and failed.
	ErrSessionExpired = errors.New("session expired, failed to refresh token")
)

// ExpirySkew treats tokens this close to expiry as already expired so they do
// not lapse mid-request.
const ExpirySkew = 60 * time.Second

// State classifies a token record.
type State int

const (
	// Invalid tokens are absent, or expired without a refresh token.
	Invalid State = iota
	// NeedsRefresh tokens are expired but carry a refresh token.
	NeedsRefresh
	// Valid tokens can be used as is.
	Valid
)

func (s State) String() string {
	switch s {
	case Valid:
		return "valid"
	case NeedsRefresh:
		return "needs_refresh"
	default:
		return "invalid"
	}
}

// Classify inspects t at time now.
func Classify(t *session.Token, now time.Time) State {
	if t == nil || (t.AccessToken == "" && t.RefreshToken == "") {
		return Invalid
	}
	if t.AccessToken != "" && t.ExpiresAt-now.Unix() >= int64(ExpirySkew/time.Second) {
		return Valid
	}
	if t.RefreshToken != "" {
		return NeedsRefresh
	}
	return Invalid
}

// TokenSourcer is satisfied by *oauth2.Config.
type TokenSourcer interface {
	TokenSource(ctx context.Context, t *oauth2.Token) oauth2.TokenSource
}

// Validator ensures a session holds a usable token before any upstream call.
type Validator struct {
	OAuth TokenSourcer
	Store session.Store
	Now   func() time.Time
}

// NewValidator returns a Validator refreshing through cfg and persisting into
// store.
func NewValidator(cfg TokenSourcer, store session.Store) *Validator {
	return &Validator{OAuth: cfg, Store: store, Now: time.Now}
}

// Ensure returns a usable token for s. A refreshed token is written back into
// s and the store. Any failure deletes the whole session from the store; the
// caller only has to surface a 401.
func (v *Validator) Ensure(ctx context.Context, s *session.Session) (*session.Token, error) {
	if s == nil {
		return nil, ErrUnauthenticated
	}
	logger := log.WithField("session", shortID(s.ID))

	switch Classify(s.Token, v.Now()) {
	case Valid:
		return s.Token, nil
	case NeedsRefresh:
		tok, err := v.refresh(ctx, s.Token)
		if err != nil {
			metrics.TokenRefreshTotal.WithLabelValues(metrics.OutcomeError).Inc()
			logger.WithError(err).Error("failed to refresh token")
			v.clear(ctx, s, "refresh_failed")
			return nil, ErrSessionExpired
		}
		metrics.TokenRefreshTotal.WithLabelValues(metrics.OutcomeOK).Inc()
		s.Token = tok
		if err := v.Store.Save(ctx, s); err != nil {
			logger.WithError(err).Warn("failed to persist refreshed token")
		}
		logger.Debug("token refreshed")
		return tok, nil
	default:
		if s.Token != nil {
			logger.Warn("no valid token or refresh token, user needs to re-authenticate")
		}
		v.clear(ctx, s, "unauthenticated")
		return nil, ErrUnauthenticated
	}
}

// refresh performs exactly one refresh_token grant.
func (v *Validator) refresh(ctx context.Context, old *session.Token) (*session.Token, error) {
	src := v.OAuth.TokenSource(ctx, &oauth2.Token{RefreshToken: old.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, err
	}
	rec := session.TokenFromOAuth(tok)
	if rec.RefreshToken == "" {
		rec.RefreshToken = old.RefreshToken
	}
	if rec.Scope == "" {
		rec.Scope = old.Scope
	}
	return rec, nil
}

func (v *Validator) clear(ctx context.Context, s *session.Session, reason string) {
	metrics.SessionsClearedTotal.WithLabelValues(reason).Inc()
	if err := v.Store.Delete(ctx, s.ID); err != nil {
		log.WithError(err).Warn("failed to delete session")
	}
}

// IsAuthError reports whether err is one of the authentication errors that
// clear the session.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthenticated) || errors.Is(err, ErrSessionExpired)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
