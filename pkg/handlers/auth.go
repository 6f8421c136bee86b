// This file groups the login related endpoints: the redirect to Spotify's
// consent page, the authorization code exchange, the current user lookup and
// logout.

package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"Tune-Rater-Go/pkg/auth"
	"Tune-Rater-Go/pkg/music"
	"Tune-Rater-Go/pkg/session"
)

const stateCookie = "oauth_state"

// signState computes an HMAC signature for value and appends it using the
// format value|signature.
func (app *Application) signState(value string) string {
	mac := hmac.New(sha256.New, app.Sessions.Key)
	mac.Write([]byte(value))
	return value + "|" + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// stateFromCookie returns the verified state stored by Authorize.
func (app *Application) stateFromCookie(r *http.Request) (string, bool) {
	c, err := r.Cookie(stateCookie)
	if err != nil {
		return "", false
	}
	value, _, ok := strings.Cut(c.Value, "|")
	if !ok || !hmac.Equal([]byte(app.signState(value)), []byte(c.Value)) {
		return "", false
	}
	return value, true
}

func (app *Application) clearState(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Path: "/", MaxAge: -1, HttpOnly: true, Secure: app.Sessions.Secure})
}

// Authorize redirects to the Spotify consent page. A user whose session
// already holds a valid token goes straight back to the frontend.
func (app *Application) Authorize(w http.ResponseWriter, r *http.Request) {
	if s, err := app.Sessions.Load(r); err == nil && s != nil {
		if auth.Classify(s.Token, time.Now()) == auth.Valid {
			http.Redirect(w, r, app.FrontendURL, http.StatusFound)
			return
		}
	}
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "failed to generate state")
		return
	}
	state := base64.RawURLEncoding.EncodeToString(b)
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    app.signState(state),
		Path:     "/",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   app.Sessions.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, auth.AuthCodeURL(app.OAuth, state), http.StatusFound)
}

var errStateMismatch = errors.New("state mismatch")

// exchange trades code for a token, fetches the profile and starts a fresh
// session holding both. Any session the browser already had is dropped.
func (app *Application) exchange(ctx context.Context, w http.ResponseWriter, r *http.Request, code string) (*music.User, error) {
	tok, err := app.OAuth.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	profile, err := app.NewAPI(ctx, tok).CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if old, err := app.Sessions.Load(r); err == nil && old != nil {
		if err := app.Sessions.Store.Delete(ctx, old.ID); err != nil {
			log.WithError(err).Warn("failed to delete previous session")
		}
	}
	s := app.Sessions.Start()
	s.User = &profile
	s.Token = session.TokenFromOAuth(tok)
	if err := app.Sessions.Save(ctx, w, s); err != nil {
		return nil, err
	}
	log.WithField("user", profile.ID).Info("user logged in")
	return s.User, nil
}

// Token completes the login started by the frontend. The body carries the
// authorization code Spotify handed to the frontend, and optionally the state.
func (app *Application) Token(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code  string `json:"code"`
		State string `json:"state"`
	}
	// Frontends may send redirect_uri and similar keys alongside the code.
	if err := decodeJSONLenient(r, &req); err != nil || req.Code == "" {
		respondJSONError(w, http.StatusBadRequest, msgNoCode)
		return
	}
	if req.State != "" {
		state, ok := app.stateFromCookie(r)
		if !ok || state != req.State {
			respondJSONError(w, http.StatusBadRequest, errStateMismatch.Error())
			return
		}
		app.clearState(w)
	}
	user, err := app.exchange(r.Context(), w, r, req.Code)
	if err != nil {
		log.WithError(err).Error("spotify token exchange")
		respondJSONError(w, http.StatusInternalServerError, msgExchange)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "user": user})
}

// Callback is the redirect target when Spotify sends the browser back to the
// backend directly. It performs the same exchange as Token.
func (app *Application) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		log.WithField("error", e).Info("authorization denied")
		http.Redirect(w, r, app.FrontendURL, http.StatusFound)
		return
	}
	code := q.Get("code")
	if code == "" {
		respondJSONError(w, http.StatusBadRequest, msgNoCode)
		return
	}
	state, ok := app.stateFromCookie(r)
	if !ok || q.Get("state") != state {
		respondJSONError(w, http.StatusBadRequest, errStateMismatch.Error())
		return
	}
	app.clearState(w)
	if _, err := app.exchange(r.Context(), w, r, code); err != nil {
		log.WithError(err).Error("spotify token exchange")
		respondJSONError(w, http.StatusInternalServerError, msgExchange)
		return
	}
	http.Redirect(w, r, app.FrontendURL, http.StatusFound)
}

// Me returns the profile stored in the session, or null.
func (app *Application) Me(w http.ResponseWriter, r *http.Request) {
	s, err := app.Sessions.Load(r)
	if err != nil {
		log.WithError(err).Error("load session")
	}
	if s == nil || s.User == nil {
		respondJSON(w, http.StatusOK, nil)
		return
	}
	respondJSON(w, http.StatusOK, s.User)
}

// Logout drops the whole session and returns to the frontend.
func (app *Application) Logout(w http.ResponseWriter, r *http.Request) {
	s, err := app.Sessions.Load(r)
	if err != nil {
		log.WithError(err).Error("load session")
	}
	if err := app.Sessions.Destroy(r.Context(), w, s); err != nil {
		log.WithError(err).Warn("failed to delete session")
	}
	http.Redirect(w, r, app.FrontendURL, http.StatusFound)
}
