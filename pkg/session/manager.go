package session

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CookieName is the cookie carrying the signed session ID.
const CookieName = "session_id"

// signValue computes an HMAC signature for value and appends it using the
// format value|signature. The signature is base64 URL encoded so it can be
// safely stored in cookies.
func signValue(value string, key []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(value))
	return value + "|" + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// verifyValue checks the HMAC signature appended to signed. It returns the
// original value and true when the signature matches the provided key.
func verifyValue(signed string, key []byte) (string, bool) {
	value, sig, ok := strings.Cut(signed, "|")
	if !ok || strings.Contains(sig, "|") {
		return "", false
	}
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(value))
	got, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil || !hmac.Equal(mac.Sum(nil), got) {
		return "", false
	}
	return value, true
}

// Manager binds sessions in a Store to browser cookies.
type Manager struct {
	Store  Store
	Key    []byte
	TTL    time.Duration
	Secure bool
}

// NewManager returns a Manager issuing cookies valid for ttl.
func NewManager(store Store, key []byte, ttl time.Duration, secure bool) *Manager {
	return &Manager{Store: store, Key: key, TTL: ttl, Secure: secure}
}

// Load resolves the session referenced by the request cookie. A missing,
// tampered or unknown cookie yields a nil session and a nil error; only store
// failures are reported.
func (m *Manager) Load(r *http.Request) (*Session, error) {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return nil, nil
	}
	id, ok := verifyValue(c.Value, m.Key)
	if !ok {
		return nil, nil
	}
	s, err := m.Store.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return s, err
}

// Start returns a fresh, unsaved session with a random ID.
func (m *Manager) Start() *Session {
	return &Session{ID: uuid.NewString(), CreatedAt: time.Now().UTC()}
}

// Save persists s and (re)issues the session cookie.
func (m *Manager) Save(ctx context.Context, w http.ResponseWriter, s *Session) error {
	if err := m.Store.Save(ctx, s); err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    signValue(s.ID, m.Key),
		Path:     "/",
		MaxAge:   int(m.TTL / time.Second),
		HttpOnly: true,
		Secure:   m.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Destroy deletes s from the store, when present, and expires the cookie.
// Both the profile and the token are dropped.
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, s *Session) error {
	var err error
	if s != nil {
		err = m.Store.Delete(ctx, s.ID)
	}
	m.ExpireCookie(w)
	return err
}

// ExpireCookie tells the browser to forget the session cookie.
func (m *Manager) ExpireCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Cookie builds the signed cookie for a session ID. Tests use it to attach an
// existing session to a request.
func (m *Manager) Cookie(id string) *http.Cookie {
	return &http.Cookie{Name: CookieName, Value: signValue(id, m.Key), Path: "/"}
}
