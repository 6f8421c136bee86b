// Package session keeps one OAuth token record and one profile snapshot per
// browser session. Sessions live in a server side Store and are referenced by
// an HMAC signed cookie; the browser never sees the token itself.
package session

import (
	"context"
	"errors"
	"time"

	"golang.org/x/oauth2"

	"Tune-Rater-Go/pkg/music"
)

// ErrNotFound is returned by a Store when no live session has the given ID.
var ErrNotFound = errors.New("session not found")

// Token is the OAuth token record owned by a session.
type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresAt    int64  `json:"expires_at"`
	Scope        string `json:"scope,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
}

// Session is the server side state of one browser session.
type Session struct {
	ID        string      `json:"id"`
	User      *music.User `json:"user,omitempty"`
	Token     *Token      `json:"token_info,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// Store persists sessions. Implementations provide their own concurrency
// control; concurrent writes to the same ID are last-write-wins.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

// TokenFromOAuth converts a token returned by the provider into the record
// stored in the session. The granted scope travels in the token response's
// extra fields.
func TokenFromOAuth(t *oauth2.Token) *Token {
	if t == nil {
		return nil
	}
	rec := &Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
	}
	if !t.Expiry.IsZero() {
		rec.ExpiresAt = t.Expiry.Unix()
	}
	if scope, ok := t.Extra("scope").(string); ok {
		rec.Scope = scope
	}
	return rec
}

// OAuth2 converts the record back into an oauth2.Token for API calls.
func (t *Token) OAuth2() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
	}
	if t.ExpiresAt > 0 {
		tok.Expiry = time.Unix(t.ExpiresAt, 0)
	}
	return tok
}

// clone returns a deep copy so callers cannot mutate stored state in place.
func (s *Session) clone() *Session {
	c := *s
	if s.User != nil {
		u := *s.User
		c.User = &u
	}
	if s.Token != nil {
		t := *s.Token
		c.Token = &t
	}
	return &c
}
