// Package auth owns the calendar provider credential and the OAuth2
// redirect/callback flow that produces it.
package auth

import (
	"errors"
	"sync"

	"golang.org/x/oauth2"
)

// ErrUnauthenticated is returned when no credential has been obtained yet.
var ErrUnauthenticated = errors.New("calendar is not authenticated")

// TokenHolder is the single credential slot. It starts empty, is overwritten
// by every completed OAuth callback and is read by every booking.
type TokenHolder struct {
	mu    sync.RWMutex
	token *oauth2.Token
}

// NewTokenHolder returns an empty holder.
func NewTokenHolder() *TokenHolder {
	return &TokenHolder{}
}

// Set replaces the held credential. A nil token is ignored.
func (h *TokenHolder) Set(tok *oauth2.Token) {
	if tok == nil {
		return
	}
	h.mu.Lock()
	h.token = tok
	h.mu.Unlock()
}

// IsAuthenticated reports whether a credential is held.
func (h *TokenHolder) IsAuthenticated() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token != nil
}

// Current returns a copy of the held credential.
func (h *TokenHolder) Current() (*oauth2.Token, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.token == nil {
		return nil, ErrUnauthenticated
	}
	tok := *h.token
	return &tok, nil
}
