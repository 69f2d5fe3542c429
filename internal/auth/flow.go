package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/comigor/nazborg-go/internal/config"
	"github.com/comigor/nazborg-go/internal/logger"
)

// CalendarScope grants read/write access to the operator's calendars.
const CalendarScope = "https://www.googleapis.com/auth/calendar"

const stateTTL = 10 * time.Minute

var (
	ErrMissingCode  = errors.New("missing authorization code")
	ErrInvalidState = errors.New("unknown or expired oauth state")
)

// Flow drives the consent redirect and code exchange, storing the resulting
// credential in a TokenHolder.
type Flow struct {
	oauth  *oauth2.Config
	tokens *TokenHolder

	mu     sync.Mutex
	states map[string]time.Time
	now    func() time.Time
}

// NewOAuthConfig builds the Google OAuth client for calendar access.
func NewOAuthConfig(cfg config.GoogleCalendarConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       []string{CalendarScope},
		Endpoint:     google.Endpoint,
	}
}

// NewFlow wires an OAuth client to a holder. When refreshToken is set the
// holder is seeded with it so bookings work without a browser round trip.
func NewFlow(oauthCfg *oauth2.Config, tokens *TokenHolder, refreshToken string) *Flow {
	if rt := strings.TrimSpace(refreshToken); rt != "" {
		tokens.Set(&oauth2.Token{RefreshToken: rt})
		logger.L.Info("calendar credential seeded from configured refresh token")
	}
	return &Flow{
		oauth:  oauthCfg,
		tokens: tokens,
		states: make(map[string]time.Time),
		now:    time.Now,
	}
}

// Config exposes the OAuth client used to build token sources.
func (f *Flow) Config() *oauth2.Config {
	return f.oauth
}

// AuthCodeURL returns the consent URL, requesting offline access so a refresh
// token is issued, and remembers the state it embedded.
func (f *Flow) AuthCodeURL() string {
	state := uuid.NewString()

	f.mu.Lock()
	f.pruneLocked()
	f.states[state] = f.now().Add(stateTTL)
	f.mu.Unlock()

	return f.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for a credential and stores it.
func (f *Flow) Exchange(ctx context.Context, code, state string) error {
	if strings.TrimSpace(code) == "" {
		return ErrMissingCode
	}
	if !f.consumeState(state) {
		return ErrInvalidState
	}

	tok, err := f.oauth.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("exchange authorization code: %w", err)
	}
	f.tokens.Set(tok)
	logger.L.Info("calendar credential stored", "has_refresh_token", tok.RefreshToken != "")
	return nil
}

func (f *Flow) consumeState(state string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	expires, ok := f.states[state]
	if !ok {
		return false
	}
	delete(f.states, state)
	return f.now().Before(expires)
}

func (f *Flow) pruneLocked() {
	now := f.now()
	for s, exp := range f.states {
		if now.After(exp) {
			delete(f.states, s)
		}
	}
}
