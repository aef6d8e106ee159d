// Package credstore persists the OAuth2 credentials for a GoodShelf session.
//
// A Store holds at most one TokenSet (the sole source of truth for
// authentication) plus a transient PKCE code verifier that only exists
// between login initiation and callback completion. Implementations must be
// safe for concurrent use, and reads must reflect the latest completed
// write.
package credstore

import (
	"sync"
	"time"
)

// TokenSet is the credential material issued by the authorization server.
// ExpiresAt is computed once when the tokens are issued, from the server's
// expires_in, and is never recomputed except on reissue.
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Expired reports whether the access token should be treated as unusable.
// A token with no recorded expiry is always expired. buffer shifts the
// cutoff earlier, so a token is refreshed slightly before the server would
// reject it rather than mid-flight.
func (t *TokenSet) Expired(buffer time.Duration) bool {
	if t == nil || t.ExpiresAt.IsZero() {
		return true
	}
	return time.Now().After(t.ExpiresAt.Add(-buffer))
}

// Store tracks the credential state for a single session.
type Store interface {
	// GetTokenSet returns the current token set, or nil if the session
	// holds none. error indicates a storage failure we should not proceed
	// from.
	GetTokenSet() (*TokenSet, error)
	// SetTokenSet replaces the current token set.
	SetTokenSet(ts *TokenSet) error
	// GetCodeVerifier returns the pending PKCE verifier, or "" if no login
	// attempt is outstanding.
	GetCodeVerifier() (string, error)
	// SetCodeVerifier records the verifier for an in-progress login,
	// replacing any prior one.
	SetCodeVerifier(v string) error
	// DeleteCodeVerifier discards the pending verifier.
	DeleteCodeVerifier() error
	// Clear removes all credential state. Used on logout, and when a
	// refresh fails terminally.
	Clear() error
}

// Memory is a Store that tracks state in memory. It is mainly used for
// tests, and for processes that should not leave credentials on disk.
type Memory struct {
	mu       sync.Mutex
	tokens   *TokenSet
	verifier string
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) GetTokenSet() (*TokenSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tokens == nil {
		return nil, nil
	}
	ts := *m.tokens
	return &ts, nil
}

func (m *Memory) SetTokenSet(ts *TokenSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ts == nil {
		m.tokens = nil
		return nil
	}
	cp := *ts
	m.tokens = &cp
	return nil
}

func (m *Memory) GetCodeVerifier() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.verifier, nil
}

func (m *Memory) SetCodeVerifier(v string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verifier = v
	return nil
}

func (m *Memory) DeleteCodeVerifier() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verifier = ""
	return nil
}

func (m *Memory) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = nil
	m.verifier = ""
	return nil
}
