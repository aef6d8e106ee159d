package goodshelf

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultExpiryBuffer is how long before the server-side expiry a token is
// treated as expired. It keeps us from sending a request with a token that
// expires mid-flight.
const DefaultExpiryBuffer = 30 * time.Second

// refreshCall is one in-flight refresh. Everyone who arrives while it is
// outstanding blocks on done and shares its outcome.
type refreshCall struct {
	done  chan struct{}
	token string
	err   error
}

// TokenManager decides whether the current access token is usable,
// refreshing it when it is not. Refreshes are single-flight: no matter how
// many callers ask at once, at most one refresh_token grant is on the wire,
// and all callers observe its result. This matters because the server
// rotates refresh tokens, so two concurrent refreshes would race to spend
// the same one and the loser would be logged out for no reason.
//
// A refresh that fails terminally clears the credential store (the stored
// refresh token is no longer trustworthy) and surfaces ErrSessionExpired.
type TokenManager struct {
	client *Client
	buffer time.Duration
	logger *slog.Logger

	mu       sync.Mutex
	inflight *refreshCall
}

// TokenManagerOpt can be used to customize the manager.
type TokenManagerOpt func(*TokenManager)

// WithExpiryBuffer overrides DefaultExpiryBuffer.
func WithExpiryBuffer(d time.Duration) TokenManagerOpt {
	return func(m *TokenManager) {
		m.buffer = d
	}
}

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(l *slog.Logger) TokenManagerOpt {
	return func(m *TokenManager) {
		m.logger = l
	}
}

// NewTokenManager creates a manager over the given client and its
// credential store.
func NewTokenManager(client *Client, opts ...TokenManagerOpt) *TokenManager {
	m := &TokenManager{
		client: client,
		buffer: DefaultExpiryBuffer,
	}
	for _, o := range opts {
		o(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	return m
}

// AccessToken returns an access token that is currently usable. If the
// stored one is still valid it is returned with no network call; if it is
// expired, AccessToken joins the single-flight refresh. It fails with
// ErrNoAccessToken when the session holds no token at all, and with
// ErrNoRefreshToken or ErrSessionExpired when the token cannot be renewed.
func (m *TokenManager) AccessToken(ctx context.Context) (string, error) {
	ts, err := m.client.store.GetTokenSet()
	if err != nil {
		return "", fmt.Errorf("loading tokens: %w", err)
	}
	if ts == nil || ts.AccessToken == "" {
		return "", ErrNoAccessToken
	}
	if !ts.Expired(m.buffer) {
		return ts.AccessToken, nil
	}
	return m.refresh(ctx)
}

// refresh returns the outcome of the current refresh cycle, starting one
// if none is in flight.
func (m *TokenManager) refresh(ctx context.Context) (string, error) {
	m.mu.Lock()
	if call := m.inflight; call != nil {
		m.mu.Unlock()
		select {
		case <-call.done:
			return call.token, call.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	call := &refreshCall{done: make(chan struct{})}
	m.inflight = call
	m.mu.Unlock()

	call.token, call.err = m.doRefresh(ctx)

	m.mu.Lock()
	m.inflight = nil
	m.mu.Unlock()
	close(call.done)

	return call.token, call.err
}

func (m *TokenManager) doRefresh(ctx context.Context) (string, error) {
	ts, err := m.client.store.GetTokenSet()
	if err != nil {
		return "", fmt.Errorf("loading tokens: %w", err)
	}
	if ts == nil || ts.RefreshToken == "" {
		m.clearSession()
		return "", ErrNoRefreshToken
	}

	newTS, err := m.client.refreshTokenSet(ctx, ts.RefreshToken)
	if err != nil {
		m.logger.WarnContext(ctx, "token refresh failed, ending session", baseLogAttr, errAttr(err))
		m.clearSession()
		return "", fmt.Errorf("%w: %w", ErrSessionExpired, err)
	}

	if err := m.client.store.SetTokenSet(newTS); err != nil {
		return "", fmt.Errorf("persisting refreshed tokens: %w", err)
	}

	m.logger.DebugContext(ctx, "access token refreshed", baseLogAttr,
		slog.Time("expires_at", newTS.ExpiresAt))

	return newTS.AccessToken, nil
}

func (m *TokenManager) clearSession() {
	if err := m.client.store.Clear(); err != nil {
		m.logger.Warn("failed clearing credential store", baseLogAttr, errAttr(err))
	}
}
