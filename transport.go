package goodshelf

import (
	"fmt"
	"log/slog"
	"net/http"
)

// Transport is an http.RoundTripper that authenticates outbound requests
// to the GoodShelf API.
//
// Outbound: when the session holds any access token, a valid one is
// obtained through the TokenManager (refreshing if needed) and attached as
// a bearer token. If no valid token can be obtained the request is aborted
// rather than sent unauthenticated; the caller sees an error wrapping
// ErrSessionExpired (or its cause) and should send the user back to login.
// Sessions holding no token at all pass through untouched.
//
// Inbound: a 401 from any request means the session is invalid regardless
// of what the pipeline believed, so stored credentials are cleared before
// the response is returned.
type Transport struct {
	manager *TokenManager
	base    http.RoundTripper
	logger  *slog.Logger
}

var _ http.RoundTripper = (*Transport)(nil)

// NewTransport wraps base (nil means http.DefaultTransport) with the
// authentication pipeline.
func NewTransport(manager *TokenManager, base http.RoundTripper) *Transport {
	return &Transport{
		manager: manager,
		base:    base,
		logger:  manager.logger,
	}
}

// NewHTTPClient returns an http.Client whose requests pass through the
// authentication pipeline.
func NewHTTPClient(manager *TokenManager) *http.Client {
	return &http.Client{Transport: NewTransport(manager, nil)}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ts, err := t.manager.client.store.GetTokenSet()
	if err != nil {
		return nil, fmt.Errorf("loading tokens: %w", err)
	}
	if ts == nil || ts.AccessToken == "" {
		// No session; let the resource server answer as it sees fit.
		return t.roundTripper().RoundTrip(req)
	}

	token, err := t.manager.AccessToken(req.Context())
	if err != nil {
		return nil, fmt.Errorf("authenticating %s %s: %w", req.Method, req.URL.Path, err)
	}

	// RoundTrippers must not mutate the caller's request.
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := t.roundTripper().RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		// The pipeline never knowingly sends an invalid token, so a 401
		// means the session itself is no longer good.
		t.logger.WarnContext(req.Context(), "got 401 from API, ending session", baseLogAttr,
			slog.String("path", req.URL.Path))
		if err := t.manager.client.store.Clear(); err != nil {
			t.logger.Warn("failed clearing credential store", baseLogAttr, errAttr(err))
		}
	}

	return resp, nil
}

func (t *Transport) roundTripper() http.RoundTripper {
	if t.base != nil {
		return t.base
	}
	return http.DefaultTransport
}
