package goodshelf

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/goodshelf/goodshelf-go/credstore"
	"github.com/goodshelf/goodshelf-go/internal/httputil"
)

// callbackTimeout bounds the whole callback exchange, including the one
// retry, so a stalled token endpoint surfaces as an error instead of a
// hang.
const callbackTimeout = 30 * time.Second

// exchangeRetryWait is how long we pause before the single retry of a
// failed code exchange.
const exchangeRetryWait = 1 * time.Second

// Config carries the settings registered with the authorization server.
type Config struct {
	// AuthServerURL is the base URL of the authorization server, e.g.
	// https://auth.goodshelf.example. The authorize, token and logout
	// endpoints are derived from it.
	AuthServerURL string
	// ClientID identifies this client to the authorization server.
	ClientID string
	// ClientSecret authenticates the client on token endpoint calls, via
	// HTTP Basic.
	ClientSecret string
	// RedirectURL is where the server sends the user back with a code. It
	// must exactly match the value registered with the server.
	RedirectURL string
	// Scopes to request during login. Defaults to openid.
	Scopes []string
}

// Client drives the authorization-code-with-PKCE flow against the
// GoodShelf authorization server, persisting results in a credstore.Store.
type Client struct {
	store credstore.Store

	o2cfg     oauth2.Config
	logoutURL string

	exchangeClient *http.Client
	refreshClient  *http.Client
}

// ClientOpt can be used to customize the client.
type ClientOpt func(*Client)

// WithExchangeHTTPClient overrides the HTTP client used for the callback
// code exchange. The default retries a 5xx response once after a fixed
// one-second wait.
func WithExchangeHTTPClient(hc *http.Client) ClientOpt {
	return func(c *Client) {
		c.exchangeClient = hc
	}
}

// WithRefreshHTTPClient overrides the HTTP client used for refresh-token
// grants. The default performs no retries: a failed refresh terminates the
// session, it is never retried silently.
func WithRefreshHTTPClient(hc *http.Client) ClientOpt {
	return func(c *Client) {
		c.refreshClient = hc
	}
}

// NewClient creates a Client for the given configuration, storing
// credentials in store.
func NewClient(cfg Config, store credstore.Store, opts ...ClientOpt) (*Client, error) {
	if cfg.AuthServerURL == "" {
		return nil, errors.New("goodshelf: AuthServerURL is required")
	}
	if cfg.ClientID == "" {
		return nil, errors.New("goodshelf: ClientID is required")
	}
	if cfg.RedirectURL == "" {
		return nil, errors.New("goodshelf: RedirectURL is required")
	}
	if store == nil {
		return nil, errors.New("goodshelf: credential store is required")
	}

	base := strings.TrimRight(cfg.AuthServerURL, "/")

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{ScopeOpenID}
	}

	c := &Client{
		store: store,
		o2cfg: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  base + "/oauth2/authorize",
				TokenURL: base + "/oauth2/token",
				// Client credentials go in the Authorization header, not
				// the form body.
				AuthStyle: oauth2.AuthStyleInHeader,
			},
			RedirectURL: cfg.RedirectURL,
			Scopes:      scopes,
		},
		logoutURL: base + "/logout",
	}

	for _, o := range opts {
		o(c)
	}

	if c.exchangeClient == nil {
		c.exchangeClient = httputil.NewClient(
			httputil.WithMaxRetries(1),
			httputil.WithRetryWait(exchangeRetryWait, exchangeRetryWait),
			httputil.WithRetryPolicy(httputil.ServerErrorPolicy),
		)
	}
	if c.refreshClient == nil {
		c.refreshClient = httputil.NewClient(httputil.WithMaxRetries(0))
	}

	return c, nil
}

// Store returns the credential store this client persists to.
func (c *Client) Store() credstore.Store {
	return c.store
}

// LoginURL begins a login attempt: it generates a fresh PKCE verifier,
// persists it as the pending login state, and returns the authorization
// URL the user agent should be sent to.
//
// Only one login attempt can be pending at a time; starting another
// overwrites the previous verifier, so two interleaved attempts (for
// example from two browser tabs) cannot both complete.
func (c *Client) LoginURL() (string, error) {
	verifier := generateCodeVerifier()
	if err := c.store.SetCodeVerifier(verifier); err != nil {
		return "", fmt.Errorf("persisting code verifier: %w", err)
	}

	return c.o2cfg.AuthCodeURL("",
		oauth2.SetAuthURLParam("code_challenge", generateCodeChallenge(verifier)),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	), nil
}

// HandleCallback exchanges the authorization code from the redirect for a
// token set, persists it, and returns it.
//
// The pending verifier is consumed whether or not the exchange succeeds: a
// failed exchange may still have spent the code, and a verifier tied to a
// spent code can never be used again. A 5xx from the token endpoint is
// retried once; every other failure surfaces immediately. With no pending
// verifier this fails with ErrMissingVerifier before any network call.
func (c *Client) HandleCallback(ctx context.Context, code string) (*credstore.TokenSet, error) {
	verifier, err := c.store.GetCodeVerifier()
	if err != nil {
		return nil, fmt.Errorf("loading code verifier: %w", err)
	}
	if verifier == "" {
		return nil, ErrMissingVerifier
	}
	defer func() {
		_ = c.store.DeleteCodeVerifier()
	}()

	ctx, cancel := context.WithTimeout(ctx, callbackTimeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.exchangeClient)

	tok, err := c.o2cfg.Exchange(ctx, code,
		oauth2.SetAuthURLParam("code_verifier", verifier),
	)
	if err != nil {
		return nil, parseTokenError(err)
	}

	ts := &credstore.TokenSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
	}
	if err := c.store.SetTokenSet(ts); err != nil {
		return nil, fmt.Errorf("persisting tokens: %w", err)
	}
	return ts, nil
}

// Logout clears all stored credentials and returns the authorization
// server's logout URL for the user agent to visit. Local state is cleared
// first, so the session ends even if the navigation never happens.
func (c *Client) Logout() (string, error) {
	if err := c.store.Clear(); err != nil {
		return "", fmt.Errorf("clearing credentials: %w", err)
	}
	return c.logoutURL, nil
}

// refreshTokenSet performs a refresh_token grant and returns the reissued
// token set. The server may rotate the refresh token; if it does not send
// a new one, the current one is carried forward.
func (c *Client) refreshTokenSet(ctx context.Context, refreshToken string) (*credstore.TokenSet, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.refreshClient)

	tok, err := c.o2cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, parseTokenError(err)
	}

	return &credstore.TokenSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
	}, nil
}
