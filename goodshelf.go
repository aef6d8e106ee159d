// Package goodshelf implements the client side of GoodShelf's OAuth2
// authorization-code flow with PKCE, and manages the lifecycle of the
// issued tokens.
//
// A Client drives the redirect round trip (login URL, callback code
// exchange, logout) against the authorization server. A TokenManager keeps
// the access token usable, refreshing it through a single-flight
// coordinator so concurrent callers never race a rotated refresh token. A
// Transport attaches the resulting bearer token to outbound API requests.
// Credentials live in a credstore.Store supplied by the caller.
package goodshelf

import "log/slog"

// Scopes requested by default during login.
const ScopeOpenID = "openid"

var baseLogAttr = slog.String("component", "goodshelf-auth")

func errAttr(err error) slog.Attr { return slog.String("err", err.Error()) }
