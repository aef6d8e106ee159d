package goodshelf

import (
	"errors"
	"fmt"

	"golang.org/x/oauth2"
)

var (
	// ErrNoAccessToken indicates the session holds no access token at all.
	ErrNoAccessToken = errors.New("goodshelf: no access token available")
	// ErrNoRefreshToken indicates the access token is expired and there is
	// no refresh token to renew it with.
	ErrNoRefreshToken = errors.New("goodshelf: no refresh token available")
	// ErrMissingVerifier indicates a callback was processed with no pending
	// PKCE login attempt. This covers replayed callbacks, a second tab
	// finishing first, and expired sessions.
	ErrMissingVerifier = errors.New("goodshelf: no code verifier for login attempt")
	// ErrMalformedToken indicates the access token could not be decoded.
	// Callers should treat this as not authenticated and clear credentials.
	ErrMalformedToken = errors.New("goodshelf: malformed access token")
	// ErrSessionExpired indicates a refresh failed terminally. Stored
	// credentials have already been cleared; the user must log in again.
	ErrSessionExpired = errors.New("goodshelf: session expired, login required")
)

// TokenErrorCode are the error types the token endpoint can return.
type TokenErrorCode string

// https://tools.ietf.org/html/rfc6749#section-5.2
const (
	TokenErrorCodeInvalidRequest       TokenErrorCode = "invalid_request"
	TokenErrorCodeInvalidClient        TokenErrorCode = "invalid_client"
	TokenErrorCodeInvalidGrant         TokenErrorCode = "invalid_grant"
	TokenErrorCodeUnauthorizedClient   TokenErrorCode = "unauthorized_client"
	TokenErrorCodeUnsupportedGrantType TokenErrorCode = "unsupported_grant_type"
	TokenErrorCodeInvalidScope         TokenErrorCode = "invalid_scope"
)

// TokenError represents an error response from the token endpoint.
//
// https://tools.ietf.org/html/rfc6749#section-5.2
type TokenError struct {
	// StatusCode is the HTTP status the endpoint responded with.
	StatusCode int
	// Code indicates the type of error that occurred.
	Code TokenErrorCode
	// Description is the optional human-readable detail for the error.
	Description string
}

func (t *TokenError) Error() string {
	str := fmt.Sprintf("token endpoint error (http %d)", t.StatusCode)
	if t.Code != "" {
		str = fmt.Sprintf("%s %s", str, t.Code)
	}
	if t.Description != "" {
		str = fmt.Sprintf("%s: %s", str, t.Description)
	}
	return str
}

// ServerError reports whether the endpoint failed rather than rejected us.
func (t *TokenError) ServerError() bool {
	return t.StatusCode >= 500
}

// parseTokenError maps an error from an oauth2 grant call into our
// taxonomy. Responses from the endpoint become a *TokenError; anything else
// (no response, request setup) passes through unchanged.
func parseTokenError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		return &TokenError{
			StatusCode:  re.Response.StatusCode,
			Code:        TokenErrorCode(re.ErrorCode),
			Description: re.ErrorDescription,
		}
	}
	return err
}
