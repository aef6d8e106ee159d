package goodshelf

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

// RoleAdmin is the role that unlocks the admin screens.
const RoleAdmin = "ADMIN"

// Identity is the user identity carried in an access token's claims.
type Identity struct {
	// UserID is the user's id at the resource server.
	UserID string
	// Username is the token subject.
	Username string
	// Roles granted to the user.
	Roles []string
	// Permissions granted to the user.
	Permissions []string
}

// IsAdmin reports whether the identity carries the admin role.
func (i *Identity) IsAdmin() bool {
	return slices.Contains(i.Roles, RoleAdmin)
}

// DecodeIdentity projects an access token's claims into an Identity.
//
// The token signature is NOT verified: the resource server verifies every
// request itself, and this projection only exists to drive display
// decisions like showing the admin navigation. It must never gate access
// to anything. An undecodable token fails with ErrMalformedToken, which
// callers should treat as not authenticated, clearing stored credentials.
func DecodeIdentity(accessToken string) (*Identity, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	id := &Identity{
		Roles:       stringClaim(claims, "roles"),
		Permissions: stringClaim(claims, "permissions"),
	}
	if sub, ok := claims["sub"].(string); ok {
		id.Username = sub
	}
	switch v := claims["user_id"].(type) {
	case string:
		id.UserID = v
	case float64:
		id.UserID = strconv.FormatInt(int64(v), 10)
	}

	return id, nil
}

// stringClaim extracts a string-array claim. JSON arrays decode as []any,
// so each element is coerced individually; non-strings are skipped.
func stringClaim(claims jwt.MapClaims, name string) []string {
	raw, ok := claims[name].([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
