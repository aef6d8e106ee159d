package goodshelf

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"io"
)

// generateCodeVerifier returns a fresh PKCE code verifier: 32 bytes of
// cryptographically secure randomness, base64url encoded without padding.
// A verifier must never be reused across login attempts.
func generateCodeVerifier() string {
	randomBytes := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, randomBytes); err != nil {
		panic(err) // this should never fail in a recoverable way
	}
	return base64.RawURLEncoding.EncodeToString(randomBytes)
}

// generateCodeChallenge derives the S256 challenge for a verifier, per RFC
// 7636: base64url(SHA-256(verifier)), no padding.
func generateCodeChallenge(verifier string) string {
	h := sha256.New()
	h.Write([]byte(verifier))
	hashed := h.Sum(nil)
	return base64.RawURLEncoding.EncodeToString(hashed)
}
