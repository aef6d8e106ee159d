package goodshelf

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goodshelf/goodshelf-go/credstore"
)

func TestLoginURL(t *testing.T) {
	client, store := newTestClient(t, &tokenEndpoint{})

	loginURL, err := client.LoginURL()
	if err != nil {
		t.Fatalf("LoginURL: %v", err)
	}

	u, err := url.Parse(loginURL)
	if err != nil {
		t.Fatalf("parsing login URL: %v", err)
	}
	if u.Path != "/oauth2/authorize" {
		t.Errorf("login URL path %q, want /oauth2/authorize", u.Path)
	}

	q := u.Query()
	verifier, err := store.GetCodeVerifier()
	if err != nil {
		t.Fatalf("reading verifier: %v", err)
	}
	if verifier == "" {
		t.Fatal("no verifier persisted by LoginURL")
	}

	want := url.Values{
		"client_id":             {testClientID},
		"redirect_uri":          {testRedirectURL},
		"response_type":         {"code"},
		"scope":                 {"openid"},
		"code_challenge":        {generateCodeChallenge(verifier)},
		"code_challenge_method": {"S256"},
	}
	if diff := cmp.Diff(want, q); diff != "" {
		t.Errorf("login URL query mismatch (-want +got):\n%s", diff)
	}

	// a second attempt replaces the pending verifier
	if _, err := client.LoginURL(); err != nil {
		t.Fatalf("second LoginURL: %v", err)
	}
	second, _ := store.GetCodeVerifier()
	if second == verifier {
		t.Error("second login attempt reused the verifier")
	}
}

func TestHandleCallback(t *testing.T) {
	te := &tokenEndpoint{
		accessToken:  "A",
		refreshToken: "R",
		expiresIn:    3600,
	}
	client, store := newTestClient(t, te)

	if err := store.SetCodeVerifier("v1"); err != nil {
		t.Fatal(err)
	}

	before := time.Now()
	ts, err := client.HandleCallback(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("HandleCallback: %v", err)
	}

	if ts.AccessToken != "A" || ts.RefreshToken != "R" {
		t.Errorf("got tokens %q/%q, want A/R", ts.AccessToken, ts.RefreshToken)
	}
	wantExpiry := before.Add(3600 * time.Second)
	if ts.ExpiresAt.Before(wantExpiry.Add(-5*time.Second)) || ts.ExpiresAt.After(wantExpiry.Add(5*time.Second)) {
		t.Errorf("ExpiresAt %v not within 5s of %v", ts.ExpiresAt, wantExpiry)
	}

	form := te.form(0)
	for key, want := range map[string]string{
		"grant_type":    "authorization_code",
		"code":          "abc123",
		"code_verifier": "v1",
		"redirect_uri":  testRedirectURL,
	} {
		if got := form.Get(key); got != want {
			t.Errorf("form %s = %q, want %q", key, got, want)
		}
	}
	if form.Get("client_secret") != "" {
		t.Error("client secret sent in form body, must only use Basic auth")
	}

	stored, err := store.GetTokenSet()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(ts, stored); diff != "" {
		t.Errorf("persisted TokenSet mismatch (-returned +stored):\n%s", diff)
	}

	if v, _ := store.GetCodeVerifier(); v != "" {
		t.Errorf("verifier %q still present after successful callback", v)
	}
}

func TestHandleCallbackMissingVerifier(t *testing.T) {
	te := &tokenEndpoint{accessToken: "A", refreshToken: "R", expiresIn: 3600}
	client, _ := newTestClient(t, te)

	_, err := client.HandleCallback(context.Background(), "abc123")
	if !errors.Is(err, ErrMissingVerifier) {
		t.Fatalf("got error %v, want ErrMissingVerifier", err)
	}
	if te.callCount() != 0 {
		t.Errorf("token endpoint called %d times, want 0", te.callCount())
	}
}

func TestHandleCallbackRetriesServerError(t *testing.T) {
	te := &tokenEndpoint{
		failures:     1,
		accessToken:  "A",
		refreshToken: "R",
		expiresIn:    3600,
	}
	client, store := newTestClient(t, te)

	if err := store.SetCodeVerifier("v1"); err != nil {
		t.Fatal(err)
	}

	ts, err := client.HandleCallback(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("HandleCallback after one 500: %v", err)
	}
	if ts.AccessToken != "A" {
		t.Errorf("got access token %q, want A", ts.AccessToken)
	}
	if te.callCount() != 2 {
		t.Errorf("token endpoint called %d times, want 2 (original + one retry)", te.callCount())
	}
}

func TestHandleCallbackPersistentServerError(t *testing.T) {
	te := &tokenEndpoint{failures: 10}
	client, store := newTestClient(t, te)

	if err := store.SetCodeVerifier("v1"); err != nil {
		t.Fatal(err)
	}

	_, err := client.HandleCallback(context.Background(), "abc123")
	if err == nil {
		t.Fatal("expected error from persistent 500s")
	}
	var te2 *TokenError
	if !errors.As(err, &te2) {
		t.Fatalf("got %T (%v), want *TokenError", err, err)
	}
	if te2.StatusCode != 500 || !te2.ServerError() {
		t.Errorf("got status %d, want 500 server error", te2.StatusCode)
	}
	if te.callCount() != 2 {
		t.Errorf("token endpoint called %d times, want exactly 2 (one retry)", te.callCount())
	}
	if v, _ := store.GetCodeVerifier(); v != "" {
		t.Error("verifier survived a failed callback")
	}
}

func TestHandleCallbackRejectedGrant(t *testing.T) {
	te := &tokenEndpoint{errStatus: 400, errCode: "invalid_grant"}
	client, store := newTestClient(t, te)

	if err := store.SetCodeVerifier("v1"); err != nil {
		t.Fatal(err)
	}

	_, err := client.HandleCallback(context.Background(), "abc123")
	var tokErr *TokenError
	if !errors.As(err, &tokErr) {
		t.Fatalf("got %T (%v), want *TokenError", err, err)
	}
	if tokErr.StatusCode != 400 || tokErr.Code != TokenErrorCodeInvalidGrant {
		t.Errorf("got %d/%s, want 400/invalid_grant", tokErr.StatusCode, tokErr.Code)
	}
	if !strings.Contains(tokErr.Error(), "invalid_grant") {
		t.Errorf("error string %q does not name the code", tokErr.Error())
	}
	if te.callCount() != 1 {
		t.Errorf("token endpoint called %d times, want 1 (4xx is not retried)", te.callCount())
	}
	if v, _ := store.GetCodeVerifier(); v != "" {
		t.Error("verifier survived a rejected callback")
	}
	if ts, _ := store.GetTokenSet(); ts != nil {
		t.Error("tokens persisted despite rejected callback")
	}
}

func TestLogout(t *testing.T) {
	client, store := newTestClient(t, &tokenEndpoint{})

	if err := store.SetTokenSet(&credstore.TokenSet{
		AccessToken:  "A",
		RefreshToken: "R",
		ExpiresAt:    time.Now().Add(time.Hour),
	}); err != nil {
		t.Fatal(err)
	}

	logoutURL, err := client.Logout()
	if err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if !strings.HasSuffix(logoutURL, "/logout") {
		t.Errorf("logout URL %q does not end in /logout", logoutURL)
	}
	if ts, _ := store.GetTokenSet(); ts != nil {
		t.Error("tokens survived logout")
	}
}
