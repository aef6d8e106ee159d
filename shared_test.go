package goodshelf

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/goodshelf/goodshelf-go/credstore"
	"github.com/goodshelf/goodshelf-go/internal/httputil"
)

const (
	testClientID     = "client_admin"
	testClientSecret = "admin"
	testRedirectURL  = "http://localhost:3000/oauth/callback"
)

// tokenEndpoint is a scriptable stand-in for the authorization server's
// token endpoint.
type tokenEndpoint struct {
	t *testing.T

	// failures is how many leading requests answer 500 before the
	// endpoint starts succeeding.
	failures int
	// errStatus and errCode make every request fail with the given
	// OAuth2 error response.
	errStatus int
	errCode   string
	// delay is applied before answering, to widen concurrency windows.
	delay time.Duration

	accessToken  string
	refreshToken string
	expiresIn    int

	mu    sync.Mutex
	calls int
	forms []url.Values
}

func (te *tokenEndpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if te.delay > 0 {
		time.Sleep(te.delay)
	}

	if id, secret, ok := r.BasicAuth(); !ok || id != testClientID || secret != testClientSecret {
		te.t.Errorf("token request without expected Basic credentials (got %q ok=%t)", id, ok)
	}
	if err := r.ParseForm(); err != nil {
		te.t.Errorf("parsing token request form: %v", err)
	}

	te.mu.Lock()
	te.calls++
	call := te.calls
	te.forms = append(te.forms, r.PostForm)
	te.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	if call <= te.failures {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":"server_error"}`)
		return
	}
	if te.errStatus != 0 {
		w.WriteHeader(te.errStatus)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error":             te.errCode,
			"error_description": "the grant was rejected",
		})
		return
	}

	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token":  te.accessToken,
		"refresh_token": te.refreshToken,
		"token_type":    "bearer",
		"expires_in":    te.expiresIn,
		"scope":         "openid",
	})
}

func (te *tokenEndpoint) callCount() int {
	te.mu.Lock()
	defer te.mu.Unlock()
	return te.calls
}

func (te *tokenEndpoint) form(i int) url.Values {
	te.mu.Lock()
	defer te.mu.Unlock()
	if i >= len(te.forms) {
		te.t.Fatalf("no form recorded for call %d", i)
	}
	return te.forms[i]
}

// newTestClient wires a Client and in-memory store against a httptest
// authorization server fronting te. The exchange client keeps the
// 5xx-only retry policy but waits a millisecond instead of a second so
// tests stay fast.
func newTestClient(t *testing.T, te *tokenEndpoint) (*Client, *credstore.Memory) {
	t.Helper()
	te.t = t

	mux := http.NewServeMux()
	mux.Handle("/oauth2/token", te)
	svr := httptest.NewServer(mux)
	t.Cleanup(svr.Close)

	store := credstore.NewMemory()
	client, err := NewClient(Config{
		AuthServerURL: svr.URL,
		ClientID:      testClientID,
		ClientSecret:  testClientSecret,
		RedirectURL:   testRedirectURL,
	}, store,
		WithExchangeHTTPClient(httputil.NewClient(
			httputil.WithMaxRetries(1),
			httputil.WithRetryWait(time.Millisecond, time.Millisecond),
			httputil.WithRetryPolicy(httputil.ServerErrorPolicy),
		)),
	)
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}
	return client, store
}

// testJWT builds an unsigned but well-formed JWT carrying claims.
func testJWT(t *testing.T, claims map[string]any) string {
	t.Helper()
	payload, err := json.Marshal(claims)
	if err != nil {
		t.Fatalf("marshaling claims: %v", err)
	}
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	return header + "." + base64.RawURLEncoding.EncodeToString(payload) + ".sig"
}
