package goodshelf

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goodshelf/goodshelf-go/credstore"
)

func seedTokens(t *testing.T, store credstore.Store, access, refresh string, expiresAt time.Time) {
	t.Helper()
	if err := store.SetTokenSet(&credstore.TokenSet{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt,
	}); err != nil {
		t.Fatal(err)
	}
}

func TestAccessTokenNoSession(t *testing.T) {
	te := &tokenEndpoint{}
	client, _ := newTestClient(t, te)
	m := NewTokenManager(client)

	_, err := m.AccessToken(context.Background())
	if !errors.Is(err, ErrNoAccessToken) {
		t.Fatalf("got %v, want ErrNoAccessToken", err)
	}
	if te.callCount() != 0 {
		t.Errorf("token endpoint called %d times, want 0", te.callCount())
	}
}

func TestAccessTokenStillValid(t *testing.T) {
	te := &tokenEndpoint{}
	client, store := newTestClient(t, te)
	m := NewTokenManager(client)

	seedTokens(t, store, "current", "R", time.Now().Add(time.Hour))

	tok, err := m.AccessToken(context.Background())
	if err != nil {
		t.Fatalf("AccessToken: %v", err)
	}
	if tok != "current" {
		t.Errorf("got token %q, want current", tok)
	}
	if te.callCount() != 0 {
		t.Errorf("token endpoint called %d times for a valid token, want 0", te.callCount())
	}
}

func TestAccessTokenRefreshesWithinBuffer(t *testing.T) {
	te := &tokenEndpoint{accessToken: "fresh", refreshToken: "R2", expiresIn: 3600}
	client, store := newTestClient(t, te)
	m := NewTokenManager(client)

	// expires in 10s, inside the 30s buffer, so it counts as expired
	seedTokens(t, store, "stale", "R", time.Now().Add(10*time.Second))

	tok, err := m.AccessToken(context.Background())
	if err != nil {
		t.Fatalf("AccessToken: %v", err)
	}
	if tok != "fresh" {
		t.Errorf("got token %q, want fresh", tok)
	}
	if te.callCount() != 1 {
		t.Errorf("token endpoint called %d times, want 1", te.callCount())
	}

	form := te.form(0)
	if form.Get("grant_type") != "refresh_token" || form.Get("refresh_token") != "R" {
		t.Errorf("unexpected refresh form: %v", form)
	}

	stored, err := store.GetTokenSet()
	if err != nil {
		t.Fatal(err)
	}
	if stored.AccessToken != "fresh" || stored.RefreshToken != "R2" {
		t.Errorf("rotated tokens not persisted, got %q/%q", stored.AccessToken, stored.RefreshToken)
	}
}

func TestAccessTokenSingleFlight(t *testing.T) {
	te := &tokenEndpoint{
		accessToken:  "fresh",
		refreshToken: "R2",
		expiresIn:    3600,
		delay:        100 * time.Millisecond,
	}
	client, store := newTestClient(t, te)
	m := NewTokenManager(client)

	seedTokens(t, store, "stale", "R", time.Now().Add(-time.Hour))

	const workers = 10
	var wg sync.WaitGroup
	tokens := make([]string, workers)
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], errs[i] = m.AccessToken(context.Background())
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if tokens[i] != "fresh" {
			t.Errorf("caller %d got token %q, want fresh", i, tokens[i])
		}
	}
	if te.callCount() != 1 {
		t.Errorf("token endpoint called %d times for %d concurrent callers, want 1", te.callCount(), workers)
	}
}

func TestAccessTokenRefreshFailureEndsSession(t *testing.T) {
	te := &tokenEndpoint{
		errStatus: 400,
		errCode:   "invalid_grant",
		delay:     200 * time.Millisecond,
	}
	client, store := newTestClient(t, te)
	m := NewTokenManager(client)

	seedTokens(t, store, "stale", "R", time.Now().Add(-time.Hour))

	const workers = 5
	var wg sync.WaitGroup
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = m.AccessToken(context.Background())
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		if !errors.Is(errs[i], ErrSessionExpired) {
			t.Errorf("caller %d got %v, want ErrSessionExpired", i, errs[i])
		}
	}
	if te.callCount() != 1 {
		t.Errorf("token endpoint called %d times, want 1 (refresh is never retried)", te.callCount())
	}

	ts, err := store.GetTokenSet()
	if err != nil {
		t.Fatal(err)
	}
	if ts != nil {
		t.Errorf("store still holds tokens after terminal refresh failure: %+v", ts)
	}
}

func TestAccessTokenNoRefreshToken(t *testing.T) {
	te := &tokenEndpoint{}
	client, store := newTestClient(t, te)
	m := NewTokenManager(client)

	seedTokens(t, store, "stale", "", time.Now().Add(-time.Hour))

	_, err := m.AccessToken(context.Background())
	if !errors.Is(err, ErrNoRefreshToken) {
		t.Fatalf("got %v, want ErrNoRefreshToken", err)
	}
	if te.callCount() != 0 {
		t.Errorf("token endpoint called %d times, want 0", te.callCount())
	}
	if ts, _ := store.GetTokenSet(); ts != nil {
		t.Error("unrenewable session not cleared")
	}
}

func TestWithExpiryBuffer(t *testing.T) {
	te := &tokenEndpoint{}
	client, store := newTestClient(t, te)
	m := NewTokenManager(client, WithExpiryBuffer(0))

	// valid for 10s with no buffer, so no refresh should happen
	seedTokens(t, store, "current", "R", time.Now().Add(10*time.Second))

	tok, err := m.AccessToken(context.Background())
	if err != nil {
		t.Fatalf("AccessToken: %v", err)
	}
	if tok != "current" {
		t.Errorf("got token %q, want current", tok)
	}
	if te.callCount() != 0 {
		t.Errorf("token endpoint called %d times, want 0", te.callCount())
	}
}
