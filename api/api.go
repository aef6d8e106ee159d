// Package api is a client for the GoodShelf REST API: books, reviews,
// comments, reactions, and account management.
//
// The client does no authentication itself. Callers that need
// authenticated access pass an http.Client built around
// goodshelf.Transport, which attaches and refreshes the bearer token.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/go-querystring/query"
)

// Client talks to the GoodShelf backends.
type Client struct {
	// baseURL of the resource server API, e.g.
	// https://api.goodshelf.example/api/v1
	baseURL string
	// accountURL of the auth server's account API, e.g.
	// https://auth.goodshelf.example/api
	accountURL string

	hc *http.Client
}

// New creates a Client. baseURL is the resource server API root,
// accountURL the auth server's account API root. hc is used for all
// requests; nil means http.DefaultClient, which sends no credentials.
func New(baseURL, accountURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		accountURL: strings.TrimRight(accountURL, "/"),
		hc:         hc,
	}
}

// Page is the pagination envelope the backend wraps list responses in.
type Page[T any] struct {
	Content       []T   `json:"content"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
	Number        int   `json:"number"`
	Size          int   `json:"size"`
}

// PageOptions selects a page of a listing.
type PageOptions struct {
	Page    int    `url:"page"`
	Size    int    `url:"size"`
	SortBy  string `url:"sortBy,omitempty"`
	SortDir string `url:"sortDir,omitempty"`
}

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	// ErrorCode is the machine-readable error identifier, when present.
	ErrorCode string `json:"error"`
	// Message is the human-readable detail, when present.
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	str := fmt.Sprintf("api error (http %d)", e.StatusCode)
	if e.ErrorCode != "" {
		str = fmt.Sprintf("%s %s", str, e.ErrorCode)
	}
	if e.Message != "" {
		str = fmt.Sprintf("%s: %s", str, e.Message)
	}
	return str
}

// NotFound reports whether err is an APIError with status 404.
func NotFound(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.StatusCode == http.StatusNotFound
}

// do issues a request and decodes a JSON response into out (skipped when
// out is nil). opts, when non-nil, is encoded into the query string.
func (c *Client) do(ctx context.Context, method, url string, opts any, body any, out any) error {
	if opts != nil {
		v, err := query.Values(opts)
		if err != nil {
			return fmt.Errorf("encoding query: %w", err)
		}
		if enc := v.Encode(); enc != "" {
			url = url + "?" + enc
		}
	}

	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding body: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		// best effort on the body; the status alone is still useful
		_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(apiErr)
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func (c *Client) resourceURL(format string, args ...any) string {
	return c.baseURL + fmt.Sprintf(format, args...)
}

func (c *Client) accountsURL(format string, args ...any) string {
	return c.accountURL + fmt.Sprintf(format, args...)
}
