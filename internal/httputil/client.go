// Package httputil builds HTTP clients with retry behavior for talking to
// the GoodShelf backends.
package httputil

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
)

type leveledSlog struct {
	inner *slog.Logger
}

// re-writes HTTP client ERROR to WARN level (because of retries)
func (l leveledSlog) Error(msg string, keysAndValues ...any) {
	l.inner.Warn(msg, keysAndValues...)
}

func (l leveledSlog) Warn(msg string, keysAndValues ...any) {
	l.inner.Warn(msg, keysAndValues...)
}

func (l leveledSlog) Info(msg string, keysAndValues ...any) {
	l.inner.Info(msg, keysAndValues...)
}

func (l leveledSlog) Debug(msg string, keysAndValues ...any) {
	l.inner.Debug(msg, keysAndValues...)
}

type Option func(*retryablehttp.Client)

// WithMaxRetries sets the maximum number of retries for the HTTP client.
func WithMaxRetries(maxRetries int) Option {
	return func(client *retryablehttp.Client) {
		client.RetryMax = maxRetries
	}
}

// WithRetryWait fixes the wait between retries to the given bounds.
func WithRetryWait(waitMin, waitMax time.Duration) Option {
	return func(client *retryablehttp.Client) {
		client.RetryWaitMin = waitMin
		client.RetryWaitMax = waitMax
	}
}

// WithLogger sets a custom logger for the HTTP client.
func WithLogger(logger *slog.Logger) Option {
	return func(client *retryablehttp.Client) {
		client.Logger = retryablehttp.LeveledLogger(leveledSlog{inner: logger})
	}
}

// WithRetryPolicy sets a custom retry policy for the HTTP client.
func WithRetryPolicy(policy retryablehttp.CheckRetry) Option {
	return func(client *retryablehttp.Client) {
		client.CheckRetry = policy
	}
}

// WithTransport sets a custom transport for the HTTP client.
func WithTransport(transport http.RoundTripper) Option {
	return func(client *retryablehttp.Client) {
		client.HTTPClient.Transport = transport
	}
}

// NewClient returns an HTTP client with sane timeout and retry defaults.
// The returned client has the stdlib http.Client interface, with Hashicorp
// retryablehttp logic internally. By default it retries connection errors
// and 5xx responses up to twice, logging intermediate failures at WARN.
func NewClient(options ...Option) *http.Client {
	logger := leveledSlog{inner: slog.Default().With("subsystem", "httputil")}
	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient.Transport = cleanhttp.DefaultPooledTransport()
	retryClient.RetryMax = 2
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 10 * time.Second
	retryClient.Logger = retryablehttp.LeveledLogger(logger)
	retryClient.CheckRetry = retryablehttp.DefaultRetryPolicy

	for _, option := range options {
		option(retryClient)
	}

	client := retryClient.StandardClient()
	client.Timeout = 30 * time.Second
	return client
}

// ServerErrorPolicy retries only when the endpoint responded with a 5xx.
// Connection errors and 4xx responses are surfaced to the caller
// immediately.
func ServerErrorPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil || resp == nil {
		return false, err
	}
	return resp.StatusCode >= 500, nil
}
