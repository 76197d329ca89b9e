package internal

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// HeaderTransport is a RoundTripper that adds default headers to requests
type HeaderTransport struct {
	Base    http.RoundTripper
	Headers http.Header
}

func (t *HeaderTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTrippers must not modify the caller's request.
	req = req.Clone(req.Context())
	for key, values := range t.Headers {
		if req.Header.Get(key) != "" {
			continue
		}
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

// ParseHeaders parses "Name: value" pairs as given on the command line
func ParseHeaders(pairs []string) (http.Header, error) {
	headers := http.Header{}
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q: want \"Name: value\"", pair)
		}
		headers.Add(name, strings.TrimSpace(value))
	}
	return headers, nil
}

// ClientOptions configures NewHTTPClient
type ClientOptions struct {
	Retries      int
	Timeout      time.Duration
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	// RPS limits the request rate across retries; 0 means no limit
	RPS     int
	Headers http.Header
	Logger  *slog.Logger
}

// NewHTTPClient returns a retrying client. Once retries are exhausted the
// last response is returned as is, so callers see the final status code.
func NewHTTPClient(opts ClientOptions) *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = opts.Retries
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 30 * time.Second
	if opts.RetryWaitMin > 0 {
		retryClient.RetryWaitMin = opts.RetryWaitMin
	}
	if opts.RetryWaitMax > 0 {
		retryClient.RetryWaitMax = opts.RetryWaitMax
	}
	retryClient.HTTPClient.Timeout = opts.Timeout
	retryClient.HTTPClient.Transport = &HeaderTransport{
		Base:    retryClient.HTTPClient.Transport,
		Headers: opts.Headers,
	}
	retryClient.Logger = nil
	if opts.Logger != nil {
		retryClient.Logger = opts.Logger
	}
	retryClient.ErrorHandler = func(resp *http.Response, err error, attempts int) (*http.Response, error) {
		if resp != nil {
			return resp, nil
		}
		return nil, fmt.Errorf("giving up after %d attempt(s): %w", attempts, err)
	}

	if opts.RPS > 0 {
		rps := opts.RPS
		retryClient.Backoff = func(min, max time.Duration, attemptNum int, resp *http.Response) time.Duration {
			// Ensure we wait at least 1/rps between requests
			minWait := time.Second / time.Duration(rps)
			if min < minWait {
				min = minWait
			}
			return retryablehttp.DefaultBackoff(min, max, attemptNum, resp)
		}
	}

	return retryClient.StandardClient()
}
