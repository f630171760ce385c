// Package fetch retrieves remote content for archiving without reading the body.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
	"unicode/utf8"

	"golang.org/x/net/idna"
)

// ErrFetchFailed wraps every failure to obtain a 200 response from the source.
var ErrFetchFailed = errors.New("content fetch failed")

// StatusError reports a non-200 response from the source.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// Content is a validated, not yet consumed response from the source.
type Content struct {
	Body io.ReadCloser
	// Length is -1 when the source did not announce a Content-Length.
	Length int64
	// Type is empty when the source did not send a Content-Type.
	Type string
}

// Fetcher opens a remote source for streaming.
type Fetcher interface {
	Fetch(ctx context.Context, source string) (*Content, error)
}

// ClientConfig bounds the connection phases of outbound requests. The body
// transfer itself is not time-limited so large archives are not cut off.
type ClientConfig struct {
	DialTimeout           time.Duration
	TLSHandshakeTimeout   time.Duration
	ResponseHeaderTimeout time.Duration
	MaxIdleConnsPerHost   int
}

// DefaultClientConfig returns the timeouts used by the service.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		DialTimeout:           10 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		MaxIdleConnsPerHost:   8,
	}
}

// NewClient builds the outbound HTTP client. Transparent compression is
// disabled: the request carries no extra headers and bytes are relayed as sent.
func NewClient(cfg ClientConfig) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.DialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   cfg.TLSHandshakeTimeout,
		ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		DisableCompression:    true,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport}
}

// HTTPFetcher implements Fetcher with a plain GET.
type HTTPFetcher struct {
	client *http.Client
}

// New creates an HTTPFetcher. A nil client gets NewClient(DefaultClientConfig()).
func New(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = NewClient(DefaultClientConfig())
	}
	return &HTTPFetcher{client: client}
}

// Fetch issues a GET to source and returns the response once it is known to be
// a 200. The caller owns Content.Body and must close it.
func (f *HTTPFetcher) Fetch(ctx context.Context, source string) (*Content, error) {
	u, err := url.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("%w: parse source: %v", ErrFetchFailed, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("%w: source %q is not an absolute URL", ErrFetchFailed, source)
	}
	if err := asciiHost(u); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrFetchFailed, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, &StatusError{Code: resp.StatusCode})
	}

	return &Content{
		Body:   resp.Body,
		Length: resp.ContentLength,
		Type:   resp.Header.Get("Content-Type"),
	}, nil
}

// asciiHost rewrites an internationalized host name to its punycode form.
// ASCII hosts, IP literals included, are left alone.
func asciiHost(u *url.URL) error {
	name := u.Hostname()
	if isASCII(name) {
		return nil
	}
	ascii, err := idna.Lookup.ToASCII(name)
	if err != nil {
		return fmt.Errorf("host %q: %w", name, err)
	}
	if port := u.Port(); port != "" {
		ascii = net.JoinHostPort(ascii, port)
	}
	u.Host = ascii
	return nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
