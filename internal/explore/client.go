// File: internal/explore/client.go
package explore

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/http2"
)

const (
	defaultDialTimeout         = 5 * time.Second
	defaultTLSHandshakeTimeout = 5 * time.Second
	defaultIdleConnTimeout     = 30 * time.Second
	// maxDrain bounds how much of a response body is read before closing.
	maxDrain = 64 << 10
)

// ClientConfig configures the link-checking HTTP client.
type ClientConfig struct {
	RequestTimeout  time.Duration
	IgnoreTLSErrors bool
	UserAgent       string
	Logger          *zap.Logger
}

// LinkChecker fetches a URL and reports the final HTTP status.
type LinkChecker interface {
	Check(ctx context.Context, url string) (int, error)
}

// HTTPLinkChecker checks links with GET requests.
type HTTPLinkChecker struct {
	client    *http.Client
	userAgent string
}

// NewHTTPLinkChecker builds a checker with a pooled transport.
func NewHTTPLinkChecker(cfg ClientConfig) *HTTPLinkChecker {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	dialer := &net.Dialer{Timeout: defaultDialTimeout, KeepAlive: 15 * time.Second}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: defaultTLSHandshakeTimeout,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     defaultIdleConnTimeout,
		ForceAttemptHTTP2:   true,
		TLSClientConfig: &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: cfg.IgnoreTLSErrors, //nolint:gosec // opt-in for self-signed staging hosts
		},
	}
	if err := http2.ConfigureTransport(transport); err != nil {
		cfg.Logger.Warn("Failed to configure HTTP/2 transport, falling back to HTTP/1.1", zap.Error(err))
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = "uiprobe-linkcheck/1.0"
	}
	return &HTTPLinkChecker{
		client:    &http.Client{Transport: transport, Timeout: cfg.RequestTimeout},
		userAgent: ua,
	}
}

// Check issues a GET and returns the status after redirects.
func (c *HTTPLinkChecker) Check(ctx context.Context, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrain))
	return resp.StatusCode, nil
}
