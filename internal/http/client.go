package http

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/proxy"

	"github.com/handiism/myzuka-downloader/internal/retry"
)

const (
	// DefaultUserAgent mimics a desktop browser; the site serves a reduced
	// page to unknown agents.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/81.0.4044.138 Safari/537.36"

	// DefaultReferer is sent with every request.
	DefaultReferer = "http://myzuka.club"

	// DefaultTimeout bounds each network phase of a request.
	DefaultTimeout = 10 * time.Second
)

// Config configures a Client. Zero values fall back to the defaults above
// and to an unbounded retry policy with a 5-15s random backoff.
type Config struct {
	// Timeout bounds connect, TLS handshake, response headers and the gap
	// between two body reads. It never bounds a whole transfer.
	Timeout time.Duration

	// SocksProxy is an optional "host:port" SOCKS5 proxy. Host names are
	// resolved by the proxy.
	SocksProxy string

	UserAgent string
	Referer   string

	// Retry governs transient failures.
	Retry *retry.Policy

	Logger zerolog.Logger
}

// Client wraps HTTP operations with myzuka-specific configuration.
//
// Client provides:
//   - Browser-like User-Agent and site Referer headers
//   - Per-phase timeouts plus a body inactivity watchdog
//   - Optional SOCKS5 proxying
//   - Retries of transient failures under a retry.Policy
//
// Example usage:
//
//	client, err := NewClient(Config{SocksProxy: "127.0.0.1:9050"})
//
//	// Fetch HTML content
//	html, err := client.GetString(ctx, "http://myzuka.club/Artist/5633")
//
//	// Resume a file from byte 1000
//	resp, err := client.Open(ctx, fileURL, "bytes=1000-")
type Client struct {
	httpClient *http.Client
	userAgent  string
	referer    string
	timeout    time.Duration
	retry      *retry.Policy
	log        zerolog.Logger
}

// NewClient creates a new HTTP client. It fails only when the proxy
// address is malformed.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Referer == "" {
		cfg.Referer = DefaultReferer
	}
	if cfg.Retry == nil {
		cfg.Retry = retry.Unbounded(retry.RandomBackoff(5*time.Second, 15*time.Second))
	}

	dialer := &net.Dialer{Timeout: cfg.Timeout, KeepAlive: 30 * time.Second}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   cfg.Timeout,
		ResponseHeaderTimeout: cfg.Timeout,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConnsPerHost:   8,
		// Transparent gzip would hide Content-Length and break ranges.
		DisableCompression: true,
	}

	if cfg.SocksProxy != "" {
		dial, err := socksDialer(cfg.SocksProxy, dialer)
		if err != nil {
			return nil, err
		}
		transport.Proxy = nil
		transport.DialContext = dial
	}

	return &Client{
		httpClient: &http.Client{Transport: transport},
		userAgent:  cfg.UserAgent,
		referer:    cfg.Referer,
		timeout:    cfg.Timeout,
		retry:      cfg.Retry,
		log:        cfg.Logger,
	}, nil
}

func socksDialer(addr string, forward *net.Dialer) (func(ctx context.Context, network, address string) (net.Conn, error), error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("socks proxy %q: %w", addr, err)
	}
	if n, err := strconv.Atoi(port); err != nil || n <= 0 || n > 65535 {
		return nil, fmt.Errorf("socks proxy %q: port must be a number between 1 and 65535", addr)
	}
	if host == "" {
		return nil, fmt.Errorf("socks proxy %q: missing host", addr)
	}

	d, err := proxy.SOCKS5("tcp", addr, nil, forward)
	if err != nil {
		return nil, fmt.Errorf("socks proxy %q: %w", addr, err)
	}
	cd, ok := d.(proxy.ContextDialer)
	if !ok {
		return nil, fmt.Errorf("socks proxy %q: dialer does not support contexts", addr)
	}
	return cd.DialContext, nil
}

// ProgressWriter wraps a writer to track download progress.
//
// Example:
//
//	pw := &ProgressWriter{
//	    Writer:  file,
//	    Written: existing,
//	    Total:   contentLength,
//	    OnUpdate: func(written, total int64) {
//	        fmt.Printf("%d / %d bytes\n", written, total)
//	    },
//	}
//	io.Copy(pw, response.Body)
type ProgressWriter struct {
	// Writer is the underlying writer to write data to.
	Writer io.Writer

	// Total is the expected total bytes, or zero when unknown.
	Total int64

	// Written is the current number of bytes written. Seed it with the
	// existing file size when appending.
	Written int64

	// OnUpdate is called after each Write with current progress.
	OnUpdate func(written, total int64)
}

// Write implements io.Writer, tracking progress and calling OnUpdate.
func (pw *ProgressWriter) Write(p []byte) (int, error) {
	n, err := pw.Writer.Write(p)
	pw.Written += int64(n)
	if pw.OnUpdate != nil {
		pw.OnUpdate(pw.Written, pw.Total)
	}
	return n, err
}

// Open performs a GET request and returns the response with its body
// unread. rangeHeader, when non-empty, is sent as the Range header.
//
// Transient failures are retried according to the client's policy. The
// returned body is guarded by the inactivity watchdog and must be closed.
// Any status below 400 is returned to the caller, which decides what a
// 200 answer to a ranged request means.
func (c *Client) Open(ctx context.Context, url, rangeHeader string) (*http.Response, error) {
	return c.do(ctx, http.MethodGet, url, rangeHeader)
}

// Head performs a HEAD request with the same retry behaviour as Open.
func (c *Client) Head(ctx context.Context, url string) (*http.Response, error) {
	resp, err := c.do(ctx, http.MethodHead, url, "")
	if err != nil {
		return nil, err
	}
	resp.Body.Close()
	return resp, nil
}

// HeadOnce performs a single HEAD request without retrying. Callers that
// bound their own attempts, such as size lookups, count each call as one.
func (c *Client) HeadOnce(ctx context.Context, url string) (*http.Response, error) {
	resp, err := c.attempt(ctx, http.MethodHead, url, "")
	if err != nil {
		return nil, err
	}
	resp.Body.Close()
	return resp, nil
}

// GetString performs a GET request and returns the response body as a
// string. A body that fails mid-read is fetched again.
//
// Example:
//
//	html, err := client.GetString(ctx, "http://myzuka.club/Album/630746")
func (c *Client) GetString(ctx context.Context, url string) (string, error) {
	var body []byte
	err := c.retrying(ctx, http.MethodGet, url, func() error {
		resp, err := c.attempt(ctx, http.MethodGet, url, "")
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		body, err = io.ReadAll(resp.Body)
		return err
	})
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (c *Client) do(ctx context.Context, method, url, rangeHeader string) (*http.Response, error) {
	var resp *http.Response
	err := c.retrying(ctx, method, url, func() error {
		r, err := c.attempt(ctx, method, url, rangeHeader)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) retrying(ctx context.Context, method, url string, fn func() error) error {
	return c.retry.Do(ctx, func(attempt int) error {
		err := fn()
		if err == nil || ctx.Err() != nil {
			return err
		}
		if !IsTransient(err) {
			c.log.Debug().Err(err).Str("method", method).Str("url", url).Msg("request failed permanently")
			return retry.Permanent(err)
		}
		c.log.Warn().Err(err).Str("method", method).Str("url", url).Int("attempt", attempt).
			Msg("connection problem, reconnecting")
		return err
	})
}

// attempt makes exactly one request. On success the body is wrapped in a
// watchdog owning the request's cancel function.
func (c *Client) attempt(ctx context.Context, method, url, rangeHeader string) (*http.Response, error) {
	reqCtx, cancel := context.WithCancel(ctx)

	req, err := http.NewRequestWithContext(reqCtx, method, url, nil)
	if err != nil {
		cancel()
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Referer", c.referer)
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		cancel()
		return nil, err
	}

	if resp.StatusCode >= 400 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		cancel()
		return nil, &StatusError{Code: resp.StatusCode, URL: url}
	}

	c.log.Trace().Str("method", method).Str("url", url).Str("range", rangeHeader).
		Int("status", resp.StatusCode).Int64("length", resp.ContentLength).Msg("response")

	resp.Body = newWatchdogBody(resp.Body, c.timeout, cancel)
	return resp, nil
}
