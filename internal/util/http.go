package util

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"os"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

type debugLogger interface {
	Debugf(string, ...any)
}

type HTTPClientOptions struct {
	Timeout     time.Duration
	UserAgent   string
	Cookie      string
	CookieFile  string
	Transport   http.RoundTripper
	DebugLogger debugLogger

	// CloudflareBypass wraps the base transport with browser-like TLS and
	// headers for sites fronted by Cloudflare's bot check.
	CloudflareBypass bool
}

// NewHTTPClient builds the client shared by the scraper and the list-page
// collector. Every request carries the configured User-Agent, the cookie
// header (inline cookie first, then the cookie file) and a Vietnamese
// Accept-Language unless the request sets its own.
func NewHTTPClient(opts HTTPClientOptions) (*http.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	base := opts.Transport
	if base == nil {
		base = defaultTransport()
	}
	if opts.CloudflareBypass {
		base = cloudflarebp.AddCloudFlareByPass(base)
	}

	cookie, err := joinCookies(opts.Cookie, opts.CookieFile)
	if err != nil {
		return nil, err
	}

	rt := &headerTransport{
		base:   base,
		ua:     opts.UserAgent,
		cookie: cookie,
		log:    opts.DebugLogger,
	}

	if rt.log != nil {
		rt.log.Debugf("http client: timeout=%s ua=%q cookie_file=%q cf_bypass=%v",
			opts.Timeout, opts.UserAgent, opts.CookieFile, opts.CloudflareBypass)
	}

	return &http.Client{Timeout: opts.Timeout, Transport: rt, Jar: jar}, nil
}

func defaultTransport() *http.Transport {
	return &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxConnsPerHost:     32,
		MaxIdleConnsPerHost: 32,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}
}

type headerTransport struct {
	base   http.RoundTripper
	ua     string
	cookie string
	log    debugLogger
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())

	if t.ua != "" {
		req.Header.Set("User-Agent", t.ua)
	}
	if t.cookie != "" && req.Header.Get("Cookie") == "" {
		req.Header.Set("Cookie", t.cookie)
	}
	if req.Header.Get("Accept-Language") == "" {
		req.Header.Set("Accept-Language", "vi-VN,vi;q=0.9,en;q=0.8")
	}

	if t.log != nil {
		t.log.Debugf("http: %s %s", req.Method, req.URL)
	}

	return t.base.RoundTrip(req)
}

// joinCookies appends the first non-blank line of file to the inline cookie.
// A missing file is an error.
func joinCookies(inline, file string) (string, error) {
	parts := []string{}
	if s := strings.TrimSpace(inline); s != "" {
		parts = append(parts, s)
	}

	if file != "" {
		b, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("cookie file: %w", err)
		}
		for _, line := range strings.Split(string(b), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				parts = append(parts, line)
				break
			}
		}
	}

	return strings.Join(parts, "; "), nil
}

// DoWithRetry sends req up to attempts times, sleeping a linearly growing
// backoff between tries. 4xx responses are returned as-is, only transport
// errors and 5xx are retried.
func DoWithRetry(ctx context.Context, c *http.Client, req *http.Request, attempts int, backoff time.Duration) (*http.Response, error) {
	attempts = max(1, attempts)

	var lastErr error
	for i := 1; i <= attempts; i++ {
		resp, err := c.Do(req.Clone(ctx))
		switch {
		case err != nil:
			lastErr = err
		case resp.StatusCode < 500:
			return resp, nil
		default:
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("HTTP %d after %d attempts", resp.StatusCode, attempts)
		}

		if i == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff * time.Duration(i)):
		}
	}

	return nil, lastErr
}

func PickUserAgent(override string) string {
	if override != "" {
		return override
	}

	return defaultUserAgent
}
