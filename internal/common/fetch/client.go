// Package fetch is the shared HTTP layer for source fetchers: bounded
// retries with exponential backoff per network call, user-agent
// rotation, and anti-bot challenge detection.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrChallenge marks a response body recognized as an anti-bot
// challenge page. Fetchers stop pagination for the source immediately.
var ErrChallenge = errors.New("challenge page detected")

// StatusError is a non-success HTTP status from a source.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.Code, e.URL)
}

var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0 Safari/537.36",
}

var challengeMarkers = []string{
	"cf-chl-opt",
	"cdn-cgi/challenge-platform",
	"just a moment...",
	"enable javascript and cookies to continue",
}

// Config holds shared client settings.
type Config struct {
	UserAgent  string
	ProxyURL   string
	MaxRetries int
	Timeout    time.Duration
}

// Client wraps net/http with the retry and rotation policy every
// fetcher shares. Safe for concurrent use.
type Client struct {
	http       *http.Client
	userAgents []string
	maxRetries int
}

// NewClient builds a Client from config, applying defaults.
func NewClient(cfg Config) *Client {
	transport := &http.Transport{
		MaxIdleConns:    10,
		IdleConnTimeout: 30 * time.Second,
	}
	if cfg.ProxyURL != "" {
		if proxy, err := url.Parse(cfg.ProxyURL); err == nil {
			transport.Proxy = http.ProxyURL(proxy)
		}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 3
	}
	agents := defaultUserAgents
	if cfg.UserAgent != "" {
		agents = []string{cfg.UserAgent}
	}
	return &Client{
		http: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		userAgents: agents,
		maxRetries: retries,
	}
}

// Get fetches a page with retries. Network errors and 5xx responses
// are retried with exponential backoff (1s doubling, capped at 8s);
// 4xx responses return a StatusError immediately. A recognized
// challenge page returns the body together with ErrChallenge.
func (c *Client) Get(ctx context.Context, pageURL string, headers map[string]string) (string, error) {
	var lastErr error
	backoff := time.Second

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > 8*time.Second {
				backoff = 8 * time.Second
			}
		}

		body, err := c.getOnce(ctx, pageURL, headers)
		if err == nil {
			if LooksLikeChallenge(body) {
				return body, ErrChallenge
			}
			return body, nil
		}

		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.Code < 500 {
			return "", err
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err
	}
	return "", lastErr
}

func (c *Client) getOnce(ctx context.Context, pageURL string, headers map[string]string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.UserAgent())
	req.Header.Set("Accept-Language", "de-DE,de;q=0.9,en;q=0.8")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", &StatusError{Code: resp.StatusCode, URL: pageURL}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(body), nil
}

// UserAgent returns a random agent from the rotation.
func (c *Client) UserAgent() string {
	return c.userAgents[rand.Intn(len(c.userAgents))]
}

// LooksLikeChallenge reports whether a response body matches a known
// anti-bot challenge marker.
func LooksLikeChallenge(body string) bool {
	if body == "" {
		return false
	}
	lowered := strings.ToLower(body)
	for _, marker := range challengeMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}
