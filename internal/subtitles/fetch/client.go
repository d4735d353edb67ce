package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultUserAgent = "subarchive/dev"
	defaultTimeout   = 30 * time.Second
	// maxBodyBytes bounds a single caption download.
	maxBodyBytes = 64 << 20
)

// Config describes the caption download client configuration.
type Config struct {
	UserAgent  string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client downloads caption track bodies.
type Client struct {
	userAgent string
	timeout   time.Duration
	http      *http.Client
}

// New creates a Client from the supplied configuration.
func New(cfg Config) *Client {
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &Client{userAgent: userAgent, timeout: timeout, http: client}
}

// StatusError reports a non-success HTTP response.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("caption download failed (%s)", e.Status)
	}
	return fmt.Sprintf("caption download failed (%s): %s", e.Status, e.Body)
}

// Get downloads url within the configured timeout and returns the body.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	if c == nil {
		return nil, errors.New("fetch: client is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch: build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status, Body: strings.TrimSpace(string(body))}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("fetch: read body: %w", err)
	}
	return body, nil
}
