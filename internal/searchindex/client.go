package searchindex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"subarchive/internal/services"
)

const (
	defaultTimeout    = 30 * time.Second
	contentTypeNDJSON = "application/x-ndjson"
	contentTypeJSON   = "application/json"
)

// Config describes the index client configuration.
type Config struct {
	URL        string
	Username   string
	Password   string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client posts documents and queries to the search index.
type Client struct {
	baseURL  *url.URL
	username string
	password string
	http     *http.Client
}

// New creates a Client from the supplied configuration.
func New(cfg Config) (*Client, error) {
	raw := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if raw == "" {
		return nil, services.Wrap(services.ErrConfiguration, "searchindex", "new", "index url is required", nil)
	}
	baseURL, err := url.Parse(raw)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "searchindex", "new", "parse index url", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:  baseURL,
		username: cfg.Username,
		password: cfg.Password,
		http:     client,
	}, nil
}

// BulkResult summarizes a bulk response.
type BulkResult struct {
	Items  int
	Failed int
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		Status int `json:"status"`
		Error  *struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error,omitempty"`
	} `json:"items"`
}

// Bulk submits a newline-delimited bulk payload. Item level failures reported
// by the index are returned as an error alongside the counts.
func (c *Client) Bulk(ctx context.Context, payload []byte) (BulkResult, error) {
	body, err := c.post(ctx, c.baseURL.JoinPath("_bulk"), contentTypeNDJSON, payload)
	if err != nil {
		return BulkResult{}, err
	}

	var decoded bulkResponse
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &decoded); err != nil {
			return BulkResult{}, services.Wrap(services.ErrExternalTool, "searchindex", "bulk", "decode bulk response", err)
		}
	}
	result := BulkResult{Items: len(decoded.Items)}
	var firstReason string
	for _, item := range decoded.Items {
		for _, op := range item {
			if op.Error != nil || op.Status >= 300 {
				result.Failed++
				if firstReason == "" && op.Error != nil {
					firstReason = op.Error.Type + ": " + op.Error.Reason
				}
			}
		}
	}
	if decoded.Errors || result.Failed > 0 {
		return result, services.Wrap(services.ErrExternalTool, "searchindex", "bulk",
			fmt.Sprintf("%d of %d items failed %s", result.Failed, result.Items, firstReason), nil)
	}
	return result, nil
}

type termQuery struct {
	Query struct {
		Term map[string]struct {
			Value string `json:"value"`
		} `json:"term"`
	} `json:"query"`
}

// DeleteByVideo removes every document in index whose youtube_id equals
// videoID and refreshes the index so the purge is visible immediately. It
// returns the number of deleted documents.
func (c *Client) DeleteByVideo(ctx context.Context, index, videoID string) (int, error) {
	var query termQuery
	query.Query.Term = map[string]struct {
		Value string `json:"value"`
	}{"youtube_id": {Value: videoID}}
	payload, err := json.Marshal(query)
	if err != nil {
		return 0, fmt.Errorf("encode delete query: %w", err)
	}

	endpoint := c.baseURL.JoinPath(index, "_delete_by_query")
	endpoint.RawQuery = url.Values{"refresh": {"true"}}.Encode()
	body, err := c.post(ctx, endpoint, contentTypeJSON, payload)
	if err != nil {
		return 0, err
	}
	var decoded struct {
		Deleted int `json:"deleted"`
	}
	_ = json.Unmarshal(body, &decoded)
	return decoded.Deleted, nil
}

// Ping checks that the index endpoint answers.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL.String(), nil)
	if err != nil {
		return fmt.Errorf("build ping request: %w", err)
	}
	c.applyAuth(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "searchindex", "ping", "index unreachable", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	if resp.StatusCode >= 400 {
		return services.Wrap(services.ErrExternalTool, "searchindex", "ping", "index returned "+resp.Status, nil)
	}
	return nil
}

func (c *Client) post(ctx context.Context, endpoint *url.URL, contentType string, payload []byte) ([]byte, error) {
	if c == nil {
		return nil, errors.New("searchindex: client is nil")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build index request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", contentTypeJSON)
	c.applyAuth(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "searchindex", endpoint.Path, "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "searchindex", endpoint.Path, "read response", err)
	}
	if resp.StatusCode >= 400 {
		snippet := strings.TrimSpace(string(body))
		if len(snippet) > 512 {
			snippet = snippet[:512]
		}
		return nil, services.Wrap(services.ErrExternalTool, "searchindex", endpoint.Path,
			fmt.Sprintf("index returned %s: %s", resp.Status, snippet), nil)
	}
	return body, nil
}

func (c *Client) applyAuth(req *http.Request) {
	if c.username != "" || c.password != "" {
		req.SetBasicAuth(c.username, c.password)
	}
}
