// Package instagram talks to an instagram-url-direct compatible provider.
package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// PostInfo describes the post owner and text.
type PostInfo struct {
	OwnerUsername string `json:"owner_username"`
	OwnerFullname string `json:"owner_fullname"`
	Caption       string `json:"caption"`
}

// MediaDetail is one media entry with its declared type.
type MediaDetail struct {
	Type      string `json:"type"`
	URL       string `json:"url"`
	Thumbnail string `json:"thumbnail"`
}

// Post is the provider response.
type Post struct {
	ResultsNumber int           `json:"results_number"`
	URLList       []string      `json:"url_list"`
	PostInfo      PostInfo      `json:"post_info"`
	MediaDetails  []MediaDetail `json:"media_details"`
}

// StatusError is returned when the provider responds with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.Code, e.Body)
}

// Client resolves Instagram posts into direct media URLs.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
}

// NewClient creates a new Instagram provider client.
func NewClient(baseURL, userAgent string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
	}
}

// Fetch resolves postURL with the given API version.
func (c *Client) Fetch(ctx context.Context, postURL, version string) (*Post, error) {
	q := url.Values{}
	q.Set("url", postURL)
	if version != "" {
		q.Set("version", version)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/instagram?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	var post Post
	if err := json.NewDecoder(resp.Body).Decode(&post); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &post, nil
}
