// Package tiktok talks to a tiktok-api-dl compatible download provider.
//
// The provider exposes several protocol versions behind one endpoint and a
// version selector. Each version returns its own payload shape; Fetch decodes
// into the shape matching the requested version and leaves mapping to callers.
package tiktok

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Supported protocol versions.
const (
	VersionV2 = "v2"
	VersionV3 = "v3"
)

// Content types reported by the provider.
const (
	TypeVideo = "video"
	TypeImage = "image"
)

var (
	// ErrUnknownVersion is returned for a version selector the client cannot decode.
	ErrUnknownVersion = errors.New("unknown provider version")

	// ErrProviderStatus is returned when the provider answers with a non-success status field.
	ErrProviderStatus = errors.New("provider reported failure")
)

// StatusError is returned when the provider responds with a non-2xx HTTP status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.Code, e.Body)
}

// Author is shared by every version.
type Author struct {
	Nickname string `json:"nickname"`
	Avatar   string `json:"avatar"`
}

// V3Result is the v3 payload: explicit quality fields.
type V3Result struct {
	Type           string   `json:"type"`
	Desc           string   `json:"desc"`
	Author         Author   `json:"author"`
	VideoWatermark string   `json:"videoWatermark"`
	VideoSD        string   `json:"videoSD"`
	VideoHD        string   `json:"videoHD"`
	Images         []string `json:"images"`
	Music          string   `json:"music"`
}

// V2Result is the v2 payload: an ordered play address list.
type V2Result struct {
	Type   string `json:"type"`
	Desc   string `json:"desc"`
	Author Author `json:"author"`
	Video  struct {
		PlayAddr []string `json:"playAddr"`
	} `json:"video"`
	Images []string `json:"images"`
	Music  struct {
		PlayURL []string `json:"playUrl"`
	} `json:"music"`
}

// Response is a tagged variant: exactly one of V3 or V2 is set, matching Version.
type Response struct {
	Version string
	V3      *V3Result
	V2      *V2Result
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// Client fetches post data from the provider.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
}

// NewClient creates a new provider client.
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

// Fetch asks the provider to resolve postURL using the given protocol version.
func (c *Client) Fetch(ctx context.Context, postURL, version string) (*Response, error) {
	if version != VersionV2 && version != VersionV3 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVersion, version)
	}

	q := url.Values{}
	q.Set("url", postURL)
	q.Set("version", version)
	endpoint := c.baseURL + "/api/download?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
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

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if env.Status != "success" {
		msg := env.Message
		if msg == "" {
			msg = "unknown error"
		}
		return nil, fmt.Errorf("%w: %s", ErrProviderStatus, msg)
	}
	if len(env.Result) == 0 || string(env.Result) == "null" {
		return nil, fmt.Errorf("decode response: empty result")
	}

	out := &Response{Version: version}
	switch version {
	case VersionV3:
		out.V3 = &V3Result{}
		err = json.Unmarshal(env.Result, out.V3)
	case VersionV2:
		out.V2 = &V2Result{}
		err = json.Unmarshal(env.Result, out.V2)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s result: %w", version, err)
	}

	return out, nil
}
