package twitter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// ErrInvalidTweetURL is returned when no tweet ID can be found in a URL.
var ErrInvalidTweetURL = errors.New("invalid tweet URL")

var (
	tweetIDPattern    = regexp.MustCompile(`(?:twitter\.com|x\.com)/\w+/status/(\d+)`)
	resolutionPattern = regexp.MustCompile(`/(\d+)x(\d+)/`)
)

// StatusError is returned when the syndication API responds with a non-200 status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.Code, e.Body)
}

// Post is the media-relevant part of a tweet.
type Post struct {
	ID         string
	Text       string
	AuthorName string
	ScreenName string
	Photos     []Photo
	Videos     []Video
}

// Photo is a still image attached to a tweet.
type Photo struct {
	URL    string
	Width  int
	Height int
}

// Video is a video or animated GIF with every MP4 variant the API listed.
type Video struct {
	PosterURL string
	Duration  int
	Animated  bool
	Variants  []Variant
}

// Variant is one encoding of a video.
type Variant struct {
	URL     string
	Bitrate int
}

// Client fetches tweet data from X.com's public syndication API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
}

// NewClient creates a new Twitter client.
func NewClient(baseURL, userAgent string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "https://cdn.syndication.twimg.com"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
	}
}

// FetchPost retrieves the media of a public tweet.
func (c *Client) FetchPost(ctx context.Context, tweetURL string) (*Post, error) {
	tweetID := ExtractTweetID(tweetURL)
	if tweetID == "" {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTweetURL, tweetURL)
	}

	url := fmt.Sprintf("%s/tweet-result?id=%s&token=0", c.baseURL, tweetID)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
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

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	var syndicationResp syndicationResponse
	if err := json.NewDecoder(resp.Body).Decode(&syndicationResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return parseSyndicationResponse(tweetID, &syndicationResp), nil
}

type syndicationVariant struct {
	Bitrate     int    `json:"bitrate"`
	ContentType string `json:"content_type"`
	URL         string `json:"url"`
}

// syndicationResponse is the response from the syndication API. Media shows up
// in photos/video (new format), mediaDetails, or extended_entities (legacy).
type syndicationResponse struct {
	ID   string `json:"id_str"`
	Text string `json:"text"`
	User struct {
		Name       string `json:"name"`
		ScreenName string `json:"screen_name"`
	} `json:"user"`
	Photos []struct {
		URL    string `json:"url"`
		Width  int    `json:"width"`
		Height int    `json:"height"`
	} `json:"photos"`
	Video struct {
		Variants []struct {
			Type string `json:"type"`
			Src  string `json:"src"`
		} `json:"variants"`
		Poster     string `json:"poster"`
		DurationMs int    `json:"durationMs"`
	} `json:"video"`
	MediaDetails []struct {
		MediaURLHTTPS string `json:"media_url_https"`
		Type          string `json:"type"`
		VideoInfo     struct {
			DurationMillis int                  `json:"duration_millis"`
			Variants       []syndicationVariant `json:"variants"`
		} `json:"video_info"`
	} `json:"mediaDetails"`
}

func parseSyndicationResponse(tweetID string, resp *syndicationResponse) *Post {
	post := &Post{
		ID:         tweetID,
		Text:       resp.Text,
		AuthorName: resp.User.Name,
		ScreenName: resp.User.ScreenName,
	}

	seen := make(map[string]bool)
	addPhoto := func(p Photo) {
		if p.URL == "" || seen[p.URL] {
			return
		}
		seen[p.URL] = true
		post.Photos = append(post.Photos, p)
	}

	for _, photo := range resp.Photos {
		addPhoto(Photo{URL: photo.URL, Width: photo.Width, Height: photo.Height})
	}

	// mediaDetails carries explicit bitrates, so prefer it over the video object.
	for _, md := range resp.MediaDetails {
		switch md.Type {
		case "photo":
			addPhoto(Photo{URL: md.MediaURLHTTPS})
		case "video", "animated_gif":
			v := Video{
				PosterURL: md.MediaURLHTTPS,
				Duration:  md.VideoInfo.DurationMillis / 1000,
				Animated:  md.Type == "animated_gif",
			}
			for _, variant := range md.VideoInfo.Variants {
				if variant.ContentType == "video/mp4" {
					v.Variants = append(v.Variants, Variant{URL: variant.URL, Bitrate: variant.Bitrate})
				}
			}
			if len(v.Variants) > 0 {
				post.Videos = append(post.Videos, v)
			}
		}
	}

	if len(post.Videos) == 0 && resp.Video.Poster != "" {
		v := Video{PosterURL: resp.Video.Poster, Duration: resp.Video.DurationMs / 1000}
		for _, variant := range resp.Video.Variants {
			if variant.Type == "video/mp4" || strings.Contains(variant.Src, ".mp4") {
				v.Variants = append(v.Variants, Variant{URL: variant.Src, Bitrate: extractBitrateFromURL(variant.Src)})
			}
		}
		if len(v.Variants) > 0 {
			post.Videos = append(post.Videos, v)
		}
	}

	return post
}

// ExtractTweetID extracts the tweet ID from various URL formats.
func ExtractTweetID(url string) string {
	// Match patterns like:
	// https://x.com/user/status/1234567890
	// https://twitter.com/user/status/1234567890
	// https://x.com/user/status/1234567890?s=20
	matches := tweetIDPattern.FindStringSubmatch(url)
	if len(matches) > 1 {
		return matches[1]
	}
	return ""
}

func extractBitrateFromURL(url string) int {
	// Try to extract bitrate from URL patterns like /vid/avc1/720x1280/...
	matches := resolutionPattern.FindStringSubmatch(url)
	if len(matches) > 2 {
		// Use width * height as a rough bitrate proxy
		var w, h int
		if _, err := fmt.Sscanf(matches[1], "%d", &w); err != nil {
			return 0
		}
		if _, err := fmt.Sscanf(matches[2], "%d", &h); err != nil {
			return 0
		}
		return w * h
	}
	return 0
}
