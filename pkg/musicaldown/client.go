// Package musicaldown scrapes the musicaldown.com TikTok mirror.
//
// The mirror works in two steps: the landing page hands out a session cookie
// and a form with hidden anti-abuse fields, and the form submission returns a
// page of download anchors. Markup changes without notice; callers should treat
// ErrMarkupChanged as "this path is broken", not as a transient error.
package musicaldown

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"
)

var (
	// ErrMarkupChanged is returned when no usable download anchor is found.
	ErrMarkupChanged = errors.New("no download link in mirror response")

	// ErrNoForm is returned when the landing page has no form inputs.
	ErrNoForm = errors.New("no form inputs on landing page")
)

// StatusError is returned when either step responds with a non-2xx status.
type StatusError struct {
	Step string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status code %d", e.Step, e.Code)
}

// Video holds everything the mirror exposed for one post.
type Video struct {
	URL            string
	Title          string
	Author         string
	Thumbnail      string
	VideoURL       string
	VideoURLHD     string
	VideoWatermark string
	MusicURL       string
}

// Client scrapes download links from the mirror.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	limiter    *rate.Limiter
}

// NewClient creates a new mirror client. requestsPerSec <= 0 disables throttling.
func NewClient(baseURL, userAgent string, timeout time.Duration, requestsPerSec float64) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	limit := rate.Inf
	if requestsPerSec > 0 {
		limit = rate.Limit(requestsPerSec)
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		limiter:    rate.NewLimiter(limit, 1),
	}
}

// Lookup resolves a TikTok post URL through the mirror.
func (c *Client) Lookup(ctx context.Context, postURL string) (*Video, error) {
	form, cookies, err := c.fetchForm(ctx, postURL)
	if err != nil {
		return nil, err
	}

	doc, err := c.submitForm(ctx, form, cookies)
	if err != nil {
		return nil, err
	}

	video := parseResult(doc)
	video.URL = postURL
	if video.VideoURL == "" && video.VideoURLHD == "" && video.VideoWatermark == "" {
		return nil, ErrMarkupChanged
	}
	return video, nil
}

// fetchForm loads the landing page and returns the filled form and session cookies.
func (c *Client) fetchForm(ctx context.Context, postURL string) (url.Values, []*http.Cookie, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/en", nil)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch landing page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, nil, &StatusError{Step: "landing page", Code: resp.StatusCode}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("parse landing page: %w", err)
	}

	form := parseForm(doc, postURL)
	if len(form) == 0 {
		return nil, nil, ErrNoForm
	}
	return form, resp.Cookies(), nil
}

// parseForm reads the first three inputs of the landing form. The first one
// carries the target URL; the other two are per-session tokens.
func parseForm(doc *goquery.Document, postURL string) url.Values {
	form := url.Values{}
	doc.Find("div > input").Each(func(i int, s *goquery.Selection) {
		if i > 2 {
			return
		}
		name, _ := s.Attr("name")
		if name == "" {
			return
		}
		value, _ := s.Attr("value")
		if i == 0 && value == "" {
			value = postURL
		}
		form.Set(name, value)
	})
	return form
}

func (c *Client) submitForm(ctx context.Context, form url.Values, cookies []*http.Cookie) (*goquery.Document, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/download", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Origin", c.baseURL)
	req.Header.Set("Referer", c.baseURL+"/en")
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("submit form: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{Step: "download form", Code: resp.StatusCode}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse download page: %w", err)
	}
	return doc, nil
}

func parseResult(doc *goquery.Document) *Video {
	video := &Video{
		Title:  strings.TrimSpace(doc.Find(".video-desc").First().Text()),
		Author: strings.TrimSpace(doc.Find(".video-author").First().Text()),
	}
	video.Thumbnail, _ = doc.Find(".img-area img").First().Attr("src")

	doc.Find("a").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if href == "" || href == "#" {
			return
		}
		text := strings.TrimSpace(s.Text())
		event, _ := s.Attr("data-event")

		switch {
		case event == "mp4_hd" || strings.Contains(text, "HD"):
			video.VideoURLHD = href
		case event == "mp4" || strings.Contains(text, "MP4"):
			if video.VideoURL == "" {
				video.VideoURL = href
			}
		case event == "watermark" || strings.Contains(text, "Watermark"):
			video.VideoWatermark = href
		case strings.Contains(href, "mp3"):
			video.MusicURL = href
		}
	})

	// Tagged anchors come and go; any link back to the platform's CDN will do.
	if video.VideoURL == "" {
		if href, ok := doc.Find("a[href*='tiktok']").First().Attr("href"); ok {
			video.VideoURL = href
		}
	}

	return video
}
