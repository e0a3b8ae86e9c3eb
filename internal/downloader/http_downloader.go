package downloader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/iconidentify/mediagrab/internal/config"
	"github.com/iconidentify/mediagrab/internal/domain"
)

// HTTPDownloader implements Downloader using plain HTTP requests.
type HTTPDownloader struct {
	// probeClient is used for HEAD requests
	probeClient *http.Client
	// client is used for full body downloads
	client    *http.Client
	userAgent string
	logger    *slog.Logger
}

// NewHTTPDownloader creates a downloader with separate probe and download timeouts.
func NewHTTPDownloader(cfg config.FetchConfig) *HTTPDownloader {
	probeTimeout := cfg.ProbeTimeout
	if probeTimeout <= 0 {
		probeTimeout = 15 * time.Second
	}
	downloadTimeout := cfg.DownloadTimeout
	if downloadTimeout <= 0 {
		downloadTimeout = 60 * time.Second
	}

	return &HTTPDownloader{
		probeClient: &http.Client{Timeout: probeTimeout},
		client:      &http.Client{Timeout: downloadTimeout},
		userAgent:   cfg.UserAgent,
		logger:      slog.Default(),
	}
}

// SetLogger sets the logger for download reporting.
func (d *HTTPDownloader) SetLogger(logger *slog.Logger) {
	d.logger = logger
}

// Probe issues a HEAD request. Transport failures and non-2xx statuses are
// reported through the result, not the error.
func (d *HTTPDownloader) Probe(ctx context.Context, url string) (*ProbeResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	d.setHeaders(req)

	resp, err := d.probeClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return &ProbeResult{
			ContentLength: -1,
			Error:         err.Error(),
		}, nil
	}
	defer resp.Body.Close()

	result := &ProbeResult{
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: contentLength(resp),
		Accessible:    resp.StatusCode >= 200 && resp.StatusCode <= 299,
		StatusCode:    resp.StatusCode,
	}

	if !result.Accessible {
		result.ContentLength = -1
		result.Unsupported = resp.StatusCode == http.StatusMethodNotAllowed ||
			resp.StatusCode == http.StatusNotImplemented
		result.Error = fmt.Sprintf("status code %d", resp.StatusCode)
	}

	return result, nil
}

// Download fetches url into memory, reading at most limit+1 bytes.
func (d *HTTPDownloader) Download(ctx context.Context, url string, limit int64) (*Body, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	d.setHeaders(req)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	// A declared length over the limit saves reading the body at all.
	if size := contentLength(resp); size > limit {
		return nil, fmt.Errorf("%w: declared %d bytes", domain.ErrTooLarge, size)
	}

	var buf bytes.Buffer
	if size := contentLength(resp); size > 0 {
		buf.Grow(int(size))
	}
	n, err := io.Copy(&buf, io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if n > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", domain.ErrTooLarge, limit)
	}

	d.logger.Debug("download complete",
		"url", url,
		"bytes", n,
	)

	return &Body{
		Data:        buf.Bytes(),
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

func (d *HTTPDownloader) setHeaders(req *http.Request) {
	// Set headers to mimic browser request
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept", "video/mp4,video/*,image/*;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
}

func contentLength(resp *http.Response) int64 {
	if resp.ContentLength >= 0 {
		return resp.ContentLength
	}
	// HEAD responses keep the header even when the body length is unknown
	if cl := resp.Header.Get("Content-Length"); cl != "" {
		if size, err := strconv.ParseInt(cl, 10, 64); err == nil {
			return size
		}
	}
	return -1
}
