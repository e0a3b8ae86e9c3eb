package downloader

import (
	"context"
)

// Downloader fetches media bytes from candidate URLs.
type Downloader interface {
	// Probe checks a URL with a header-only request. A size of -1 in the
	// result means the upstream did not report one.
	Probe(ctx context.Context, url string) (*ProbeResult, error)

	// Download fetches the full body, failing with domain.ErrTooLarge as soon
	// as more than limit bytes arrive.
	Download(ctx context.Context, url string, limit int64) (*Body, error)
}

// ProbeResult contains what a HEAD request revealed about a URL.
type ProbeResult struct {
	ContentType   string
	ContentLength int64
	Accessible    bool
	// Unsupported is set when the upstream rejects HEAD itself; the size is
	// then unknown rather than the URL being broken.
	Unsupported bool
	StatusCode  int
	Error       string
}

// SizeKnown reports whether the probe produced a usable size.
func (p *ProbeResult) SizeKnown() bool {
	return p.Accessible && p.ContentLength >= 0
}

// Body is a fully downloaded response body.
type Body struct {
	Data        []byte
	ContentType string
}
