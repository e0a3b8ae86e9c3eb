package downloader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"strings"

	"github.com/iconidentify/mediagrab/internal/domain"
)

// Fetcher picks and downloads the first candidate of an item that fits under
// a byte ceiling. Candidates are tried strictly in order, one at a time.
type Fetcher struct {
	dl     Downloader
	logger *slog.Logger
}

// NewFetcher creates a size-gated fetcher.
func NewFetcher(dl Downloader, logger *slog.Logger) *Fetcher {
	return &Fetcher{dl: dl, logger: logger}
}

// FetchWithinLimit returns the first candidate, in list order, whose size is at
// or under ceiling. A candidate is skipped without a body download when its
// hint or probe reports an oversize; a candidate of unknown size is downloaded
// and measured. Per-candidate failures are logged and the next one is tried.
//
// When nothing fits, the error is ErrNoCandidateFits if at least one candidate
// was rejected for size, and ErrCandidatesUnavailable wrapping the last failure
// otherwise.
func (f *Fetcher) FetchWithinLimit(ctx context.Context, candidates []domain.CandidateURL, ceiling int64) (*domain.FetchedMedia, error) {
	if len(candidates) == 0 {
		return nil, &domain.FetchError{Err: domain.ErrNoCandidates}
	}

	attempts := 0
	sizeRejected := false
	var lastErr error
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, &domain.FetchError{Attempts: attempts, Err: err}
		}
		attempts++

		log := f.logger.With("url", c.URL, "quality", c.Quality)

		if c.SizeHint > ceiling {
			log.Debug("candidate over ceiling by hint", "size", c.SizeHint, "ceiling", ceiling)
			sizeRejected = true
			continue
		}

		probe, err := f.dl.Probe(ctx, c.URL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, &domain.FetchError{Attempts: attempts, Err: ctx.Err()}
			}
			log.Warn("probe failed", "error", err)
			lastErr = err
			continue
		}

		switch {
		case probe.SizeKnown() && probe.ContentLength > ceiling:
			log.Debug("candidate over ceiling", "size", probe.ContentLength, "ceiling", ceiling)
			sizeRejected = true
			continue
		case !probe.Accessible && !probe.Unsupported:
			log.Warn("candidate not accessible", "status", probe.StatusCode, "error", probe.Error)
			lastErr = probeError(probe)
			continue
		}

		body, err := f.dl.Download(ctx, c.URL, ceiling)
		if err != nil {
			if ctx.Err() != nil {
				return nil, &domain.FetchError{Attempts: attempts, Err: ctx.Err()}
			}
			if errors.Is(err, domain.ErrTooLarge) {
				log.Debug("candidate over ceiling after download", "ceiling", ceiling)
				sizeRejected = true
			} else {
				log.Warn("download failed", "error", err)
				lastErr = err
			}
			continue
		}

		contentType := body.ContentType
		if contentType == "" {
			contentType = probe.ContentType
		}

		return &domain.FetchedMedia{
			Chosen:      c,
			Data:        body.Data,
			SizeBytes:   int64(len(body.Data)),
			ContentKind: KindFromContentType(contentType),
			ContentType: contentType,
		}, nil
	}

	if sizeRejected || lastErr == nil {
		return nil, &domain.FetchError{Attempts: attempts, Err: domain.ErrNoCandidateFits}
	}
	return nil, &domain.FetchError{
		Attempts: attempts,
		Err:      fmt.Errorf("%w: %w", domain.ErrCandidatesUnavailable, lastErr),
	}
}

func probeError(p *ProbeResult) error {
	if p.Error != "" {
		return fmt.Errorf("probe status %d: %s", p.StatusCode, p.Error)
	}
	return fmt.Errorf("probe status %d", p.StatusCode)
}

// FetchItem runs FetchWithinLimit for one item of a result and fills in the
// item metadata. When the response does not reveal a media kind the item's
// declared kind is used.
func (f *Fetcher) FetchItem(ctx context.Context, index int, item domain.MediaItem, ceiling int64) (*domain.FetchedMedia, error) {
	fetched, err := f.FetchWithinLimit(ctx, item.Candidates, ceiling)
	if err != nil {
		var fe *domain.FetchError
		if errors.As(err, &fe) {
			fe.Item = index
			return nil, fe
		}
		return nil, fmt.Errorf("fetch item %d: %w", index, err)
	}

	fetched.Index = index
	fetched.Item = item
	if fetched.ContentKind == "" {
		fetched.ContentKind = item.Kind
	}
	return fetched, nil
}

// KindFromContentType maps a MIME type to a media kind. Unknown types map to "".
func KindFromContentType(contentType string) domain.MediaKind {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}
	switch {
	case strings.HasPrefix(mediaType, "video/"):
		return domain.MediaKindVideo
	case strings.HasPrefix(mediaType, "image/"):
		return domain.MediaKindPhoto
	default:
		return ""
	}
}
