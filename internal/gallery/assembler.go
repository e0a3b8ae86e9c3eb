// Package gallery fetches every item of a resolved post under the size ceiling.
package gallery

import (
	"context"
	"log/slog"

	"github.com/iconidentify/mediagrab/internal/domain"
)

// ItemFetcher fetches one media item of a result.
type ItemFetcher interface {
	FetchItem(ctx context.Context, index int, item domain.MediaItem, ceiling int64) (*domain.FetchedMedia, error)
}

// Assembler applies the size-gated fetch to all items of a result, in order.
type Assembler struct {
	fetcher ItemFetcher
	logger  *slog.Logger
}

// NewAssembler creates a new gallery assembler.
func NewAssembler(fetcher ItemFetcher, logger *slog.Logger) *Assembler {
	return &Assembler{fetcher: fetcher, logger: logger}
}

// Assemble fetches each item sequentially. A failed item does not stop the
// rest; if any item failed the error is a *domain.PartialFailure holding both
// the fetched media and the failed indexes. Fetched media keep result order.
//
// If ctx is canceled the remaining items are abandoned, buffers fetched so far
// are released and the context error is returned.
func (a *Assembler) Assemble(ctx context.Context, result *domain.ResolutionResult, ceiling int64) ([]domain.FetchedMedia, error) {
	if err := result.Validate(); err != nil {
		return nil, err
	}

	fetched := make([]domain.FetchedMedia, 0, len(result.Items))
	var partial *domain.PartialFailure

	for i, item := range result.Items {
		if err := ctx.Err(); err != nil {
			release(fetched)
			return nil, err
		}

		media, err := a.fetcher.FetchItem(ctx, i, item, ceiling)
		if err != nil {
			if ctx.Err() != nil {
				release(fetched)
				return nil, ctx.Err()
			}
			a.logger.Warn("gallery item failed",
				"item", i,
				"of", len(result.Items),
				"error", err,
			)
			if partial == nil {
				partial = &domain.PartialFailure{Errors: make(map[int]error)}
			}
			partial.Failed = append(partial.Failed, i)
			partial.Errors[i] = err
			continue
		}

		fetched = append(fetched, *media)
	}

	if partial != nil {
		partial.Fetched = fetched
		return fetched, partial
	}
	return fetched, nil
}

func release(media []domain.FetchedMedia) {
	for i := range media {
		media[i].Release()
	}
}
