package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/iconidentify/mediagrab/internal/classifier"
	"github.com/iconidentify/mediagrab/internal/config"
	"github.com/iconidentify/mediagrab/internal/domain"
)

// Resolver turns a classified request into a resolution result.
type Resolver interface {
	Resolve(ctx context.Context, req domain.MediaRequest) (*domain.ResolutionResult, error)
}

// Assembler fetches every item of a result under a ceiling.
type Assembler interface {
	Assemble(ctx context.Context, result *domain.ResolutionResult, ceiling int64) ([]domain.FetchedMedia, error)
}

// ItemFetcher fetches a single item of a result under a ceiling.
type ItemFetcher interface {
	FetchItem(ctx context.Context, index int, item domain.MediaItem, ceiling int64) (*domain.FetchedMedia, error)
}

// ErrItemOutOfRange is returned when a requested item index does not exist.
var ErrItemOutOfRange = errors.New("item index out of range")

// MediaService runs the resolve and fetch pipeline for one request at a time.
// It holds no per-request state, so one instance serves concurrent callers.
type MediaService struct {
	resolver     Resolver
	assembler    Assembler
	fetcher      ItemFetcher
	ceiling      int64
	captionLimit int
	logger       *slog.Logger
}

// NewMediaService creates a new media service.
func NewMediaService(
	resolver Resolver,
	assembler Assembler,
	fetcher ItemFetcher,
	ceiling int64,
	captionLimit int,
	logger *slog.Logger,
) *MediaService {
	if ceiling <= 0 {
		ceiling = config.DefaultCeilingBytes
	}
	if captionLimit <= 0 {
		captionLimit = domain.DefaultCaptionLimit
	}
	return &MediaService{
		resolver:     resolver,
		assembler:    assembler,
		fetcher:      fetcher,
		ceiling:      ceiling,
		captionLimit: captionLimit,
		logger:       logger,
	}
}

// Ceiling returns the configured per-item byte ceiling.
func (s *MediaService) Ceiling() int64 {
	return s.ceiling
}

// Classify validates raw input without touching the network.
func (s *MediaService) Classify(raw string) (domain.MediaRequest, error) {
	return classifier.Classify(raw)
}

// Resolve classifies raw and resolves it without downloading anything.
func (s *MediaService) Resolve(ctx context.Context, raw string) (*domain.ResolutionResult, error) {
	req, err := classifier.Classify(raw)
	if err != nil {
		return nil, err
	}
	return s.resolver.Resolve(ctx, req)
}

// Process runs the whole pipeline with the configured ceiling.
func (s *MediaService) Process(ctx context.Context, raw string) (*domain.DeliveryPackage, error) {
	return s.ProcessWithCeiling(ctx, raw, s.ceiling)
}

// ProcessWithCeiling classifies, resolves and fetches raw, returning a package
// ready for delivery. Galleries where only some items failed still produce a
// package, with the failed indexes in Dropped. When nothing could be fetched
// the error is returned instead; for a single item that is its FetchError.
func (s *MediaService) ProcessWithCeiling(ctx context.Context, raw string, ceiling int64) (*domain.DeliveryPackage, error) {
	requestID := uuid.New().String()[:8]
	logger := s.logger.With("request_id", requestID)
	start := time.Now()

	req, err := classifier.Classify(raw)
	if err != nil {
		logger.Info("rejected input", "error", err)
		return nil, err
	}
	logger = logger.With("site", req.Site, "url", req.SourceURL)

	result, err := s.resolver.Resolve(ctx, req)
	if err != nil {
		logger.Warn("resolve failed", "error", err)
		return nil, err
	}

	fetched, err := s.assembler.Assemble(ctx, result, ceiling)
	pkg := &domain.DeliveryPackage{AuthorName: result.AuthorName}
	if err != nil {
		var partial *domain.PartialFailure
		if !errors.As(err, &partial) {
			logger.Warn("fetch aborted", "error", err)
			return nil, err
		}
		if len(partial.Fetched) == 0 {
			logger.Warn("no item could be fetched", "items", len(result.Items), "error", err)
			if len(result.Items) == 1 {
				if itemErr, ok := partial.Errors[0]; ok {
					return nil, itemErr
				}
			}
			return nil, err
		}
		pkg.Dropped = append([]int(nil), partial.Failed...)
		logger.Warn("partial gallery", "fetched", len(partial.Fetched), "dropped", len(partial.Failed))
	}

	pkg.Media = fetched
	pkg.Caption = domain.BuildCaption(result, fetched, s.captionLimit)

	logger.Info("request processed",
		"strategy", result.StrategyUsed,
		"items", len(fetched),
		"bytes", pkg.TotalBytes(),
		"duration", time.Since(start).String(),
	)
	return pkg, nil
}

// FetchOne resolves raw and fetches only the item at index.
func (s *MediaService) FetchOne(ctx context.Context, raw string, index int) (*domain.FetchedMedia, error) {
	result, err := s.Resolve(ctx, raw)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(result.Items) {
		return nil, fmt.Errorf("%w: %d of %d", ErrItemOutOfRange, index, len(result.Items))
	}
	return s.fetcher.FetchItem(ctx, index, result.Items[index], s.ceiling)
}
