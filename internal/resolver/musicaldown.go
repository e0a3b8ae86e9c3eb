package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/iconidentify/mediagrab/internal/domain"
	"github.com/iconidentify/mediagrab/pkg/musicaldown"
)

// Mirror is the scraped-page upstream.
type Mirror interface {
	Lookup(ctx context.Context, postURL string) (*musicaldown.Video, error)
}

// MusicalDownStrategy resolves TikTok videos by scraping a mirror site. It is
// best effort: the mirror's markup is not under our control.
type MusicalDownStrategy struct {
	mirror Mirror
	order  CandidateOrder
}

// NewMusicalDownStrategy creates the strategy. No size hints exist on this
// path, so the default order is best quality first.
func NewMusicalDownStrategy(mirror Mirror, order CandidateOrder) *MusicalDownStrategy {
	if order == "" {
		order = OrderLargestFirst
	}
	return &MusicalDownStrategy{mirror: mirror, order: order}
}

// Name implements Strategy.
func (s *MusicalDownStrategy) Name() string { return "musicaldown" }

// Supports implements Strategy.
func (s *MusicalDownStrategy) Supports(site domain.Site) bool { return site == domain.SiteTikTok }

// Resolve implements Strategy.
func (s *MusicalDownStrategy) Resolve(ctx context.Context, url string) (*domain.ResolutionResult, error) {
	video, err := s.mirror.Lookup(ctx, url)
	if err != nil {
		if errors.Is(err, musicaldown.ErrMarkupChanged) || errors.Is(err, musicaldown.ErrNoForm) {
			return nil, fmt.Errorf("%w: %w", domain.ErrScrapeParseFailed, err)
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrUpstreamUnavailable, err)
	}

	candidates := dedupeCandidates([]domain.CandidateURL{
		{URL: video.VideoURLHD, Quality: domain.QualityHighDef},
		{URL: video.VideoURL, Quality: domain.QualityStandardDef},
		{URL: video.VideoWatermark, Quality: domain.QualityWatermarked},
	})
	if len(candidates) == 0 {
		return nil, domain.ErrScrapeParseFailed
	}

	return &domain.ResolutionResult{
		Items: []domain.MediaItem{{
			Kind:       domain.MediaKindVideo,
			Candidates: orderCandidates(candidates, s.order),
		}},
		AuthorName:   video.Author,
		Title:        video.Title,
		Caption:      video.Title,
		ThumbnailURL: video.Thumbnail,
	}, nil
}
