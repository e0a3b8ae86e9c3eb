package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/iconidentify/mediagrab/internal/domain"
	"github.com/iconidentify/mediagrab/pkg/tiktok"
)

// TikTokProvider is the versioned upstream the structured strategy delegates to.
type TikTokProvider interface {
	Fetch(ctx context.Context, postURL, version string) (*tiktok.Response, error)
}

// TikTokProviderStrategy resolves TikTok posts through a structured provider,
// falling back from the primary API version to exactly one secondary version.
type TikTokProviderStrategy struct {
	provider  TikTokProvider
	primary   string
	secondary string
	order     CandidateOrder
	logger    *slog.Logger
}

// NewTikTokProviderStrategy creates the strategy. An empty secondary disables fallback.
func NewTikTokProviderStrategy(provider TikTokProvider, primary, secondary string, order CandidateOrder, logger *slog.Logger) *TikTokProviderStrategy {
	if primary == "" {
		primary = tiktok.VersionV3
	}
	if order == "" {
		order = OrderSmallestFirst
	}
	return &TikTokProviderStrategy{
		provider:  provider,
		primary:   primary,
		secondary: secondary,
		order:     order,
		logger:    logger,
	}
}

// Name implements Strategy.
func (s *TikTokProviderStrategy) Name() string { return "tiktok-provider" }

// Supports implements Strategy.
func (s *TikTokProviderStrategy) Supports(site domain.Site) bool { return site == domain.SiteTikTok }

// Resolve implements Strategy.
func (s *TikTokProviderStrategy) Resolve(ctx context.Context, url string) (*domain.ResolutionResult, error) {
	resp, primaryErr := s.provider.Fetch(ctx, url, s.primary)
	if primaryErr == nil {
		return s.normalize(resp)
	}

	if s.secondary == "" || ctx.Err() != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrProviderExhausted, s.primary, primaryErr)
	}

	s.logger.Info("primary provider version failed, trying secondary",
		"primary", s.primary,
		"secondary", s.secondary,
		"error", primaryErr,
	)

	resp, secondaryErr := s.provider.Fetch(ctx, url, s.secondary)
	if secondaryErr != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrProviderExhausted, errors.Join(
			fmt.Errorf("%s: %w", s.primary, primaryErr),
			fmt.Errorf("%s: %w", s.secondary, secondaryErr),
		))
	}
	return s.normalize(resp)
}

// normalize maps whichever payload variant came back into the common result.
func (s *TikTokProviderStrategy) normalize(resp *tiktok.Response) (*domain.ResolutionResult, error) {
	var (
		result = &domain.ResolutionResult{}
		kind   string
		images []string
		videos []domain.CandidateURL
	)

	switch {
	case resp.V3 != nil:
		r := resp.V3
		kind, images = r.Type, r.Images
		result.AuthorName = r.Author.Nickname
		result.Caption = r.Desc
		videos = []domain.CandidateURL{
			{URL: r.VideoWatermark, Quality: domain.QualityWatermarked},
			{URL: r.VideoSD, Quality: domain.QualityStandardDef},
			{URL: r.VideoHD, Quality: domain.QualityHighDef},
		}
	case resp.V2 != nil:
		r := resp.V2
		kind, images = r.Type, r.Images
		result.AuthorName = r.Author.Nickname
		result.Caption = r.Desc
		for _, addr := range r.Video.PlayAddr {
			videos = append(videos, domain.CandidateURL{URL: addr, Quality: domain.QualityStandardDef})
		}
	default:
		return nil, domain.ErrNoMediaFound
	}

	videos = dedupeCandidates(videos)

	switch {
	case kind == tiktok.TypeImage || (kind != tiktok.TypeVideo && len(images) > 0):
		result.Items = photoItems(images)
	case len(videos) > 0:
		result.Items = []domain.MediaItem{{
			Kind:       domain.MediaKindVideo,
			Candidates: orderCandidates(videos, s.order),
		}}
	}

	if len(result.Items) == 0 {
		return nil, domain.ErrNoMediaFound
	}
	return result, nil
}
