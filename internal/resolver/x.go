package resolver

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/iconidentify/mediagrab/internal/domain"
	"github.com/iconidentify/mediagrab/pkg/twitter"
)

// PostFetcher is the syndication upstream for X posts.
type PostFetcher interface {
	FetchPost(ctx context.Context, tweetURL string) (*twitter.Post, error)
}

// XSyndicationStrategy resolves X/Twitter posts via the public syndication API.
type XSyndicationStrategy struct {
	client PostFetcher
	order  CandidateOrder
}

// NewXSyndicationStrategy creates the strategy.
func NewXSyndicationStrategy(client PostFetcher, order CandidateOrder) *XSyndicationStrategy {
	if order == "" {
		order = OrderSmallestFirst
	}
	return &XSyndicationStrategy{client: client, order: order}
}

// Name implements Strategy.
func (s *XSyndicationStrategy) Name() string { return "x-syndication" }

// Supports implements Strategy.
func (s *XSyndicationStrategy) Supports(site domain.Site) bool { return site == domain.SiteX }

// Resolve implements Strategy.
func (s *XSyndicationStrategy) Resolve(ctx context.Context, url string) (*domain.ResolutionResult, error) {
	post, err := s.client.FetchPost(ctx, url)
	if err != nil {
		if errors.Is(err, twitter.ErrInvalidTweetURL) {
			return nil, fmt.Errorf("%w: %w", domain.ErrNoMediaFound, err)
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrUpstreamUnavailable, err)
	}

	result := &domain.ResolutionResult{
		AuthorName: post.AuthorName,
		Caption:    post.Text,
	}

	for _, photo := range post.Photos {
		result.Items = append(result.Items, domain.MediaItem{
			Kind:       domain.MediaKindPhoto,
			Candidates: []domain.CandidateURL{{URL: photo.URL, Quality: domain.QualityRawDownload}},
		})
	}
	for _, video := range post.Videos {
		if item, ok := s.videoItem(video); ok {
			result.Items = append(result.Items, item)
		}
	}

	if len(result.Items) == 0 {
		return nil, domain.ErrNoMediaFound
	}
	return result, nil
}

// videoItem orders variants by bitrate. Variants under 1 Mbps are tagged SD,
// everything else HD.
func (s *XSyndicationStrategy) videoItem(video twitter.Video) (domain.MediaItem, bool) {
	variants := append([]twitter.Variant(nil), video.Variants...)
	sort.SliceStable(variants, func(i, j int) bool {
		if s.order == OrderLargestFirst {
			return variants[i].Bitrate > variants[j].Bitrate
		}
		return variants[i].Bitrate < variants[j].Bitrate
	})

	candidates := make([]domain.CandidateURL, 0, len(variants))
	for _, v := range variants {
		quality := domain.QualityHighDef
		if v.Bitrate > 0 && v.Bitrate < 1_000_000 {
			quality = domain.QualityStandardDef
		}
		candidates = append(candidates, domain.CandidateURL{URL: v.URL, Quality: quality})
	}
	candidates = dedupeCandidates(candidates)
	if len(candidates) == 0 {
		return domain.MediaItem{}, false
	}
	return domain.MediaItem{Kind: domain.MediaKindVideo, Candidates: candidates}, true
}
