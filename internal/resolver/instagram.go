package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"

	"github.com/iconidentify/mediagrab/internal/domain"
	"github.com/iconidentify/mediagrab/pkg/instagram"
)

// InstagramProvider is the structured upstream for Instagram posts.
type InstagramProvider interface {
	Fetch(ctx context.Context, postURL, version string) (*instagram.Post, error)
}

// InstagramStrategy resolves Instagram posts and carousels. Each media URL of
// the post becomes its own item.
type InstagramStrategy struct {
	provider  InstagramProvider
	primary   string
	secondary string
	logger    *slog.Logger
}

// NewInstagramStrategy creates the strategy. An empty secondary disables fallback.
func NewInstagramStrategy(provider InstagramProvider, primary, secondary string, logger *slog.Logger) *InstagramStrategy {
	return &InstagramStrategy{
		provider:  provider,
		primary:   primary,
		secondary: secondary,
		logger:    logger,
	}
}

// Name implements Strategy.
func (s *InstagramStrategy) Name() string { return "instagram-provider" }

// Supports implements Strategy.
func (s *InstagramStrategy) Supports(site domain.Site) bool { return site == domain.SiteInstagram }

// Resolve implements Strategy.
func (s *InstagramStrategy) Resolve(ctx context.Context, url string) (*domain.ResolutionResult, error) {
	post, primaryErr := s.provider.Fetch(ctx, url, s.primary)
	if primaryErr == nil {
		return normalizeInstagram(post)
	}
	if s.secondary == "" || ctx.Err() != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrProviderExhausted, primaryErr)
	}

	s.logger.Info("primary instagram version failed, trying secondary",
		"secondary", s.secondary,
		"error", primaryErr,
	)

	post, secondaryErr := s.provider.Fetch(ctx, url, s.secondary)
	if secondaryErr != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrProviderExhausted, errors.Join(primaryErr, secondaryErr))
	}
	return normalizeInstagram(post)
}

func normalizeInstagram(post *instagram.Post) (*domain.ResolutionResult, error) {
	result := &domain.ResolutionResult{
		AuthorName: post.PostInfo.OwnerFullname,
		Caption:    post.PostInfo.Caption,
	}
	if result.AuthorName == "" {
		result.AuthorName = post.PostInfo.OwnerUsername
	}

	// media_details carries declared types; url_list is the older bare shape.
	if len(post.MediaDetails) > 0 {
		for _, md := range post.MediaDetails {
			if md.URL == "" {
				continue
			}
			kind := domain.MediaKindPhoto
			if md.Type == "video" {
				kind = domain.MediaKindVideo
			}
			result.Items = append(result.Items, domain.MediaItem{
				Kind:       kind,
				Candidates: []domain.CandidateURL{{URL: md.URL, Quality: domain.QualityRawDownload}},
			})
		}
	} else {
		for _, u := range post.URLList {
			if u == "" {
				continue
			}
			result.Items = append(result.Items, domain.MediaItem{
				Kind:       kindFromURL(u),
				Candidates: []domain.CandidateURL{{URL: u, Quality: domain.QualityRawDownload}},
			})
		}
	}

	if len(result.Items) == 0 {
		return nil, domain.ErrNoMediaFound
	}
	return result, nil
}

// kindFromURL guesses the media kind from the URL path. The fetcher corrects
// it from the response Content-Type.
func kindFromURL(raw string) domain.MediaKind {
	u, err := url.Parse(raw)
	if err != nil {
		return domain.MediaKindPhoto
	}
	switch strings.ToLower(path.Ext(u.Path)) {
	case ".mp4", ".mov", ".webm", ".m4v":
		return domain.MediaKindVideo
	default:
		return domain.MediaKindPhoto
	}
}
