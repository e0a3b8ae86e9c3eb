// Package resolver turns source post URLs into ResolutionResults through an
// ordered chain of interchangeable strategies.
package resolver

import (
	"context"
	"fmt"
	"sort"

	"github.com/iconidentify/mediagrab/internal/domain"
)

// Strategy is one independent way of resolving a post URL.
type Strategy interface {
	// Name identifies the strategy in logs, config and results.
	Name() string

	// Supports reports whether the strategy can handle posts from site.
	Supports(site domain.Site) bool

	// Resolve turns url into a result. Provider-specific payload shapes never
	// leave the strategy.
	Resolve(ctx context.Context, url string) (*domain.ResolutionResult, error)
}

// CandidateOrder decides which end of the quality range a strategy tries first.
type CandidateOrder string

const (
	// OrderSmallestFirst tries the likely-smallest variant first so the first
	// fit costs the least bandwidth.
	OrderSmallestFirst CandidateOrder = "smallest_first"

	// OrderLargestFirst tries the best quality first.
	OrderLargestFirst CandidateOrder = "largest_first"
)

// ParseCandidateOrder parses a config value, defaulting to fallback when empty.
func ParseCandidateOrder(s string, fallback CandidateOrder) (CandidateOrder, error) {
	switch CandidateOrder(s) {
	case "":
		return fallback, nil
	case OrderSmallestFirst, OrderLargestFirst:
		return CandidateOrder(s), nil
	default:
		return "", fmt.Errorf("unknown candidate order %q", s)
	}
}

// orderCandidates sorts candidates by quality rank in the given direction.
// Equal ranks keep their upstream order.
func orderCandidates(candidates []domain.CandidateURL, order CandidateOrder) []domain.CandidateURL {
	out := make([]domain.CandidateURL, len(candidates))
	copy(out, candidates)
	sort.SliceStable(out, func(i, j int) bool {
		if order == OrderLargestFirst {
			return out[i].Quality.Rank() > out[j].Quality.Rank()
		}
		return out[i].Quality.Rank() < out[j].Quality.Rank()
	})
	return out
}

// dedupeCandidates drops empty and repeated URLs, keeping the first occurrence.
func dedupeCandidates(candidates []domain.CandidateURL) []domain.CandidateURL {
	seen := make(map[string]bool, len(candidates))
	out := candidates[:0:0]
	for _, c := range candidates {
		if c.URL == "" || seen[c.URL] {
			continue
		}
		seen[c.URL] = true
		out = append(out, c)
	}
	return out
}

// photoItems builds one single-candidate photo item per URL.
func photoItems(urls []string) []domain.MediaItem {
	items := make([]domain.MediaItem, 0, len(urls))
	for _, u := range urls {
		if u == "" {
			continue
		}
		items = append(items, domain.MediaItem{
			Kind:       domain.MediaKindPhoto,
			Candidates: []domain.CandidateURL{{URL: u, Quality: domain.QualityRawDownload}},
		})
	}
	return items
}
