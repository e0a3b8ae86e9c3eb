package resolver

import (
	"fmt"
	"log/slog"

	"github.com/iconidentify/mediagrab/internal/config"
	"github.com/iconidentify/mediagrab/internal/domain"
	"github.com/iconidentify/mediagrab/pkg/instagram"
	"github.com/iconidentify/mediagrab/pkg/musicaldown"
	"github.com/iconidentify/mediagrab/pkg/tiktok"
	"github.com/iconidentify/mediagrab/pkg/twitter"
)

// BuildStrategies constructs every strategy that has enough configuration to
// run, keyed by name. Structured providers without a base URL are left out.
func BuildStrategies(cfg *config.Config, logger *slog.Logger) (map[string]Strategy, error) {
	ua := cfg.Fetch.UserAgent
	p := cfg.Providers
	out := make(map[string]Strategy)

	if p.TikTok.BaseURL != "" {
		order, err := ParseCandidateOrder(p.TikTok.Order, OrderSmallestFirst)
		if err != nil {
			return nil, fmt.Errorf("tiktok provider: %w", err)
		}
		client := tiktok.NewClient(p.TikTok.BaseURL, ua, p.TikTok.Timeout)
		s := NewTikTokProviderStrategy(client, p.TikTok.Primary, p.TikTok.Secondary, order, logger)
		out[s.Name()] = s
	}

	if p.MusicalDown.BaseURL != "" {
		order, err := ParseCandidateOrder(p.MusicalDown.Order, OrderLargestFirst)
		if err != nil {
			return nil, fmt.Errorf("musicaldown: %w", err)
		}
		client := musicaldown.NewClient(p.MusicalDown.BaseURL, ua, p.MusicalDown.Timeout, p.MusicalDown.RequestsPerSec)
		s := NewMusicalDownStrategy(client, order)
		out[s.Name()] = s
	}

	if p.Instagram.BaseURL != "" {
		client := instagram.NewClient(p.Instagram.BaseURL, ua, p.Instagram.Timeout)
		s := NewInstagramStrategy(client, p.Instagram.Primary, p.Instagram.Secondary, logger)
		out[s.Name()] = s
	}

	order, err := ParseCandidateOrder(p.X.Order, OrderSmallestFirst)
	if err != nil {
		return nil, fmt.Errorf("x syndication: %w", err)
	}
	x := NewXSyndicationStrategy(twitter.NewClient(p.X.BaseURL, ua, p.X.Timeout), order)
	out[x.Name()] = x

	return out, nil
}

// BuildChains arranges named strategies into per-platform chains in the order
// the config lists them. Unknown names are an error; names whose strategy
// could not be built are skipped with a warning.
func BuildChains(cfg config.StrategyConfig, available map[string]Strategy, logger *slog.Logger) (map[domain.Platform][]Strategy, error) {
	chains := make(map[domain.Platform][]Strategy)
	lists := []struct {
		platform domain.Platform
		names    []string
	}{
		{domain.PlatformShortVideo, cfg.ShortVideo},
		{domain.PlatformGallery, cfg.Gallery},
	}

	for _, l := range lists {
		for _, name := range l.names {
			if !knownStrategy(name) {
				return nil, fmt.Errorf("unknown strategy %q for %s", name, l.platform)
			}
			s, ok := available[name]
			if !ok {
				logger.Warn("strategy not configured, skipping", "strategy", name, "platform", l.platform)
				continue
			}
			chains[l.platform] = append(chains[l.platform], s)
		}
	}

	for _, site := range uncoveredSites(chains) {
		logger.Error("no configured strategy handles site, its links will be refused",
			"site", site, "platform", sitePlatform[site])
	}

	return chains, nil
}

var sitePlatform = map[domain.Site]domain.Platform{
	domain.SiteTikTok:    domain.PlatformShortVideo,
	domain.SiteInstagram: domain.PlatformGallery,
	domain.SiteX:         domain.PlatformGallery,
}

// uncoveredSites lists the known sites no strategy in their platform chain supports.
func uncoveredSites(chains map[domain.Platform][]Strategy) []domain.Site {
	var out []domain.Site
	for _, site := range []domain.Site{domain.SiteTikTok, domain.SiteInstagram, domain.SiteX} {
		covered := false
		for _, s := range chains[sitePlatform[site]] {
			if s.Supports(site) {
				covered = true
				break
			}
		}
		if !covered {
			out = append(out, site)
		}
	}
	return out
}

func knownStrategy(name string) bool {
	switch name {
	case "tiktok-provider", "musicaldown", "instagram-provider", "x-syndication":
		return true
	}
	return false
}
