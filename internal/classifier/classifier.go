// Package classifier maps raw user input to a media request for a known platform.
package classifier

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/iconidentify/mediagrab/internal/domain"
)

var urlPattern = regexp.MustCompile(`(?i)https?://[^\s]+`)

// hostRule maps a hostname fragment to the site and platform it implies.
type hostRule struct {
	fragment string
	site     domain.Site
	platform domain.Platform
}

var hostRules = []hostRule{
	{fragment: "tiktok.com", site: domain.SiteTikTok, platform: domain.PlatformShortVideo},
	{fragment: "instagram.com", site: domain.SiteInstagram, platform: domain.PlatformGallery},
	{fragment: "twitter.com", site: domain.SiteX, platform: domain.PlatformGallery},
	{fragment: "x.com", site: domain.SiteX, platform: domain.PlatformGallery},
}

// Classify extracts the first URL from raw and determines its platform.
// It performs no network calls.
func Classify(raw string) (domain.MediaRequest, error) {
	input := strings.TrimSpace(raw)
	if input == "" {
		return domain.MediaRequest{}, &domain.ClassificationError{Input: raw, Err: domain.ErrNotAURL}
	}

	candidate := urlPattern.FindString(input)
	if candidate == "" {
		// Accept scheme-less links such as "www.tiktok.com/@u/video/1".
		if strings.ContainsAny(input, " \t\n") || !strings.Contains(input, ".") {
			return domain.MediaRequest{}, &domain.ClassificationError{Input: raw, Err: domain.ErrNotAURL}
		}
		candidate = "https://" + input
	}

	u, err := url.Parse(candidate)
	if err != nil || u.Host == "" {
		return domain.MediaRequest{}, &domain.ClassificationError{Input: raw, Err: domain.ErrNotAURL}
	}
	// url.Parse lowercases the scheme; keep the rest as the user sent it.
	candidate = u.Scheme + candidate[len(u.Scheme):]

	host := strings.ToLower(u.Hostname())
	for _, rule := range hostRules {
		if hostMatches(host, rule.fragment) {
			return domain.MediaRequest{
				SourceURL: candidate,
				Platform:  rule.platform,
				Site:      rule.site,
			}, nil
		}
	}

	return domain.MediaRequest{}, &domain.ClassificationError{Input: raw, Err: domain.ErrUnsupportedPlatform}
}

// hostMatches matches the fragment as the host itself or a subdomain of it, so
// "box.com" never matches "x.com".
func hostMatches(host, fragment string) bool {
	return host == fragment || strings.HasSuffix(host, "."+fragment)
}
