package domain

import (
	"fmt"
	"strings"
	"unicode/utf16"
)

// DefaultCaptionLimit is the Telegram caption length ceiling in UTF-16 code units.
const DefaultCaptionLimit = 1024

// BuildCaption formats the delivery caption for a fetched post.
// Length is measured in UTF-16 code units, the way Telegram counts it.
// Captions over limit fall back to the description alone, then to a fixed
// label; they are never cut mid-text.
func BuildCaption(result *ResolutionResult, fetched []FetchedMedia, limit int) string {
	if limit <= 0 {
		limit = DefaultCaptionLimit
	}

	icon, label := captionLabel(fetched)
	desc := strings.TrimSpace(result.Caption)
	if desc == "" {
		desc = strings.TrimSpace(result.Title)
	}
	if desc == "" {
		desc = label
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", icon, desc)
	if author := strings.TrimSpace(result.AuthorName); author != "" {
		fmt.Fprintf(&b, "\n\n👤 %s", author)
	}
	if len(fetched) == 1 {
		fmt.Fprintf(&b, "\n📊 %.1fMB", float64(fetched[0].SizeBytes)/(1024*1024))
	}

	full := b.String()
	if captionLen(full) <= limit {
		return full
	}

	short := icon + " " + desc
	if captionLen(short) <= limit {
		return short
	}

	return icon + " " + label
}

// captionLen counts s in UTF-16 code units. Invalid bytes decode to U+FFFD,
// which is one unit.
func captionLen(s string) int {
	n := 0
	for _, r := range s {
		n += len(utf16.Encode([]rune{r}))
	}
	return n
}

func captionLabel(fetched []FetchedMedia) (string, string) {
	videos, photos := 0, 0
	for _, m := range fetched {
		if m.ContentKind == MediaKindVideo {
			videos++
		} else {
			photos++
		}
	}

	switch {
	case videos == 1 && photos == 0:
		return "🎵", "Video"
	case photos == 1 && videos == 0:
		return "📸", "Photo"
	case videos == 0:
		return "📸", "Photo set"
	default:
		return "🎞", "Media post"
	}
}
