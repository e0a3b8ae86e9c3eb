package domain

// Platform identifies the shape of post a URL points at.
type Platform string

const (
	PlatformShortVideo Platform = "short_video"
	PlatformGallery    Platform = "gallery"
)

// Site identifies the third-party service hosting a post.
type Site string

const (
	SiteTikTok    Site = "tiktok"
	SiteInstagram Site = "instagram"
	SiteX         Site = "x"
)

// MediaRequest is one user-initiated resolution request.
type MediaRequest struct {
	SourceURL string
	Platform  Platform
	Site      Site
}

// QualityTag is the declared or inferred quality tier of a candidate URL.
type QualityTag string

const (
	QualityWatermarked QualityTag = "watermarked"
	QualityStandardDef QualityTag = "sd"
	QualityHighDef     QualityTag = "hd"
	QualityRawDownload QualityTag = "raw"
)

// Rank orders quality tags from the smallest likely file to the largest.
func (q QualityTag) Rank() int {
	switch q {
	case QualityWatermarked:
		return 0
	case QualityStandardDef:
		return 1
	case QualityHighDef:
		return 2
	case QualityRawDownload:
		return 3
	default:
		return 1
	}
}

// CandidateURL is one directly fetchable URL for a media item.
type CandidateURL struct {
	URL     string     `json:"url"`
	Quality QualityTag `json:"quality"`
	// SizeHint is the size in bytes declared by the upstream, 0 when unknown.
	SizeHint int64 `json:"size_hint,omitempty"`
}

// MediaKind is the kind of asset a media item holds.
type MediaKind string

const (
	MediaKindVideo MediaKind = "video"
	MediaKindPhoto MediaKind = "photo"
)

// MediaItem is one logical asset of a post with its candidates in preference order.
type MediaItem struct {
	Kind       MediaKind      `json:"kind"`
	Candidates []CandidateURL `json:"candidates"`
}

// ResolutionResult is the uniform output of every resolver strategy.
type ResolutionResult struct {
	Items        []MediaItem `json:"items"`
	AuthorName   string      `json:"author_name,omitempty"`
	Caption      string      `json:"caption,omitempty"`
	Title        string      `json:"title,omitempty"`
	ThumbnailURL string      `json:"thumbnail_url,omitempty"`
	StrategyUsed string      `json:"strategy_used"`
}

// Validate checks that the result has at least one item and that no item is
// missing candidates.
func (r *ResolutionResult) Validate() error {
	if r == nil || len(r.Items) == 0 {
		return ErrNoMediaFound
	}
	for _, item := range r.Items {
		if len(item.Candidates) == 0 {
			return ErrNoMediaFound
		}
	}
	return nil
}

// IsGallery reports whether the result holds more than one item.
func (r *ResolutionResult) IsGallery() bool {
	return len(r.Items) > 1
}

// FetchedMedia is a downloaded media item within the configured ceiling.
// The buffer is owned by whoever holds the value until Release is called.
type FetchedMedia struct {
	Index       int
	Item        MediaItem
	Chosen      CandidateURL
	Data        []byte
	SizeBytes   int64
	ContentKind MediaKind
	ContentType string
}

// Release drops the downloaded buffer.
func (m *FetchedMedia) Release() {
	m.Data = nil
}

// DeliveryPackage is what the delivery layer receives for one request.
type DeliveryPackage struct {
	Media      []FetchedMedia
	Caption    string
	AuthorName string
	// Dropped lists the indexes of items that could not be fetched.
	Dropped []int
}

// Release drops every buffer in the package.
func (p *DeliveryPackage) Release() {
	for i := range p.Media {
		p.Media[i].Release()
	}
}

// TotalBytes returns the combined size of all fetched media.
func (p *DeliveryPackage) TotalBytes() int64 {
	var total int64
	for _, m := range p.Media {
		total += m.SizeBytes
	}
	return total
}
