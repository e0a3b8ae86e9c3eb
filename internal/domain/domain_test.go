package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestQualityTag_Rank(t *testing.T) {
	order := []QualityTag{QualityWatermarked, QualityStandardDef, QualityHighDef, QualityRawDownload}
	for i := 1; i < len(order); i++ {
		if order[i-1].Rank() >= order[i].Rank() {
			t.Errorf("%s.Rank() = %d should be below %s.Rank() = %d",
				order[i-1], order[i-1].Rank(), order[i], order[i].Rank())
		}
	}
	if QualityTag("unknown").Rank() != QualityStandardDef.Rank() {
		t.Errorf("unknown tag should rank as sd")
	}
}

func TestResolutionResult_Validate(t *testing.T) {
	candidate := CandidateURL{URL: "https://cdn.example/a.mp4", Quality: QualityHighDef}

	tests := []struct {
		name   string
		result *ResolutionResult
		valid  bool
	}{
		{"nil", nil, false},
		{"no items", &ResolutionResult{}, false},
		{"item without candidates", &ResolutionResult{Items: []MediaItem{
			{Kind: MediaKindPhoto, Candidates: []CandidateURL{candidate}},
			{Kind: MediaKindPhoto},
		}}, false},
		{"single item", &ResolutionResult{Items: []MediaItem{
			{Kind: MediaKindVideo, Candidates: []CandidateURL{candidate}},
		}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.result.Validate()
			if tt.valid && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tt.valid && !errors.Is(err, ErrNoMediaFound) {
				t.Errorf("Validate() = %v, want ErrNoMediaFound", err)
			}
		})
	}
}

func TestDeliveryPackage_ReleaseAndTotal(t *testing.T) {
	pkg := &DeliveryPackage{Media: []FetchedMedia{
		{Data: make([]byte, 3), SizeBytes: 3},
		{Data: make([]byte, 5), SizeBytes: 5},
	}}

	if pkg.TotalBytes() != 8 {
		t.Errorf("TotalBytes() = %d, want 8", pkg.TotalBytes())
	}

	pkg.Release()
	for i, m := range pkg.Media {
		if m.Data != nil {
			t.Errorf("Media[%d].Data should be nil after Release", i)
		}
	}
}

func TestAggregateResolveError(t *testing.T) {
	agg := &AggregateResolveError{Failures: []*ResolveError{
		NewResolveError("tiktok-provider", ErrProviderExhausted),
		NewResolveError("musicaldown", ErrScrapeParseFailed),
	}}

	if !errors.Is(agg, ErrProviderExhausted) {
		t.Error("errors.Is should find ErrProviderExhausted")
	}
	if !errors.Is(agg, ErrScrapeParseFailed) {
		t.Error("errors.Is should find ErrScrapeParseFailed")
	}

	var re *ResolveError
	if !errors.As(agg, &re) || re.Strategy != "tiktok-provider" {
		t.Errorf("errors.As = %+v, want first failure", re)
	}

	msg := agg.Error()
	if !strings.Contains(msg, "tiktok-provider") || !strings.Contains(msg, "musicaldown") {
		t.Errorf("Error() = %q should name every strategy", msg)
	}
}

func TestPartialFailure_UnwrapOrdered(t *testing.T) {
	pf := &PartialFailure{
		Fetched: []FetchedMedia{{Index: 0}},
		Failed:  []int{1, 3},
		Errors: map[int]error{
			3: &FetchError{Item: 3, Err: ErrTooLarge},
			1: &FetchError{Item: 1, Err: ErrNoCandidateFits},
		},
	}

	if pf.Error() != "2 of 3 items failed" {
		t.Errorf("Error() = %q", pf.Error())
	}

	errs := pf.Unwrap()
	if len(errs) != 2 {
		t.Fatalf("Unwrap() len = %d, want 2", len(errs))
	}
	var first *FetchError
	if !errors.As(errs[0], &first) || first.Item != 1 {
		t.Errorf("first unwrapped error = %v, want item 1", errs[0])
	}
	if !errors.Is(pf, ErrTooLarge) {
		t.Error("errors.Is should reach per-item errors")
	}
}

func TestClassificationError_TruncatesInput(t *testing.T) {
	err := &ClassificationError{Input: strings.Repeat("a", 200), Err: ErrNotAURL}

	if !errors.Is(err, ErrNotAURL) {
		t.Error("errors.Is should find ErrNotAURL")
	}
	if len(err.Error()) > 120 {
		t.Errorf("Error() is %d bytes, input should be shortened", len(err.Error()))
	}
}

func TestUserMessage(t *testing.T) {
	upstream := &AggregateResolveError{Failures: []*ResolveError{
		NewResolveError("tiktok-provider", ErrProviderExhausted),
		NewResolveError("musicaldown", ErrUpstreamUnavailable),
	}}
	missing := &AggregateResolveError{Failures: []*ResolveError{
		NewResolveError("tiktok-provider", ErrNoMediaFound),
		NewResolveError("musicaldown", ErrUpstreamUnavailable),
	}}

	unsupported := &AggregateResolveError{Failures: []*ResolveError{
		NewResolveError("x-syndication", ErrStrategyUnsupported),
	}}
	unavailable := &FetchError{Err: fmt.Errorf("%w: head status 403", ErrCandidatesUnavailable)}

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"not a url", &ClassificationError{Err: ErrNotAURL}, "doesn't look like a link"},
		{"unsupported", &ClassificationError{Err: ErrUnsupportedPlatform}, "isn't supported"},
		{"upstream down", upstream, "unavailable"},
		{"no media", missing, "Could not find any media"},
		{"no strategy for site", unsupported, "isn't supported"},
		{"too large", &FetchError{Err: ErrNoCandidateFits}, "too large"},
		{"candidates unavailable", unavailable, "unavailable"},
		{"nothing fetched, all unavailable", &PartialFailure{Failed: []int{0, 1}, Errors: map[int]error{
			0: unavailable,
			1: unavailable,
		}}, "unavailable"},
		{"partial", &PartialFailure{Fetched: []FetchedMedia{{}}, Failed: []int{2}}, "1 item(s)"},
		{"nothing fetched", &PartialFailure{Failed: []int{0, 1}, Errors: map[int]error{
			0: &FetchError{Err: errors.New("status 500")},
		}}, "could not be downloaded"},
		{"unknown", fmt.Errorf("boom"), "Something went wrong"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UserMessage(tt.err)
			if tt.want == "" {
				if got != "" {
					t.Errorf("UserMessage() = %q, want empty", got)
				}
				return
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("UserMessage() = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}

func TestBuildCaption(t *testing.T) {
	video := FetchedMedia{ContentKind: MediaKindVideo, SizeBytes: 3 * 1024 * 1024}
	photo := FetchedMedia{ContentKind: MediaKindPhoto}

	t.Run("single video", func(t *testing.T) {
		got := BuildCaption(&ResolutionResult{Caption: "dance", AuthorName: "alice"}, []FetchedMedia{video}, 0)
		want := "🎵 dance\n\n👤 alice\n📊 3.0MB"
		if got != want {
			t.Errorf("caption = %q, want %q", got, want)
		}
	})

	t.Run("title fallback", func(t *testing.T) {
		got := BuildCaption(&ResolutionResult{Title: "a title"}, []FetchedMedia{photo, photo}, 0)
		if got != "📸 a title" {
			t.Errorf("caption = %q, want %q", got, "📸 a title")
		}
	})

	t.Run("label fallback", func(t *testing.T) {
		got := BuildCaption(&ResolutionResult{}, []FetchedMedia{video, photo}, 0)
		if got != "🎞 Media post" {
			t.Errorf("caption = %q, want %q", got, "🎞 Media post")
		}
	})

	t.Run("drops author when over limit", func(t *testing.T) {
		desc := strings.Repeat("x", 20)
		got := BuildCaption(&ResolutionResult{Caption: desc, AuthorName: "someone"}, []FetchedMedia{photo}, 25)
		if got != "📸 "+desc {
			t.Errorf("caption = %q, want description only", got)
		}
	})

	t.Run("never cuts text", func(t *testing.T) {
		got := BuildCaption(&ResolutionResult{Caption: strings.Repeat("é", 50)}, []FetchedMedia{photo}, 10)
		if got != "📸 Photo" {
			t.Errorf("caption = %q, want %q", got, "📸 Photo")
		}
		if captionLen(got) > 10 {
			t.Errorf("caption is %d UTF-16 units, limit 10", captionLen(got))
		}
	})

	t.Run("counts emoji as two units", func(t *testing.T) {
		// 7 runes but 13 UTF-16 units.
		got := BuildCaption(&ResolutionResult{Caption: strings.Repeat("😀", 5)}, []FetchedMedia{photo}, 10)
		if got != "📸 Photo" {
			t.Errorf("caption = %q, want %q", got, "📸 Photo")
		}
	})
}

func TestCaptionLen(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"abc", 3},
		{"é", 1},
		{"📸", 2},
		{"📸 a", 4},
		{"\xff", 1},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := captionLen(tt.in); got != tt.want {
				t.Errorf("captionLen(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}
