package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/iconidentify/mediagrab/internal/config"
	"github.com/iconidentify/mediagrab/internal/domain"
	"github.com/iconidentify/mediagrab/internal/downloader"
	"github.com/iconidentify/mediagrab/internal/gallery"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubResolver struct {
	result *domain.ResolutionResult
	err    error
	got    domain.MediaRequest
}

func (s *stubResolver) Resolve(ctx context.Context, req domain.MediaRequest) (*domain.ResolutionResult, error) {
	s.got = req
	return s.result, s.err
}

// mediaServer serves /<size>.<ext> with that many bytes; /fail returns 500.
func mediaServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/")
		base, ext, _ := strings.Cut(name, ".")
		size, err := strconv.Atoi(base)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if ext == "mp4" {
			w.Header().Set("Content-Type", "video/mp4")
		} else {
			w.Header().Set("Content-Type", "image/jpeg")
		}
		w.Header().Set("Content-Length", strconv.Itoa(size))
		if r.Method == http.MethodGet {
			w.Write([]byte(strings.Repeat("b", size)))
		}
	}))
}

func newService(resolver Resolver, ceiling int64) *MediaService {
	dl := downloader.NewHTTPDownloader(config.FetchConfig{
		ProbeTimeout:    2 * time.Second,
		DownloadTimeout: 2 * time.Second,
		UserAgent:       "test-agent",
	})
	fetcher := downloader.NewFetcher(dl, testLogger())
	return NewMediaService(resolver, gallery.NewAssembler(fetcher, testLogger()), fetcher, ceiling, 0, testLogger())
}

func TestProcess_SingleVideo(t *testing.T) {
	server := mediaServer()
	defer server.Close()

	resolver := &stubResolver{result: &domain.ResolutionResult{
		AuthorName:   "dancer",
		Caption:      "moves",
		StrategyUsed: "tiktok-provider",
		Items: []domain.MediaItem{{
			Kind: domain.MediaKindVideo,
			Candidates: []domain.CandidateURL{
				{URL: server.URL + "/20.mp4", Quality: domain.QualityWatermarked},
				{URL: server.URL + "/80.mp4", Quality: domain.QualityStandardDef},
			},
		}},
	}}

	pkg, err := newService(resolver, 50).Process(context.Background(), "check https://www.tiktok.com/@user/video/123")
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if resolver.got.Platform != domain.PlatformShortVideo {
		t.Errorf("platform = %q, want short_video", resolver.got.Platform)
	}
	if len(pkg.Media) != 1 || pkg.Media[0].SizeBytes != 20 {
		t.Fatalf("media = %+v, want one 20 byte item", pkg.Media)
	}
	if !strings.HasPrefix(pkg.Caption, "🎵 moves") || !strings.Contains(pkg.Caption, "👤 dancer") {
		t.Errorf("Caption = %q", pkg.Caption)
	}
	if len(pkg.Dropped) != 0 {
		t.Errorf("Dropped = %v, want none", pkg.Dropped)
	}
}

func TestProcess_PartialGallery(t *testing.T) {
	server := mediaServer()
	defer server.Close()

	resolver := &stubResolver{result: &domain.ResolutionResult{
		Items: []domain.MediaItem{
			{Kind: domain.MediaKindPhoto, Candidates: []domain.CandidateURL{{URL: server.URL + "/10.jpg"}}},
			{Kind: domain.MediaKindPhoto, Candidates: []domain.CandidateURL{{URL: server.URL + "/fail"}}},
			{Kind: domain.MediaKindPhoto, Candidates: []domain.CandidateURL{{URL: server.URL + "/12.jpg"}}},
		},
	}}

	pkg, err := newService(resolver, 1024).Process(context.Background(), "https://www.instagram.com/p/abc/")
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if len(pkg.Media) != 2 {
		t.Fatalf("media = %d, want 2", len(pkg.Media))
	}
	if len(pkg.Dropped) != 1 || pkg.Dropped[0] != 1 {
		t.Errorf("Dropped = %v, want [1]", pkg.Dropped)
	}
	if !strings.HasPrefix(pkg.Caption, "📸 Photo set") {
		t.Errorf("Caption = %q", pkg.Caption)
	}
}

func TestProcess_SingleItemTooLarge(t *testing.T) {
	server := mediaServer()
	defer server.Close()

	resolver := &stubResolver{result: &domain.ResolutionResult{
		Items: []domain.MediaItem{{
			Kind: domain.MediaKindVideo,
			Candidates: []domain.CandidateURL{
				{URL: server.URL + "/60.mp4", Quality: domain.QualityStandardDef},
				{URL: server.URL + "/80.mp4", Quality: domain.QualityHighDef},
			},
		}},
	}}

	_, err := newService(resolver, 50).Process(context.Background(), "https://www.tiktok.com/@user/video/123")

	var fe *domain.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if !errors.Is(err, domain.ErrNoCandidateFits) {
		t.Errorf("err = %v, want ErrNoCandidateFits", err)
	}
	if msg := domain.UserMessage(err); !strings.Contains(msg, "too large") {
		t.Errorf("UserMessage = %q", msg)
	}
}

func TestProcess_ClassificationError(t *testing.T) {
	resolver := &stubResolver{}
	_, err := newService(resolver, 50).Process(context.Background(), "https://example.com/video")

	if !errors.Is(err, domain.ErrUnsupportedPlatform) {
		t.Errorf("err = %v, want ErrUnsupportedPlatform", err)
	}
	if resolver.got.SourceURL != "" {
		t.Error("resolver must not be called for rejected input")
	}
}

func TestProcess_ResolveError(t *testing.T) {
	agg := &domain.AggregateResolveError{Failures: []*domain.ResolveError{
		domain.NewResolveError("tiktok-provider", domain.ErrProviderExhausted),
	}}
	_, err := newService(&stubResolver{err: agg}, 50).Process(context.Background(), "https://vm.tiktok.com/abc")

	var got *domain.AggregateResolveError
	if !errors.As(err, &got) {
		t.Errorf("err = %v, want AggregateResolveError", err)
	}
}

func TestFetchOne(t *testing.T) {
	server := mediaServer()
	defer server.Close()

	resolver := &stubResolver{result: &domain.ResolutionResult{
		Items: []domain.MediaItem{
			{Kind: domain.MediaKindPhoto, Candidates: []domain.CandidateURL{{URL: server.URL + "/10.jpg"}}},
			{Kind: domain.MediaKindVideo, Candidates: []domain.CandidateURL{{URL: server.URL + "/30.mp4"}}},
		},
	}}
	svc := newService(resolver, 1024)

	media, err := svc.FetchOne(context.Background(), "https://x.com/a/status/1", 1)
	if err != nil {
		t.Fatalf("FetchOne failed: %v", err)
	}
	if media.Index != 1 || media.SizeBytes != 30 || media.ContentKind != domain.MediaKindVideo {
		t.Errorf("media = %d/%d/%s", media.Index, media.SizeBytes, media.ContentKind)
	}

	_, err = svc.FetchOne(context.Background(), "https://x.com/a/status/1", 2)
	if !errors.Is(err, ErrItemOutOfRange) {
		t.Errorf("err = %v, want ErrItemOutOfRange", err)
	}
}

func TestNewMediaService_Defaults(t *testing.T) {
	svc := NewMediaService(&stubResolver{}, nil, nil, 0, 0, testLogger())
	if svc.Ceiling() != config.DefaultCeilingBytes {
		t.Errorf("Ceiling = %d, want %d", svc.Ceiling(), config.DefaultCeilingBytes)
	}
	if svc.captionLimit != domain.DefaultCaptionLimit {
		t.Errorf("captionLimit = %d, want %d", svc.captionLimit, domain.DefaultCaptionLimit)
	}
}
