package handler

import (
	"context"
	"io"
	"log/slog"

	"github.com/iconidentify/mediagrab/internal/domain"
)

// testLogger returns a silent logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockUserCounter is a test implementation of UserCounter.
type mockUserCounter struct {
	count int
	err   error
}

func (m *mockUserCounter) Count(ctx context.Context) (int, error) {
	return m.count, m.err
}

// mockQueue is a test implementation of QueueDepth.
type mockQueue struct {
	pending int
}

func (m *mockQueue) Pending() int {
	return m.pending
}

// mockMediaService is a test implementation of MediaService.
type mockMediaService struct {
	ceiling int64

	result     *domain.ResolutionResult
	resolveErr error

	pkg        *domain.DeliveryPackage
	processErr error
	gotCeiling int64

	media    *domain.FetchedMedia
	fetchErr error
	gotIndex int
	gotURL   string
}

func (m *mockMediaService) Ceiling() int64 {
	if m.ceiling == 0 {
		return 50 << 20
	}
	return m.ceiling
}

func (m *mockMediaService) Resolve(ctx context.Context, raw string) (*domain.ResolutionResult, error) {
	m.gotURL = raw
	return m.result, m.resolveErr
}

func (m *mockMediaService) ProcessWithCeiling(ctx context.Context, raw string, ceiling int64) (*domain.DeliveryPackage, error) {
	m.gotURL = raw
	m.gotCeiling = ceiling
	return m.pkg, m.processErr
}

func (m *mockMediaService) FetchOne(ctx context.Context, raw string, index int) (*domain.FetchedMedia, error) {
	m.gotURL = raw
	m.gotIndex = index
	return m.media, m.fetchErr
}
