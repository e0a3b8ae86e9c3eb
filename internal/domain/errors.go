package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Classification errors.
var (
	// ErrNotAURL is returned when the input is empty or not recognizable as a URL.
	ErrNotAURL = errors.New("not a URL")

	// ErrUnsupportedPlatform is returned when the URL does not belong to a known platform.
	ErrUnsupportedPlatform = errors.New("unsupported platform")
)

// Resolve errors.
var (
	// ErrProviderExhausted is returned when every API version of a provider failed.
	ErrProviderExhausted = errors.New("provider exhausted")

	// ErrNoMediaFound is returned when a payload parses but holds no media.
	ErrNoMediaFound = errors.New("no media found")

	// ErrScrapeParseFailed is returned when a scraped page yields no usable URL.
	ErrScrapeParseFailed = errors.New("scraped page markup not recognized")

	// ErrUpstreamUnavailable is returned when an upstream returns a non-success status.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrStrategyUnsupported is returned when a strategy does not handle the request's site.
	ErrStrategyUnsupported = errors.New("strategy does not support site")
)

// Fetch errors.
var (
	// ErrNoCandidateFits is returned when no candidate downloads within the ceiling.
	ErrNoCandidateFits = errors.New("no candidate fits within size ceiling")

	// ErrNoCandidates is returned when an item has no candidates at all.
	ErrNoCandidates = errors.New("no candidate URLs")

	// ErrTooLarge is returned when a single download exceeds the ceiling.
	ErrTooLarge = errors.New("media exceeds size ceiling")

	// ErrCandidatesUnavailable is returned when every candidate failed for a
	// reason other than size. It matches ErrUpstreamUnavailable.
	ErrCandidatesUnavailable = fmt.Errorf("no candidate could be downloaded: %w", ErrUpstreamUnavailable)
)

// ClassificationError wraps a rejected input.
type ClassificationError struct {
	Input string
	Err   error
}

func (e *ClassificationError) Error() string {
	return "classify " + quoteShort(e.Input) + ": " + e.Err.Error()
}

func (e *ClassificationError) Unwrap() error {
	return e.Err
}

// ResolveError wraps a single strategy failure.
type ResolveError struct {
	Strategy string
	Err      error
}

func (e *ResolveError) Error() string {
	return e.Strategy + ": " + e.Err.Error()
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}

// NewResolveError creates a new ResolveError.
func NewResolveError(strategy string, err error) *ResolveError {
	return &ResolveError{Strategy: strategy, Err: err}
}

// AggregateResolveError carries every strategy failure of one request.
type AggregateResolveError struct {
	Failures []*ResolveError
}

func (e *AggregateResolveError) Error() string {
	if len(e.Failures) == 0 {
		return "could not resolve: no strategy configured"
	}
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, f.Error())
	}
	return "could not resolve: " + strings.Join(parts, "; ")
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *AggregateResolveError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f)
	}
	return errs
}

// FetchError reports that one media item could not be fetched.
type FetchError struct {
	Item     int
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch item %d (%d candidates tried): %v", e.Item, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// PartialFailure reports a gallery where some items could not be fetched.
type PartialFailure struct {
	Fetched []FetchedMedia
	Failed  []int
	Errors  map[int]error
}

func (e *PartialFailure) Error() string {
	return fmt.Sprintf("%d of %d items failed", len(e.Failed), len(e.Failed)+len(e.Fetched))
}

// Unwrap exposes the per-item errors in item order.
func (e *PartialFailure) Unwrap() []error {
	idx := make([]int, 0, len(e.Errors))
	for i := range e.Errors {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	errs := make([]error, 0, len(idx))
	for _, i := range idx {
		errs = append(errs, e.Errors[i])
	}
	return errs
}

// UserMessage maps a terminal pipeline error to a message a user can act on.
func UserMessage(err error) string {
	var partial *PartialFailure
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotAURL):
		return "That doesn't look like a link. Send a TikTok, Instagram or X post URL."
	case errors.Is(err, ErrUnsupportedPlatform):
		return "That site isn't supported. Send a TikTok, Instagram or X post URL."
	case errors.As(err, &partial) && len(partial.Fetched) == 0:
		return userFetchMessage(err)
	case errors.As(err, &partial):
		return fmt.Sprintf("%d item(s) could not be downloaded and were skipped.", len(partial.Failed))
	case errors.Is(err, ErrNoCandidateFits), errors.Is(err, ErrTooLarge):
		return "The media is too large to send (max 50MB). Try a shorter video."
	}

	var agg *AggregateResolveError
	if errors.As(err, &agg) {
		if allUnsupported(agg) {
			return "That site isn't supported. Send a TikTok, Instagram or X post URL."
		}
		if onlyUpstream(agg) {
			return "The download service is unavailable right now. Please try again later."
		}
		return "Could not find any media at that link. Check that the post is public."
	}
	if errors.Is(err, ErrUpstreamUnavailable) || errors.Is(err, ErrProviderExhausted) {
		return "The download service is unavailable right now. Please try again later."
	}
	if errors.Is(err, ErrNoMediaFound) || errors.Is(err, ErrScrapeParseFailed) {
		return "Could not find any media at that link. Check that the post is public."
	}
	return "Something went wrong while downloading. Please try again later."
}

func userFetchMessage(err error) string {
	if errors.Is(err, ErrNoCandidateFits) || errors.Is(err, ErrTooLarge) {
		return "The media is too large to send (max 50MB). Try a shorter video."
	}
	if errors.Is(err, ErrUpstreamUnavailable) {
		return "The download service is unavailable right now. Please try again later."
	}
	return "The media could not be downloaded. Please try again later."
}

// allUnsupported reports whether no configured strategy handles the site.
func allUnsupported(agg *AggregateResolveError) bool {
	if len(agg.Failures) == 0 {
		return false
	}
	for _, f := range agg.Failures {
		if !errors.Is(f, ErrStrategyUnsupported) {
			return false
		}
	}
	return true
}

// onlyUpstream reports whether every failure was an availability problem
// rather than a missing-media problem.
func onlyUpstream(agg *AggregateResolveError) bool {
	seen := false
	for _, f := range agg.Failures {
		if errors.Is(f, ErrStrategyUnsupported) {
			continue
		}
		if !errors.Is(f, ErrUpstreamUnavailable) && !errors.Is(f, ErrProviderExhausted) {
			return false
		}
		seen = true
	}
	return seen
}

func quoteShort(s string) string {
	const max = 80
	r := []rune(s)
	if len(r) > max {
		s = string(r[:max]) + "..."
	}
	return fmt.Sprintf("%q", s)
}
