package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/iconidentify/mediagrab/internal/domain"
	"github.com/iconidentify/mediagrab/internal/service"
)

// MediaService is the pipeline surface the HTTP handlers use.
type MediaService interface {
	Ceiling() int64
	Resolve(ctx context.Context, raw string) (*domain.ResolutionResult, error)
	ProcessWithCeiling(ctx context.Context, raw string, ceiling int64) (*domain.DeliveryPackage, error)
	FetchOne(ctx context.Context, raw string, index int) (*domain.FetchedMedia, error)
}

// MediaHandler handles resolve and fetch endpoints.
type MediaHandler struct {
	mediaSvc MediaService
	logger   *slog.Logger
}

// NewMediaHandler creates a new media handler.
func NewMediaHandler(mediaSvc MediaService, logger *slog.Logger) *MediaHandler {
	return &MediaHandler{
		mediaSvc: mediaSvc,
		logger:   logger,
	}
}

// ResolveRequest is the body of POST /api/v1/resolve.
type ResolveRequest struct {
	URL string `json:"url"`
}

// FetchRequest is the body of POST /api/v1/fetch.
type FetchRequest struct {
	URL string `json:"url"`
	// CeilingBytes lowers the per-item ceiling for this request. Values above
	// the configured ceiling are clamped.
	CeilingBytes int64 `json:"ceiling_bytes,omitempty"`
}

// FetchedItem describes one downloaded item in a fetch manifest.
type FetchedItem struct {
	Index       int               `json:"index"`
	Kind        domain.MediaKind  `json:"kind"`
	Quality     domain.QualityTag `json:"quality"`
	URL         string            `json:"url"`
	SizeBytes   int64             `json:"size_bytes"`
	ContentType string            `json:"content_type"`
}

// FetchResponse is the manifest returned by POST /api/v1/fetch.
type FetchResponse struct {
	Items      []FetchedItem `json:"items"`
	Caption    string        `json:"caption,omitempty"`
	AuthorName string        `json:"author_name,omitempty"`
	TotalBytes int64         `json:"total_bytes"`
	Dropped    []int         `json:"dropped,omitempty"`
	Message    string        `json:"message,omitempty"`
}

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Resolve handles POST /api/v1/resolve
func (h *MediaHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.mediaSvc.Resolve(r.Context(), req.URL)
	if err != nil {
		h.writePipelineError(w, "resolve", err)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// Fetch handles POST /api/v1/fetch
func (h *MediaHandler) Fetch(w http.ResponseWriter, r *http.Request) {
	var req FetchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ceiling := h.mediaSvc.Ceiling()
	if req.CeilingBytes > 0 && req.CeilingBytes < ceiling {
		ceiling = req.CeilingBytes
	}

	pkg, err := h.mediaSvc.ProcessWithCeiling(r.Context(), req.URL, ceiling)
	if err != nil {
		h.writePipelineError(w, "fetch", err)
		return
	}
	// The manifest only reports sizes; the bytes are served by FetchItem.
	defer pkg.Release()

	resp := FetchResponse{
		Items:      make([]FetchedItem, 0, len(pkg.Media)),
		Caption:    pkg.Caption,
		AuthorName: pkg.AuthorName,
		TotalBytes: pkg.TotalBytes(),
		Dropped:    pkg.Dropped,
	}
	for _, m := range pkg.Media {
		resp.Items = append(resp.Items, FetchedItem{
			Index:       m.Index,
			Kind:        m.ContentKind,
			Quality:     m.Chosen.Quality,
			URL:         m.Chosen.URL,
			SizeBytes:   m.SizeBytes,
			ContentType: m.ContentType,
		})
	}
	if len(pkg.Dropped) > 0 {
		resp.Message = domain.UserMessage(&domain.PartialFailure{Fetched: pkg.Media, Failed: pkg.Dropped})
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// FetchItem handles GET /api/v1/fetch/{index}?url=
func (h *MediaHandler) FetchItem(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		h.writeError(w, http.StatusBadRequest, "invalid item index")
		return
	}
	raw := r.URL.Query().Get("url")
	if raw == "" {
		h.writeError(w, http.StatusBadRequest, "url query parameter required")
		return
	}

	media, err := h.mediaSvc.FetchOne(r.Context(), raw, index)
	if err != nil {
		h.writePipelineError(w, "fetch item", err)
		return
	}
	defer media.Release()

	contentType := media.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.FormatInt(int64(len(media.Data)), 10))
	w.Header().Set("X-Media-Quality", string(media.Chosen.Quality))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(media.Data); err != nil {
		h.logger.Debug("write media body failed", "error", err)
	}
}

// statusFor maps a pipeline error to an HTTP status code.
func statusFor(err error) int {
	var (
		classErr *domain.ClassificationError
		aggErr   *domain.AggregateResolveError
	)
	switch {
	case errors.As(err, &classErr):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrItemOutOfRange):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNoCandidateFits), errors.Is(err, domain.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &aggErr):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrNoMediaFound):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

func (h *MediaHandler) writePipelineError(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Warn(op+" failed", "status", status, "error", err)
	}
	h.writeJSON(w, status, ErrorResponse{
		Error:   err.Error(),
		Message: domain.UserMessage(err),
	})
}

func (h *MediaHandler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *MediaHandler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, ErrorResponse{Error: message})
}
