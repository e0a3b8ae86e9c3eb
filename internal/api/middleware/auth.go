package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

// Where a request carried its API key.
const (
	keyFromHeader = "header"
	keyFromBearer = "bearer"
	keyFromQuery  = "query"
)

// queryKeyParams are accepted on GET only, so a fetched item can be streamed
// from a plain link. Earlier names win.
var queryKeyParams = []string{"key", "api_key"}

// APIKeyAuth rejects requests that do not carry apiKey. The key is read from
// X-API-Key, then an Authorization bearer token, then for GET requests the
// key or api_key query parameter.
func APIKeyAuth(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, source := apiKeyFrom(r)
			if key == "" {
				unauthorized(w, r, "missing API key", source)
				return
			}
			if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) != 1 {
				unauthorized(w, r, "invalid API key", source)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func apiKeyFrom(r *http.Request) (string, string) {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key, keyFromHeader
	}

	// The auth scheme is case-insensitive.
	if scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " "); ok && strings.EqualFold(scheme, "Bearer") {
		if token = strings.TrimSpace(token); token != "" {
			return token, keyFromBearer
		}
	}

	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return "", ""
	}
	q := r.URL.Query()
	for _, name := range queryKeyParams {
		if key := q.Get(name); key != "" {
			return key, keyFromQuery
		}
	}
	return "", ""
}

func unauthorized(w http.ResponseWriter, r *http.Request, reason, source string) {
	slog.WarnContext(r.Context(), "api key rejected",
		"reason", reason,
		"source", source,
		"path", r.URL.Path,
		"request_id", middleware.GetReqID(r.Context()),
	)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="mediagrab"`)
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": reason})
}

// CORS lets browser clients call the API and read the media headers of a
// streamed item.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key, Authorization")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Length, X-Media-Quality")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
