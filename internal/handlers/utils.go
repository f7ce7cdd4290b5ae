package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"photo-gallery/internal/albums"
	"photo-gallery/internal/database"
	"photo-gallery/internal/logging"
	"photo-gallery/internal/variants"
)

// maxJSONBody bounds request bodies decoded by readJSON.
const maxJSONBody = 1 << 20

// writeJSON encodes v as JSON and writes it to the response writer.
// Any encoding or write errors are logged since we typically cannot
// recover from them in an HTTP handler context.
func writeJSON(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// writeJSONStatusCode writes v as JSON with the given status code.
func writeJSONStatusCode(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	writeJSON(w, v)
}

// writeJSONError writes an error response as JSON with the given status code.
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	writeJSONStatusCode(w, statusCode, map[string]string{"error": message})
}

// statusForError maps domain errors onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, variants.ErrInvalidArgument),
		errors.Is(err, albums.ErrInvalidAlbum),
		errors.Is(err, database.ErrMissingSession):
		return http.StatusBadRequest
	case errors.Is(err, database.ErrAlbumNotFound),
		errors.Is(err, variants.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errUnregisteredSource),
		errors.Is(err, variants.ErrForbiddenSource):
		return http.StatusForbidden
	case errors.Is(err, variants.ErrStopped),
		errors.Is(err, variants.ErrUploadsDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs server-side failures and writes err with its mapped status.
func writeError(w http.ResponseWriter, op string, err error) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		logging.Error("%s failed: %v", op, err)
	} else {
		logging.Debug("%s rejected: %v", op, err)
	}
	writeJSONError(w, err.Error(), status)
}

// readJSON decodes a bounded JSON body into v.
func readJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// sizeParam parses a size class from a query value, defaulting to fallback.
func sizeParam(value string, fallback variants.SizeClass) (variants.SizeClass, error) {
	if strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	return variants.ParseSizeClass(value)
}

// countParam parses a non-negative integer query value. Empty yields 0 so
// callers can apply their default.
func countParam(r *http.Request, name string) (int, error) {
	value := strings.TrimSpace(r.URL.Query().Get(name))
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", variants.ErrInvalidArgument, name)
	}
	return n, nil
}

// blobPath is the URL a browser fetches a ref from. Placeholders are inline
// data URLs and are returned unchanged.
func blobPath(ref variants.Ref) string {
	if ref.Revocable() {
		return "/api/blob/" + strings.TrimPrefix(string(ref), "blob:")
	}
	return string(ref)
}
