package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"photo-gallery/internal/albums"
	"photo-gallery/internal/logging"
)

// AlbumViewsByDate returns an album's daily view counts over ?days=, 30 by
// default.
func (h *Handlers) AlbumViewsByDate(w http.ResponseWriter, r *http.Request) {
	days, err := countParam(r, "days")
	if err != nil {
		writeError(w, "album views", err)
		return
	}

	daily, err := h.db.ViewsByDate(r.Context(), mux.Vars(r)["id"], days)
	if err != nil {
		writeError(w, "album views", err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSONStatusCode(w, http.StatusOK, daily)
}

type analyticsResponse struct {
	Stats      albums.ViewStats   `json:"stats"`
	MostViewed []albums.ViewCount `json:"mostViewed"`
}

// GetAnalytics returns the recorded view summary and the ?limit= most
// viewed albums.
func (h *Handlers) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	limit, err := countParam(r, "limit")
	if err != nil {
		writeError(w, "analytics", err)
		return
	}

	stats, err := h.db.ViewStats(r.Context())
	if err != nil {
		writeError(w, "analytics", err)
		return
	}
	top, err := h.db.MostViewed(r.Context(), limit)
	if err != nil {
		writeError(w, "analytics", err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSONStatusCode(w, http.StatusOK, analyticsResponse{Stats: stats, MostViewed: top})
}

// ExportViews downloads every recorded view as a JSON array.
func (h *Handlers) ExportViews(w http.ResponseWriter, r *http.Request) {
	views, err := h.db.ExportViews(r.Context())
	if err != nil {
		writeError(w, "export views", err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="views.json"`)
	writeJSONStatusCode(w, http.StatusOK, views)
}

// CleanViews removes views older than ?days=, 365 by default, keeping the
// album totals.
func (h *Handlers) CleanViews(w http.ResponseWriter, r *http.Request) {
	days, err := countParam(r, "days")
	if err != nil {
		writeError(w, "clean views", err)
		return
	}
	if days == 0 {
		days = albums.DefaultViewRetentionDays
	}

	removed, err := h.db.CleanOldViews(r.Context(), days)
	if err != nil {
		writeError(w, "clean views", err)
		return
	}
	logging.Info("cleaned %d views older than %d days", removed, days)
	writeJSONStatusCode(w, http.StatusOK, map[string]int{"removed": removed, "days": days})
}
