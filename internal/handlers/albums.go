package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"photo-gallery/internal/albums"
	"photo-gallery/internal/logging"
	"photo-gallery/internal/variants"
)

const (
	// sessionCookie identifies a viewer for unique view counting.
	sessionCookie = "photo-gallery-session"

	// maxUploadMemory is the multipart memory budget; larger parts spill to disk.
	maxUploadMemory = 32 << 20
)

// ListAlbums returns albums matching ?q=, ?category= and ?featured=.
// ?recent=N switches to the N newest albums, skipping ?exclude=.
func (h *Handlers) ListAlbums(w http.ResponseWriter, r *http.Request) {
	list, err := h.db.ListAlbums(r.Context())
	if err != nil {
		writeError(w, "list albums", err)
		return
	}

	q := r.URL.Query()
	if recent := q.Get("recent"); recent != "" {
		limit, err := strconv.Atoi(recent)
		if err != nil || limit < 0 {
			writeJSONError(w, "recent must be a non-negative integer", http.StatusBadRequest)
			return
		}
		if limit == 0 {
			limit = albums.DefaultRecentLimit
		}
		writeJSONStatusCode(w, http.StatusOK, albums.Recent(list, q.Get("exclude"), limit))
		return
	}

	filter := albums.Filter{
		Query:    q.Get("q"),
		Category: q.Get("category"),
	}
	if featured := q.Get("featured"); featured != "" {
		v, err := strconv.ParseBool(featured)
		if err != nil {
			writeJSONError(w, "featured must be a boolean", http.StatusBadRequest)
			return
		}
		filter.Featured = v
	}

	writeJSONStatusCode(w, http.StatusOK, filter.Apply(list))
}

// GetAlbum returns a single album.
func (h *Handlers) GetAlbum(w http.ResponseWriter, r *http.Request) {
	a, err := h.db.GetAlbum(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, "get album", err)
		return
	}
	writeJSONStatusCode(w, http.StatusOK, a)
}

// CreateAlbum stores an album posted as JSON. Identity and view counts are
// assigned by the server.
func (h *Handlers) CreateAlbum(w http.ResponseWriter, r *http.Request) {
	var in albums.Album
	if err := readJSON(w, r, &in); err != nil {
		writeJSONError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	a, err := h.db.CreateAlbum(r.Context(), in)
	if err != nil {
		writeError(w, "create album", err)
		return
	}

	logging.Info("album created: %s (%q, %d images)", a.ID, a.Title, len(a.Images))
	writeJSONStatusCode(w, http.StatusCreated, a)
}

// UpdateAlbum applies a JSON partial update. Sources the album no longer
// lists are released unless another album still does.
func (h *Handlers) UpdateAlbum(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var patch albums.Patch
	if err := readJSON(w, r, &patch); err != nil {
		writeJSONError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	before, err := h.db.GetAlbum(r.Context(), id)
	if err != nil {
		writeError(w, "update album", err)
		return
	}
	a, err := h.db.UpdateAlbum(r.Context(), id, patch)
	if err != nil {
		writeError(w, "update album", err)
		return
	}
	h.releaseUnlisted(r.Context(), albums.Removed(before, a))

	logging.Info("album updated: %s (%q, %d images)", a.ID, a.Title, len(a.Images))
	writeJSONStatusCode(w, http.StatusOK, a)
}

// DeleteAlbum removes an album and its recorded views, then releases the
// sources no other album lists.
func (h *Handlers) DeleteAlbum(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	a, err := h.db.GetAlbum(r.Context(), id)
	if err != nil {
		writeError(w, "delete album", err)
		return
	}
	if err := h.db.DeleteAlbum(r.Context(), id); err != nil {
		writeError(w, "delete album", err)
		return
	}
	h.releaseUnlisted(r.Context(), albums.Removed(a, &albums.Album{}))

	logging.Info("album deleted: %s", id)
	w.WriteHeader(http.StatusNoContent)
}

// releaseUnlisted drops the variants of sources no album lists and revokes
// uploaded originals among them.
func (h *Handlers) releaseUnlisted(ctx context.Context, sources []string) {
	for _, src := range sources {
		listed, err := h.db.HasImage(ctx, src)
		if err != nil {
			logging.Warn("keeping %s, registry lookup failed: %v", src, err)
			continue
		}
		if !listed {
			h.variants.ReleaseSource(src)
		}
	}
}

// releaseUploads revokes completed uploads that never reached an album.
func (h *Handlers) releaseUploads(records []variants.UploadProgress) {
	for _, rec := range records {
		if rec.Status == variants.UploadCompleted && rec.Source != "" {
			h.variants.ReleaseSource(string(rec.Source))
		}
	}
}

type viewResponse struct {
	Views       int `json:"views"`
	UniqueViews int `json:"uniqueViews"`
}

// RecordView counts a view of an album. Viewers are told apart by a session
// cookie, issued on first visit.
func (h *Handlers) RecordView(w http.ResponseWriter, r *http.Request) {
	session := ""
	if c, err := r.Cookie(sessionCookie); err == nil {
		session = strings.TrimSpace(c.Value)
	}
	if session == "" {
		session = uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    session,
			Path:     "/",
			MaxAge:   int((365 * 24 * time.Hour).Seconds()),
			HttpOnly: true,
			Secure:   r.TLS != nil,
			SameSite: http.SameSiteLaxMode,
		})
	}

	views, unique, err := h.db.RecordVisit(r.Context(), albums.View{
		AlbumID:   mux.Vars(r)["id"],
		SessionID: session,
		UserAgent: r.UserAgent(),
		Referrer:  r.Referer(),
	})
	if err != nil {
		writeError(w, "record view", err)
		return
	}
	writeJSONStatusCode(w, http.StatusOK, viewResponse{Views: views, UniqueViews: unique})
}

// PreloadAlbum warms the variant cache for an album's cover and first
// images. ?size= selects the class, medium by default.
func (h *Handlers) PreloadAlbum(w http.ResponseWriter, r *http.Request) {
	class, err := sizeParam(r.URL.Query().Get("size"), variants.Medium)
	if err != nil {
		writeError(w, "preload album", err)
		return
	}

	a, err := h.db.GetAlbum(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, "preload album", err)
		return
	}

	result, err := h.variants.BatchProcess(r.Context(), albums.PreloadSources(a), class, h.batch)
	if err != nil {
		writeError(w, "preload album", err)
		return
	}

	logging.Debug("preloaded album %s: %d/%d %s variants", a.ID, result.Succeeded, result.Total, class)
	writeJSONStatusCode(w, http.StatusOK, result)
}

type uploadResponse struct {
	Album   *albums.Album             `json:"album,omitempty"`
	Uploads []variants.UploadProgress `json:"uploads"`
}

// UploadImages ingests the multipart "images" files of a request and
// appends every upload that produced a variant to the album.
func (h *Handlers) UploadImages(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	class, err := sizeParam(r.URL.Query().Get("size"), variants.Medium)
	if err != nil {
		writeError(w, "upload images", err)
		return
	}

	// Fail fast before reading a large body for an unknown album.
	if _, err := h.db.GetAlbum(r.Context(), id); err != nil {
		writeError(w, "upload images", err)
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeJSONError(w, "invalid multipart body: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			logging.Debug("failed to remove multipart temp files: %v", err)
		}
	}()

	files := r.MultipartForm.File["images"]
	if len(files) == 0 {
		writeJSONError(w, "no files in field \"images\"", http.StatusBadRequest)
		return
	}

	uploads := make([]variants.Upload, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			writeJSONError(w, "failed to open upload "+fh.Filename, http.StatusBadRequest)
			return
		}
		defer f.Close()
		uploads = append(uploads, variants.Upload{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Body:        f,
		})
	}

	records, err := h.variants.Ingest(r.Context(), uploads, class, nil)
	if err != nil {
		h.releaseUploads(records)
		writeError(w, "upload images", err)
		return
	}

	var sources []string
	for _, rec := range records {
		if rec.Status == variants.UploadCompleted {
			sources = append(sources, string(rec.Source))
		}
	}
	if len(sources) == 0 {
		writeJSONStatusCode(w, http.StatusUnprocessableEntity, uploadResponse{Uploads: records})
		return
	}

	a, err := h.db.AppendImages(r.Context(), id, sources)
	if err != nil {
		h.releaseUploads(records)
		writeError(w, "upload images", err)
		return
	}

	logging.Info("album %s: %d of %d uploads added", id, len(sources), len(records))
	writeJSONStatusCode(w, http.StatusOK, uploadResponse{Album: a, Uploads: records})
}

// GetStats returns gallery-wide totals with the distinct categories and tags.
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.db.AlbumStats(r.Context())
	if err != nil {
		writeError(w, "album stats", err)
		return
	}
	writeJSONStatusCode(w, http.StatusOK, stats)
}
