package handlers

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"photo-gallery/internal/logging"
	"photo-gallery/internal/streaming"
	"photo-gallery/internal/variants"
)

// variantURLs are the fetchable locations of an ImageVariants bundle.
type variantURLs struct {
	Thumbnail string `json:"thumbnail"`
	Medium    string `json:"medium"`
	Large     string `json:"large"`
}

type variantsResponse struct {
	variants.ImageVariants
	URLs variantURLs `json:"urls"`
}

// errUnregisteredSource rejects a remote, inline or blob source that no
// album lists.
var errUnregisteredSource = errors.New("source is not registered in any album")

// checkSource admits asset paths and any source an album lists.
func (h *Handlers) checkSource(ctx context.Context, source string) error {
	if variants.AssetSource(source) {
		return nil
	}
	found, err := h.db.HasImage(ctx, source)
	if err != nil {
		return err
	}
	if !found {
		if len(source) > 64 {
			source = source[:64] + "..."
		}
		return fmt.Errorf("%w: %s", errUnregisteredSource, source)
	}
	return nil
}

// GetVariants returns the current ref of every size class for ?src=,
// starting background transcodes for the ones not cached yet.
func (h *Handlers) GetVariants(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("src")
	if err := h.checkSource(r.Context(), source); err != nil {
		writeError(w, "get variants", err)
		return
	}

	bundle, err := h.variants.Variants(source)
	if err != nil {
		writeError(w, "get variants", err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSONStatusCode(w, http.StatusOK, variantsResponse{
		ImageVariants: bundle,
		URLs: variantURLs{
			Thumbnail: blobPath(bundle.Thumbnail),
			Medium:    blobPath(bundle.Medium),
			Large:     blobPath(bundle.Large),
		},
	})
}

// variantSource reads the source of a variant request. The src query
// parameter wins since mux cleans "//" out of path variables.
func variantSource(r *http.Request) string {
	if src := r.URL.Query().Get("src"); src != "" {
		return src
	}
	return mux.Vars(r)["src"]
}

// ServeVariant writes the image bytes for a size class of a source. While
// the variant is still being produced the placeholder is served uncached
// and flagged with X-Variant-Placeholder. ?wait=true blocks until the
// final variant exists.
func (h *Handlers) ServeVariant(w http.ResponseWriter, r *http.Request) {
	class, err := variants.ParseSizeClass(mux.Vars(r)["size"])
	if err != nil {
		writeError(w, "serve variant", err)
		return
	}
	source := variantSource(r)
	if err := h.checkSource(r.Context(), source); err != nil {
		writeError(w, "serve variant", err)
		return
	}

	var ref variants.Ref
	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
		ref, err = h.variants.Ensure(r.Context(), source, class)
	} else {
		ref, err = h.variants.GetOptimizedURL(source, class)
	}
	if err != nil {
		writeError(w, "serve variant", err)
		return
	}

	if ref.IsPlaceholder() {
		h.servePlaceholder(w, r, ref)
		return
	}
	h.serveRef(w, r, ref)
}

// ServeBlob writes a variant or upload handle; /api/blob/mem/x maps to
// blob:mem/x.
func (h *Handlers) ServeBlob(w http.ResponseWriter, r *http.Request) {
	h.serveRef(w, r, variants.Ref("blob:"+mux.Vars(r)["ref"]))
}

func (h *Handlers) servePlaceholder(w http.ResponseWriter, r *http.Request, ref variants.Ref) {
	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(string(ref), variants.PlaceholderPrefix))
	if err != nil {
		writeError(w, "serve placeholder", err)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Variant-Placeholder", "true")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(data)
	}
}

func (h *Handlers) serveRef(w http.ResponseWriter, r *http.Request, ref variants.Ref) {
	blob, err := h.variants.OpenBlob(ref)
	if err != nil {
		if !errors.Is(err, variants.ErrNotFound) && !errors.Is(err, variants.ErrInvalidArgument) {
			writeError(w, "serve blob", err)
			return
		}
		writeJSONError(w, "image not found", http.StatusNotFound)
		return
	}

	etag := blob.ETag()
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	contentType := blob.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(blob.Data)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(blob.Data)))
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if n, err := streaming.Write(r.Context(), w, blob.Data, h.stream); err != nil {
		logging.Debug("serving %s stopped after %d bytes: %v", ref, n, err)
	}
}

// GetCacheInfo reports the variant cache footprint.
func (h *Handlers) GetCacheInfo(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	writeJSONStatusCode(w, http.StatusOK, h.variants.Info())
}

// ClearCache releases every cached variant.
func (h *Handlers) ClearCache(w http.ResponseWriter, _ *http.Request) {
	n := h.variants.Clear()
	writeJSONStatusCode(w, http.StatusOK, map[string]int{"cleared": n})
}
