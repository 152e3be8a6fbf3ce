// Package devserver serves a generated site with a small JSON API and the
// live-reload event stream.
package devserver

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/starford/grimoire/internal/apperr"
	"github.com/starford/grimoire/internal/catalog"
	"github.com/starford/grimoire/internal/search"
)

// maxLimit caps the limit query parameter.
const maxLimit = 100

// Options configures the router.
type Options struct {
	Root    string        // generated site directory
	Index   *Index        // records served by /api/search
	Catalog catalog.Store // nil disables /api/backlinks and /api/fulltext
	Events  http.Handler  // mounted at /api/events when non-nil
	Logger  *slog.Logger
}

// Handler holds API route handlers.
type Handler struct {
	index   *Index
	catalog catalog.Store
	logger  *slog.Logger
}

// NewRouter creates a chi router serving the site at / and the API under /api.
func NewRouter(opts Options) chi.Router {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	index := opts.Index
	if index == nil {
		index = &Index{}
	}
	h := &Handler{index: index, catalog: opts.Catalog, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", h.Ready)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Logger)
		r.Get("/search", h.Search)
		r.Get("/fulltext", h.FullText)
		r.Get("/backlinks/*", h.Backlinks)
		if opts.Events != nil {
			r.Get("/events", opts.Events.ServeHTTP)
		}
	})

	r.Handle("/*", http.FileServer(http.Dir(opts.Root)))
	return r
}

// Ready reports 503 until the first build has produced records. With a
// catalog it also reports the cataloged note count.
func (h *Handler) Ready(w http.ResponseWriter, _ *http.Request) {
	n := h.index.Len()
	if n == 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "building", "records": 0})
		return
	}
	body := map[string]any{"status": "ok", "records": n}
	if h.catalog != nil {
		notes, err := h.catalog.Count()
		if err != nil {
			h.logger.Error("devserver: catalog count failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusServiceUnavailable, errorBody("catalog unavailable"))
			return
		}
		body["catalog_notes"] = notes
	}
	writeJSON(w, http.StatusOK, body)
}

// Search handles GET /api/search?q=&limit= with the same scoring as the
// browser widget.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if strings.TrimSpace(q) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("q is required"))
		return
	}
	results := h.index.Query(q, limitParam(r))
	if results == nil {
		results = []search.Result{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"query":   q,
		"results": results,
	})
}

// FullText handles GET /api/fulltext?q=&limit= against the catalog.
func (h *Handler) FullText(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		writeJSON(w, http.StatusNotImplemented, errorBody("catalog disabled"))
		return
	}
	q := r.URL.Query().Get("q")
	if strings.TrimSpace(q) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("q is required"))
		return
	}
	results, err := h.catalog.Search(q, limitParam(r))
	if err != nil {
		h.logger.Error("devserver: fulltext search failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if results == nil {
		results = []catalog.SearchResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"query":   q,
		"results": results,
	})
}

// Backlinks handles GET /api/backlinks/* where the wildcard is a site path
// such as 3_Characters/Strahd.html.
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		writeJSON(w, http.StatusNotImplemented, errorBody("catalog disabled"))
		return
	}
	p := pagePath(r)
	if p == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if _, err := h.catalog.GetNote(p); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("page not found"))
			return
		}
		h.logger.Error("devserver: get note failed", slog.String("path", p), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	rows, err := h.catalog.Backlinks(p)
	if err != nil {
		h.logger.Error("devserver: backlinks failed", slog.String("path", p), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if rows == nil {
		rows = []catalog.NoteRow{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"path":      p,
		"backlinks": rows,
	})
}

// pagePath extracts the page path after /api/backlinks/, decoding escaped
// segments.
func pagePath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

func limitParam(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return search.DefaultLimit
	}
	return min(n, maxLimit)
}
