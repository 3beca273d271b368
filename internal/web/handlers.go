package web

import (
	"database/sql"
	"fmt"
	"net/http"
	"strconv"

	"github.com/hpungsan/spec/internal/config"
	"github.com/hpungsan/spec/internal/db"
	"github.com/hpungsan/spec/internal/errors"
	"github.com/hpungsan/spec/internal/ops"
	"github.com/hpungsan/spec/internal/slug"
)

// Handlers contains HTTP route handlers for the feature browser.
type Handlers struct {
	repoRoot string
	cfg      *config.Config
	db       *sql.DB // nil hides journal data
	renderer *Renderer
}

// HandleList handles GET /features.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	result, err := ops.List(ops.ListInput{RepoRoot: h.repoRoot, Config: h.cfg, Long: true})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}
	h.renderer.renderPage(w, "list", ListPageData{
		PageData: h.renderer.page("Features", "features"),
		Items:    result.Items,
	})
}

// HandleDetail handles GET /features/{slug}: every document rendered to HTML,
// plus the journal record when one exists.
func (h *Handlers) HandleDetail(w http.ResponseWriter, r *http.Request) {
	featureSlug := r.PathValue("slug")
	if !slug.IsValid(featureSlug) {
		h.renderer.renderError(w, r, errors.NewInvalidRequest(fmt.Sprintf("Invalid feature slug format: '%s'", featureSlug)))
		return
	}

	store := ops.NewDocStore(h.repoRoot, h.cfg)
	if !store.Exists(featureSlug) {
		h.renderer.renderError(w, r, errors.NewNotFound(fmt.Sprintf("feature '%s' not found", featureSlug)))
		return
	}

	data := DetailPageData{
		PageData: h.renderer.page(featureSlug, "features"),
		Slug:     featureSlug,
		Branch:   h.cfg.BranchName(featureSlug),
	}
	for _, tmpl := range h.cfg.DocTemplates {
		md, err := store.Document(featureSlug, tmpl)
		switch {
		case errors.Is(err, errors.ErrNotFound):
			data.Documents = append(data.Documents, DocumentView{Template: tmpl, Missing: true})
		case err != nil:
			h.renderer.renderError(w, r, err)
			return
		default:
			data.Documents = append(data.Documents, DocumentView{
				Template: tmpl,
				Markdown: string(md),
				HTML:     renderMarkdown(md),
			})
		}
	}

	if h.db != nil {
		rec, err := db.GetFeature(r.Context(), h.db, h.repoRoot, featureSlug)
		if err == nil {
			data.Journal = rec
		} else if !errors.Is(err, errors.ErrNotFound) {
			h.renderer.logger.Warn("journal lookup failed", "slug", featureSlug, "error", err)
		}
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, data)
		return
	}
	h.renderer.renderPage(w, "detail", data)
}

// HandleDocument handles GET /features/{slug}/docs/{template} with the raw markdown.
func (h *Handlers) HandleDocument(w http.ResponseWriter, r *http.Request) {
	md, err := ops.NewDocStore(h.repoRoot, h.cfg).Document(r.PathValue("slug"), r.PathValue("template"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	_, _ = w.Write(md)
}

// HandleHistory handles GET /history.
func (h *Handlers) HandleHistory(w http.ResponseWriter, r *http.Request) {
	data := HistoryPageData{
		PageData: h.renderer.page("History", "history"),
		Items:    []db.Entry{},
		Disabled: h.db == nil,
	}

	if h.db != nil {
		result, err := ops.History(r.Context(), h.db, ops.HistoryInput{
			RepoRoot: h.repoRoot,
			Limit:    parseIntParam(r, "limit", db.DefaultHistoryLimit),
		})
		if err != nil {
			h.renderer.renderError(w, r, err)
			return
		}
		data.Items = result.Items
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, map[string]any{"items": data.Items})
		return
	}
	h.renderer.renderPage(w, "history", data)
}

// parseIntParam reads a non-negative integer query parameter, or def when absent or malformed.
func parseIntParam(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
