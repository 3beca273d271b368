package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hpungsan/spec/internal/db"
	"github.com/hpungsan/spec/internal/docs"
	"github.com/hpungsan/spec/internal/errors"
	"github.com/hpungsan/spec/internal/ops"
)

// PageData contains common fields used across all page templates.
type PageData struct {
	Title   string
	Version string
	Nav     string // active nav item: "features" or "history"
}

// ListPageData is the template data for the feature list page.
type ListPageData struct {
	PageData
	Items []ops.FeatureItem
}

// DocumentView is one rendered feature document.
type DocumentView struct {
	Template string        `json:"template"`
	Markdown string        `json:"markdown,omitempty"`
	HTML     template.HTML `json:"-"`
	Missing  bool          `json:"missing"`
}

// DetailPageData is the template data for the feature detail page.
type DetailPageData struct {
	PageData  `json:"-"`
	Slug      string         `json:"slug"`
	Branch    string         `json:"branch"`
	Documents []DocumentView `json:"documents"`
	Journal   *db.Feature    `json:"journal,omitempty"`
}

// HistoryPageData is the template data for the history page.
type HistoryPageData struct {
	PageData
	Items    []db.Entry
	Disabled bool
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Message    string
}

// Renderer manages template parsing and rendering.
type Renderer struct {
	templates map[string]*template.Template
	version   string
	logger    *slog.Logger
}

// NewRenderer parses layout.html plus one file per page from templateFS.
func NewRenderer(templateFS fs.FS, version string, logger *slog.Logger) (*Renderer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	funcMap := template.FuncMap{
		"formatTime": formatTime,
	}

	layoutTmpl, err := template.New("layout").Funcs(funcMap).ParseFS(templateFS, "layout.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	pages := map[string]string{
		"list":    "list.html",
		"detail":  "detail.html",
		"history": "history.html",
		"error":   "error.html",
	}

	templates := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		t, err := layoutTmpl.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := t.ParseFS(templateFS, file); err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		templates[name] = t
	}

	return &Renderer{templates: templates, version: version, logger: logger}, nil
}

// page returns PageData for a page title and nav item.
func (r *Renderer) page(title, nav string) PageData {
	return PageData{Title: title, Version: r.version, Nav: nav}
}

// renderPage renders a named page template with HTTP 200.
func (r *Renderer) renderPage(w http.ResponseWriter, name string, data any) {
	r.renderPageStatus(w, http.StatusOK, name, data)
}

// renderPageStatus renders a named page template with the given HTTP status code.
func (r *Renderer) renderPageStatus(w http.ResponseWriter, status int, name string, data any) {
	t, ok := r.templates[name]
	if !ok {
		r.logger.Error("template not found", "template", name)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		r.logger.Error("template execution failed", "template", name, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderError renders an error response as JSON or as the error page.
// INTERNAL errors are logged and shown with a generic message.
func (r *Renderer) renderError(w http.ResponseWriter, req *http.Request, err error) {
	sErr, ok := errors.As(err)
	if !ok {
		sErr = errors.NewInternal(err)
	}

	status := sErr.HTTPStatus()
	message := sErr.Message
	if sErr.Code == errors.ErrInternal {
		r.logger.Error("request failed", "path", req.URL.Path, "error", err)
		message = "an internal error occurred"
	}

	if wantsJSON(req) {
		renderJSON(w, status, map[string]any{
			"error": map[string]any{
				"code":    string(sErr.Code),
				"message": message,
				"status":  status,
			},
		})
		return
	}

	r.renderPageStatus(w, status, "error", ErrorPageData{
		PageData:   r.page(fmt.Sprintf("Error %d", status), ""),
		StatusCode: status,
		Message:    message,
	})
}

// wantsJSON reports whether the client asked for JSON.
func wantsJSON(req *http.Request) bool {
	return strings.Contains(req.Header.Get("Accept"), "application/json") ||
		req.URL.Query().Get("format") == "json"
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// renderMarkdown converts markdown to HTML, falling back to escaped text.
func renderMarkdown(md []byte) template.HTML {
	html, err := docs.RenderHTML(md)
	if err != nil {
		return template.HTML("<pre>" + template.HTMLEscapeString(string(md)) + "</pre>")
	}
	return template.HTML(html)
}

// formatTime formats a Unix timestamp as "2006-01-02 15:04" UTC.
func formatTime(unix int64) string {
	return time.Unix(unix, 0).UTC().Format("2006-01-02 15:04")
}
