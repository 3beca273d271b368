// Package web serves a read-only browser for a repository's features.
package web

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/hpungsan/spec/internal/config"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// DefaultPort is the port `spec serve` listens on.
const DefaultPort = 4873

// Options configures the feature browser.
type Options struct {
	RepoRoot string
	Config   *config.Config
	DB       *sql.DB
	Version  string
	Bind     string
	Port     int
	Logger   *slog.Logger
}

// NewServer creates and configures the HTTP server for the feature browser.
func NewServer(opts Options) (*http.Server, error) {
	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("template sub-FS: %w", err)
	}
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("static sub-FS: %w", err)
	}

	renderer, err := NewRenderer(templateSub, opts.Version, opts.Logger)
	if err != nil {
		return nil, err
	}

	h := &Handlers{
		repoRoot: opts.RepoRoot,
		cfg:      opts.Config,
		db:       opts.DB,
		renderer: renderer,
	}

	bind := opts.Bind
	if bind == "" {
		bind = "127.0.0.1"
	}
	port := opts.Port
	if port == 0 {
		port = DefaultPort
	}

	return &http.Server{
		Addr:              net.JoinHostPort(bind, strconv.Itoa(port)),
		Handler:           securityHeaders(routes(h, staticSub)),
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}

func routes(h *Handlers, static fs.FS) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/features", http.StatusFound)
	})
	mux.HandleFunc("GET /features", h.HandleList)
	mux.HandleFunc("GET /features/{slug}", h.HandleDetail)
	mux.HandleFunc("GET /features/{slug}/docs/{template}", h.HandleDocument)
	mux.HandleFunc("GET /history", h.HandleHistory)

	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))
	return mux
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, srv *http.Server, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	host, _, _ := net.SplitHostPort(srv.Addr)
	if ip := net.ParseIP(host); ip != nil && ip.IsUnspecified() {
		logger.Warn("server is binding to all interfaces and may be reachable from the network", "addr", srv.Addr)
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
