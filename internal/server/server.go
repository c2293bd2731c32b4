// Package server wires together HTTP routes, dependency injection, and the
// intake rules. Handlers receive http.ResponseWriter + *http.Request and are
// routed through gorilla/mux.
package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/intake/internal/config"
	"github.com/dharsanguruparan/intake/internal/intake"
	"github.com/dharsanguruparan/intake/internal/queue"
	"github.com/dharsanguruparan/intake/internal/reportlog"
	"github.com/dharsanguruparan/intake/web"
)

const trollMessage = "mau ngapain sih mas?"

// Server hosts the HTTP handlers of the intake service.
type Server struct {
	cfg        *config.Config
	policy     intake.Policy
	reports    reportlog.Log
	dispatcher queue.Dispatcher
	views      fs.FS
	logger     *zap.Logger
	now        func() time.Time

	handler http.Handler
	once    sync.Once
}

// New creates a configured server. The public directory is created if it
// does not exist. A nil dispatcher disables archiving.
func New(cfg *config.Config, reports reportlog.Log, dispatcher queue.Dispatcher, logger *zap.Logger) (*Server, error) {
	if err := os.MkdirAll(cfg.PublicDir, 0o750); err != nil {
		return nil, fmt.Errorf("create public dir: %w", err)
	}
	views := web.Views()
	if cfg.ViewsDir != "" {
		if _, err := os.Stat(cfg.ViewsDir); err != nil {
			return nil, fmt.Errorf("views dir: %w", err)
		}
		views = os.DirFS(cfg.ViewsDir)
	}
	if dispatcher == nil {
		dispatcher = queue.Noop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg:        cfg,
		policy:     intake.NewPolicy(cfg.AllowedExtensions, cfg.Blacklist),
		reports:    reports,
		dispatcher: dispatcher,
		views:      views,
		logger:     logger,
		now:        time.Now,
	}, nil
}

// Handler returns the fully wrapped router.
func (s *Server) Handler() http.Handler {
	s.once.Do(func() {
		s.handler = s.recoverPanics(s.logRequests(s.routes()))
	})
	return s.handler
}

// Serve launches the HTTP server until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.cfg.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()
	s.logger.Info("Server berjalan di http://localhost"+s.cfg.Address,
		zap.String("public_dir", s.cfg.PublicDir),
		zap.Strings("extensions", s.policy.Extensions()))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/upload", s.handleUpload).Methods(http.MethodPost)
	r.HandleFunc("/api/files", s.handleListFiles).Methods(http.MethodGet)
	r.HandleFunc("/api/lapor", s.handleReport).Methods(http.MethodPost)
	r.HandleFunc("/api", s.handleTroll).Methods(http.MethodGet)

	r.HandleFunc("/", s.page("index.html")).Methods(http.MethodGet)
	r.HandleFunc("/lapor", s.page("lapor.html")).Methods(http.MethodGet)
	r.HandleFunc("/tutorial", s.page("tutorial.html")).Methods(http.MethodGet)

	public := http.StripPrefix("/public/", http.FileServer(http.Dir(s.cfg.PublicDir)))
	r.PathPrefix("/public/").Handler(noDirListing(public)).Methods(http.MethodGet, http.MethodHead)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTroll(w http.ResponseWriter, r *http.Request) {
	respondText(w, http.StatusOK, trollMessage)
}

func (s *Server) page(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.ServeFileFS(w, r, s.views, name)
	}
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(s.cfg.PublicDir)
	if err != nil {
		s.requestLogger(r).Error("read public dir", zap.Error(err))
		respondText(w, http.StatusInternalServerError, "Gagal membaca file!")
		return
	}
	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !s.policy.AllowsExtension(entry.Name()) {
			continue
		}
		files = append(files, entry.Name())
	}
	respondJSON(w, http.StatusOK, map[string][]string{"files": files})
}

func noDirListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
