// Package server exposes an editing session over HTTP: a JSON API for the
// page model, a live preview, the exported files and a websocket feed of
// page changes.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"go-page-builder/internal/component"
	"go-page-builder/internal/pagemodel"
	"go-page-builder/internal/session"
	"go-page-builder/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/justinas/nosurf"
	"go.uber.org/zap"
)

// maxBodyBytes bounds request bodies, including uploaded snapshots.
const maxBodyBytes = 4 << 20

// Config holds the server settings.
type Config struct {
	Addr           string
	CSRF           bool     // Require a nosurf token on mutating API calls
	AllowedOrigins []string // Websocket origins; empty means same host only
	ExportDir      string   // Target of POST /api/page/export
	AssetsDir      string
}

// Server serves one editing session.
type Server struct {
	cfg      Config
	session  *session.Session
	router   chi.Router
	upgrader websocket.Upgrader
	hub      *hub
	logger   *zap.Logger

	unsubscribe func()
}

// New builds the router for sess. A nil logger discards output.
func New(sess *session.Session, cfg Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:     cfg,
		session: sess,
		router:  chi.NewRouter(),
		hub:     newHub(logger),
		logger:  logger,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	s.unsubscribe = sess.Page().OnChange(s.hub.publish)
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/preview", http.StatusFound)
	})
	r.Get("/preview", s.handlePreview)
	r.Get("/export/{file}", s.handleExportFile)
	r.Get("/ws", s.handleWS)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		if s.cfg.CSRF {
			r.Use(s.csrf)
		}

		r.Get("/csrf", s.handleCSRFToken)
		r.Get("/catalog", s.handleCatalog)

		r.Get("/page", s.handleGetPage)
		r.Get("/page/snapshot", s.handleGetSnapshot)
		r.Post("/page/snapshot", s.handleLoadSnapshot)
		r.Get("/page/outline", s.handleOutline)
		r.Put("/page/metadata", s.handleSetMetadata)
		r.Put("/page/selection", s.handleSelect)
		r.Post("/page/new", s.handleNewPage)
		r.Post("/page/clear", s.handleClear)
		r.Post("/page/save", s.handleSave)
		r.Post("/page/export", s.handleExport)

		r.Post("/components", s.handleAddComponent)
		r.Get("/components", s.handleListComponents)
		r.Get("/components/{id}", s.handleGetComponent)
		r.Patch("/components/{id}", s.handleUpdateComponent)
		r.Delete("/components/{id}", s.handleRemoveComponent)
		r.Post("/components/{id}/move", s.handleMoveComponent)

		r.Get("/pages", s.handleListPages)
		r.Post("/pages/{pageID}/open", s.handleOpenPage)
		r.Delete("/pages/{pageID}", s.handleDeletePage)
		r.Get("/pages/{pageID}/revisions", s.handleListRevisions)
		r.Post("/pages/{pageID}/revisions/{number}/restore", s.handleRestoreRevision)
		r.Get("/pages/{pageID}/diff", s.handleDiff)
	})
}

// csrf rejects unsafe API requests that lack the nosurf token.
func (s *Server) csrf(next http.Handler) http.Handler {
	h := nosurf.New(next)
	h.SetBaseCookie(http.Cookie{Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode})
	h.SetFailureHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Warn("csrf check failed", zap.String("path", r.URL.Path), zap.Error(nosurf.Reason(r)))
		writeError(w, http.StatusForbidden, "invalid or missing CSRF token")
	}))
	return h
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http_request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if len(s.cfg.AllowedOrigins) == 0 {
		return sameHost(origin, r.Host)
	}
	for _, o := range s.cfg.AllowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// HTTPServer creates an *http.Server ready to ListenAndServe.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      0, // Websocket connections stay open
	}
}

// Close stops the change feed and disconnects websocket clients.
func (s *Server) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.hub.close()
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeErr maps domain errors to status codes.
func (s *Server) writeErr(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrPageNotFound), errors.Is(err, storage.ErrRevisionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, storage.ErrInvalidPageID):
		status = http.StatusBadRequest
	case errors.Is(err, session.ErrUnsavedChanges):
		status = http.StatusConflict
	case errors.Is(err, component.ErrUnknownType),
		errors.Is(err, component.ErrInvalid),
		errors.Is(err, pagemodel.ErrMalformedSnapshot):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	writeError(w, status, err.Error())
}

// decodeJSON reads a JSON body into v. An empty body leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
