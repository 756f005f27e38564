package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pbaille/sheet/internal/datamgmt"
	"github.com/pbaille/sheet/internal/domain"
	"github.com/pbaille/sheet/internal/fetcher"
	"github.com/pbaille/sheet/internal/skilltree"
	"github.com/pbaille/sheet/internal/storage"
	"github.com/pbaille/sheet/internal/validation"
)

// Deps are the services the API exposes
type Deps struct {
	Data     *datamgmt.Service
	Adapter  *storage.Adapter
	Registry *skilltree.Registry
	Skills   *skilltree.Service
	// Fetcher serves POST /import?url=. Remote import is refused when nil.
	Fetcher  *fetcher.Fetcher
	Logger   *slog.Logger
}

// Server handles HTTP requests for the character sheet API
type Server struct {
	Deps
	addr string
}

// New creates a new API server
func New(deps Deps, addr string) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Server{Deps: deps, addr: addr}
}

// Handler builds the router
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(withCORS)

	r.Get("/health", s.health)
	r.Handle("/metrics", promhttp.Handler())

	// Whole-sheet data management
	r.Get("/export", s.export)
	r.Post("/import", s.importSnapshot)
	r.Post("/validate", s.validate)
	r.Delete("/data", s.deleteAll)
	r.Get("/versions", s.versions)

	// Per-key widget persistence
	r.Route("/storage", func(r chi.Router) {
		r.Get("/", s.listKeys)
		r.Get("/{key}", s.getItem)
		r.Put("/{key}", s.setItem)
		r.Delete("/{key}", s.removeItem)
	})

	r.Route("/skill-trees", func(r chi.Router) {
		r.Get("/", s.listTrees)
		r.Get("/{id}", s.getTree)
		r.Put("/{id}/title", s.setTreeTitle)
		r.Put("/{id}/bonus", s.setTreeBonus)
		r.Post("/{id}/skills", s.addSkill)
		r.Patch("/{id}/skills/{skillID}", s.updateSkill)
		r.Delete("/{id}/skills/{skillID}", s.removeSkill)
	})

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.Logger.Info("starting server", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.Logger.Info("shutting down server")
		return srv.Shutdown(shutdownCtx)
	}
}

// withCORS adds CORS headers for frontend development
func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		h.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.Logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	snap, err := s.Data.ExportJSON(r.Context(), &buf)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	filename := datamgmt.SnapshotFilename(snap.Metadata.ExportDate, time.Now())
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// ImportResponse is the response for an import
type ImportResponse struct {
	Report  datamgmt.ImportReport `json:"report"`
	Partial bool                  `json:"partial"`
}

func (s *Server) importSnapshot(w http.ResponseWriter, r *http.Request) {
	var body io.Reader = http.MaxBytesReader(w, r.Body, datamgmt.MaxImportBytes)

	if src := r.URL.Query().Get("url"); src != "" {
		if s.Fetcher == nil {
			writeError(w, http.StatusForbidden, "remote import is disabled")
			return
		}
		raw, err := s.Fetcher.Fetch(r.Context(), src)
		if err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		body = bytes.NewReader(raw)
	}

	report, err := s.Data.ImportJSON(r.Context(), body)
	if err != nil {
		writeImportError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ImportResponse{Report: report, Partial: report.Partial()})
}

func (s *Server) validate(w http.ResponseWriter, r *http.Request) {
	result, err := s.Data.Validate(http.MaxBytesReader(w, r.Body, datamgmt.MaxImportBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) deleteAll(w http.ResponseWriter, r *http.Request) {
	restore, _ := strconv.ParseBool(r.URL.Query().Get("restoreDefaults"))

	removed, err := s.Data.DeleteAll(r.Context(), restore)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":   err.Error(),
			"removed": removed,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"removed":         removed,
		"restoreDefaults": restore,
	})
}

func (s *Server) versions(w http.ResponseWriter, r *http.Request) {
	m := s.Data.Migrator()
	writeJSON(w, http.StatusOK, map[string]any{
		"current":  m.Current(),
		"versions": m.Versions(),
	})
}

func (s *Server) listKeys(w http.ResponseWriter, r *http.Request) {
	keys, ok := s.Adapter.Keys(r.Context())
	if !ok {
		writeError(w, http.StatusNotImplemented, "backend cannot list keys")
		return
	}
	if keys == nil {
		keys = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"keys": keys})
}

func (s *Server) getItem(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	raw, ok := s.Adapter.GetRaw(r.Context(), key)
	if !ok {
		writeError(w, http.StatusNotFound, "key not found")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, raw)
}

func (s *Server) setItem(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if key == domain.KeySkillTreeIndex {
		writeError(w, http.StatusForbidden, "the skill tree index is managed by the server")
		return
	}

	treeID, isTree := domain.SkillTreeID(key)
	if isTree {
		if err := skilltree.ValidateID(treeID); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, datamgmt.MaxImportBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	if !json.Valid(raw) {
		writeError(w, http.StatusBadRequest, "body must be valid JSON")
		return
	}

	if !s.Adapter.SetRaw(r.Context(), key, string(raw)) {
		writeError(w, http.StatusInsufficientStorage, "value could not be stored")
		return
	}
	if isTree && !s.Registry.Add(r.Context(), treeID) {
		writeError(w, http.StatusInsufficientStorage, "skill tree index could not be updated")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) removeItem(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	ok := false
	if treeID, isTree := domain.SkillTreeID(key); isTree {
		ok = s.Registry.Remove(r.Context(), treeID)
	} else {
		_, err := s.Data.DeleteKeys(r.Context(), key)
		ok = err == nil
	}
	if !ok {
		writeError(w, http.StatusInternalServerError, "key could not be removed")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeImportError(w http.ResponseWriter, err error) {
	resp := map[string]any{"error": err.Error()}
	var verr *validation.Error
	if errors.As(err, &verr) {
		resp["validation"] = verr.Result
	}
	status := http.StatusBadRequest
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
