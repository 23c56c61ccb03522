// Package server serves frames and dataset info to the web viewer, next to the viewer's
// static files.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/dataviewer2d/dataviewer/internal/frameindex"
	"github.com/dataviewer2d/dataviewer/pkg/scene"
)

// FrameSource is what the server reads frames from.
type FrameSource interface {
	Index() *frameindex.Index
	ReadFrame(n int) (scene.Scene, error)
}

// FrameResponse is the body of GET /frame/{n}.
type FrameResponse struct {
	Drawings scene.Scene `json:"drawings"`
}

// Server routes viewer requests.
type Server struct {
	src  FrameSource
	web  fs.FS
	log  *slog.Logger
	mux  *http.ServeMux
	addr string
}

// New creates a server reading frames from src and static files from webRoot.
func New(src FrameSource, addr, webRoot string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		src:  src,
		web:  os.DirFS(webRoot),
		log:  log.With("component", "server"),
		mux:  http.NewServeMux(),
		addr: addr,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthcheck", s.handleHealthcheck)
	s.mux.HandleFunc("GET /data-info", s.handleDataInfo)
	s.mux.HandleFunc("GET /frame/{n}", s.handleFrame)
	s.mux.HandleFunc("GET /css/{file...}", s.handleCSS)
	s.mux.HandleFunc("GET /fonts/{file...}", s.handleFonts)
	s.mux.HandleFunc("GET /{$}", s.handleRoot)
	s.mux.HandleFunc("GET /", s.handleStatic)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.mux.ServeHTTP(rec, r)
	s.log.Debug("Served request",
		"method", r.Method,
		"path", r.URL.Path,
		"status", rec.status,
		"duration", time.Since(start))
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealthcheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// handleDataInfo answers {} until the index has both frames and a bounding box.
func (s *Server) handleDataInfo(w http.ResponseWriter, r *http.Request) {
	info := s.src.Index().Info()
	if info.Empty() {
		writeJSON(w, http.StatusOK, struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(r.PathValue("n"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "frame number must be an integer"})
		return
	}

	shapes, err := s.src.ReadFrame(n)
	if err != nil {
		s.log.Error("Failed to read frame", "frame", n, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if shapes == nil {
		shapes = scene.Scene{}
	}
	writeJSON(w, http.StatusOK, FrameResponse{Drawings: shapes})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.serveFile(w, r, s.web, "index.html")
}

// handleStatic serves .html, .js and .ico files from the web root.
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
	switch path.Ext(name) {
	case ".html", ".js", ".ico":
		s.serveFile(w, r, s.web, name)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleCSS(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("file")
	if path.Ext(name) != ".css" {
		http.NotFound(w, r)
		return
	}
	s.serveFile(w, r, s.web, path.Join("css", name))
}

func (s *Server) handleFonts(w http.ResponseWriter, r *http.Request) {
	s.serveFile(w, r, s.web, path.Join("fonts", r.PathValue("file")))
}

// serveFile writes a regular file from fsys. Directories and invalid names are not found.
func (s *Server) serveFile(w http.ResponseWriter, r *http.Request, fsys fs.FS, name string) {
	if !fs.ValidPath(name) {
		http.NotFound(w, r)
		return
	}
	f, err := fsys.Open(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil || st.IsDir() {
		http.NotFound(w, r)
		return
	}
	rs, ok := f.(io.ReadSeeker)
	if !ok {
		http.Error(w, "file not seekable", http.StatusInternalServerError)
		return
	}
	http.ServeContent(w, r, st.Name(), st.ModTime(), rs)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
