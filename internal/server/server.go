package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"photowall/internal/album"
	"photowall/internal/library"
	"photowall/internal/logging"
)

// Server is the album collaborator: it serves random album listings out of
// the library index, the original photo files, and on-demand quality-tiered
// variants cached on disk.
type Server struct {
	index    *library.Index
	root     string
	cacheDir string
	bind     string
	logger   *slog.Logger

	listener net.Listener
	server   *http.Server

	mu        sync.Mutex
	lastAlbum string
}

// New constructs a collaborator server over the library root.
func New(index *library.Index, root, cacheDir, bind string, logger *slog.Logger) *Server {
	s := &Server{
		index:    index,
		root:     root,
		cacheDir: cacheDir,
		bind:     bind,
		logger:   logging.NewComponentLogger(logger, "album-server"),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/album/", s.handleAlbum)
	mux.HandleFunc("/photos/", s.handleOriginal)
	mux.HandleFunc("/thumbs/", s.handleVariant)
	s.server = &http.Server{
		Handler:           s.withRequestID(mux),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the routed handler, for in-process tests.
func (s *Server) Handler() http.Handler { return s.server.Handler }

// Start binds the listener and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("album listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("album server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("album server listening", slog.String("address", listener.Addr().String()))
	return nil
}

// Stop shuts the server down.
func (s *Server) Stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// Addr returns the bound listener address, or empty before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		w.Header().Set("X-Request-ID", requestID)
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request served",
			slog.String("request_id", requestID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			logging.Duration("elapsed", time.Since(start)),
		)
	})
}

// handleAlbum serves GET /album/{count}: a random album listing trimmed to
// count photos. Consecutive requests avoid repeating the same album when the
// library has more than one.
func (s *Server) handleAlbum(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	countStr := strings.TrimPrefix(r.URL.Path, "/album/")
	count, err := strconv.Atoi(countStr)
	if err != nil || count < 0 {
		http.Error(w, "invalid count", http.StatusBadRequest)
		return
	}
	if count == 0 {
		s.writeJSON(w, album.Data{Count: 0, Images: []album.ImageRef{}})
		return
	}

	s.mu.Lock()
	avoid := s.lastAlbum
	s.mu.Unlock()

	name, err := s.index.RandomAlbum(r.Context(), 1, avoid)
	if errors.Is(err, library.ErrNoAlbum) {
		http.Error(w, "library empty", http.StatusServiceUnavailable)
		return
	}
	if err != nil {
		s.logger.Error("album draw failed", logging.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	photos, err := s.index.RandomPhotos(r.Context(), name, count)
	if err != nil {
		s.logger.Error("photo draw failed",
			logging.String(logging.FieldAlbum, name),
			logging.Error(err),
		)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.mu.Lock()
	s.lastAlbum = name
	s.mu.Unlock()

	images := make([]album.ImageRef, len(photos))
	for i, p := range photos {
		images[i] = album.ImageRef{File: p.File, Width: p.Width, Height: p.Height}
	}
	s.writeJSON(w, album.Data{Name: name, Count: len(images), Images: images})
}

// handleOriginal serves GET /photos/{file} straight from the library root.
func (s *Server) handleOriginal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rel, ok := s.safeRel(strings.TrimPrefix(r.URL.Path, "/photos/"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, filepath.Join(s.root, rel))
}

// safeRel normalizes a request path to a library-relative file path,
// rejecting anything that escapes the root.
func (s *Server) safeRel(raw string) (string, bool) {
	cleaned := filepath.Clean(filepath.FromSlash(raw))
	if cleaned == "." || cleaned == "" {
		return "", false
	}
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", false
	}
	return cleaned, true
}

func (s *Server) writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("encode response", logging.Error(err))
	}
}
