// Package reposerver serves a depfetch cache directory as a Maven-layout
// repository, so one machine's verified cache can be the upstream of
// another.
//
// A remote path such as
//
//	com/google/guava/guava/33.0.0-jre/guava-33.0.0-jre.jar
//
// maps to the cache file
//
//	<root>/com.google.guava/guava/33.0.0-jre/guava-33.0.0-jre.jar
//
// Only files that exist in the cache are served; everything else is a 404.
// Relocated variants are never exposed since their names carry a rule-set
// key that no remote layout path produces.
package reposerver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	deperrors "github.com/matzehuels/depfetch/pkg/errors"
)

// Server is an http.Handler exposing a cache root.
type Server struct {
	root   string
	logger *log.Logger
	router chi.Router
}

// New creates a server for the cache rooted at root.
func New(root string, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{root: filepath.Clean(root), logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok\n"))
	})
	r.Get("/*", s.serveFile)
	r.Head("/*", s.serveFile)
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return deperrors.Wrap(deperrors.ErrCodeNetwork, err, "listen on %s", addr)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: s, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	s.logger.Info("serving cache", "root", s.root, "addr", ln.Addr().String())

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) serveFile(w http.ResponseWriter, r *http.Request) {
	path, err := LocalPath(s.root, chi.URLParam(r, "*"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	f, err := os.Open(path)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		http.NotFound(w, r)
		return
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

// LocalPath maps a remote layout path to its file under root. The last
// three segments are artifact, version and file name; the leading segments
// form the group.
func LocalPath(root, remote string) (string, error) {
	segs := strings.Split(strings.Trim(remote, "/"), "/")
	if len(segs) < 4 {
		return "", deperrors.New(deperrors.ErrCodeInvalidPath, "not a repository path: %q", remote)
	}
	for _, seg := range segs {
		if err := deperrors.ValidateSegment("path segment", seg); err != nil {
			return "", deperrors.Wrap(deperrors.ErrCodeInvalidPath, err, "invalid repository path %q", remote)
		}
	}
	n := len(segs)
	group := strings.Join(segs[:n-3], ".")
	return filepath.Join(root, group, segs[n-3], segs[n-2], segs[n-1]), nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path,
			"status", ww.Status(), "bytes", ww.BytesWritten(), "duration", time.Since(start))
	})
}
