package proxy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/spf13/afero"

	"github.com/lwmacct/251124-liveproxy/internal/args"
	"github.com/lwmacct/251124-liveproxy/internal/config"
	"github.com/lwmacct/251124-liveproxy/internal/session"
)

// Server represents the LiveProxy HTTP server
type Server struct {
	config     *config.Config
	session    *session.Session
	merger     *args.Merger
	logger     *slog.Logger
	fs         afero.Fs
	routes     []route
	httpServer *http.Server
	actualPort int
}

// NewServer creates a new server instance. sess and merger are shared by
// all requests; logger may be nil.
func NewServer(cfg *config.Config, sess *session.Session, merger *args.Merger, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}
	if sess == nil || merger == nil {
		return nil, errors.New("server needs a session and a merger")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config:  cfg,
		session: sess,
		merger:  merger,
		logger:  logger,
		fs:      afero.NewOsFs(),
	}
	s.routes = []route{
		{prefix: "/play/", mode: modeStream},
		{prefix: "/301/", mode: modeRedirect},
	}
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadTimeout:       s.config.Timeout,
		ReadHeaderTimeout: s.config.Timeout,
		IdleTimeout:       s.config.Timeout,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelDebug),
	}
	return s, nil
}

// Handler returns the request handler, wrapped in the access log unless
// disabled.
func (s *Server) Handler() http.Handler {
	var handler http.Handler = http.HandlerFunc(s.dispatch)
	if !s.config.NoAccessLog {
		handler = s.accessLogMiddleware(handler)
	}
	return handler
}

// Run listens on the configured address and serves until Shutdown.
func (s *Server) Run() error {
	listener, err := s.listen()
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.actualPort = listener.Addr().(*net.TCPAddr).Port

	// Write port to file
	if err := s.writePortInfo(); err != nil {
		s.logger.Warn("failed to write port file", "path", s.config.PortFile, "error", err)
	}

	// Print startup info
	fmt.Printf("PORT=%d\n", s.actualPort)
	s.logger.Info("liveproxy server starting", "addr", listener.Addr().String())

	if err := s.httpServer.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits up to five seconds for
// active requests before closing the rest.
func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Warn("graceful shutdown timed out, closing connections", "error", err)
		_ = s.httpServer.Close()
	}

	s.session.Close()

	// Clean up port file
	if s.config.PortFile != "" {
		if err := s.fs.Remove(s.config.PortFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("failed to remove port file", "path", s.config.PortFile, "error", err)
		}
	}

	s.logger.Info("server shutdown complete")
}

// listen binds the configured port; port 0 picks a free one.
func (s *Server) listen() (net.Listener, error) {
	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
	return net.Listen("tcp", addr)
}

func (s *Server) writePortInfo() error {
	if s.config.PortFile == "" {
		return nil
	}

	return afero.WriteFile(s.fs, s.config.PortFile, fmt.Appendf(nil, "%d\n", s.actualPort), 0o644)
}

func (s *Server) accessLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		s.logger.Info("access",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.statusCode,
			"bytes", wrapped.written,
			"duration", time.Since(start),
			"remote", r.RemoteAddr,
		)
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int64
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(p []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(p)
	rw.written += int64(n)
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying connection.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
