package proxy

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/lwmacct/251124-liveproxy/internal/resolver"
)

const serverName = "LiveProxy"

type mode int

const (
	modeStream mode = iota
	modeRedirect
)

func (m mode) String() string {
	if m == modeRedirect {
		return "redirect"
	}
	return "stream"
}

// route maps a path prefix to a response mode.
type route struct {
	prefix string
	mode   mode
}

// dispatch is the only handler. It works on the raw request target so that
// embedded URLs keep their "//" and escapes.
func (s *Server) dispatch(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Server", serverName)

	switch r.Method {
	case http.MethodGet:
	case http.MethodHead:
		s.notFound(w)
		return
	default:
		s.errorResponse(w, http.StatusNotImplemented)
		return
	}

	target := r.RequestURI
	if !strings.HasPrefix(target, "/") {
		target = r.URL.RequestURI()
	}
	for _, rt := range s.routes {
		if rest, ok := strings.CutPrefix(target, rt.prefix); ok {
			s.handlePlay(w, r, rt.mode, rest)
			return
		}
	}
	s.notFound(w)
}

// handlePlay resolves the embedded URL and streams or redirects to it.
func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request, m mode, rest string) {
	targetURL, streams, err := parseTarget(rest)
	if err != nil || targetURL == "" {
		s.logger.Debug("no target URL in request", "path", r.RequestURI, "error", err)
		s.notFound(w)
		return
	}

	stream, err := s.acquire(r.Context(), targetURL, streams)
	if err != nil {
		s.logger.Error("failed to acquire stream", "url", targetURL, "mode", m.String(), "error", err)
		s.notFound(w)
		return
	}

	if m == modeRedirect {
		s.redirect(w, targetURL, stream)
		return
	}
	s.stream(w, r, targetURL, stream)
}

func (s *Server) redirect(w http.ResponseWriter, targetURL string, stream resolver.Stream) {
	location := stream.URL()
	if location == "" {
		s.logger.Error("stream has no direct URL", "url", targetURL)
		s.notFound(w)
		return
	}
	w.Header().Set("Location", location)
	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusMovedPermanently)
}

func (s *Server) stream(w http.ResponseWriter, r *http.Request, targetURL string, stream resolver.Stream) {
	body, err := stream.Open(r.Context())
	if err != nil {
		s.logger.Error("failed to open stream", "url", targetURL, "error", err)
		s.notFound(w)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "video/unknown")
	w.WriteHeader(http.StatusOK)

	n, err := io.Copy(newStreamWriter(w, s.config.Timeout), body)
	switch {
	case err == nil:
		s.logger.Debug("stream finished", "url", targetURL, "bytes", n)
	case r.Context().Err() != nil || isDisconnect(err):
		s.logger.Debug("client disconnected", "url", targetURL, "bytes", n)
	default:
		s.logger.Warn("stream interrupted", "url", targetURL, "bytes", n, "error", err)
	}
}

// parseTarget extracts the embedded URL from the path remainder. Two forms
// are accepted:
//
//	/play/<url>                 the rest of the target, path-unescaped
//	/play/?url=<url>&stream=best
func parseTarget(rest string) (target, streams string, err error) {
	if query, ok := strings.CutPrefix(rest, "?"); ok {
		values, err := url.ParseQuery(query)
		if err != nil {
			return "", "", err
		}
		streams = values.Get("stream")
		if streams == "" {
			streams = values.Get("q")
		}
		return values.Get("url"), streams, nil
	}
	target, err = url.PathUnescape(rest)
	return target, "", err
}

func (s *Server) notFound(w http.ResponseWriter) {
	s.errorResponse(w, http.StatusNotFound)
}

func (s *Server) errorResponse(w http.ResponseWriter, statusCode int) {
	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(statusCode)
}

// streamWriter flushes every chunk and pushes the write deadline forward,
// so a stalled client is dropped while a slow but live one is not.
type streamWriter struct {
	w       io.Writer
	rc      *http.ResponseController
	timeout time.Duration
}

func newStreamWriter(w http.ResponseWriter, timeout time.Duration) *streamWriter {
	return &streamWriter{w: w, rc: http.NewResponseController(w), timeout: timeout}
}

func (sw *streamWriter) Write(p []byte) (int, error) {
	if sw.timeout > 0 {
		// 不支持写超时的 ResponseWriter (如测试用的 recorder) 忽略即可
		_ = sw.rc.SetWriteDeadline(time.Now().Add(sw.timeout))
	}
	n, err := sw.w.Write(p)
	if err != nil {
		return n, err
	}
	if err := sw.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return n, err
	}
	return n, nil
}

func isDisconnect(err error) bool {
	return errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, os.ErrDeadlineExceeded) ||
		errors.Is(err, http.ErrHandlerTimeout) ||
		errors.Is(err, io.ErrClosedPipe)
}
