// Package httpstream resolves direct HTTP media URLs.
//
// It owns URLs written as "httpstream://<url>" and plain http(s) URLs whose
// path ends in a known media extension. The only stream it offers is
// "live", also reachable as "best" and "worst".
package httpstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"path"
	"slices"
	"strings"

	"resty.dev/v3"

	"github.com/lwmacct/251124-liveproxy/internal/resolver"
)

// Name is the resolver module name.
const Name = "httpstream"

const prefix = Name + "://"

var mediaExtensions = []string{
	".aac", ".flv", ".m4a", ".mkv", ".mp3", ".mp4", ".ogg", ".ts", ".webm",
}

var streamNames = []string{"live", "best", "worst"}

// ErrNoClient is returned when a request carries no HTTP client.
var ErrNoClient = errors.New("httpstream: no HTTP client")

// Resolver is the httpstream resolver.
type Resolver struct {
	args *resolver.Arguments
}

// New returns the resolver with its arguments declared.
func New() *Resolver {
	return &Resolver{
		args: resolver.NewArguments(
			&resolver.Argument{
				Name:     "username",
				Help:     "username for HTTP basic authentication",
				Requires: []string{"password"},
			},
			&resolver.Argument{Name: "password", Help: "password for HTTP basic authentication"},
			&resolver.Argument{Name: "referer", Help: "Referer header sent with the request"},
		),
	}
}

func (r *Resolver) Name() string { return Name }

func (r *Resolver) Arguments() *resolver.Arguments { return r.args }

// Match reports whether raw is an httpstream:// URL or a media file URL.
func (r *Resolver) Match(raw string) bool {
	if strings.HasPrefix(strings.ToLower(raw), prefix) {
		return true
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	return slices.Contains(mediaExtensions, strings.ToLower(path.Ext(u.Path)))
}

// Acquire returns the stream for req.URL. The request headers, cookies and
// query parameters come from the global options, credentials and referer
// from the resolver options.
func (r *Resolver) Acquire(_ context.Context, req *resolver.Request) (resolver.Stream, error) {
	if req.HTTP == nil {
		return nil, ErrNoClient
	}
	if !selectable(req.Streams) {
		return nil, fmt.Errorf("%w: %s", resolver.ErrNoStream, strings.Join(req.Streams, ","))
	}

	target := req.URL
	if strings.HasPrefix(strings.ToLower(target), prefix) {
		target = target[len(prefix):]
	}
	if !strings.Contains(target, "://") {
		target = "https://" + target
	}
	if _, err := url.Parse(target); err != nil {
		return nil, fmt.Errorf("httpstream: %w", err)
	}

	return &Stream{
		url:      target,
		client:   req.HTTP,
		headers:  req.Globals.StringMap("http-headers"),
		cookies:  req.Globals.StringMap("http-cookies"),
		params:   req.Globals.StringMap("http-query-params"),
		referer:  req.Options.String("referer"),
		username: req.Options.String("username"),
		password: req.Options.String("password"),
	}, nil
}

func selectable(requested []string) bool {
	if len(requested) == 0 {
		return true
	}
	for _, name := range requested {
		if slices.Contains(streamNames, name) {
			return true
		}
	}
	return false
}

// Stream is a single HTTP resource read with a GET request.
type Stream struct {
	url      string
	client   *resty.Client
	headers  map[string]string
	cookies  map[string]string
	params   map[string]string
	referer  string
	username string
	password string
}

func (s *Stream) URL() string { return s.url }

// Open issues the GET request. The caller must close the returned body.
func (s *Stream) Open(ctx context.Context) (io.ReadCloser, error) {
	req := s.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		SetHeaders(s.headers).
		SetQueryParams(s.params)
	for _, name := range slices.Sorted(maps.Keys(s.cookies)) {
		req.SetCookie(&http.Cookie{Name: name, Value: s.cookies[name]})
	}
	if s.referer != "" {
		req.SetHeader("Referer", s.referer)
	}
	if s.username != "" {
		req.SetBasicAuth(s.username, s.password)
	}

	resp, err := req.Get(s.url)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.url, err)
	}
	if resp.IsError() {
		if resp.Body != nil {
			_ = resp.Body.Close()
		}
		return nil, fmt.Errorf("open %s: %s", s.url, resp.Status())
	}
	return resp.Body, nil
}
