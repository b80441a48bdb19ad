// Package session 持有解析器注册表与全局选项存储，供所有请求共享。
//
// 全局选项（OptionStore）在启动时由 ApplyArgs 写入，之后以快照形式传给每个请求；
// 解析器参数默认值在 New 时固定，请求通过 PluginOptions 获得独立副本，
// 因此并发请求之间不会互相看到对方的参数值。
package session

import (
	"log/slog"
	"sync"
	"time"

	"resty.dev/v3"

	"github.com/lwmacct/251124-liveproxy/internal/resolver"
)

// DefaultOptions are the OptionStore values before any arguments are applied.
func DefaultOptions() map[string]any {
	return map[string]any{
		"http-ssl-verify":              true,
		"http-trust-env":               true,
		"http-timeout":                 20 * time.Second,
		"http-stream-timeout":          60 * time.Second,
		"ringbuffer-size":              16 * 1024 * 1024,
		"stream-segment-attempts":      3,
		"stream-segment-threads":       1,
		"stream-segment-timeout":       10 * time.Second,
		"stream-timeout":               60 * time.Second,
		"hls-live-edge":                3,
		"hls-segment-attempts":         3,
		"hls-playlist-reload-attempts": 3,
		"hls-segment-threads":          1,
		"hls-segment-timeout":          10 * time.Second,
		"hls-timeout":                  60 * time.Second,
		"hds-live-edge":                10.0,
		"hds-segment-attempts":         3,
		"hds-segment-threads":          1,
		"hds-segment-timeout":          10 * time.Second,
		"hds-timeout":                  60 * time.Second,
		"rtmp-timeout":                 60 * time.Second,
		"ffmpeg-ffmpeg":                "ffmpeg",
		"ffmpeg-video-transcode":       "h264",
		"ffmpeg-audio-transcode":       "aac",
	}
}

// Session is shared by every request-handling goroutine.
type Session struct {
	logger    *slog.Logger
	resolvers []resolver.Resolver
	defaults  map[string]*resolver.Options
	pool      *ClientPool

	mu      sync.RWMutex
	options *resolver.Options
}

// New returns a Session over the given resolvers, in lookup order.
// Argument declaration problems are logged; the resolver stays usable.
func New(logger *slog.Logger, resolvers ...resolver.Resolver) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		logger:    logger,
		resolvers: resolvers,
		defaults:  make(map[string]*resolver.Options, len(resolvers)),
		pool:      NewClientPool(10),
		options:   resolver.NewOptions(DefaultOptions()),
	}
	for _, r := range resolvers {
		for _, problem := range r.Arguments().Problems() {
			logger.Error("invalid resolver arguments", "resolver", r.Name(), "error", problem)
		}
		s.defaults[r.Name()] = resolver.NewOptions(resolver.Defaults(r.Arguments()))
	}
	return s
}

// Resolvers returns the registered resolvers in lookup order.
func (s *Session) Resolvers() []resolver.Resolver {
	return s.resolvers
}

// ResolveURL returns the first resolver that owns url.
func (s *Session) ResolveURL(url string) (resolver.Resolver, bool) {
	for _, r := range s.resolvers {
		if r.Match(url) {
			return r, true
		}
	}
	return nil, false
}

// ResolverName adapts ResolveURL for args.Merger.
func (s *Session) ResolverName(url string) (string, bool) {
	r, ok := s.ResolveURL(url)
	if !ok {
		return "", false
	}
	return r.Name(), true
}

// PluginOptions returns a request-owned copy of the named resolver's
// defaults. It returns nil for an unknown resolver.
func (s *Session) PluginOptions(name string) *resolver.Options {
	defaults, ok := s.defaults[name]
	if !ok {
		return nil
	}
	return defaults.Clone()
}

// SetOption sets one OptionStore value.
func (s *Session) SetOption(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.options.Set(key, value)
}

// Option returns one OptionStore value.
func (s *Session) Option(key string) any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.options.Get(key)
}

// Options returns a snapshot of the OptionStore.
func (s *Session) Options() *resolver.Options {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.options.Clone()
}

// HTTPClient returns the client matching the transport settings in opts.
func (s *Session) HTTPClient(opts *resolver.Options) (*resty.Client, error) {
	return s.pool.GetClient(ProfileFrom(opts))
}

// Close releases pooled HTTP clients.
func (s *Session) Close() {
	s.pool.CloseAll()
}
